package hydrate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unibus/tracker/libs/live"
)

func TestFetch(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantLen int
		wantErr error
	}{
		{
			name:    "ok",
			status:  http.StatusOK,
			body:    `{"success":true,"data":[{"bus":"64f0c0ffee00000000000007","busCode":"bus_7","latitude":12.97,"longitude":77.59,"speed":18,"status":"running","capturedAt":"2024-03-01T12:00:00Z"}]}`,
			wantLen: 1,
		},
		{
			name:    "empty",
			status:  http.StatusOK,
			body:    `{"success":true,"data":[]}`,
			wantLen: 0,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"success":false,"error":"storage unavailable"}`,
			wantErr: ErrUnsuccessful,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/location", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := New(srv.URL+"/").Fetch(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, "bus_7", got[0].Identity())
				assert.Equal(t, live.StatusRunning, got[0].Status)
				require.NotNil(t, got[0].CapturedAt)
			}
		})
	}
}

func TestFetchMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Fetch(context.Background())
	assert.Error(t, err)
}
