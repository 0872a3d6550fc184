package hydrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/unibus/tracker/libs/live"
)

const DefaultTimeout = 10 * time.Second

var ErrUnsuccessful = errors.New("сервер вернул success=false")

// Fetcher downloads the location snapshot from the tracker REST API.
type Fetcher struct {
	BaseURL string
	Client  *http.Client
}

func New(baseURL string) *Fetcher {
	return &Fetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: DefaultTimeout},
	}
}

// Fetch issues GET /location and returns the snapshot entries.
func (f *Fetcher) Fetch(ctx context.Context) ([]live.SnapshotEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"/location", nil)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать запрос: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить снимок: %w", err)
	}
	defer resp.Body.Close()

	var body live.SnapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("некорректный ответ (%s): %w", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK || !body.Success {
		return nil, fmt.Errorf("%w: %s %s", ErrUnsuccessful, resp.Status, body.Error)
	}
	return body.Data, nil
}
