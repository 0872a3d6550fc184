package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInWhiteList(t *testing.T) {
	tests := []struct {
		name      string
		ip        string
		whiteList []string
		expected  bool
	}{
		{"Empty whitelist", "192.168.1.1", []string{}, false},
		{"Exact match", "192.168.1.1", []string{"10.0.0.1", "192.168.1.1"}, true},
		{"Single asterisk prefix match", "192.168.1.42", []string{"192.168.*"}, true},
		{"Multi-level asterisk match", "10.20.30.40", []string{"10.*"}, true},
		{"No match in list", "172.16.0.1", []string{"192.168.*", "10.0.0.1"}, false},
		{"Asterisk not at end", "192.168.1.100", []string{"192.*.1.*"}, false},
		{"Prefix longer than IP", "192.168.1", []string{"192.168.1.*"}, false},
		{"Match after earlier mismatch", "10.1.2.3", []string{"192.168.*", "10.*"}, true},
		{"Invalid asterisk position skipped", "192.168.1.1", []string{"192.168.*.1"}, false},
		{"Prefix must end on an octet", "100.1.2.3", []string{"10.*"}, false},
		{"IPv6 should not match", "2001:db8::1", []string{"192.168.*"}, false},
		{"IPv4-mapped IPv6 should not match", "::ffff:192.168.1.1", []string{"192.168.*"}, false},
		{"Invalid IP format", "invalid-ip", []string{"192.168.*"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isInWhiteList(tt.ip, tt.whiteList),
				"IP: %s, whitelist: %v", tt.ip, tt.whiteList)
		})
	}
}

func TestAuthorizers(t *testing.T) {
	assert.NoError(t, AllowAll{}.Authorize(Sender{IP: "8.8.8.8"}))

	w := IPWhiteList{Patterns: []string{"10.*"}}
	assert.NoError(t, w.Authorize(Sender{IP: "10.0.0.5"}))
	assert.Equal(t, ErrUnauthorized, w.Authorize(Sender{IP: "8.8.8.8"}))
}
