package domain

import (
	"errors"
	"net"
	"strings"
)

var ErrUnauthorized = errors.New("отправитель не авторизован")

// Sender identifies the session an update arrived on.
type Sender struct {
	SessionID string
	IP        string
}

// Authorizer decides whether a sender may submit driver updates.
type Authorizer interface {
	Authorize(Sender) error
}

type AllowAll struct{}

func (AllowAll) Authorize(Sender) error { return nil }

// IPWhiteList accepts IPv4 senders matching an exact address or a prefix
// pattern ending in a single "*", e.g. "10.*".
type IPWhiteList struct {
	Patterns []string
}

func (w IPWhiteList) Authorize(s Sender) error {
	if !isInWhiteList(s.IP, w.Patterns) {
		return ErrUnauthorized
	}
	return nil
}

func isInWhiteList(ip string, whiteList []string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil || strings.Contains(ip, ":") {
		return false
	}

	for _, pattern := range whiteList {
		stars := strings.Count(pattern, "*")
		switch {
		case stars == 0:
			if pattern == ip {
				return true
			}
		case stars == 1 && strings.HasSuffix(pattern, ".*"):
			if strings.HasPrefix(ip, strings.TrimSuffix(pattern, "*")) {
				return true
			}
		}
	}
	return false
}
