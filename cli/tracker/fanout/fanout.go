package fanout

import (
	"context"

	"github.com/unibus/tracker/libs/live"
)

// Scope names who a topic reaches.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeRoute
)

type Topic struct {
	Scope Scope  `json:"scope"`
	Route string `json:"route,omitempty"`
}

// All is the single global topic every emission currently uses.
var All = Topic{Scope: ScopeAll}

func RouteTopic(route string) Topic {
	return Topic{Scope: ScopeRoute, Route: route}
}

// Broadcaster delivers an envelope to every subscriber of a topic.
type Broadcaster interface {
	Publish(ctx context.Context, topic Topic, env live.Envelope) error
}

// Multi publishes to each broadcaster in order and returns the first error.
type Multi []Broadcaster

func (m Multi) Publish(ctx context.Context, topic Topic, env live.Envelope) error {
	var first error
	for _, b := range m {
		if err := b.Publish(ctx, topic, env); err != nil && first == nil {
			first = err
		}
	}
	return first
}
