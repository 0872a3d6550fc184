package types

import (
	"errors"
	"time"

	"github.com/unibus/tracker/libs/live"
)

var ErrLocationNotFound = errors.New("запись о местоположении не найдена")

// Bus is a directory record. Ref is the canonical identifier, Code is the
// short form drivers put on the wire.
type Bus struct {
	Ref      string      `json:"id" yaml:"ref"`
	Code     string      `json:"code" yaml:"code"`
	Name     string      `json:"name" yaml:"name"`
	Plate    string      `json:"plate" yaml:"plate"`
	RouteRef string      `json:"route" yaml:"route"`
	Status   live.Status `json:"status" yaml:"status"`
}

func (b Bus) DisplayName() string {
	if b.Name != "" {
		return b.Name
	}
	return b.Code
}

// Location is the single latest-fix record kept per bus.
type Location struct {
	BusRef     string      `json:"bus"`
	BusCode    string      `json:"busCode"`
	RouteRef   string      `json:"route,omitempty"`
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	Speed      float64     `json:"speed"`
	Status     live.Status `json:"status"`
	CapturedAt time.Time   `json:"capturedAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// Merge applies an incoming fix on top of the stored one. An empty route on
// the incoming fix keeps the stored route.
func (l Location) Merge(incoming Location) Location {
	if incoming.RouteRef == "" {
		incoming.RouteRef = l.RouteRef
	}
	return incoming
}

func (l Location) ToSnapshot(name string) live.SnapshotEntry {
	captured, updated := l.CapturedAt, l.UpdatedAt
	e := live.SnapshotEntry{
		Bus:       l.BusRef,
		BusCode:   l.BusCode,
		BusName:   name,
		Route:     l.RouteRef,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
		Speed:     l.Speed,
		Status:    l.Status,
	}
	if !captured.IsZero() {
		e.CapturedAt = &captured
	}
	if !updated.IsZero() {
		e.UpdatedAt = &updated
	}
	return e
}
