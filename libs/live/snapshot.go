package live

import "time"

// SnapshotEntry is one element of the GET /location response.
type SnapshotEntry struct {
	Bus        string     `json:"bus"`
	BusCode    string     `json:"busCode"`
	BusName    string     `json:"busName,omitempty"`
	Route      string     `json:"route,omitempty"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Speed      float64    `json:"speed"`
	Status     Status     `json:"status"`
	CapturedAt *time.Time `json:"capturedAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// Timestamp prefers the capture time and falls back to the update time.
func (e SnapshotEntry) Timestamp() time.Time {
	if e.CapturedAt != nil {
		return *e.CapturedAt
	}
	if e.UpdatedAt != nil {
		return *e.UpdatedAt
	}
	return time.Time{}
}

// Identity is the key viewers use for the bus: its short code when known.
func (e SnapshotEntry) Identity() string {
	if e.BusCode != "" {
		return e.BusCode
	}
	return e.Bus
}

func (e SnapshotEntry) ToEvent() LocationEvent {
	name := e.BusName
	if name == "" {
		name = e.Identity()
	}
	return LocationEvent{
		BusID:   e.Identity(),
		BusName: name,
		RouteID: e.Route,
		Lat:     e.Latitude,
		Lng:     e.Longitude,
		Speed:   e.Speed,
		Status:  e.Status,
		Time:    e.Timestamp(),
	}
}

type SnapshotResponse struct {
	Success bool            `json:"success"`
	Data    []SnapshotEntry `json:"data"`
	Error   string          `json:"error,omitempty"`
}
