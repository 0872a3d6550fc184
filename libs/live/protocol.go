package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event names carried in the envelope "event" field.
const (
	EventSendLocation     = "sendLocation"
	EventBusStatus        = "busStatus"
	EventJoinRoute        = "joinRoute"
	EventReceiveLocation  = "receiveLocation"
	EventReceiveBusStatus = "receiveBusStatus"
)

var ErrUnknownEvent = errors.New("неизвестное событие")

var knownEvents = map[string]struct{}{
	EventSendLocation:     {},
	EventBusStatus:        {},
	EventJoinRoute:        {},
	EventReceiveLocation:  {},
	EventReceiveBusStatus: {},
}

// Envelope is the frame exchanged over the socket: {"event": ..., "data": ...}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func NewEnvelope(event string, payload interface{}) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("не удалось сериализовать %s: %w", event, err)
	}
	return Envelope{Event: event, Data: data}, nil
}

// Encode builds the wire form of an envelope in one step.
func Encode(event string, payload interface{}) ([]byte, error) {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// ParseEnvelope decodes a frame. Frames naming an event outside the protocol
// return ErrUnknownEvent together with the decoded envelope.
func ParseEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("некорректный кадр: %w", err)
	}
	if _, ok := knownEvents[env.Event]; !ok {
		return env, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	return env, nil
}

func (e Envelope) Decode(v interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("пустые данные события %s", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("некорректные данные события %s: %w", e.Event, err)
	}
	return nil
}

// SendLocation is reported by a driver client.
type SendLocation struct {
	BusID   string   `json:"busId"`
	RouteID string   `json:"routeId,omitempty"`
	Lat     float64  `json:"lat"`
	Lng     float64  `json:"lng"`
	Speed   *float64 `json:"speed,omitempty"`
	Status  Status   `json:"status,omitempty"`
}

func (m SendLocation) SpeedOrZero() float64 {
	if m.Speed == nil {
		return 0
	}
	return *m.Speed
}

// BusStatus is reported by a driver client when it pauses, resumes or stops.
type BusStatus struct {
	BusID   string `json:"busId"`
	RouteID string `json:"routeId,omitempty"`
	Status  Status `json:"status"`
}

type JoinRoute struct {
	RouteID string `json:"routeId"`
}

// LocationEvent is what viewers receive for every accepted location report.
type LocationEvent struct {
	BusID   string    `json:"busId"`
	BusName string    `json:"busName"`
	RouteID string    `json:"routeId,omitempty"`
	Lat     float64   `json:"lat"`
	Lng     float64   `json:"lng"`
	Speed   float64   `json:"speed"`
	Status  Status    `json:"status"`
	Time    time.Time `json:"time"`
}

type StatusEvent struct {
	BusID  string `json:"busId"`
	Status Status `json:"status"`
}
