package live

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Status is the operating state a driver reports for a bus.
type Status string

const (
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusStopped Status = "stopped"
)

var statusSet = map[Status]struct{}{
	StatusRunning: {},
	StatusPaused:  {},
	StatusStopped: {},
}

func (s Status) IsValid() bool {
	_, ok := statusSet[s]
	return ok
}

// OrDefault returns s, or running when s is unset.
func (s Status) OrDefault() Status {
	if s == "" {
		return StatusRunning
	}
	return s
}

func ParseStatus(s string) (Status, error) {
	v := Status(s)
	if !v.IsValid() {
		return "", fmt.Errorf("недопустимый status: %q", s)
	}
	return v, nil
}

// UnmarshalJSON accepts an empty string as "not set" so optional fields can be omitted by senders.
func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = ""
		return nil
	}
	v, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Status) MarshalJSON() ([]byte, error) {
	if s != "" && !s.IsValid() {
		return nil, fmt.Errorf("недопустимый status: %q", string(s))
	}
	return json.Marshal(string(s))
}

func (s *Status) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*s = Status(string(v))
	case string:
		*s = Status(v)
	default:
		return fmt.Errorf("невозможно извлечь Status из %T", value)
	}
	if !s.IsValid() {
		return fmt.Errorf("недопустимый Status: %q", string(*s))
	}
	return nil
}

func (s Status) Value() (driver.Value, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("недопустимый Status: %q", string(s))
	}
	return string(s), nil
}
