package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/unibus/tracker/libs/live"
	"gopkg.in/vmihailenco/msgpack.v2"
)

const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// Event is a broadcast envelope on its way to external consumers.
type Event struct {
	Envelope live.Envelope
	Route    string
	At       time.Time
}

// Encode renders the event in the sink's wire format.
func (e Event) Encode(format string) ([]byte, error) {
	switch format {
	case "", FormatJSON:
		return json.Marshal(e.Envelope)
	case FormatMsgpack:
		var data interface{}
		if len(e.Envelope.Data) > 0 {
			if err := json.Unmarshal(e.Envelope.Data, &data); err != nil {
				return nil, fmt.Errorf("ошибка разбора данных события: %v", err)
			}
		}
		return msgpack.Marshal(map[string]interface{}{
			"event": e.Envelope.Event,
			"data":  data,
			"at":    e.At.UTC().Format(time.RFC3339Nano),
		})
	default:
		return nil, fmt.Errorf("неизвестный формат %q", format)
	}
}
