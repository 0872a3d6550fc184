package directory

import (
	"context"

	"github.com/unibus/tracker/cli/tracker/types"
)

// Static serves a fixed list of buses, typically from the config file.
type Static struct {
	buses  []types.Bus
	byCode map[string]types.Bus
}

func NewStatic(buses []types.Bus) *Static {
	s := &Static{buses: buses, byCode: make(map[string]types.Bus, len(buses))}
	for _, b := range buses {
		s.byCode[b.Code] = b
	}
	return s
}

func (s *Static) BusByCode(_ context.Context, code string) (types.Bus, error) {
	b, ok := s.byCode[code]
	if !ok {
		return types.Bus{}, ErrUnknownBus
	}
	return b, nil
}

func (s *Static) AllBuses(context.Context) ([]types.Bus, error) {
	out := make([]types.Bus, len(s.buses))
	copy(out, s.buses)
	return out, nil
}
