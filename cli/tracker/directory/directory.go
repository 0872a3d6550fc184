package directory

import (
	"context"
	"errors"

	"github.com/unibus/tracker/cli/tracker/types"
)

var ErrUnknownBus = errors.New("автобус с таким кодом не найден")

// Source is where bus records come from.
type Source interface {
	BusByCode(ctx context.Context, code string) (types.Bus, error)
	AllBuses(ctx context.Context) ([]types.Bus, error)
}
