package storage

import (
	"context"
	"errors"
	"time"

	"github.com/unibus/tracker/cli/tracker/storage/store/memory"
	"github.com/unibus/tracker/cli/tracker/storage/store/mysql"
	"github.com/unibus/tracker/cli/tracker/storage/store/postgresql"
	"github.com/unibus/tracker/cli/tracker/storage/store/redis"
	"github.com/unibus/tracker/cli/tracker/types"
	"github.com/unibus/tracker/libs/live"
)

var ErrInvalidStorage = errors.New("storage not found")
var ErrUnknownStorage = errors.New("storage isn't support yet")

// ErrNotFound is returned when a bus has no location row yet.
var ErrNotFound = types.ErrLocationNotFound

// Connector интерфейс для подключения хранилища
type Connector interface {
	// Init установка соединения с хранилищем
	Init(map[string]string) error

	// Close закрытие соединения с хранилищем
	Close() error
}

// Store хранит ровно одну запись о местоположении на автобус
type Store interface {
	Connector

	// Upsert создает или перезаписывает запись автобуса. Пустой RouteRef сохраняет прежний маршрут.
	Upsert(ctx context.Context, loc types.Location) error

	// UpdateStatus меняет только статус и время; при отсутствии записи возвращает ErrNotFound
	UpdateStatus(ctx context.Context, busRef string, status live.Status, at time.Time) error

	Get(ctx context.Context, busRef string) (types.Location, error)
	List(ctx context.Context) ([]types.Location, error)
}

// LoadStore создает и инициализирует хранилище по имени из конфига
func LoadStore(backend string, params map[string]string) (Store, error) {
	var db Store
	switch backend {
	case "":
		return nil, ErrInvalidStorage
	case "memory":
		db = memory.New()
	case "postgresql":
		db = &postgresql.Connector{}
	case "mysql":
		db = &mysql.Connector{}
	case "redis":
		db = &redis.Connector{}
	default:
		return nil, ErrUnknownStorage
	}

	if params == nil {
		params = map[string]string{}
	}
	if err := db.Init(params); err != nil {
		return nil, err
	}
	return db, nil
}
