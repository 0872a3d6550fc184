package redis

/*
Настройки для подключения хранилища:

host = "localhost"
port = "6379"
password = ""
db = "0"
key = "bustrack:locations"
*/

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/unibus/tracker/cli/tracker/types"
	"github.com/unibus/tracker/libs/live"
)

const (
	defaultKey = "bustrack:locations"
	maxRetries = 3
)

var now = time.Now

// Connector хранит местоположения в одном хеше: поле – ref автобуса, значение – JSON.
type Connector struct {
	client *redis.Client
	key    string
	config map[string]string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}
	c.config = cfg

	db := 0
	if v := cfg["db"]; v != "" {
		var err error
		if db, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("некорректный номер базы redis: %v", err)
		}
	}
	c.key = cfg["key"]
	if c.key == "" {
		c.key = defaultKey
	}

	return c.attach(redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg["host"], cfg["port"]),
		Password: cfg["password"],
		DB:       db,
	}))
}

func (c *Connector) attach(client *redis.Client) error {
	if c.key == "" {
		c.key = defaultKey
	}
	c.client = client
	if err := c.client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("Redis недоступен: %v", err)
	}
	return nil
}

func (c *Connector) Upsert(ctx context.Context, loc types.Location) error {
	return c.update(ctx, loc.BusRef, func(prev *types.Location) (types.Location, error) {
		if prev != nil {
			loc = prev.Merge(loc)
		}
		return loc, nil
	})
}

func (c *Connector) UpdateStatus(ctx context.Context, busRef string, status live.Status, at time.Time) error {
	return c.update(ctx, busRef, func(prev *types.Location) (types.Location, error) {
		if prev == nil {
			return types.Location{}, types.ErrLocationNotFound
		}
		loc := *prev
		loc.Status = status
		loc.CapturedAt = at
		return loc, nil
	})
}

// update reads the current row and writes the result of fn inside a WATCH transaction.
func (c *Connector) update(ctx context.Context, busRef string, fn func(prev *types.Location) (types.Location, error)) error {
	txf := func(tx *redis.Tx) error {
		prev, err := c.read(ctx, tx, busRef)
		if err != nil && !errors.Is(err, types.ErrLocationNotFound) {
			return err
		}
		next, err := fn(prev)
		if err != nil {
			return err
		}
		next.UpdatedAt = now()

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("ошибка сериализации местоположения: %v", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, c.key, busRef, data)
			return nil
		})
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := c.client.Watch(ctx, txf, c.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("не удалось обновить %s: конфликт транзакции", busRef)
}

type hashGetter interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func (c *Connector) read(ctx context.Context, cmd hashGetter, busRef string) (*types.Location, error) {
	raw, err := cmd.HGet(ctx, c.key, busRef).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, types.ErrLocationNotFound
	}
	if err != nil {
		return nil, err
	}
	var loc types.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil, fmt.Errorf("повреждена запись %s: %v", busRef, err)
	}
	return &loc, nil
}

func (c *Connector) Get(ctx context.Context, busRef string) (types.Location, error) {
	loc, err := c.read(ctx, c.client, busRef)
	if err != nil {
		return types.Location{}, err
	}
	return *loc, nil
}

func (c *Connector) List(ctx context.Context) ([]types.Location, error) {
	all, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("не удалось получить местоположения: %v", err)
	}
	out := make([]types.Location, 0, len(all))
	for ref, raw := range all {
		var loc types.Location
		if err := json.Unmarshal([]byte(raw), &loc); err != nil {
			return nil, fmt.Errorf("повреждена запись %s: %v", ref, err)
		}
		out = append(out, loc)
	}
	return out, nil
}

func (c *Connector) Close() error {
	return c.client.Close()
}
