package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	cron "github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/unibus/tracker/cli/tracker/types"
)

const (
	DefaultCacheSize   = 1024
	DefaultCacheTTL    = 10 * time.Minute
	DefaultRefreshSpec = "0 3 * * *"
	// DefaultNegativeTTL bounds how long an unknown code is remembered.
	DefaultNegativeTTL = 30 * time.Second
)

// unknownBus marks a code the source does not know.
type unknownBus struct{}

// Cached resolves short codes through an LRU cache in front of a Source.
type Cached struct {
	source Source
	cache  gcache.Cache
	ttl    time.Duration

	cronScheduler *cron.Cron
}

func NewCached(source Source, size int, ttl time.Duration) *Cached {
	return newCached(source, size, ttl, DefaultNegativeTTL, gcache.NewRealClock())
}

func newCached(source Source, size int, ttl, negativeTTL time.Duration, clock gcache.Clock) *Cached {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Cached{source: source, ttl: ttl}
	c.cache = gcache.New(size).
		LRU().
		Clock(clock).
		Expiration(ttl).
		LoaderExpireFunc(func(key interface{}) (interface{}, *time.Duration, error) {
			bus, err := source.BusByCode(context.Background(), key.(string))
			if errors.Is(err, ErrUnknownBus) {
				return unknownBus{}, &negativeTTL, nil
			}
			if err != nil {
				return nil, nil, err
			}
			return bus, nil, nil
		}).
		Build()
	return c
}

// Resolve returns the bus for a short code or ErrUnknownBus.
func (c *Cached) Resolve(_ context.Context, code string) (types.Bus, error) {
	v, err := c.cache.Get(code)
	if err != nil {
		return types.Bus{}, err
	}
	bus, ok := v.(types.Bus)
	if !ok {
		return types.Bus{}, ErrUnknownBus
	}
	return bus, nil
}

// Preload replaces the cache content with every bus the source knows.
func (c *Cached) Preload(ctx context.Context) error {
	buses, err := c.source.AllBuses(ctx)
	if err != nil {
		return fmt.Errorf("не удалось загрузить справочник автобусов: %w", err)
	}
	c.cache.Purge()
	for _, b := range buses {
		if err := c.cache.SetWithExpire(b.Code, b, c.ttl); err != nil {
			return err
		}
	}
	log.WithField("count", len(buses)).Info("Справочник автобусов загружен")
	return nil
}

// Start preloads the cache and schedules a refresh on spec.
func (c *Cached) Start(ctx context.Context, spec string) error {
	if err := c.Preload(ctx); err != nil {
		return err
	}
	if spec == "" {
		spec = DefaultRefreshSpec
	}

	c.cronScheduler = cron.New()
	_, err := c.cronScheduler.AddFunc(spec, func() {
		log.Info("Запуск запланированного обновления справочника автобусов")
		if err := c.Preload(context.Background()); err != nil {
			log.Errorf("Ошибка обновления справочника автобусов: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("ошибка при настройке cron-задачи: %w", err)
	}

	c.cronScheduler.Start()
	log.WithField("spec", spec).Info("Запланировано обновление справочника автобусов")
	return nil
}

func (c *Cached) Stop() {
	if c.cronScheduler != nil {
		<-c.cronScheduler.Stop().Done()
		log.Info("Cron-планировщик остановлен")
	}
}
