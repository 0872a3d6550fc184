package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"github.com/unibus/tracker/cli/tracker/api"
	"github.com/unibus/tracker/cli/tracker/config"
	"github.com/unibus/tracker/cli/tracker/directory"
	"github.com/unibus/tracker/cli/tracker/fanout"
	"github.com/unibus/tracker/cli/tracker/metrics"
	"github.com/unibus/tracker/cli/tracker/relay"
	"github.com/unibus/tracker/cli/tracker/server"
	"github.com/unibus/tracker/cli/tracker/server/domain"
	"github.com/unibus/tracker/cli/tracker/storage"
	"gopkg.in/natefinch/lumberjack.v2"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithField("err", err).Warn("Не удалось прочитать .env")
	}

	configFilePath := ""
	flag.StringVar(&configFilePath, "c", os.Getenv("BUSTRACK_CONFIG"), "путь до конфига")
	flag.Parse()

	cfg, err := getConfig(configFilePath)
	if err != nil {
		log.Fatalf("Не удалось получить конфиг: %v", err)
	}

	configureLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

func getConfig(configFilePath string) (config.Settings, error) {
	if configFilePath == "" {
		return config.Settings{}, errors.New("не задан путь до конфига")
	}
	c, err := config.New(configFilePath)
	if err != nil {
		return c, fmt.Errorf("ошибка парсинга конфига: %v", err)
	}
	return c, nil
}

func configureLogging(cfg config.Settings) {
	log.SetLevel(cfg.GetLogLevel())
	log.SetFormatter(&log.TextFormatter{ForceColors: true})
	log.SetOutput(os.Stdout)

	if cfg.LogFilePath == "" {
		return
	}
	hook, err := newFileHook(cfg)
	if err != nil {
		log.Fatalf("Не получилось настроить файловый лог: %v", err)
	}
	log.AddHook(hook)
}

// newFileHook mirrors every level into a rotated file.
func newFileHook(cfg config.Settings) (*lfshook.LfsHook, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), os.ModePerm); err != nil {
		return nil, fmt.Errorf("не получилось создать директорию для логов: %w", err)
	}

	rotated := &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   cfg.ShouldCompressLogs(),
	}

	writers := lfshook.WriterMap{}
	for _, lvl := range log.AllLevels {
		writers[lvl] = rotated
	}
	return lfshook.NewHook(writers, &log.TextFormatter{DisableColors: true, FullTimestamp: true}), nil
}

func buildDirectory(ctx context.Context, cfg config.Settings) (*directory.Cached, func(), error) {
	var (
		source  directory.Source
		closeFn = func() {}
	)

	switch cfg.Directory.Source {
	case "static":
		source = directory.NewStatic(cfg.Directory.Buses)
	case "postgresql":
		pg, err := directory.OpenPostgres(cfg.Directory.DSN, cfg.Directory.Table)
		if err != nil {
			return nil, nil, err
		}
		source = pg
		closeFn = func() { _ = pg.Close() }
	default:
		return nil, nil, fmt.Errorf("неизвестный источник справочника: %s", cfg.Directory.Source)
	}

	cached := directory.NewCached(source, cfg.Directory.CacheSize, cfg.GetCacheTTL())
	if err := cached.Start(ctx, cfg.Directory.RefreshCron); err != nil {
		closeFn()
		return nil, nil, err
	}
	return cached, func() {
		cached.Stop()
		closeFn()
	}, nil
}

func buildAuthorizer(cfg config.Settings) domain.Authorizer {
	if len(cfg.Auth.IPWhiteList) == 0 {
		return domain.AllowAll{}
	}
	log.WithField("patterns", cfg.Auth.IPWhiteList).Info("Включен белый список IP для водителей")
	return domain.IPWhiteList{Patterns: cfg.Auth.IPWhiteList}
}

func run(ctx context.Context, cfg config.Settings) error {
	store, err := storage.LoadStore(cfg.Storage.Backend, cfg.Storage.Params)
	if err != nil {
		return fmt.Errorf("не удалось инициализировать хранилище %s: %w", cfg.Storage.Backend, err)
	}
	defer store.Close()
	log.WithField("backend", cfg.Storage.Backend).Info("Хранилище местоположений подключено")

	dir, closeDir, err := buildDirectory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("не удалось инициализировать справочник автобусов: %w", err)
	}
	defer closeDir()

	collector := metrics.NewCollector()
	hub := fanout.NewHub(collector)
	defer hub.Close()

	var broadcaster fanout.Broadcaster = hub
	if cfg.Fanout.NATSURL != "" {
		bridge, err := fanout.NewNATSBridge(cfg.Fanout.NATSURL, cfg.Fanout.Subject, hub)
		if err != nil {
			return err
		}
		defer bridge.Close()
		broadcaster = bridge
		log.WithField("subject", cfg.Fanout.Subject).Info("Рассылка через NATS включена")
	}

	if len(cfg.Relay.Sinks) > 0 {
		repo := relay.NewRepository(collector)
		if err := repo.LoadSinks(cfg.Relay.Sinks); err != nil {
			return fmt.Errorf("не удалось подключить получателей событий: %w", err)
		}
		defer repo.Close()
		async := relay.NewAsyncRepository(repo, cfg.Relay.Buffer, cfg.Relay.Workers, collector)
		defer async.Close()
		broadcaster = fanout.Multi{broadcaster, async}
	}

	auth := buildAuthorizer(cfg)
	srv := server.New(hub,
		&domain.SaveLocation{Directory: dir, Store: store, Broadcaster: broadcaster, Authorizer: auth, Metrics: collector},
		&domain.SaveStatus{Directory: dir, Store: store, Broadcaster: broadcaster, Authorizer: auth, Metrics: collector},
	)
	srv.Joins = collector

	var metricsHandler http.Handler
	if !cfg.DisableMetrics {
		metricsHandler = collector.Handler()
	}
	handler := api.NewHandler(store, dir, cfg.GetFreshness())
	httpServer := api.NewController(handler, srv, metricsHandler).Server(cfg.Listen)

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Listen).Info("HTTP сервер запущен")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Остановка сервера")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
