package config

/*
Описание конфигурационного файла трекера. Пример – configs/tracker.yaml.
*/

import (
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unibus/tracker/cli/tracker/types"
	"github.com/unibus/tracker/libs/live"
	"gopkg.in/yaml.v2"
)

const (
	defaultListen       = ":5000"
	defaultBackend      = "memory"
	defaultSubject      = "bustrack.broadcast"
	defaultRefreshCron  = "0 3 * * *"
	defaultCacheSize    = 1024
	defaultCacheTTL     = 600
	defaultRelayBuffer  = 1024
	defaultRelayWorkers = 2
	defaultDirectorySrc = "static"
	defaultLogMaxSizeMB = 100
	defaultLogBackups   = 30
	envListen           = "BUSTRACK_LISTEN"
	envLogLevel         = "BUSTRACK_LOG_LEVEL"
	envStorageBackend   = "BUSTRACK_STORAGE_BACKEND"
	envNATSURL          = "BUSTRACK_NATS_URL"
	envDirectoryDSN     = "BUSTRACK_DIRECTORY_DSN"
)

type StorageSettings struct {
	Backend string            `yaml:"backend"`
	Params  map[string]string `yaml:"params"`
}

type DirectorySettings struct {
	Source          string      `yaml:"source"`
	DSN             string      `yaml:"dsn"`
	Table           string      `yaml:"table"`
	CacheSize       int         `yaml:"cache_size"`
	CacheTTLSeconds int         `yaml:"cache_ttl_seconds"`
	RefreshCron     string      `yaml:"refresh_cron"`
	Buses           []types.Bus `yaml:"buses"`
}

type FanoutSettings struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

type RelaySettings struct {
	Buffer  int                          `yaml:"buffer"`
	Workers int                          `yaml:"workers"`
	Sinks   map[string]map[string]string `yaml:"sinks"`
}

type AuthSettings struct {
	IPWhiteList []string `yaml:"ip_white_list"`
}

type FreshnessSettings struct {
	LiveSeconds      int `yaml:"live_seconds"`
	StaleSeconds     int `yaml:"stale_seconds"`
	PurgeSeconds     int `yaml:"purge_seconds"`
	SweepSeconds     int `yaml:"sweep_seconds"`
	RecomputeSeconds int `yaml:"recompute_seconds"`
}

type Settings struct {
	Listen         string            `yaml:"listen"`
	LogLevel       string            `yaml:"log_level"`
	LogFilePath    string            `yaml:"log_file_path"`
	LogMaxAgeDays  int               `yaml:"log_max_age_days"`
	LogMaxSizeMB   int               `yaml:"log_max_size_mb"`
	LogMaxBackups  int               `yaml:"log_max_backups"`
	LogCompress    *bool             `yaml:"log_compress"`
	Storage        StorageSettings   `yaml:"storage"`
	Directory      DirectorySettings `yaml:"directory"`
	Fanout         FanoutSettings    `yaml:"fanout"`
	Relay          RelaySettings     `yaml:"relay"`
	Auth           AuthSettings      `yaml:"auth"`
	Freshness      FreshnessSettings `yaml:"freshness"`
	DisableMetrics bool              `yaml:"disable_metrics"`
}

func (s *Settings) GetLogLevel() log.Level {
	var lvl log.Level

	switch strings.ToUpper(s.LogLevel) {
	case "DEBUG":
		lvl = log.DebugLevel
	case "INFO":
		lvl = log.InfoLevel
	case "WARN":
		lvl = log.WarnLevel
	case "ERROR":
		lvl = log.ErrorLevel
	default:
		lvl = log.InfoLevel
	}
	return lvl
}

// ShouldCompressLogs reports whether rotated log files are gzipped; on unless disabled.
func (s *Settings) ShouldCompressLogs() bool {
	return s.LogCompress == nil || *s.LogCompress
}

func (s *Settings) GetCacheTTL() time.Duration {
	return time.Duration(s.Directory.CacheTTLSeconds) * time.Second
}

// GetFreshness converts the configured windows into the shared struct.
func (s *Settings) GetFreshness() live.Freshness {
	sec := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return live.Freshness{
		LiveWindow:        sec(s.Freshness.LiveSeconds),
		StaleWindow:       sec(s.Freshness.StaleSeconds),
		PurgeWindow:       sec(s.Freshness.PurgeSeconds),
		SweepInterval:     sec(s.Freshness.SweepSeconds),
		RecomputeInterval: sec(s.Freshness.RecomputeSeconds),
	}
}

func New(confPath string) (Settings, error) {
	c := Settings{}
	data, err := os.ReadFile(confPath)
	if err != nil {
		return c, err
	}
	if err = yaml.Unmarshal(data, &c); err != nil {
		return c, err
	}

	c.ApplyEnv()
	c.applyDefaults()
	return c, nil
}

// ApplyEnv overrides file settings with BUSTRACK_* variables when set.
func (s *Settings) ApplyEnv() {
	if v := os.Getenv(envListen); v != "" {
		s.Listen = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv(envStorageBackend); v != "" {
		s.Storage.Backend = v
	}
	if v := os.Getenv(envNATSURL); v != "" {
		s.Fanout.NATSURL = v
	}
	if v := os.Getenv(envDirectoryDSN); v != "" {
		s.Directory.DSN = v
	}
}

func (s *Settings) applyDefaults() {
	if s.Listen == "" {
		s.Listen = defaultListen
	}
	if s.LogMaxSizeMB <= 0 {
		s.LogMaxSizeMB = defaultLogMaxSizeMB
	}
	if s.LogMaxBackups < 0 {
		log.Errorf("log_max_backups (%d) cannot be negative. Defaulting to %d.", s.LogMaxBackups, defaultLogBackups)
		s.LogMaxBackups = defaultLogBackups
	} else if s.LogMaxBackups == 0 {
		s.LogMaxBackups = defaultLogBackups
	}
	if s.Storage.Backend == "" {
		s.Storage.Backend = defaultBackend
	}
	if s.Directory.Source == "" {
		s.Directory.Source = defaultDirectorySrc
	}
	if s.Directory.CacheSize <= 0 {
		s.Directory.CacheSize = defaultCacheSize
	}
	if s.Directory.CacheTTLSeconds <= 0 {
		s.Directory.CacheTTLSeconds = defaultCacheTTL
	}
	if s.Directory.RefreshCron == "" {
		s.Directory.RefreshCron = defaultRefreshCron
	}
	if s.Fanout.Subject == "" {
		s.Fanout.Subject = defaultSubject
	}
	if s.Relay.Buffer <= 0 {
		s.Relay.Buffer = defaultRelayBuffer
	}
	if s.Relay.Workers <= 0 {
		s.Relay.Workers = defaultRelayWorkers
	}

	def := live.DefaultFreshness()
	f := &s.Freshness
	setSeconds(&f.LiveSeconds, def.LiveWindow)
	setSeconds(&f.StaleSeconds, def.StaleWindow)
	setSeconds(&f.PurgeSeconds, def.PurgeWindow)
	setSeconds(&f.SweepSeconds, def.SweepInterval)
	setSeconds(&f.RecomputeSeconds, def.RecomputeInterval)

	if f.LiveSeconds > f.StaleSeconds {
		log.Errorf("live_seconds (%d) cannot be greater than stale_seconds (%d). Defaulting to %d and %d.",
			f.LiveSeconds, f.StaleSeconds, int(def.LiveWindow.Seconds()), int(def.StaleWindow.Seconds()))
		f.LiveSeconds = int(def.LiveWindow.Seconds())
		f.StaleSeconds = int(def.StaleWindow.Seconds())
	}
}

func setSeconds(v *int, def time.Duration) {
	if *v < 0 {
		log.Errorf("Invalid freshness window (%d). Defaulting to %d.", *v, int(def.Seconds()))
		*v = 0
	}
	if *v == 0 {
		*v = int(def.Seconds())
	}
}
