package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/unibus/tracker/cli/tracker/config"
	"github.com/unibus/tracker/cli/viewer/aggregator"
	"github.com/unibus/tracker/cli/viewer/estimator"
	"github.com/unibus/tracker/cli/viewer/hydrate"
	"github.com/unibus/tracker/libs/live"
)

const defaultAPI = "http://localhost:5000"

var errNoPosition = errors.New("позиция зрителя недоступна")

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithField("err", err).Warn("Не удалось прочитать .env")
	}

	apiURL := os.Getenv("BUSTRACK_API_URL")
	if apiURL == "" {
		apiURL = defaultAPI
	}

	var (
		lat, lng  float64
		geoFile   string
		orderMode string
		logLevel  string
		confPath  string
		windows   live.Freshness
	)
	flag.StringVar(&apiURL, "api", apiURL, "Адрес REST API трекера")
	flag.Float64Var(&lat, "lat", 0, "Широта зрителя")
	flag.Float64Var(&lng, "lng", 0, "Долгота зрителя")
	flag.StringVar(&geoFile, "geo-file", "", "Файл с позицией зрителя в формате {\"lat\":..,\"lng\":..}")
	flag.StringVar(&orderMode, "order", "lww", "Порядок применения событий: lww или reject-older")
	flag.StringVar(&logLevel, "log-level", "WARN", "Уровень логирования")
	flag.StringVar(&confPath, "c", os.Getenv("BUSTRACK_CONFIG"), "Конфиг трекера, из которого берутся окна свежести")
	flag.DurationVar(&windows.LiveWindow, "live", 0, "Окно live (по умолчанию из конфига)")
	flag.DurationVar(&windows.StaleWindow, "stale", 0, "Окно recent (по умолчанию из конфига)")
	flag.DurationVar(&windows.PurgeWindow, "purge", 0, "Окно удаления (по умолчанию из конфига)")
	flag.DurationVar(&windows.SweepInterval, "sweep", 0, "Период очистки (по умолчанию из конфига)")
	flag.DurationVar(&windows.RecomputeInterval, "recompute", 0, "Период пересчета (по умолчанию из конфига)")
	flag.Parse()

	level, err := log.ParseLevel(logLevel)
	if err != nil {
		level = log.WarnLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	order, err := parseOrder(orderMode)
	if err != nil {
		log.Fatal(err)
	}
	freshness, err := loadFreshness(confPath, windows)
	if err != nil {
		log.Fatal(err)
	}
	socketURL, err := socketURL(apiURL)
	if err != nil {
		log.Fatalf("Некорректный адрес API: %v", err)
	}

	latSet, lngSet := false, false
	flag.Visit(func(f *flag.Flag) {
		latSet = latSet || f.Name == "lat"
		lngSet = lngSet || f.Name == "lng"
	})
	var fixed *estimator.Point
	if latSet && lngSet {
		fixed = &estimator.Point{Lat: lat, Lng: lng}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := live.NewClient(socketURL, live.DefaultReconnectDelay)
	go func() { _ = client.Run(ctx) }()

	agg := aggregator.New(freshness, order)
	src := aggregator.Sources{
		Hydrate:   hydrate.New(apiURL).Fetch,
		Positions: locate(ctx, fixed, geoFile),
		Events:    client.Events(),
		States:    client.States(),
	}
	err = agg.Run(ctx, src, func(v aggregator.View) { render(os.Stdout, v) })
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

func parseOrder(s string) (aggregator.Order, error) {
	switch strings.ToLower(s) {
	case "", "lww":
		return aggregator.LastWriteWins, nil
	case "reject-older":
		return aggregator.RejectOlder, nil
	default:
		return 0, fmt.Errorf("неизвестный порядок: %q", s)
	}
}

// loadFreshness starts from the tracker config when given, else the defaults,
// and applies every non-zero override.
func loadFreshness(confPath string, overrides live.Freshness) (live.Freshness, error) {
	f := live.DefaultFreshness()
	if confPath != "" {
		cfg, err := config.New(confPath)
		if err != nil {
			return f, fmt.Errorf("не удалось прочитать конфиг трекера: %w", err)
		}
		f = cfg.GetFreshness()
	}

	set := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	set(&f.LiveWindow, overrides.LiveWindow)
	set(&f.StaleWindow, overrides.StaleWindow)
	set(&f.PurgeWindow, overrides.PurgeWindow)
	set(&f.SweepInterval, overrides.SweepInterval)
	set(&f.RecomputeInterval, overrides.RecomputeInterval)

	if f.LiveWindow > f.StaleWindow {
		return f, fmt.Errorf("окно live (%s) больше окна recent (%s)", f.LiveWindow, f.StaleWindow)
	}
	return f, nil
}

// socketURL maps the REST base to the websocket endpoint on the same host.
func socketURL(api string) (string, error) {
	u, err := url.Parse(api)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("неподдерживаемая схема %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket"
	return u.String(), nil
}

// locate reports the viewer position once: from flags, else from the geo file.
func locate(ctx context.Context, fixed *estimator.Point, geoFile string) <-chan aggregator.Fix {
	out := make(chan aggregator.Fix, 1)
	go func() {
		defer close(out)
		var fix aggregator.Fix
		switch {
		case fixed != nil:
			fix.Point = *fixed
		case geoFile != "":
			fix.Point, fix.Err = readGeoFile(geoFile)
		default:
			fix.Err = errNoPosition
		}
		if fix.Err != nil {
			log.WithField("err", fix.Err).Info("Расстояние и время прибытия недоступны")
		}
		select {
		case out <- fix:
		case <-ctx.Done():
		}
	}()
	return out
}

func readGeoFile(path string) (estimator.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return estimator.Point{}, fmt.Errorf("%w: %v", errNoPosition, err)
	}
	var p estimator.Point
	if err := json.Unmarshal(data, &p); err != nil {
		return estimator.Point{}, fmt.Errorf("%w: %v", errNoPosition, err)
	}
	return p, nil
}

func render(w io.Writer, v aggregator.View) {
	fmt.Fprintf(w, "\n%s  socket: %s  location: %s\n", v.At.Format("15:04:05"), v.Conn, v.Geo)
	if len(v.Rows) == 0 {
		fmt.Fprintln(w, "No active buses")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUS\tSTATUS\tDISTANCE\tETA\tSPEED\tSEEN")
	for _, r := range v.Rows {
		dist, eta := "-", "-"
		if r.HasDistance {
			dist = fmt.Sprintf("%.2f km", r.DistanceKm)
			eta = fmt.Sprintf("%d min", r.ETAMinutes)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.0f km/h\t%s (%s)\n",
			r.Event.BusName, r.Event.Status, dist, eta, r.Event.Speed,
			r.Age.Truncate(time.Second), r.Freshness)
	}
	_ = tw.Flush()
}
