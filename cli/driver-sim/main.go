package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unibus/tracker/libs/live"
)

/*
Driver simulator.

Connects to the tracker socket as a driver and reports positions along a
straight line between two points, then optionally reports the bus as stopped.

Usage:
  -server string
    	Tracker socket URL (default "ws://localhost:5000/socket")
  -bus string
    	Bus code (require)
  -route string
    	Route reference
  -from-lat, -from-lng, -to-lat, -to-lng float
    	Track endpoints
  -steps int
    	Number of reports (default 10)
  -interval duration
    	Pause between reports (default 2s)
  -speed float
    	Reported speed in km/h (default 25)
  -stop
    	Send busStatus stopped after the last report
  -timeout duration
    	Connection wait time (default 10s)

Example

```
./driver-sim -bus bus_7 -from-lat 12.9716 -from-lng 77.5946 -to-lat 12.9352 -to-lng 77.6245 -steps 20 -stop
```
*/

type options struct {
	server   string
	bus      string
	route    string
	fromLat  float64
	fromLng  float64
	toLat    float64
	toLng    float64
	steps    int
	interval time.Duration
	speed    float64
	stop     bool
	timeout  time.Duration
}

func main() {
	opts := options{}
	flag.StringVar(&opts.server, "server", "ws://localhost:5000/socket", "Адрес сокета трекера")
	flag.StringVar(&opts.bus, "bus", "", "Код автобуса (обязательно)")
	flag.StringVar(&opts.route, "route", "", "Идентификатор маршрута")
	flag.Float64Var(&opts.fromLat, "from-lat", 0, "Широта начальной точки")
	flag.Float64Var(&opts.fromLng, "from-lng", 0, "Долгота начальной точки")
	flag.Float64Var(&opts.toLat, "to-lat", 0, "Широта конечной точки")
	flag.Float64Var(&opts.toLng, "to-lng", 0, "Долгота конечной точки")
	flag.IntVar(&opts.steps, "steps", 10, "Количество отправляемых позиций")
	flag.DurationVar(&opts.interval, "interval", 2*time.Second, "Пауза между отправками")
	flag.Float64Var(&opts.speed, "speed", 25, "Скорость в км/ч")
	flag.BoolVar(&opts.stop, "stop", false, "Отправить статус stopped после последней позиции")
	flag.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Время ожидания соединения")
	flag.Parse()

	if err := opts.validate(); err != nil {
		fmt.Printf("%v, смотрите помощь (-h)\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := simulate(ctx, opts); err != nil {
		log.Fatal(err)
	}
}

func (o options) validate() error {
	if o.bus == "" {
		return errors.New("требуется код автобуса")
	}
	if o.steps < 1 {
		return errors.New("количество шагов должно быть положительным")
	}
	if o.interval < 0 {
		return errors.New("пауза не может быть отрицательной")
	}
	return nil
}

// track returns n evenly spaced points from the start to the end inclusive.
func track(fromLat, fromLng, toLat, toLng float64, n int) [][2]float64 {
	if n == 1 {
		return [][2]float64{{fromLat, fromLng}}
	}
	out := make([][2]float64, n)
	for i := 0; i < n; i++ {
		k := float64(i) / float64(n-1)
		out[i] = [2]float64{fromLat + (toLat-fromLat)*k, fromLng + (toLng-fromLng)*k}
	}
	return out
}

func simulate(ctx context.Context, o options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := live.NewClient(o.server, live.DefaultReconnectDelay)
	go func() { _ = client.Run(ctx) }()
	go func() {
		for {
			select {
			case env := <-client.Events():
				log.WithField("event", env.Event).Debug("Событие от сервера")
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := waitConnected(ctx, client.States(), o.timeout); err != nil {
		return err
	}

	speed := o.speed
	for i, p := range track(o.fromLat, o.fromLng, o.toLat, o.toLng, o.steps) {
		msg := live.SendLocation{
			BusID:   o.bus,
			RouteID: o.route,
			Lat:     p[0],
			Lng:     p[1],
			Speed:   &speed,
			Status:  live.StatusRunning,
		}
		if err := client.Send(live.EventSendLocation, msg); err != nil {
			log.WithFields(log.Fields{"step": i, "err": err}).Warn("Позиция не отправлена")
		} else {
			log.WithFields(log.Fields{"step": i, "lat": p[0], "lng": p[1]}).Info("Позиция отправлена")
		}

		if i == o.steps-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.interval):
		}
	}

	if o.stop {
		msg := live.BusStatus{BusID: o.bus, RouteID: o.route, Status: live.StatusStopped}
		if err := client.Send(live.EventBusStatus, msg); err != nil {
			return fmt.Errorf("статус не отправлен: %w", err)
		}
		log.WithField("bus", o.bus).Info("Отправлен статус stopped")
	}
	return nil
}

func waitConnected(ctx context.Context, states <-chan live.ConnState, timeout time.Duration) error {
	deadline := time.After(timeout)
	for {
		select {
		case s := <-states:
			if s == live.Connected {
				return nil
			}
		case <-deadline:
			return errors.New("не удалось подключиться к серверу")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
