package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unibus/tracker/cli/tracker/directory"
	"github.com/unibus/tracker/cli/tracker/fanout"
	"github.com/unibus/tracker/cli/tracker/types"
	"github.com/unibus/tracker/libs/live"
)

var now = time.Now

// Directory resolves a driver-supplied short code.
type Directory interface {
	Resolve(ctx context.Context, code string) (types.Bus, error)
}

type LocationStore interface {
	Upsert(ctx context.Context, loc types.Location) error
	UpdateStatus(ctx context.Context, busRef string, status live.Status, at time.Time) error
}

// SaveLocation persists a driver fix and rebroadcasts it to every viewer.
type SaveLocation struct {
	Directory   Directory
	Store       LocationStore
	Broadcaster fanout.Broadcaster
	Authorizer  Authorizer
	Metrics     Metrics
}

func (domain *SaveLocation) Run(ctx context.Context, sender Sender, msg live.SendLocation) (live.LocationEvent, error) {
	metrics := metricsOrNop(domain.Metrics)

	if domain.Authorizer != nil {
		if err := domain.Authorizer.Authorize(sender); err != nil {
			metrics.Rejected()
			return live.LocationEvent{}, err
		}
	}
	if msg.BusID == "" {
		return live.LocationEvent{}, fmt.Errorf("не указан busId")
	}
	metrics.LocationReceived()

	status := msg.Status.OrDefault()
	name := msg.BusID

	bus, err := domain.Directory.Resolve(ctx, msg.BusID)
	switch {
	case err == nil:
		name = bus.DisplayName()
		loc := types.Location{
			BusRef:     bus.Ref,
			BusCode:    bus.Code,
			Latitude:   msg.Lat,
			Longitude:  msg.Lng,
			Speed:      msg.SpeedOrZero(),
			Status:     status,
			CapturedAt: now(),
		}
		if types.IsWellFormedRef(msg.RouteID) {
			loc.RouteRef = msg.RouteID
		}
		if err := domain.Store.Upsert(ctx, loc); err != nil {
			metrics.PersistError()
			log.WithFields(log.Fields{"bus": msg.BusID, "err": err}).Error("Не удалось сохранить местоположение")
		}
	case errors.Is(err, directory.ErrUnknownBus):
		metrics.UnknownBus()
		log.WithField("bus", msg.BusID).Warn("Неизвестный код автобуса, местоположение не сохранено")
	default:
		metrics.PersistError()
		log.WithFields(log.Fields{"bus": msg.BusID, "err": err}).Error("Ошибка справочника автобусов")
	}

	event := live.LocationEvent{
		BusID:   msg.BusID,
		BusName: name,
		RouteID: msg.RouteID,
		Lat:     msg.Lat,
		Lng:     msg.Lng,
		Speed:   msg.SpeedOrZero(),
		Status:  status,
		Time:    now(),
	}
	env, err := live.NewEnvelope(live.EventReceiveLocation, event)
	if err != nil {
		return event, err
	}
	if err := domain.Broadcaster.Publish(ctx, fanout.All, env); err != nil {
		return event, fmt.Errorf("не удалось разослать местоположение: %w", err)
	}
	return event, nil
}
