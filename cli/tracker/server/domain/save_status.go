package domain

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/unibus/tracker/cli/tracker/fanout"
	"github.com/unibus/tracker/cli/tracker/types"
	"github.com/unibus/tracker/libs/live"
)

var ErrInvalidStatus = errors.New("недопустимый статус")

// SaveStatus records a status change on an existing location row and
// announces it to every viewer.
type SaveStatus struct {
	Directory   Directory
	Store       LocationStore
	Broadcaster fanout.Broadcaster
	Authorizer  Authorizer
	Metrics     Metrics
}

func (domain *SaveStatus) Run(ctx context.Context, sender Sender, msg live.BusStatus) (live.StatusEvent, error) {
	metrics := metricsOrNop(domain.Metrics)

	if domain.Authorizer != nil {
		if err := domain.Authorizer.Authorize(sender); err != nil {
			metrics.Rejected()
			return live.StatusEvent{}, err
		}
	}
	if !msg.Status.IsValid() {
		return live.StatusEvent{}, fmt.Errorf("%w: %q", ErrInvalidStatus, string(msg.Status))
	}
	metrics.StatusReceived()

	bus, err := domain.Directory.Resolve(ctx, msg.BusID)
	if err != nil {
		log.WithFields(log.Fields{"bus": msg.BusID, "err": err}).Debug("Автобус не найден, статус только разослан")
	} else if err := domain.Store.UpdateStatus(ctx, bus.Ref, msg.Status, now()); err != nil {
		if errors.Is(err, types.ErrLocationNotFound) {
			log.WithField("bus", msg.BusID).Debug("Нет записи о местоположении, статус не сохранен")
		} else {
			metrics.PersistError()
			log.WithFields(log.Fields{"bus": msg.BusID, "err": err}).Error("Не удалось сохранить статус")
		}
	}

	event := live.StatusEvent{BusID: msg.BusID, Status: msg.Status}
	env, err := live.NewEnvelope(live.EventReceiveBusStatus, event)
	if err != nil {
		return event, err
	}
	if err := domain.Broadcaster.Publish(ctx, fanout.All, env); err != nil {
		return event, fmt.Errorf("не удалось разослать статус: %w", err)
	}
	return event, nil
}
