package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
	"github.com/unibus/tracker/libs/live"
)

const DefaultSubject = "bustrack.broadcast"

type wireMessage struct {
	Topic    Topic         `json:"topic"`
	Envelope live.Envelope `json:"envelope"`
}

// NATSBridge publishes envelopes to a subject and hands every envelope it
// receives on that subject to the local broadcaster, so each tracker instance
// delivers each event exactly once.
type NATSBridge struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	local   Broadcaster
}

func NewNATSBridge(url, subject string, local Broadcaster) (*NATSBridge, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	nc, err := nats.Connect(url,
		nats.Name("bustrack-tracker"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithField("err", err).Warn("NATS отключен")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.WithField("url", c.ConnectedUrl()).Info("NATS переподключен")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к NATS: %w", err)
	}

	b := &NATSBridge{nc: nc, subject: subject, local: local}
	b.sub, err = nc.Subscribe(subject, b.deliver)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("не удалось подписаться на %s: %w", subject, err)
	}
	if err := nc.Flush(); err != nil {
		nc.Close()
		return nil, err
	}
	return b, nil
}

func (b *NATSBridge) deliver(m *nats.Msg) {
	var msg wireMessage
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		log.WithField("err", err).Warn("Некорректное сообщение NATS")
		return
	}
	if err := b.local.Publish(context.Background(), msg.Topic, msg.Envelope); err != nil {
		log.WithField("err", err).Error("Ошибка локальной рассылки")
	}
}

func (b *NATSBridge) Publish(_ context.Context, topic Topic, env live.Envelope) error {
	data, err := json.Marshal(wireMessage{Topic: topic, Envelope: env})
	if err != nil {
		return err
	}
	if err := b.nc.Publish(b.subject, data); err != nil {
		return fmt.Errorf("не удалось отправить в NATS: %w", err)
	}
	return nil
}

func (b *NATSBridge) Close() error {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	return b.nc.Drain()
}
