package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/unibus/tracker/cli/tracker/fanout"
	"github.com/unibus/tracker/cli/tracker/server/domain"
	"github.com/unibus/tracker/libs/live"
)

const (
	maxFrameSize   = 64 << 10
	handlerTimeout = 5 * time.Second
)

// JoinCounter is notified of route membership requests.
type JoinCounter interface {
	RouteJoined()
}

// Server accepts websocket sessions and dispatches driver events.
type Server struct {
	Hub          *fanout.Hub
	SaveLocation *domain.SaveLocation
	SaveStatus   *domain.SaveStatus
	Joins        JoinCounter

	upgrader websocket.Upgrader
}

func New(hub *fanout.Hub, saveLocation *domain.SaveLocation, saveStatus *domain.SaveStatus) *Server {
	return &Server{
		Hub:          hub,
		SaveLocation: saveLocation,
		SaveStatus:   saveStatus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithField("err", err).Errorf("Ошибка соединения")
		return
	}
	conn.SetReadLimit(maxFrameSize)

	session := s.Hub.Register(conn, remoteIP(r))
	defer s.Hub.Unregister(session)

	sender := domain.Sender{SessionID: session.ID(), IP: session.RemoteIP()}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithFields(log.Fields{"session": session.ID(), "err": err}).Warn("Соединение разорвано")
			}
			return
		}
		s.handle(r.Context(), session, sender, data)
	}
}

func (s *Server) handle(parent context.Context, session *fanout.Session, sender domain.Sender, data []byte) {
	env, err := live.ParseEnvelope(data)
	if err != nil {
		log.WithFields(log.Fields{"session": session.ID(), "err": err}).Warn("Пропущен кадр")
		return
	}

	ctx, cancel := context.WithTimeout(parent, handlerTimeout)
	defer cancel()

	switch env.Event {
	case live.EventSendLocation:
		var msg live.SendLocation
		if err := env.Decode(&msg); err != nil {
			log.WithField("err", err).Warn("Некорректный sendLocation")
			return
		}
		if _, err := s.SaveLocation.Run(ctx, sender, msg); err != nil {
			logHandlerError(session, env.Event, err)
		}
	case live.EventBusStatus:
		var msg live.BusStatus
		if err := env.Decode(&msg); err != nil {
			log.WithField("err", err).Warn("Некорректный busStatus")
			return
		}
		if _, err := s.SaveStatus.Run(ctx, sender, msg); err != nil {
			logHandlerError(session, env.Event, err)
		}
	case live.EventJoinRoute:
		var msg live.JoinRoute
		if err := env.Decode(&msg); err != nil || msg.RouteID == "" {
			log.WithField("session", session.ID()).Warn("Некорректный joinRoute")
			return
		}
		session.Join(msg.RouteID)
		if s.Joins != nil {
			s.Joins.RouteJoined()
		}
		log.WithFields(log.Fields{"session": session.ID(), "route": msg.RouteID}).Debug("Подписка на маршрут")
	default:
		log.WithFields(log.Fields{"session": session.ID(), "event": env.Event}).Debug("Событие не обрабатывается сервером")
	}
}

func logHandlerError(session *fanout.Session, event string, err error) {
	entry := log.WithFields(log.Fields{"session": session.ID(), "event": event, "err": err})
	if errors.Is(err, domain.ErrUnauthorized) {
		entry.Warn("Отправитель отклонен")
		return
	}
	entry.Error("Ошибка обработки события")
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
