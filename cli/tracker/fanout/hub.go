package fanout

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/unibus/tracker/libs/live"
)

const (
	sendQueueSize = 64
	writeWait     = 10 * time.Second
)

// Observer receives hub lifecycle notifications. Used for metrics.
type Observer interface {
	SessionOpened()
	SessionClosed()
	Broadcast(event string)
}

type nopObserver struct{}

func (nopObserver) SessionOpened()   {}
func (nopObserver) SessionClosed()   {}
func (nopObserver) Broadcast(string) {}

// Session is one connected websocket peer.
type Session struct {
	id       string
	remoteIP string
	conn     *websocket.Conn
	send     chan []byte

	mu     sync.Mutex
	routes map[string]struct{}

	closeOnce sync.Once
	done      chan struct{}
}

func (s *Session) ID() string       { return s.id }
func (s *Session) RemoteIP() string { return s.remoteIP }

// Join records route membership for the session.
func (s *Session) Join(route string) {
	s.mu.Lock()
	s.routes[route] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) InRoute(route string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.routes[route]
	return ok
}

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *Session) writePump() {
	defer s.close()
	for {
		select {
		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.WithFields(log.Fields{"session": s.id, "err": err}).Debug("Ошибка записи в сокет")
				return
			}
		case <-s.done:
			return
		}
	}
}

// Hub is the in-process set of connected sessions.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	observer Observer
}

func NewHub(observer Observer) *Hub {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Hub{sessions: make(map[string]*Session), observer: observer}
}

// Register adds a connection and starts its writer.
func (h *Hub) Register(conn *websocket.Conn, remoteIP string) *Session {
	s := &Session{
		id:       uuid.NewString(),
		remoteIP: remoteIP,
		conn:     conn,
		send:     make(chan []byte, sendQueueSize),
		routes:   make(map[string]struct{}),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	h.observer.SessionOpened()

	go s.writePump()
	log.WithFields(log.Fields{"session": s.id, "ip": remoteIP}).Info("Установлено соединение")
	return s
}

func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s.id]
	delete(h.sessions, s.id)
	h.mu.Unlock()

	s.close()
	if ok {
		h.observer.SessionClosed()
		log.WithField("session", s.id).Info("Соединение закрыто")
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Publish queues the envelope on every matching session. A session whose
// queue is full is dropped.
func (h *Hub) Publish(_ context.Context, topic Topic, env live.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	var slow []*Session
	h.mu.RLock()
	for _, s := range h.sessions {
		if topic.Scope == ScopeRoute && !s.InRoute(topic.Route) {
			continue
		}
		select {
		case s.send <- data:
		case <-s.done:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		log.WithField("session", s.id).Warn("Очередь отправки переполнена, соединение закрыто")
		h.Unregister(s)
	}
	h.observer.Broadcast(env.Event)
	return nil
}

func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		all = append(all, s)
	}
	h.mu.RUnlock()

	for _, s := range all {
		h.Unregister(s)
	}
}
