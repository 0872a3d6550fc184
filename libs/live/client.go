package live

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const DefaultReconnectDelay = 5 * time.Second

var ErrNotConnected = errors.New("нет соединения с сервером")

// ConnState is the connection state a client exposes to its user.
type ConnState int

const (
	Connecting ConnState = iota
	Connected
	Reconnecting
)

func (s ConnState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "connecting"
	}
}

// Client keeps a socket to the tracker open, redialing after a fixed delay
// whenever the connection drops.
type Client struct {
	url            string
	dialer         *websocket.Dialer
	reconnectDelay time.Duration

	m    sync.Mutex
	conn *websocket.Conn

	events chan Envelope
	states chan ConnState
}

func NewClient(url string, reconnectDelay time.Duration) *Client {
	if reconnectDelay <= 0 {
		reconnectDelay = DefaultReconnectDelay
	}
	return &Client{
		url:            url,
		dialer:         websocket.DefaultDialer,
		reconnectDelay: reconnectDelay,
		events:         make(chan Envelope, 256),
		states:         make(chan ConnState, 16),
	}
}

// Events delivers every well-formed envelope the server pushes.
func (c *Client) Events() <-chan Envelope { return c.events }

func (c *Client) States() <-chan ConnState { return c.states }

// Run dials and reads until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	state := Connecting
	for {
		c.setState(ctx, state)

		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			log.WithFields(log.Fields{"url": c.url, "err": err}).Warn("Не удалось подключиться, повтор")
		} else {
			c.setConn(conn)
			c.setState(ctx, Connected)
			log.WithField("url", c.url).Info("Соединение установлено")

			c.readLoop(ctx, conn)

			c.setConn(nil)
			_ = conn.Close()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}
		state = Reconnecting
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.WithField("err", err).Warn("Соединение разорвано")
			}
			return
		}
		env, err := ParseEnvelope(data)
		if err != nil {
			log.WithField("err", err).Debug("Пропущен кадр")
			continue
		}
		select {
		case c.events <- env:
		case <-ctx.Done():
			return
		}
	}
}

// Send writes an event if a connection is currently open.
func (c *Client) Send(event string, payload interface{}) error {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	c.m.Lock()
	defer c.m.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.m.Lock()
	c.conn = conn
	c.m.Unlock()
}

func (c *Client) setState(ctx context.Context, s ConnState) {
	select {
	case c.states <- s:
	case <-ctx.Done():
	default:
		log.WithField("state", s).Debug("Состояние соединения не доставлено")
	}
}
