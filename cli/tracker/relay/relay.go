package relay

import (
	"errors"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/unibus/tracker/cli/tracker/relay/sink/rabbitmq"
	"github.com/unibus/tracker/cli/tracker/relay/sink/redis"
	"github.com/unibus/tracker/cli/tracker/relay/sink/tarantool_queue"
)

var ErrInvalidSink = errors.New("sink not found")
var ErrUnknownSink = errors.New("sink isn't support yet")

// Message is anything a sink can serialize.
type Message interface {
	Encode(format string) ([]byte, error)
}

// Saver интерфейс для отправки во внешние системы
type Saver interface {
	Save(interface{ Encode(string) ([]byte, error) }) error
}

// Connector интерфейс для подключения внешних систем
type Connector interface {
	Init(map[string]string) error
	Close() error
}

type Sink interface {
	Connector
	Saver
}

// ErrorObserver is told which sink failed.
type ErrorObserver interface {
	RelayError(sink string)
}

type namedSaver struct {
	name  string
	saver Saver
}

// Repository набор внешних получателей событий
type Repository struct {
	sinks    []namedSaver
	closers  []Connector
	observer ErrorObserver
}

func NewRepository(observer ErrorObserver) *Repository {
	return &Repository{observer: observer}
}

// AddSink добавляет получателя
func (r *Repository) AddSink(name string, s Saver) {
	r.sinks = append(r.sinks, namedSaver{name: name, saver: s})
	if c, ok := s.(Connector); ok {
		r.closers = append(r.closers, c)
	}
}

func (r *Repository) Len() int { return len(r.sinks) }

// Save отправляет событие всем получателям. Ошибка одного получателя не мешает остальным.
func (r *Repository) Save(m Message) error {
	var first error
	for _, s := range r.sinks {
		if err := s.saver.Save(m); err != nil {
			log.WithFields(log.Fields{"sink": s.name, "err": err}).Error("Ошибка отправки события")
			if r.observer != nil {
				r.observer.RelayError(s.name)
			}
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// LoadSinks загружает получателей из структуры конфига
func (r *Repository) LoadSinks(sinks map[string]map[string]string) error {
	if len(sinks) == 0 {
		return ErrInvalidSink
	}

	names := make([]string, 0, len(sinks))
	for name := range sinks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		var s Sink
		switch name {
		case "rabbitmq":
			s = &rabbitmq.Connector{}
		case "tarantool_queue":
			s = &tarantool_queue.Connector{}
		case "redis":
			s = &redis.Connector{}
		default:
			return ErrUnknownSink
		}

		if err := s.Init(sinks[name]); err != nil {
			return err
		}
		r.AddSink(name, s)
		log.WithField("sink", name).Info("Подключен получатель событий")
	}
	return nil
}

func (r *Repository) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
