package relay

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unibus/tracker/cli/tracker/fanout"
	"github.com/unibus/tracker/libs/live"
)

var ErrQueueFull = errors.New("очередь ретрансляции переполнена")
var ErrClosed = errors.New("асинхронный репозиторий был закрыт")

var now = time.Now

// DropObserver is told about envelopes dropped on a full queue.
type DropObserver interface {
	RelayDrop()
}

// AsyncRepository hands events to the sinks from a worker pool so a slow
// sink never delays the broadcast.
type AsyncRepository struct {
	repo    *Repository
	ch      chan Message
	drops   DropObserver
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	closeMu sync.RWMutex
	closed  bool
}

func NewAsyncRepository(repo *Repository, buffer, workers int, drops DropObserver) *AsyncRepository {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if buffer < 0 {
		buffer = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	ar := &AsyncRepository{
		repo:   repo,
		ch:     make(chan Message, buffer),
		drops:  drops,
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		ar.wg.Add(1)
		go ar.worker()
	}
	return ar
}

func (a *AsyncRepository) worker() {
	defer a.wg.Done()
	for {
		select {
		case msg, ok := <-a.ch:
			if !ok {
				return
			}
			_ = a.repo.Save(msg)
		case <-a.ctx.Done():
			return
		}
	}
}

// Save queues a message without blocking.
func (a *AsyncRepository) Save(m Message) error {
	a.closeMu.RLock()
	defer a.closeMu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	select {
	case a.ch <- m:
		return nil
	default:
		if a.drops != nil {
			a.drops.RelayDrop()
		}
		log.Warn("Очередь ретрансляции переполнена, событие отброшено")
		return ErrQueueFull
	}
}

// Publish lets the relay sit next to the hub as a fanout.Broadcaster.
func (a *AsyncRepository) Publish(_ context.Context, topic fanout.Topic, env live.Envelope) error {
	return a.Save(Event{Envelope: env, Route: topic.Route, At: now()})
}

// Close drains the queue and stops the workers.
func (a *AsyncRepository) Close() {
	a.closeMu.Lock()
	if a.closed {
		a.closeMu.Unlock()
		return
	}
	a.closed = true
	close(a.ch)
	a.closeMu.Unlock()

	a.wg.Wait()
	a.cancel()
}
