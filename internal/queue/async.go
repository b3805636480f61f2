package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrBufferFull is returned when events arrive faster than the sink drains.
var ErrBufferFull = errors.New("event buffer full")

// AsyncPublisher hands events to a background goroutine so callers never
// wait on the broker.  Events are dropped, with ErrBufferFull, once size
// events are pending.
type AsyncPublisher struct {
	sink    Publisher
	log     *logrus.Logger
	timeout time.Duration

	events chan LibraryEvent
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAsyncPublisher(sink Publisher, size int, log *logrus.Logger) *AsyncPublisher {
	if size < 1 {
		size = 1
	}
	p := &AsyncPublisher{
		sink:    sink,
		log:     log,
		timeout: 5 * time.Second,
		events:  make(chan LibraryEvent, size),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish stamps ev and queues it.  It never blocks.
func (p *AsyncPublisher) Publish(_ context.Context, ev LibraryEvent) error {
	stamp(&ev)
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("publisher closed")
	}
	select {
	case p.events <- ev:
		return nil
	default:
		return ErrBufferFull
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for ev := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.sink.Publish(ctx, ev); err != nil {
			p.log.WithError(err).WithFields(logrus.Fields{"type": ev.Type, "event_id": ev.ID}).
				Warn("library event dropped")
		}
		cancel()
	}
}

// Close stops accepting events and waits until the pending ones have been
// handed to the sink or ctx expires.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
