// Package progress delivers simulation progress events to observers
// without blocking the publisher.
package progress

import (
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/sirupsen/logrus"
)

// Topic is the bus topic progress events are published on.
const Topic = "backtest:progress"

// Event is one progress notification of a run.
type Event struct {
	RunID    string
	Seq      int     // per-run emission order; delivery order is not guaranteed
	Progress float64 // 0..100
	Message  string
	At       time.Time
}

// Publisher accepts progress events. Implementations must not block.
type Publisher interface {
	Publish(e Event)
}

// Observer receives progress events.
type Observer func(e Event)

// Bus fans progress events out to observers. Each delivery runs on its
// own goroutine, so a slow or failing observer never stalls a run.
type Bus struct {
	bus    EventBus.Bus
	logger logrus.FieldLogger
}

// NewBus creates an empty progress bus.
func NewBus(logger logrus.FieldLogger) *Bus {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Bus{
		bus:    EventBus.New(),
		logger: logger,
	}
}

// Subscribe registers an observer. A panicking observer is logged and
// otherwise ignored.
func (b *Bus) Subscribe(fn Observer) error {
	handler := func(e Event) {
		defer func() {
			if r := recover(); r != nil {
				b.logger.WithField("run_id", e.RunID).Errorf("progress observer panicked: %v", r)
			}
		}()
		fn(e)
	}
	return b.bus.SubscribeAsync(Topic, handler, false)
}

// Channel registers an observer that forwards events into a buffered
// channel. Events are dropped while the buffer is full.
func (b *Bus) Channel(buffer int) (<-chan Event, error) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	err := b.Subscribe(func(e Event) {
		select {
		case ch <- e:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// Publish delivers e to every observer asynchronously.
func (b *Bus) Publish(e Event) {
	if !b.bus.HasCallback(Topic) {
		return
	}
	b.bus.Publish(Topic, e)
}

// Wait blocks until all in-flight deliveries have finished.
func (b *Bus) Wait() {
	b.bus.WaitAsync()
}

var _ Publisher = (*Bus)(nil)
