// Package events fans admin notifications out to external brokers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"nemsutalks/pkg/domain"
)

const (
	defaultBuffer         = 256
	defaultPublishTimeout = 5 * time.Second
)

var ErrClosed = errors.New("dispatcher closed")

// Publisher delivers one notification to a broker.
type Publisher interface {
	Publish(ctx context.Context, n domain.Notification) error
	Close() error
}

// Envelope is the wire form of a published notification.
type Envelope struct {
	Event        string              `json:"event"`
	Notification domain.Notification `json:"notification"`
	PublishedAt  time.Time           `json:"publishedAt"`
}

func encode(n domain.Notification) ([]byte, error) {
	return json.Marshal(Envelope{
		Event:        "notification." + string(n.Type),
		Notification: n,
		PublishedAt:  time.Now().UTC(),
	})
}

// Dispatcher decouples store observers from broker latency. Enqueue never
// blocks; when the buffer is full the notification is dropped and logged.
type Dispatcher struct {
	publishers []Publisher
	ch         chan domain.Notification
	timeout    time.Duration
	logger     *slog.Logger

	mu     sync.RWMutex
	closed bool

	closeOnce sync.Once
	closeErr  error
}

func NewDispatcher(logger *slog.Logger, publishers ...Publisher) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		publishers: publishers,
		ch:         make(chan domain.Notification, defaultBuffer),
		timeout:    defaultPublishTimeout,
		logger:     logger,
	}
}

// Enqueue matches the NotificationStore observer signature.
func (d *Dispatcher) Enqueue(n domain.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.ch <- n:
	default:
		d.logger.Warn("notification dropped", "id", n.ID, "type", n.Type)
	}
}

// Run publishes queued notifications until ctx is done, then drains what
// is left and closes the publishers.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case n := <-d.ch:
			d.publish(n)
		case <-ctx.Done():
			d.mu.Lock()
			d.closed = true
			d.mu.Unlock()
			for {
				select {
				case n := <-d.ch:
					d.publish(n)
				default:
					return d.Close()
				}
			}
		}
	}
}

// Close stops accepting notifications and closes the publishers once. It is
// safe to call after Run has returned or when Run was never started.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.closeOnce.Do(func() { d.closeErr = d.closePublishers() })
	return d.closeErr
}

func (d *Dispatcher) publish(n domain.Notification) {
	for _, p := range d.publishers {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := p.Publish(ctx, n); err != nil {
			d.logger.Error("notification publish failed", "id", n.ID, "err", err)
		}
		cancel()
	}
}

func (d *Dispatcher) closePublishers() error {
	var errs []error
	for _, p := range d.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
