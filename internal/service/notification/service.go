package notification

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/sse"
)

// AdminChannel is the SSE channel every payroll event is mirrored to.
const AdminChannel = "payroll:admin"

var (
	ErrQueueFull       = errors.New("notification queue is full")
	ErrNotifierStopped = errors.New("notifier is stopped")
)

// EventPublisher forwards events to an external broker.
type EventPublisher interface {
	Publish(ctx context.Context, key, eventType string, payload []byte) error
}

// Config holds notifier configuration
type Config struct {
	WorkerCount    int           // default: 2
	QueueSize      int           // default: 1000
	PublishTimeout time.Duration // default: 10 seconds
}

// Notifier fans payroll events out to SSE subscribers and, when configured,
// to the event broker. Delivery happens on background workers.
type Notifier struct {
	hub       *sse.Hub
	publisher EventPublisher
	config    Config

	mu      sync.RWMutex
	stopped bool
	queue   chan payroll.Event
	wg      sync.WaitGroup
}

// NewNotifier starts the delivery workers. publisher may be nil.
func NewNotifier(hub *sse.Hub, publisher EventPublisher, cfg Config) *Notifier {
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = 10 * time.Second
	}

	n := &Notifier{
		hub:       hub,
		publisher: publisher,
		config:    cfg,
		queue:     make(chan payroll.Event, cfg.QueueSize),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		n.wg.Add(1)
		go n.worker(i)
	}

	slog.Info("Payroll notifier started", "workers", cfg.WorkerCount, "queue_size", cfg.QueueSize)

	return n
}

// Notify implements payroll.Notifier. It never blocks on delivery.
func (n *Notifier) Notify(ctx context.Context, event payroll.Event) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.stopped {
		return ErrNotifierStopped
	}

	select {
	case n.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop drains queued events and waits for the workers to exit.
func (n *Notifier) Stop() {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return
	}
	n.stopped = true
	close(n.queue)
	n.mu.Unlock()

	n.wg.Wait()
	slog.Info("Payroll notifier stopped")
}

func (n *Notifier) worker(id int) {
	defer n.wg.Done()

	for event := range n.queue {
		n.deliver(id, event)
	}
}

func (n *Notifier) deliver(workerID int, event payroll.Event) {
	sseEvent := sse.Event{
		UserID: event.EmployeeID,
		Event:  string(event.Type),
		Data:   event,
	}
	n.hub.Publish(event.EmployeeID, sseEvent)

	sseEvent.UserID = AdminChannel
	n.hub.Publish(AdminChannel, sseEvent)

	if n.publisher == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to encode payroll event", "worker", workerID, "record_id", event.RecordID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.config.PublishTimeout)
	defer cancel()

	if err := n.publisher.Publish(ctx, event.RecordID, string(event.Type), payload); err != nil {
		slog.Error("Failed to publish payroll event",
			"worker", workerID,
			"record_id", event.RecordID,
			"event_type", event.Type,
			"error", err,
		)
	}
}
