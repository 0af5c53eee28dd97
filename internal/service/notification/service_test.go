package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/sse"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedMessage struct {
	key       string
	eventType string
	payload   []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	block    chan struct{}
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, key, eventType string, payload []byte) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, publishedMessage{key: key, eventType: eventType, payload: payload})
	return f.err
}

func (f *fakePublisher) published() []publishedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedMessage(nil), f.messages...)
}

func testEvent() payroll.Event {
	return payroll.Event{
		Type:          payroll.EventPaymentSucceeded,
		RecordID:      "rec-1",
		EmployeeID:    "emp-1",
		PeriodStart:   "2024-01-01",
		PeriodEnd:     "2024-01-31",
		PaymentStatus: payroll.PaymentStatusPaid,
		NetPay:        decimal.RequireFromString("37236.65"),
		Message:       "Payment completed",
		OccurredAt:    time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
	}
}

func receive(t *testing.T, ch chan sse.Event) sse.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return sse.Event{}
	}
}

func TestNotifier_DeliversToSubscribersAndBroker(t *testing.T) {
	hub := sse.NewHub()
	employeeCh, unsubscribeEmployee := hub.Subscribe("emp-1")
	defer unsubscribeEmployee()
	adminCh, unsubscribeAdmin := hub.Subscribe(AdminChannel)
	defer unsubscribeAdmin()

	pub := &fakePublisher{}
	n := NewNotifier(hub, pub, Config{WorkerCount: 1})

	require.NoError(t, n.Notify(context.Background(), testEvent()))

	got := receive(t, employeeCh)
	assert.Equal(t, "payment_succeeded", got.Event)
	assert.Equal(t, "emp-1", got.UserID)

	admin := receive(t, adminCh)
	assert.Equal(t, AdminChannel, admin.UserID)

	n.Stop()

	msgs := pub.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, "rec-1", msgs[0].key)
	assert.Equal(t, "payment_succeeded", msgs[0].eventType)
	assert.Contains(t, string(msgs[0].payload), `"net_pay":"37236.65"`)
}

func TestNotifier_PublisherErrorIsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	n := NewNotifier(sse.NewHub(), pub, Config{WorkerCount: 1})

	assert.NoError(t, n.Notify(context.Background(), testEvent()))
	n.Stop()

	assert.Len(t, pub.published(), 1)
}

func TestNotifier_QueueFull(t *testing.T) {
	pub := &fakePublisher{block: make(chan struct{})}
	n := NewNotifier(sse.NewHub(), pub, Config{WorkerCount: 1, QueueSize: 1})

	var full int
	for i := 0; i < 5; i++ {
		if err := n.Notify(context.Background(), testEvent()); errors.Is(err, ErrQueueFull) {
			full++
		}
	}
	assert.GreaterOrEqual(t, full, 3)

	close(pub.block)
	n.Stop()
}

func TestNotifier_NotifyAfterStop(t *testing.T) {
	n := NewNotifier(sse.NewHub(), nil, Config{})
	n.Stop()
	n.Stop()

	assert.ErrorIs(t, n.Notify(context.Background(), testEvent()), ErrNotifierStopped)
}
