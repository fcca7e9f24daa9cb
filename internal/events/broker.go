package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const subscriberBufSize = 256

// Outbound actions published to UI listeners.
const (
	ActionRecordingStarted  = "recordingStarted"
	ActionRecordingStopped  = "recordingStopped"
	ActionRecordingError    = "recordingError"
	ActionRecordingComplete = "recordingComplete"
	ActionUploadStarted     = "uploadStarted"
	ActionUploadComplete    = "uploadComplete"
	ActionUploadError       = "uploadError"
)

// Message is a single action-tagged notification.
type Message struct {
	Action  string         `json:"action"`
	TabID   string         `json:"tab_id,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	Time    time.Time      `json:"time"`
}

// Publisher delivers messages to whoever is listening. Delivery is best
// effort: a listener that is gone or slow never fails the publisher.
type Publisher interface {
	Publish(msg Message)
}

// Broker fans out messages to all subscribers.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan Message
	nextID      atomic.Int64
	now         func() time.Time
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[int64]chan Message),
		now:         time.Now,
	}
}

// Subscribe registers a new listener. The returned channel is buffered;
// slow consumers have messages dropped.
func (b *Broker) Subscribe() (int64, <-chan Message) {
	id := b.nextID.Add(1)
	ch := make(chan Message, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish sends msg to every subscriber without blocking.
func (b *Broker) Publish(msg Message) {
	if msg.Time.IsZero() {
		msg.Time = b.now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.subscribers) == 0 {
		slog.Debug("event dropped, no listeners", "action", msg.Action, "tab_id", msg.TabID)
		return
	}
	for id, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
			slog.Debug("event dropped, listener buffer full", "action", msg.Action, "subscriber", id)
		}
	}
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Discard is a Publisher that drops everything.
type Discard struct{}

func (Discard) Publish(Message) {}
