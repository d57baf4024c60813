// Package events is the best-effort live event stream. Publishing never
// blocks: a subscriber that cannot keep up loses events.
package events

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Kind tags an event.
type Kind string

// KindLog is a human-readable log line.
const KindLog Kind = "log"

// Event is one message on the live stream.
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"type"`
	Message   string    `json:"message"`
	SessionID string    `json:"sessionId,omitempty"`
	Time      time.Time `json:"time"`
}

// Publisher is the producing side of the stream.
type Publisher interface {
	Publish(Event)
}

// Logf builds a log event and publishes it. A nil publisher is allowed.
func Logf(p Publisher, format string, args ...interface{}) {
	if p == nil {
		return
	}
	p.Publish(Event{Kind: KindLog, Message: fmt.Sprintf(format, args...)})
}

// Subscription receives events until it is closed.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	b      *Broadcaster
	closed bool
}

// Close detaches the subscription and closes its channel.
func (s *Subscription) Close() {
	s.b.unsubscribe(s)
}

// Broadcaster fans events out to subscribers and keeps the most recent ones.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	recent  *RingBuffer
	dropped atomic.Int64
}

// NewBroadcaster creates a broadcaster that remembers the last history events.
func NewBroadcaster(history int) *Broadcaster {
	if history <= 0 {
		history = 100
	}
	return &Broadcaster{
		subs:   make(map[*Subscription]struct{}),
		recent: NewRingBuffer(history),
	}
}

// Publish delivers the event to every subscriber without blocking.
func (b *Broadcaster) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Kind == "" {
		e.Kind = KindLog
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.recent.Push(e)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		select {
		case s.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe registers a subscriber with the given channel buffer.
func (b *Broadcaster) Subscribe(buffer int) *Subscription {
	ch := make(chan Event, buffer)
	s := &Subscription{C: ch, ch: ch, b: b}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

func (b *Broadcaster) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	delete(b.subs, s)
	close(s.ch)
}

// Recent returns up to n of the latest events, oldest first.
func (b *Broadcaster) Recent(n int) []Event {
	return b.recent.GetRecent(n)
}

// Dropped returns the number of deliveries lost to full subscribers.
func (b *Broadcaster) Dropped() int64 {
	return b.dropped.Load()
}

// RingBuffer keeps the last size events.
type RingBuffer struct {
	data  []Event
	size  int
	head  int
	count int
	mu    sync.RWMutex
}

func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		data: make([]Event, size),
		size: size,
	}
}

func (r *RingBuffer) Push(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[r.head] = event
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

func (r *RingBuffer) GetRecent(n int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}

	result := make([]Event, n)
	start := (r.head - n + r.size) % r.size
	for i := 0; i < n; i++ {
		result[i] = r.data[(start+i)%r.size]
	}
	return result
}

func (r *RingBuffer) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Recorder is a Publisher that keeps every event, for tests and reports.
// A nil *Recorder drops events.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish records the event.
func (r *Recorder) Publish(e Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
