// Package notification broadcasts user-facing notices to whichever surfaces
// display them (toast widget, CLI output).
package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level classifies a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelProgress
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelProgress:
		return "progress"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Notice is a single user-visible message.
type Notice struct {
	Level      Level
	Message    string
	SequenceNo uint64
}

// Sink receives notices for display.
type Sink interface {
	Show(Notice)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Notice)

func (f SinkFunc) Show(n Notice) { f(n) }

// subscription represents a subscriber's registration.
type subscription struct {
	id   string
	sink Sink
}

// Manager manages notice subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription

	sequenceNoMu sync.Mutex
	sequenceNo   uint64
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a sink and returns its subscription ID.
func (m *Manager) Subscribe(sink Sink) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{id: id, sink: sink}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Broadcast delivers a notice to all subscribers. Each delivery runs in its
// own goroutine with a timeout so a stuck sink cannot block the caller.
func (m *Manager) Broadcast(level Level, message string) {
	m.sequenceNoMu.Lock()
	m.sequenceNo++
	notice := Notice{Level: level, Message: message, SequenceNo: m.sequenceNo}
	m.sequenceNoMu.Unlock()

	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			done := make(chan struct{})
			go func() {
				s.sink.Show(notice)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(500 * time.Millisecond):
				// Stuck sink, move on.
			}
		}(sub)
	}
	wg.Wait()
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
