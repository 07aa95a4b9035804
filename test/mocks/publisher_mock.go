package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/ports"
)

// PublishedMessage is one captured (channel, event, payload) tuple.
type PublishedMessage struct {
	Channel string
	Event   string
	Payload []byte
}

// MockEventPublisher implements ports.EventPublisher for testing the
// fan-out without a Redis connection. Fan-out publishes from a goroutine,
// so assertions should go through WaitForCount.
type MockEventPublisher struct {
	mu sync.RWMutex

	// Track published messages for verification
	Published []PublishedMessage

	// Error injection for testing error scenarios
	PublishError error

	// Track number of calls
	PublishCallCount int
}

var _ ports.EventPublisher = (*MockEventPublisher)(nil)

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{
		Published: make([]PublishedMessage, 0),
	}
}

func (m *MockEventPublisher) Publish(ctx context.Context, channel, event string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCallCount++

	if m.PublishError != nil {
		return m.PublishError
	}

	body := make([]byte, len(payload))
	copy(body, payload)
	m.Published = append(m.Published, PublishedMessage{Channel: channel, Event: event, Payload: body})
	return nil
}

// CallCount returns how many Publish calls were made, failed ones included.
func (m *MockEventPublisher) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PublishCallCount
}

// GetPublished returns a copy of all captured messages.
func (m *MockEventPublisher) GetPublished() []PublishedMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	published := make([]PublishedMessage, len(m.Published))
	copy(published, m.Published)
	return published
}

// WaitForCount polls until at least n messages were delivered or the
// timeout expires, returning whether the count was reached.
func (m *MockEventPublisher) WaitForCount(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		m.mu.RLock()
		count := len(m.Published)
		m.mu.RUnlock()
		if count >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Published) >= n
}

// MockPushPublisher implements ports.PushPublisher for relay tests.
type MockPushPublisher struct {
	mu sync.RWMutex

	PublishedEvents []ports.PushEvent
	PublishError    error
}

var _ ports.PushPublisher = (*MockPushPublisher)(nil)

func NewMockPushPublisher() *MockPushPublisher {
	return &MockPushPublisher{
		PublishedEvents: make([]ports.PushEvent, 0),
	}
}

func (m *MockPushPublisher) PublishPushEvent(ctx context.Context, evt ports.PushEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishError != nil {
		return m.PublishError
	}
	m.PublishedEvents = append(m.PublishedEvents, evt)
	return nil
}

// GetPushEvents returns a copy of captured push events.
func (m *MockPushPublisher) GetPushEvents() []ports.PushEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]ports.PushEvent, len(m.PublishedEvents))
	copy(events, m.PublishedEvents)
	return events
}
