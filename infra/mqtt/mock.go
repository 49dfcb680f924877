package mqtt

import "sync"

// MockClient is an in-memory Client for tests: publishes are recorded and
// can be replayed to subscribed handlers.
type MockClient struct {
	mu       sync.Mutex
	handlers map[string][]MessageHandler
	// Published records every payload by topic, in order.
	Published map[string][][]byte
}

// NewMockClient returns an empty mock.
func NewMockClient() *MockClient {
	return &MockClient{
		handlers:  make(map[string][]MessageHandler),
		Published: make(map[string][][]byte),
	}
}

func (m *MockClient) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]byte(nil), payload...)
	m.Published[topic] = append(m.Published[topic], cp)
	return nil
}

func (m *MockClient) Subscribe(topic string, handler MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = append(m.handlers[topic], handler)
	return nil
}

func (m *MockClient) Close() {}

// Inject delivers a payload to the handlers subscribed to the topic.
func (m *MockClient) Inject(topic string, payload []byte) {
	m.mu.Lock()
	handlers := append([]MessageHandler(nil), m.handlers[topic]...)
	m.mu.Unlock()
	for _, h := range handlers {
		h(topic, payload)
	}
}

// PublishedOn returns the payloads recorded for the topic.
func (m *MockClient) PublishedOn(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.Published[topic]...)
}
