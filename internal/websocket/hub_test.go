package websocket

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient is a test double for Client that captures sent messages
type mockClient struct {
	id       string
	topic    string
	messages [][]byte
	mu       sync.Mutex
	closed   bool
}

func newMockClient(id, topic string) *mockClient {
	return &mockClient{
		id:       id,
		topic:    topic,
		messages: make([][]byte, 0),
	}
}

func (m *mockClient) ID() string {
	return m.id
}

func (m *mockClient) Topic() string {
	return m.topic
}

func (m *mockClient) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClientClosed
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *mockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockClient) GetMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([][]byte, len(m.messages))
	copy(copied, m.messages)
	return copied
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()

	client1 := newMockClient("client-1", TopicOperations)
	client2 := newMockClient("client-2", TopicOperations)
	client3 := newMockClient("client-3", "reports")

	hub.Register(client1)
	hub.Register(client2)
	hub.Register(client3)

	assert.Equal(t, 2, hub.ClientCount(TopicOperations))
	assert.Equal(t, 1, hub.ClientCount("reports"))
	assert.Equal(t, 0, hub.ClientCount("nonexistent"))

	hub.Unregister(client1)
	assert.Equal(t, 1, hub.ClientCount(TopicOperations))

	hub.Unregister(client2)
	hub.Unregister(client3)
	assert.Equal(t, 0, hub.ClientCount(TopicOperations))
	assert.Equal(t, 0, hub.ClientCount("reports"))
}

func TestHub_Broadcast_TopicIsolation(t *testing.T) {
	hub := NewHub()

	opsA := newMockClient("ops-a", TopicOperations)
	opsB := newMockClient("ops-b", TopicOperations)
	reports := newMockClient("reports-1", "reports")

	hub.Register(opsA)
	hub.Register(opsB)
	hub.Register(reports)

	evt := PaymentApplied(map[string]interface{}{"id": float64(42)})
	hub.Broadcast(TopicOperations, evt)

	// Give goroutines time to process
	time.Sleep(10 * time.Millisecond)

	assert.Len(t, opsA.GetMessages(), 1, "opsA should receive 1 message")
	assert.Len(t, opsB.GetMessages(), 1, "opsB should receive 1 message")
	assert.Len(t, reports.GetMessages(), 0, "reports client should not receive operations events")
}

func TestHub_Broadcast_MultipleFanOut(t *testing.T) {
	hub := NewHub()

	clients := make([]*mockClient, 5)
	for i := 0; i < 5; i++ {
		clients[i] = newMockClient(fmt.Sprintf("client-%d", i), TopicOperations)
		hub.Register(clients[i])
	}

	evt := EODCompleted(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), 2*time.Second)
	hub.Broadcast(TopicOperations, evt)

	time.Sleep(10 * time.Millisecond)

	for i, c := range clients {
		assert.Len(t, c.GetMessages(), 1, "client %d should receive message", i)
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	clientCount := 50
	topics := []string{TopicOperations, "reports", "alerts", "audit", "monitoring"}

	clients := make([]*mockClient, clientCount)
	for i := 0; i < clientCount; i++ {
		clients[i] = newMockClient(fmt.Sprintf("client-%d", i), topics[i%len(topics)])
	}

	for i := 0; i < clientCount; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			hub.Register(clients[idx])
		}(i)
	}

	wg.Wait()
	assert.Equal(t, clientCount, hub.TotalClientCount())

	for i := 0; i < clientCount; i++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			evt := PaymentApplied(map[string]interface{}{"id": float64(idx)})
			hub.Broadcast(topics[idx%len(topics)], evt)
		}(i)
		go func(idx int) {
			defer wg.Done()
			hub.Unregister(clients[idx])
		}(i)
	}

	wg.Wait()
	assert.Equal(t, 0, hub.TotalClientCount())
}

func TestHub_UnregisterNonexistent(t *testing.T) {
	hub := NewHub()

	client := newMockClient("client-1", TopicOperations)

	require.NotPanics(t, func() {
		hub.Unregister(client)
	})
}

func TestHub_BroadcastToEmptyTopic(t *testing.T) {
	hub := NewHub()

	require.NotPanics(t, func() {
		evt := PaymentApplied(map[string]interface{}{"id": float64(1)})
		hub.Broadcast("nobody-listens", evt)
	})
}
