package heartbeat

import (
	"sync"
	"testing"

	ws "webide/websocket"
)

type mockConn struct {
	mu       sync.Mutex
	messages []*ws.ServiceMessage
}

func (m *mockConn) WriteJSON(v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := v.(*ws.ServiceMessage); ok {
		m.messages = append(m.messages, msg)
	}
	return nil
}

func (m *mockConn) Close() error { return nil }

func TestHeartbeatServiceName(t *testing.T) {
	service := NewService()
	if service.Name() != "heartbeat" {
		t.Errorf("Expected service name to be 'heartbeat', got '%s'", service.Name())
	}
}

func TestHeartbeatServiceEchoes(t *testing.T) {
	service := NewService()
	conn := &mockConn{}
	service.conn = conn

	service.HandleMessage("ping-1", "ping", nil)

	if len(conn.messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(conn.messages))
	}
	msg := conn.messages[0]
	if msg.Id != "ping-1" || msg.Action != "ping" || msg.Service != "heartbeat" {
		t.Errorf("Unexpected echo: %+v", msg)
	}
}
