package shell

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "webide/websocket"
)

type mockShell struct {
	mu      sync.Mutex
	closed  bool
	rows    int
	cols    int
	written []byte

	output chan []byte
}

func newMockShell() *mockShell {
	return &mockShell{output: make(chan []byte, 4)}
}

func (m *mockShell) Read(p []byte) (int, error) {
	chunk, ok := <-m.output
	if !ok {
		return 0, io.EOF
	}
	return copy(p, chunk), nil
}

func (m *mockShell) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, p...)
	return len(p), nil
}

func (m *mockShell) Resize(rows, cols int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows, m.cols = rows, cols
	return nil
}

func (m *mockShell) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.output)
	}
	return nil
}

func (m *mockShell) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockShell) writtenBytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.written...)
}

type mockShellProvider struct {
	shell *mockShell
	calls int
	cwd   string
}

func (m *mockShellProvider) NewShell(cwd string) (Shell, error) {
	m.calls++
	m.cwd = cwd
	return m.shell, nil
}

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

func (m *mockConn) byAction(action string) []*ws.ServiceMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*ws.ServiceMessage
	for _, msg := range m.messages {
		if msg.Action == action {
			result = append(result, msg)
		}
	}
	return result
}

func newTestService(t *testing.T) (*ShellService, *mockShellProvider, *mockConn) {
	t.Helper()

	provider := &mockShellProvider{shell: newMockShell()}
	s := &ShellService{
		shells:        make(map[string]Shell),
		ShellProvider: provider,
		Logger:        log.New(os.Stderr, "[shell] ", log.LstdFlags),
		RWMutex:       new(sync.RWMutex),
	}
	conn := &mockConn{}
	s.conn = conn
	t.Cleanup(func() { provider.shell.Close() })
	return s, provider, conn
}

func shellCount(s *ShellService) int {
	s.RLock()
	defer s.RUnlock()
	return len(s.shells)
}

func TestShellServiceStart(t *testing.T) {
	s, provider, conn := newTestService(t)

	s.HandleMessage("sh-1", actionStart, json.RawMessage(`{"cwd":"src"}`))

	assert.Equal(t, 1, shellCount(s))
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, "src", provider.cwd)
	require.Len(t, conn.byAction(actionStart), 1)

	// shell 输出推给前端, JSON 字符串一块一块发
	provider.shell.output <- []byte("$ ")
	require.Eventually(t, func() bool {
		return len(conn.byAction(actionCommand)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	var chunk string
	msg := conn.byAction(actionCommand)[0]
	require.NoError(t, json.Unmarshal(msg.Data, &chunk))
	assert.Equal(t, "$ ", chunk)
	assert.Equal(t, "sh-1", msg.Id)
}

func TestShellServiceDoubleStartIgnored(t *testing.T) {
	s, provider, conn := newTestService(t)

	s.HandleMessage("sh-1", actionStart, json.RawMessage(`{"cwd":""}`))
	s.HandleMessage("sh-1", actionStart, json.RawMessage(`{"cwd":""}`))

	assert.Equal(t, 1, provider.calls)
	assert.Len(t, conn.byAction(actionStart), 1)
}

func TestShellServiceMessageBeforeStartIgnored(t *testing.T) {
	s, provider, _ := newTestService(t)

	s.HandleMessage("sh-1", actionCommand, json.RawMessage(`"ls"`))
	s.HandleMessage("sh-1", actionResize, json.RawMessage(`{"rows":24,"cols":80}`))

	assert.Equal(t, 0, shellCount(s))
	assert.Empty(t, provider.shell.writtenBytes())
}

func TestShellServiceCommand(t *testing.T) {
	s, provider, _ := newTestService(t)

	s.HandleMessage("sh-1", actionStart, json.RawMessage(`{"cwd":""}`))
	s.HandleMessage("sh-1", actionCommand, json.RawMessage(`"ls -l\n"`))

	assert.Equal(t, []byte("ls -l\n"), provider.shell.writtenBytes())
}

func TestShellServiceResize(t *testing.T) {
	s, provider, _ := newTestService(t)

	s.HandleMessage("sh-1", actionStart, json.RawMessage(`{"cwd":""}`))
	s.HandleMessage("sh-1", actionResize, json.RawMessage(`{"rows":24,"cols":80}`))

	provider.shell.mu.Lock()
	defer provider.shell.mu.Unlock()
	assert.Equal(t, 24, provider.shell.rows)
	assert.Equal(t, 80, provider.shell.cols)
}

func TestShellServiceTerminate(t *testing.T) {
	s, provider, _ := newTestService(t)

	s.HandleMessage("sh-1", actionStart, json.RawMessage(`{"cwd":""}`))
	s.HandleMessage("sh-1", actionTerminate, nil)

	assert.True(t, provider.shell.isClosed())
	assert.Equal(t, 0, shellCount(s))
}

func TestShellServiceName(t *testing.T) {
	s := &ShellService{}
	assert.Equal(t, "shell", s.Name())
}

func TestShellServiceCleanup(t *testing.T) {
	first, second := newMockShell(), newMockShell()
	s := &ShellService{
		shells:  map[string]Shell{"sh-1": first, "sh-2": second},
		Logger:  log.New(os.Stderr, "[shell] ", log.LstdFlags),
		RWMutex: new(sync.RWMutex),
	}

	s.Cleanup(nil)

	assert.True(t, first.isClosed())
	assert.True(t, second.isClosed())
	assert.Nil(t, s.shells)
}
