package run

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"webide/runner"
	"webide/utils"
	ws "webide/websocket"
)

const (
	actionStart     = "start"
	actionOutput    = "output"
	actionExit      = "exit"
	actionTerminate = "terminate"
)

type startData struct {
	NodeID string `json:"nodeId"`
}
type exitData struct {
	Code int `json:"code"`
}

// RunService executes workspace files in the sandbox and streams their
// output back over the connection. One message id is one run; a second
// start with a live id is rejected, terminate cancels it.
type RunService struct {
	conn       ws.MessageConn
	dispatcher *runner.Dispatcher

	runs map[string]context.CancelFunc

	*log.Logger
	*sync.RWMutex
}

func NewService(dispatcher *runner.Dispatcher) *RunService {
	return &RunService{
		dispatcher: dispatcher,
		runs:       make(map[string]context.CancelFunc),
		Logger:     log.New(os.Stdout, "[run] ", log.LstdFlags),
		RWMutex:    new(sync.RWMutex),
	}
}

func (s *RunService) Name() string {
	return "run"
}

func (s *RunService) Register(conn *ws.Conn) {
	s.conn = conn
}

func (s *RunService) HandleMessage(id string, action string, data json.RawMessage) {
	// 一次锁里把 cancel 和存在性都拿到, 进程退出删掉条目时
	// 不会拿到零值的 cancel
	s.RLock()
	cancel, exists := s.runs[id]
	s.RUnlock()

	switch action {
	case actionStart:
		if exists {
			s.Printf("(id: %s) received start while run is still live", id)
			return
		}
		var d startData
		if err := json.Unmarshal(data, &d); err != nil {
			s.Printf("(id: %s) error unmarshalling start payload: %v", id, err)
			return
		}
		s.startRun(id, d.NodeID)
	case actionTerminate:
		if !exists {
			s.Printf("(id: %s) received terminate for unknown run", id)
			return
		}
		cancel()
	default:
		s.Printf("(id: %s) unknown action %q", id, action)
	}
}

func (s *RunService) startRun(id string, nodeID string) {
	ctx, cancel := context.WithCancel(context.Background())

	s.Lock()
	s.runs[id] = cancel
	s.Unlock()

	// 输出直接推给前端终端, 一块一块发
	sink := &utils.WebsocketWriter{
		Service: s.Name(),
		Id:      id,
		Action:  actionOutput,
		Conn:    s.conn,
		Transformer: func(p []byte) []byte {
			d, _ := json.Marshal(string(p))
			return d
		},
	}

	go func() {
		defer func() {
			cancel()
			s.Lock()
			delete(s.runs, id)
			s.Unlock()
		}()

		code, err := s.dispatcher.Run(ctx, nodeID, sink)
		if err != nil {
			s.handleError(id, err)
			return
		}

		d, _ := json.Marshal(exitData{Code: code})
		s.conn.WriteJSON(&ws.ServiceMessage{
			Service: s.Name(),
			Id:      id,
			Action:  actionExit,
			Data:    d,
		})
	}()
}

func (s *RunService) handleError(id string, err error) {
	s.Println(err)

	s.conn.WriteJSON(&ws.ServiceMessage{
		Service: s.Name(),
		Id:      id,
		Action:  actionExit,
		Error:   fmt.Sprintf("run failed: %v", err),
	})
}

func (s *RunService) Cleanup(err error) {
	s.Lock()
	defer s.Unlock()
	for _, cancel := range s.runs {
		cancel()
	}
	s.runs = make(map[string]context.CancelFunc)
}
