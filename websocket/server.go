package websocket

import (
	"log"
	"net/http"
	"slices"
	"sync/atomic"
	"time"
)

type Server struct {
	*Conn
	// 暂时不需要锁
	services map[string]Service

	// unix nano, 消费协程写 / 超时协程读
	lastActive     atomic.Int64
	activeServices []string
}

func NewServer(w http.ResponseWriter, r *http.Request) (*Server, error) {
	conn, err := NewConn(w, r)
	if err != nil {
		return nil, err
	}

	server := &Server{
		Conn:     conn,
		services: make(map[string]Service),
	}
	server.lastActive.Store(time.Now().UnixNano())

	return server, nil
}

func (s *Server) checkTimeout() {
	ticker := time.NewTicker(time.Second * 10)
	defer ticker.Stop()
	for range ticker.C {
		if time.Since(time.Unix(0, s.lastActive.Load())) > connectionTimeout {
			s.Close()
			return
		}
	}
}

// Register adds a service whose messages count as user activity.
func (s *Server) Register(service Service) {
	s.RegisterPassive(service)
	s.activeServices = append(s.activeServices, service.Name())
}

// RegisterPassive adds a service that does not reset the inactivity
// timer (heartbeats must not keep a dead session alive).
func (s *Server) RegisterPassive(service Service) {
	if _, exists := s.services[service.Name()]; exists {
		log.Printf("service %s already registered", service.Name())
		return
	}

	service.Register(s.Conn)
	s.services[service.Name()] = service
}

// Start consumes messages until the connection dies, then lets every
// service clean up.
func (s *Server) Start() {
	go s.checkTimeout()

	go func() {
		for msg := range s.TextMessage {
			if slices.Contains(s.activeServices, msg.Service) {
				s.lastActive.Store(time.Now().UnixNano())
			}
			if svc, exists := s.services[msg.Service]; exists {
				svc.HandleMessage(msg.Id, msg.Action, msg.Data)
			}
		}
	}()

	err := s.StartDispatch()
	for _, svc := range s.services {
		svc.Cleanup(err)
	}
}
