package heartbeat

import (
	"encoding/json"

	ws "webide/websocket"
)

// HeartbeatService echoes pings so the frontend can tell a quiet
// connection from a dead one.
type HeartbeatService struct {
	conn ws.MessageConn
}

func NewService() *HeartbeatService {
	return &HeartbeatService{}
}

func (s *HeartbeatService) Name() string {
	return "heartbeat"
}

func (s *HeartbeatService) Register(conn *ws.Conn) {
	s.conn = conn
}

func (s *HeartbeatService) HandleMessage(id, action string, data json.RawMessage) {
	s.conn.WriteJSON(&ws.ServiceMessage{Service: s.Name(), Action: action, Id: id})
}

func (s *HeartbeatService) Cleanup(err error) {}
