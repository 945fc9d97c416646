package websocket

import (
	"encoding/json"
)

// Service is one logical consumer multiplexed over a Conn. The id of a
// message is the caller's correlation id: responses for a request must
// carry the id it came with.
type Service interface {
	HandleMessage(id string, action string, data json.RawMessage)
	Name() string
	Cleanup(err error)
	Register(conn *Conn)
}

// MessageConn is the send half of a Conn, what a service actually
// needs to answer its caller.
type MessageConn interface {
	WriteJSON(v any) error
	Close() error
}

type ServiceMessage struct {
	Service string          `json:"service"`
	Id      string          `json:"id,omitempty"`
	Action  string          `json:"action,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}
