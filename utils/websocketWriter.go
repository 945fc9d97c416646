package utils

import (
	ws "webide/websocket"
)

// WebsocketWriter adapts a service message stream into an io.Writer,
// so process output can be piped straight onto the connection chunk by
// chunk.
type WebsocketWriter struct {
	Service     string
	Id          string
	Action      string
	Conn        ws.MessageConn
	Transformer func([]byte) []byte
}

func (w *WebsocketWriter) Write(p []byte) (n int, err error) {
	var transformed []byte
	if w.Transformer != nil {
		transformed = w.Transformer(p)
	} else {
		transformed = p
	}

	err = w.Conn.WriteJSON(&ws.ServiceMessage{
		Service: w.Service,
		Id:      w.Id,
		Action:  w.Action,
		Data:    transformed,
	})

	if err != nil {
		return 0, err
	}

	return len(p), nil
}
