package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	ws "github.com/gorilla/websocket"
)

type Conn struct {
	*ws.Conn
	*sync.Mutex
	// Exposed channel for incoming service messages
	TextMessage chan *ServiceMessage
}

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (c *Conn) WriteJSON(v any) error {
	c.Lock()
	err := c.Conn.WriteJSON(v)
	c.Unlock()

	if err != nil {
		log.Printf("Websocket::WriteJson error: %v", err)
	}
	return err
}

// NewConn initializes the connection and its channel
func NewConn(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Websocket upgrade error: %v", err)
		return nil, err
	}

	result := &Conn{
		Conn:        conn,
		Mutex:       new(sync.Mutex),
		TextMessage: make(chan *ServiceMessage, 10),
	}

	return result, nil
}

// StartDispatch reads messages and pushes them into the message channel
func (c *Conn) StartDispatch() error {
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			close(c.TextMessage)
			return err
		}

		var msg ServiceMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("error unmarshalling message: %v", err)
			continue
		}
		c.TextMessage <- &msg
	}
}
