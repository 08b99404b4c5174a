// Package network wraps a websocket connection in the JSON envelope the
// chat bridge speaks.
package network

import (
	"encoding/json"
	"net"
	"sync"

	"github.com/gorilla/websocket"
)

// Envelope is one framed message in either direction.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type Connection interface {
	Send(msgType string, data interface{}) error
	ReadEnvelope() (*Envelope, error)
	Close() error
	RemoteAddr() net.Addr
}

type WSConnection struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn}
}

func (c *WSConnection) Send(msgType string, data interface{}) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = encoded
	}
	return c.conn.WriteJSON(Envelope{Type: msgType, Data: raw})
}

func (c *WSConnection) ReadEnvelope() (*Envelope, error) {
	var envelope Envelope
	if err := c.conn.ReadJSON(&envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

func (c *WSConnection) Close() error {
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
