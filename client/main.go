package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func send(c *websocket.Conn, msgType string, data interface{}) error {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = encoded
	}
	return c.WriteJSON(envelope{Type: msgType, Data: raw})
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	chat := flag.String("chat", "debug-room", "conversation id")
	player := flag.String("player", "p1", "player id")
	name := flag.String("name", "Debugger", "display name")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{
		Scheme:   "ws",
		Host:     *addr,
		Path:     "/ws",
		RawQuery: url.Values{"chat": {*chat}, "player": {*player}, "name": {*name}}.Encode(),
	}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			var msg envelope
			if err := c.ReadJSON(&msg); err != nil {
				log.Println("Read error:", err)
				return
			}
			log.Printf("<- RECV (%s): %s", msg.Type, string(msg.Data))
		}
	}()

	log.Println("Commands: new | join | start | guess <letter> | solve! | solve <text> | leave | kick <player> | end")

	lines := make(chan string)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			text, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- strings.TrimSpace(text)
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case text, ok := <-lines:
			if !ok {
				return
			}
			if err := dispatch(c, text); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}

func dispatch(c *websocket.Conn, text string) error {
	cmd, rest, _ := strings.Cut(text, " ")
	switch cmd {
	case "new", "join", "start", "leave", "end":
		return send(c, cmd, nil)
	case "guess":
		return send(c, "guess", map[string]string{"letter": rest})
	case "solve!":
		return send(c, "solve_request", nil)
	case "solve":
		return send(c, "solve", map[string]string{"text": rest})
	case "kick":
		return send(c, "kick", map[string]string{"target": rest})
	case "":
		return nil
	default:
		log.Printf("Unknown command %q", cmd)
		return nil
	}
}
