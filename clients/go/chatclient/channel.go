package chatclient

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is a frame received from the broadcast channel.
type Event struct {
	Type           string   `json:"type"`
	ConversationID string   `json:"conversationId,omitempty"`
	Message        *Message `json:"message,omitempty"`
	Code           string   `json:"code,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Event types delivered on Channel.Events.
const (
	EventConnected = "connected"
	EventJoined    = "joined"
	EventLeft      = "left"
	EventMessage   = "message"
	EventError     = "error"
)

type outFrame struct {
	Type           string   `json:"type"`
	ConversationID string   `json:"conversationId,omitempty"`
	Message        *Message `json:"message,omitempty"`
}

// Channel is the realtime side of the client. Implemented by WSChannel over
// a websocket; tests substitute fakes.
type Channel interface {
	Join(conversationID string) error
	Leave() error
	Emit(msg *Message) error
	Events() <-chan Event
	Close() error
}

// WSChannel is a Channel over a gorilla websocket connection.
type WSChannel struct {
	conn   *websocket.Conn
	events chan Event

	mu     sync.Mutex // guards writes and closed
	closed bool
}

var _ Channel = (*WSChannel)(nil)

// Dial connects to the chat socket endpoint. baseURL is the ws scheme URL of
// the API (e.g. "ws://host:8080"); the token is passed as a query parameter
// because browser websocket clients cannot set headers.
func Dial(ctx context.Context, baseURL, token string) (*WSChannel, error) {
	endpoint := baseURL + "/api/v1/chat/ws?token=" + url.QueryEscape(token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	ch := &WSChannel{
		conn:   conn,
		events: make(chan Event, 32),
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	go ch.readLoop()
	return ch, nil
}

func (ch *WSChannel) Join(conversationID string) error {
	return ch.write(outFrame{Type: "join", ConversationID: conversationID})
}

func (ch *WSChannel) Leave() error {
	return ch.write(outFrame{Type: "leave"})
}

// Emit relays an already-persisted message to the joined room. The server
// drops frames whose message does not match its stored copy.
func (ch *WSChannel) Emit(msg *Message) error {
	return ch.write(outFrame{Type: "message", ConversationID: msg.ConversationID, Message: msg})
}

func (ch *WSChannel) Events() <-chan Event { return ch.events }

func (ch *WSChannel) Close() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return nil
	}
	ch.closed = true
	deadline := time.Now().Add(5 * time.Second)
	_ = ch.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return ch.conn.Close()
}

func (ch *WSChannel) write(frame outFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return websocket.ErrCloseSent
	}
	_ = ch.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return ch.conn.WriteMessage(websocket.TextMessage, data)
}

func (ch *WSChannel) readLoop() {
	defer close(ch.events)
	_ = ch.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	for {
		_, data, err := ch.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = ch.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		ch.events <- ev
	}
}
