package wstransport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"waygroup/internal/channel"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Transport speaks JSON event envelopes over a single websocket connection.
type Transport struct {
	url    string
	logger zerolog.Logger

	mu           sync.Mutex
	conn         *websocket.Conn
	closed       bool
	onMessage    func(event string, payload []byte)
	onDisconnect func(err error)
}

func NewTransport(url string, logger zerolog.Logger) *Transport {
	return &Transport{
		url:    url,
		logger: logger,
	}
}

func (t *Transport) OnMessage(fn func(event string, payload []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMessage = fn
}

func (t *Transport) OnDisconnect(fn func(err error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDisconnect = fn
}

func (t *Transport) Connect(ctx context.Context, cred channel.Credential) error {
	header := http.Header{}
	if cred.Token != "" {
		header.Set("Authorization", "Bearer "+cred.Token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, t.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket handshake failed: %w", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.closed = false
	t.mu.Unlock()

	go t.readLoop(conn)

	t.logger.Info().Str("url", t.url).Msg("websocket transport connected")
	return nil
}

func (t *Transport) Close() {
	t.mu.Lock()
	t.closed = true
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}
}

func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil && !t.closed
}

func (t *Transport) Emit(event string, payload interface{}) error {
	var data json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", event, err)
		}
		data = encoded
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil || t.closed {
		return fmt.Errorf("websocket transport is not connected")
	}

	if err := t.conn.WriteJSON(envelope{Event: event, Data: data}); err != nil {
		return fmt.Errorf("failed to write %s envelope: %w", event, err)
	}

	return nil
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.mu.Lock()
			closed := t.closed || t.conn != conn
			if !closed {
				t.conn = nil
			}
			onDisconnect := t.onDisconnect
			t.mu.Unlock()

			if !closed && onDisconnect != nil {
				onDisconnect(err)
			}
			return
		}

		t.mu.Lock()
		onMessage := t.onMessage
		t.mu.Unlock()

		if onMessage != nil {
			onMessage(env.Event, env.Data)
		}
	}
}

var _ channel.Transport = (*Transport)(nil)
