package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"waygroup/internal/config"
	"waygroup/internal/models"
)

var (
	ErrNotConnected = errors.New("channel is not connected")
	ErrJoinTimeout  = errors.New("join-room acknowledgment timed out")
)

type joinResult struct {
	room JoinedRoom
	err  error
}

// Client owns the single relay connection for the process lifetime. It keeps a
// heartbeat running while connected and schedules bounded reconnect attempts
// with linear backoff after unexpected disconnects. Explicit Close disables
// reconnection. Subscriptions hold one handler per event, so subscribing twice
// never duplicates delivery and unsubscribing an absent handler is a no-op.
type Client struct {
	transport Transport
	cfg       config.ChannelConfig
	logger    zerolog.Logger

	mu            sync.Mutex
	handlers      map[string]func([]byte)
	cred          Credential
	closed        bool
	attempts      int
	heartbeatStop chan struct{}
	pendingJoin   chan joinResult
}

func NewClient(transport Transport, cfg config.ChannelConfig, logger zerolog.Logger) *Client {
	c := &Client{
		transport: transport,
		cfg:       cfg,
		logger:    logger,
		handlers:  make(map[string]func([]byte)),
	}

	transport.OnMessage(c.dispatch)
	transport.OnDisconnect(c.onDisconnect)

	return c
}

// Connect establishes the relay session and starts the heartbeat. The
// credential is retained for reconnect attempts.
func (c *Client) Connect(ctx context.Context, cred Credential) error {
	c.mu.Lock()
	c.cred = cred
	c.closed = false
	c.mu.Unlock()

	if err := c.transport.Connect(ctx, cred); err != nil {
		return fmt.Errorf("error connecting to relay: %w", err)
	}

	c.mu.Lock()
	c.attempts = 0
	c.startHeartbeatLocked()
	c.mu.Unlock()

	c.logger.Info().Msg("Successfully connected to relay")
	return nil
}

// Close disconnects on the client's initiative. No reconnect is scheduled.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopHeartbeatLocked()
	c.mu.Unlock()

	c.transport.Close()
	c.logger.Info().Msg("disconnected from relay")
}

func (c *Client) IsConnected() bool {
	return c.transport.Connected()
}

// JoinRoom requests membership in roomID and waits for the relay's
// acknowledgment within the configured join timeout.
func (c *Client) JoinRoom(ctx context.Context, roomID string) (JoinedRoom, error) {
	if !c.transport.Connected() {
		return JoinedRoom{}, ErrNotConnected
	}

	ack := make(chan joinResult, 1)
	c.mu.Lock()
	c.pendingJoin = ack
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.pendingJoin = nil
		c.mu.Unlock()
	}()

	if err := c.transport.Emit(EventJoinRoom, JoinRoomRequest{RoomID: roomID}); err != nil {
		return JoinedRoom{}, fmt.Errorf("error emitting join-room: %w", err)
	}

	select {
	case result := <-ack:
		if result.err != nil {
			return JoinedRoom{}, result.err
		}
		c.logger.Info().
			Str("room_id", result.room.RoomID).
			Str("room_name", result.room.RoomName).
			Msg("Joined room")
		return result.room, nil
	case <-time.After(c.cfg.JoinTimeout):
		return JoinedRoom{}, ErrJoinTimeout
	case <-ctx.Done():
		return JoinedRoom{}, ctx.Err()
	}
}

func (c *Client) LeaveRoom(roomID string) {
	if !c.transport.Connected() {
		return
	}
	if err := c.transport.Emit(EventLeaveRoom, LeaveRoomRequest{RoomID: roomID}); err != nil {
		c.logger.Warn().Err(err).Str("room_id", roomID).Msg("failed to emit leave-room")
	}
}

// EmitLocationUpdate sends a packaged local sample. Returns ErrNotConnected
// while disconnected; callers treat that as a silent drop.
func (c *Client) EmitLocationUpdate(update LocationUpdate) error {
	if !c.transport.Connected() {
		return ErrNotConnected
	}
	return c.transport.Emit(EventLocationUpdate, update)
}

// SendMessage emits a chat message tagged with a fresh clientTempId and
// returns that id so callers can reconcile the server confirmation.
func (c *Client) SendMessage(roomID, content string) (string, error) {
	if !c.transport.Connected() {
		return "", ErrNotConnected
	}

	tempID := uuid.NewString()
	err := c.transport.Emit(EventSendMessage, SendMessageRequest{
		RoomID:       roomID,
		Content:      content,
		ClientTempID: tempID,
	})
	if err != nil {
		return "", fmt.Errorf("error emitting send-message: %w", err)
	}

	return tempID, nil
}

func (c *Client) RequestChatHistory(roomID string) error {
	if !c.transport.Connected() {
		return ErrNotConnected
	}
	return c.transport.Emit(EventRequestChatHistory, ChatHistoryRequest{RoomID: roomID})
}

func (c *Client) OnLocationUpdated(fn func(models.MemberLocation)) {
	c.subscribe(EventLocationUpdated, func(data []byte) {
		var location models.MemberLocation
		if err := json.Unmarshal(data, &location); err != nil {
			c.logger.Error().Err(err).Msg("Failed to parse location-updated event")
			return
		}
		fn(location)
	})
}

func (c *Client) OffLocationUpdated() { c.unsubscribe(EventLocationUpdated) }

func (c *Client) OnRoomLocations(fn func([]models.MemberLocation)) {
	c.subscribe(EventRoomLocations, func(data []byte) {
		var snapshot RoomLocations
		if err := json.Unmarshal(data, &snapshot); err != nil {
			c.logger.Error().Err(err).Msg("Failed to parse room-locations event")
			return
		}
		fn(snapshot.Locations)
	})
}

func (c *Client) OffRoomLocations() { c.unsubscribe(EventRoomLocations) }

func (c *Client) OnUserJoined(fn func(MemberEvent)) {
	c.subscribeMemberEvent(EventUserJoined, fn)
}

func (c *Client) OffUserJoined() { c.unsubscribe(EventUserJoined) }

func (c *Client) OnUserLeft(fn func(MemberEvent)) {
	c.subscribeMemberEvent(EventUserLeft, fn)
}

func (c *Client) OffUserLeft() { c.unsubscribe(EventUserLeft) }

func (c *Client) OnUserOffline(fn func(MemberEvent)) {
	c.subscribeMemberEvent(EventUserOffline, fn)
}

func (c *Client) OffUserOffline() { c.unsubscribe(EventUserOffline) }

func (c *Client) OnNewMessage(fn func(models.ChatMessage)) {
	c.subscribe(EventNewMessage, func(data []byte) {
		var message models.ChatMessage
		if err := json.Unmarshal(data, &message); err != nil {
			c.logger.Error().Err(err).Msg("Failed to parse new-message event")
			return
		}
		fn(message)
	})
}

func (c *Client) OffNewMessage() { c.unsubscribe(EventNewMessage) }

func (c *Client) OnLocationConfirmed(fn func(LocationConfirmed)) {
	c.subscribe(EventLocationConfirmed, func(data []byte) {
		var confirmation LocationConfirmed
		if err := json.Unmarshal(data, &confirmation); err != nil {
			c.logger.Error().Err(err).Msg("Failed to parse location-confirmed event")
			return
		}
		fn(confirmation)
	})
}

func (c *Client) OffLocationConfirmed() { c.unsubscribe(EventLocationConfirmed) }

func (c *Client) OnChatHistory(fn func([]models.ChatMessage)) {
	c.subscribe(EventChatHistory, func(data []byte) {
		var history ChatHistory
		if err := json.Unmarshal(data, &history); err != nil {
			c.logger.Error().Err(err).Msg("Failed to parse chat-history event")
			return
		}
		fn(history.Messages)
	})
}

func (c *Client) OffChatHistory() { c.unsubscribe(EventChatHistory) }

func (c *Client) OnError(fn func(string)) {
	c.subscribe(EventError, func(data []byte) {
		var event ErrorEvent
		if err := json.Unmarshal(data, &event); err != nil {
			c.logger.Error().Err(err).Msg("Failed to parse error event")
			return
		}
		fn(event.Message)
	})
}

func (c *Client) OffError() { c.unsubscribe(EventError) }

func (c *Client) subscribeMemberEvent(event string, fn func(MemberEvent)) {
	c.subscribe(event, func(data []byte) {
		var member MemberEvent
		if err := json.Unmarshal(data, &member); err != nil {
			c.logger.Error().Err(err).Str("event", event).Msg("Failed to parse member event")
			return
		}
		fn(member)
	})
}

func (c *Client) subscribe(event string, fn func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = fn
}

func (c *Client) unsubscribe(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, event)
}

func (c *Client) dispatch(event string, payload []byte) {
	if event == EventPong {
		return
	}

	if event == EventJoinedRoom || event == EventError {
		c.mu.Lock()
		pending := c.pendingJoin
		c.mu.Unlock()

		if pending != nil {
			c.resolveJoin(pending, event, payload)
		}
	}

	c.mu.Lock()
	handler := c.handlers[event]
	c.mu.Unlock()

	if handler == nil {
		c.logger.Debug().Str("event", event).Msg("no handler registered for event")
		return
	}

	handler(payload)
}

func (c *Client) resolveJoin(pending chan joinResult, event string, payload []byte) {
	var result joinResult
	if event == EventJoinedRoom {
		if err := json.Unmarshal(payload, &result.room); err != nil {
			result.err = fmt.Errorf("could not parse joined-room event: %w", err)
		}
	} else {
		var errEvent ErrorEvent
		if err := json.Unmarshal(payload, &errEvent); err != nil {
			result.err = fmt.Errorf("could not parse error event: %w", err)
		} else {
			result.err = errors.New(errEvent.Message)
		}
	}

	select {
	case pending <- result:
	default:
	}
}

func (c *Client) onDisconnect(err error) {
	c.mu.Lock()
	c.stopHeartbeatLocked()
	if c.closed {
		c.mu.Unlock()
		return
	}

	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.mu.Unlock()
		c.logger.Error().Err(err).
			Int("attempts", c.cfg.MaxReconnectAttempts).
			Msg("Giving up on relay reconnection")
		return
	}

	c.attempts++
	attempt := c.attempts
	delay := c.cfg.ReconnectBaseDelay * time.Duration(attempt)
	c.mu.Unlock()

	c.logger.Warn().Err(err).
		Int("attempt", attempt).
		Dur("delay", delay).
		Msg("lost relay connection, scheduling reconnect")

	time.AfterFunc(delay, c.reconnect)
}

func (c *Client) reconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	cred := c.cred
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
	defer cancel()

	if err := c.transport.Connect(ctx, cred); err != nil {
		c.onDisconnect(err)
		return
	}

	c.mu.Lock()
	c.attempts = 0
	c.startHeartbeatLocked()
	c.mu.Unlock()

	c.logger.Info().Msg("Successfully reconnected to relay")
}

func (c *Client) startHeartbeatLocked() {
	c.stopHeartbeatLocked()
	stop := make(chan struct{})
	c.heartbeatStop = stop

	go func() {
		ticker := time.NewTicker(c.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if c.transport.Connected() {
					if err := c.transport.Emit(EventPing, nil); err != nil {
						c.logger.Debug().Err(err).Msg("heartbeat emit failed")
					}
				}
			case <-stop:
				return
			}
		}
	}()
}

func (c *Client) stopHeartbeatLocked() {
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
}
