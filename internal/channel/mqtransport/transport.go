package mqtransport

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"waygroup/internal/channel"
	"waygroup/internal/config"
)

const (
	upTopicTemplate   = "%s/v1/up/%s"
	downTopicTemplate = "%s/v1/down/%s"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Transport bridges the relay channel over an MQTT broker. Each client
// publishes envelopes on its up topic and receives fan-out on its down topic.
// Reconnection is owned by the channel client, so broker auto-reconnect stays
// disabled here.
type Transport struct {
	client    mqtt.Client
	cfg       config.ChannelConfig
	logger    zerolog.Logger
	clientID  string
	connected bool

	mu           sync.Mutex
	token        string
	onMessage    func(event string, payload []byte)
	onDisconnect func(err error)
}

func NewTransport(cfg config.ChannelConfig, logger zerolog.Logger) *Transport {
	t := &Transport{
		cfg:      cfg,
		logger:   logger,
		clientID: fmt.Sprintf("%s-%d", cfg.ClientID, rand.Intn(10000)),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.URL)
	opts.SetClientID(t.clientID)
	opts.SetKeepAlive(cfg.HeartbeatInterval)
	opts.SetAutoReconnect(false)
	opts.SetCleanSession(true)
	opts.SetCredentialsProvider(func() (string, string) {
		t.mu.Lock()
		defer t.mu.Unlock()
		return "token", t.token
	})
	opts.SetOnConnectHandler(t.onConnect)
	opts.SetConnectionLostHandler(t.onConnectionLost)

	t.client = mqtt.NewClient(opts)

	return t
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
	t.mu.Lock()
	t.token = cred.Token
	t.mu.Unlock()

	token := t.client.Connect()

	select {
	case <-token.Done():
		if token.Error() != nil {
			return fmt.Errorf("error connecting to MQTT relay: %w", token.Error())
		}
	case <-ctx.Done():
		return fmt.Errorf("connection to MQTT relay timed out: %w", ctx.Err())
	}

	downTopic := fmt.Sprintf(downTopicTemplate, t.cfg.BaseTopic, t.clientID)
	subToken := t.client.Subscribe(downTopic, 0, t.handleMessage)
	subToken.Wait()
	if subToken.Error() != nil {
		t.client.Disconnect(250)
		return fmt.Errorf("error subscribing to topic %s: %w", downTopic, subToken.Error())
	}

	t.mu.Lock()
	t.connected = true
	t.mu.Unlock()

	t.logger.Info().Str("topic", downTopic).Msg("MQTT transport connected")
	return nil
}

func (t *Transport) Close() {
	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()

	if t.client.IsConnected() {
		t.client.Disconnect(250)
	}
}

func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected && t.client.IsConnected()
}

func (t *Transport) Emit(event string, payload interface{}) error {
	if !t.Connected() {
		return fmt.Errorf("MQTT transport is not connected")
	}

	var data json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", event, err)
		}
		data = encoded
	}

	body, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	topic := fmt.Sprintf(upTopicTemplate, t.cfg.BaseTopic, t.clientID)
	token := t.client.Publish(topic, 0, false, body)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	return nil
}

func (t *Transport) handleMessage(client mqtt.Client, msg mqtt.Message) {
	var env envelope
	if err := json.Unmarshal(msg.Payload(), &env); err != nil {
		t.logger.Error().Err(err).
			Str("topic", msg.Topic()).
			Msg("Failed to parse relay envelope")
		return
	}

	t.mu.Lock()
	onMessage := t.onMessage
	t.mu.Unlock()

	if onMessage != nil {
		onMessage(env.Event, env.Data)
	}
}

func (t *Transport) onConnect(client mqtt.Client) {
	t.logger.Info().Str("broker", t.cfg.URL).Msg("Successfully connected to broker")
}

func (t *Transport) onConnectionLost(client mqtt.Client, err error) {
	t.mu.Lock()
	wasConnected := t.connected
	t.connected = false
	onDisconnect := t.onDisconnect
	t.mu.Unlock()

	if wasConnected && onDisconnect != nil {
		onDisconnect(err)
	}
}

var _ channel.Transport = (*Transport)(nil)
