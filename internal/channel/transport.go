package channel

import "context"

// Credential authenticates the session against the relay.
type Credential struct {
	Token string
}

// Transport moves typed event envelopes over one bidirectional connection.
// Implementations deliver inbound envelopes through the receiver callback and
// report unexpected connection loss through the disconnect callback; an
// explicit Close never triggers the disconnect callback. Both callbacks must
// be registered before Connect.
type Transport interface {
	Connect(ctx context.Context, cred Credential) error
	Close()
	Emit(event string, payload interface{}) error
	Connected() bool
	OnMessage(fn func(event string, payload []byte))
	OnDisconnect(fn func(err error))
}
