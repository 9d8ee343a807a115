package presence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"waygroup/internal/channel"
	"waygroup/internal/device"
	"waygroup/internal/location"
	"waygroup/internal/models"
)

// Relay is the outbound slice of the channel client the synchronizer uses.
type Relay interface {
	EmitLocationUpdate(update channel.LocationUpdate) error
	SendMessage(roomID, content string) (string, error)
	RequestChatHistory(roomID string) error
}

// Tracker receives accepted local samples for breadcrumb recording.
type Tracker interface {
	WriteSample(roomID string, sample models.RawPositionSample)
}

// HistorySink persists confirmed chat messages locally. Persistence is
// best-effort: failures are logged and never block delivery.
type HistorySink interface {
	SaveBatch(ctx context.Context, messages []models.ChatMessage) error
}

// Synchronizer owns the presence set for the active room. Inbound events merge
// into the set; accepted local samples are published over the relay but never
// merged, so the local user's own entry can never echo back into the set.
type Synchronizer struct {
	relay       Relay
	filter      *location.SampleFilter
	tracker     Tracker
	logger      zerolog.Logger
	localUserID string

	mu        sync.Mutex
	roomID    string
	locations map[string]models.MemberLocation
	local     *models.RawPositionSample
	chat      *ChatLog
	history   HistorySink
}

// SetHistorySink attaches the optional local chat-history cache.
func (s *Synchronizer) SetHistorySink(sink HistorySink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = sink
}

func NewSynchronizer(relay Relay, filter *location.SampleFilter, tracker Tracker, localUserID string, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		relay:       relay,
		filter:      filter,
		tracker:     tracker,
		logger:      logger,
		localUserID: localUserID,
		locations:   make(map[string]models.MemberLocation),
		chat:        NewChatLog(),
	}
}

// SetActiveRoom records which room outbound samples are packaged for. Only one
// room may be active at a time; callers must Clear before switching.
func (s *Synchronizer) SetActiveRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = roomID
}

// MergeLocation upserts by userId, replacing the entry wholesale and stamping
// it live. Events for the local user are ignored: local position is tracked
// separately and never sourced from remote delivery.
func (s *Synchronizer) MergeLocation(event models.MemberLocation) {
	if event.UserID == s.localUserID {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.IsLive = true

	s.mu.Lock()
	s.locations[event.UserID] = event
	count := len(s.locations)
	s.mu.Unlock()

	s.logger.Debug().
		Str("user_id", event.UserID).
		Int("member_count", count).
		Msg("merged member location")
}

// RemoveMember deletes the entry if present; removing an unknown member is a
// no-op.
func (s *Synchronizer) RemoveMember(userID string) {
	s.mu.Lock()
	delete(s.locations, userID)
	s.mu.Unlock()
}

// Clear empties the presence set and the local position. Called on room exit
// so no stale markers leak into a subsequently joined room.
func (s *Synchronizer) Clear() {
	s.mu.Lock()
	s.locations = make(map[string]models.MemberLocation)
	s.local = nil
	s.roomID = ""
	s.chat.Clear()
	s.mu.Unlock()
}

// Snapshot returns a copy of the current member locations.
func (s *Synchronizer) Snapshot() []models.MemberLocation {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := make([]models.MemberLocation, 0, len(s.locations))
	for _, member := range s.locations {
		members = append(members, member)
	}
	return members
}

// LocalPosition returns the last accepted local sample, or nil.
func (s *Synchronizer) LocalPosition() *models.RawPositionSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.local == nil {
		return nil
	}
	sample := *s.local
	return &sample
}

// PublishLocalSample runs the sample through the filter and, on acceptance,
// packages it with the room id and best-effort device metadata and sends it
// over the relay. Publishes while disconnected are dropped, not queued.
func (s *Synchronizer) PublishLocalSample(sample models.RawPositionSample) {
	if !s.filter.Accept(sample) {
		return
	}

	s.mu.Lock()
	roomID := s.roomID
	s.local = &sample
	s.mu.Unlock()

	if roomID == "" {
		return
	}

	info := device.Collect()

	update := channel.LocationUpdate{
		RoomID:       roomID,
		Latitude:     sample.Latitude,
		Longitude:    sample.Longitude,
		Accuracy:     sample.Accuracy,
		Speed:        sample.Speed,
		Bearing:      sample.Bearing,
		Heading:      sample.Bearing,
		Altitude:     sample.Altitude,
		BatteryLevel: info.BatteryLevel,
		DeviceModel:  info.DeviceModel,
	}

	if err := s.relay.EmitLocationUpdate(update); err != nil {
		s.logger.Debug().Err(err).Msg("dropped outbound location update")
	}

	if s.tracker != nil {
		s.tracker.WriteSample(roomID, sample)
	}
}

// SendMessage emits a chat message and records it optimistically as pending.
func (s *Synchronizer) SendMessage(content, userName string) error {
	s.mu.Lock()
	roomID := s.roomID
	s.mu.Unlock()

	tempID, err := s.relay.SendMessage(roomID, content)
	if err != nil {
		return err
	}

	s.chat.Add(models.ChatMessage{
		RoomID:       roomID,
		UserID:       s.localUserID,
		UserName:     userName,
		Content:      content,
		ClientTempID: tempID,
		Timestamp:    time.Now(),
		Status:       models.MessageStatusPending,
	})

	return nil
}

// Chat exposes the room's chat log.
func (s *Synchronizer) Chat() *ChatLog {
	return s.chat
}

// Bind attaches all inbound room subscriptions to the channel client as one
// unit.
func (s *Synchronizer) Bind(client *channel.Client) {
	client.OnLocationUpdated(s.MergeLocation)
	client.OnRoomLocations(func(locations []models.MemberLocation) {
		for _, member := range locations {
			s.MergeLocation(member)
		}
	})
	client.OnUserJoined(func(member channel.MemberEvent) {
		s.logger.Info().
			Str("user_id", member.UserID).
			Str("user_name", member.UserName).
			Msg("member joined room")
	})
	client.OnUserOffline(func(member channel.MemberEvent) {
		s.RemoveMember(member.UserID)
	})
	client.OnUserLeft(func(member channel.MemberEvent) {
		s.RemoveMember(member.UserID)
	})
	client.OnLocationConfirmed(func(confirmation channel.LocationConfirmed) {
		s.logger.Debug().
			Str("timestamp", confirmation.Timestamp).
			Msg("relay confirmed location update")
	})
	client.OnNewMessage(func(message models.ChatMessage) {
		s.chat.Add(message)
		s.persist([]models.ChatMessage{message})
	})
	client.OnChatHistory(func(messages []models.ChatMessage) {
		s.chat.SetHistory(messages)
		s.persist(messages)
	})
}

func (s *Synchronizer) persist(messages []models.ChatMessage) {
	s.mu.Lock()
	sink := s.history
	s.mu.Unlock()

	if sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sink.SaveBatch(ctx, messages); err != nil {
		s.logger.Debug().Err(err).Msg("failed to cache chat history locally")
	}
}

// Unbind detaches every subscription Bind attached. Together with Clear and
// stopping the position stream this forms the room-exit cleanup; a partial
// cleanup would leak stale updates into the next room.
func (s *Synchronizer) Unbind(client *channel.Client) {
	client.OffLocationUpdated()
	client.OffRoomLocations()
	client.OffUserJoined()
	client.OffUserOffline()
	client.OffUserLeft()
	client.OffLocationConfirmed()
	client.OffNewMessage()
	client.OffChatHistory()
}
