package channel

import "waygroup/internal/models"

// Outbound event names.
const (
	EventJoinRoom           = "join-room"
	EventLeaveRoom          = "leave-room"
	EventLocationUpdate     = "location-update"
	EventSendMessage        = "send-message"
	EventRequestChatHistory = "request-chat-history"
	EventPing               = "ping"
)

// Inbound event names.
const (
	EventJoinedRoom        = "joined-room"
	EventUserJoined        = "user-joined"
	EventUserLeft          = "user-left"
	EventUserOffline       = "user-offline"
	EventLocationUpdated   = "location-updated"
	EventLocationConfirmed = "location-confirmed"
	EventRoomLocations     = "room-locations"
	EventNewMessage        = "new-message"
	EventChatHistory       = "chat-history"
	EventError             = "error"
	EventPong              = "pong"
)

type JoinRoomRequest struct {
	RoomID string `json:"roomId"`
}

type LeaveRoomRequest struct {
	RoomID string `json:"roomId"`
}

// LocationUpdate is the outbound packaging of an accepted local sample.
type LocationUpdate struct {
	RoomID       string   `json:"roomId"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Accuracy     *float64 `json:"accuracy,omitempty"`
	Speed        *float64 `json:"speed,omitempty"`
	Bearing      *float64 `json:"bearing,omitempty"`
	Heading      *float64 `json:"heading,omitempty"`
	Altitude     *float64 `json:"altitude,omitempty"`
	BatteryLevel *int     `json:"batteryLevel,omitempty"`
	DeviceModel  *string  `json:"deviceModel,omitempty"`
}

type SendMessageRequest struct {
	RoomID       string `json:"roomId"`
	Content      string `json:"content"`
	ClientTempID string `json:"clientTempId,omitempty"`
}

type ChatHistoryRequest struct {
	RoomID string `json:"roomId"`
}

type JoinedRoom struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
}

type MemberEvent struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type RoomLocations struct {
	Locations []models.MemberLocation `json:"locations"`
}

type ChatHistory struct {
	Messages []models.ChatMessage `json:"messages"`
}

type LocationConfirmed struct {
	Timestamp string  `json:"timestamp"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}
