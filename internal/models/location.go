package models

import "time"

// MemberLocation is one room member's last known position. At most one entry
// exists per UserID in a room's presence set; the latest event wins on merge.
type MemberLocation struct {
	UserID       string    `json:"userId"`
	UserName     string    `json:"userName"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Accuracy     *float64  `json:"accuracy,omitempty"`
	Speed        *float64  `json:"speed,omitempty"`
	Bearing      *float64  `json:"bearing,omitempty"`
	Heading      *float64  `json:"heading,omitempty"`
	Altitude     *float64  `json:"altitude,omitempty"`
	BatteryLevel *int      `json:"batteryLevel,omitempty"`
	DeviceModel  *string   `json:"deviceModel,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	IsLive       bool      `json:"isLive"`
}

// RawPositionSample is a single sensor reading. Samples are transient: they are
// filtered and forwarded, never persisted.
type RawPositionSample struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64
	Speed     *float64
	Bearing   *float64
	Altitude  *float64
	Timestamp time.Time
}
