// Package events contains the WebSocket message contracts pushed to
// dashboard clients when the analysis state changes.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Connection messages
	MessageTypeConnect MessageType = "connect"

	// Snapshot lifecycle
	MessageTypeSnapshotReplaced MessageType = "snapshot:replaced"
	MessageTypeIngestionFailed  MessageType = "ingestion:failed"

	MessageTypeError MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// ConnectEvent greets a newly registered client
type ConnectEvent struct {
	ClientID string `json:"client_id"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// SnapshotReplacedEvent announces that a new analysis snapshot is current.
// Clients refetch the snapshot rather than receive it inline.
type SnapshotReplacedEvent struct {
	SnapshotID   string    `json:"snapshot_id"`
	Source       string    `json:"source"`
	TotalPremium float64   `json:"total_premium"`
	PolicyCount  int       `json:"policy_count"`
	Warning      string    `json:"warning,omitempty"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// IngestionFailedEvent reports an upload that left the current snapshot unchanged
type IngestionFailedEvent struct {
	Source        string   `json:"source"`
	Code          string   `json:"code"`
	Message       string   `json:"message"`
	MissingFields []string `json:"missing_fields,omitempty"`
}
