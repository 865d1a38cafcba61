package websocket

import "time"

// EventType represents the type of event streamed to dashboard clients.
type EventType string

const (
	// EventTypeDetection is a per-request detection summary.
	EventTypeDetection EventType = "detection"
	// EventTypeRequestLog is a request logging event.
	EventTypeRequestLog EventType = "request_log"
	// EventTypeSystemStatus is a system status event.
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection is a client connect/disconnect event.
	EventTypeConnection EventType = "connection"
)

// Event is the envelope sent to clients.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// DetectionEvent summarizes one transformation request. It carries kind
// counts only; matched values never reach the event stream.
type DetectionEvent struct {
	RequestID     string         `json:"request_id"`
	Policy        string         `json:"policy"`
	KindCounts    map[string]int `json:"kind_counts"`
	TotalFindings int            `json:"total_findings"`
	UnknownFields []string       `json:"unknown_fields,omitempty"`
	ProcessingMS  float64        `json:"processing_ms"`
}

// RequestLogEvent describes one completed HTTP request.
type RequestLogEvent struct {
	RequestID    string        `json:"request_id"`
	Method       string        `json:"method"`
	Path         string        `json:"path"`
	StatusCode   int           `json:"status_code"`
	ClientIP     string        `json:"client_ip"`
	Duration     time.Duration `json:"duration"`
	RequestSize  int64         `json:"request_size"`
	ResponseSize int64         `json:"response_size"`
}

// SystemStatusEvent carries periodic service health information.
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalRequests    int64  `json:"total_requests"`
	TotalDetections  int64  `json:"total_detections"`
	ConnectedClients int    `json:"connected_clients"`
}

// ConnectionEvent describes a dashboard client connecting or disconnecting.
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected" or "disconnected"
	ClientID string `json:"client_id"`
	ClientIP string `json:"client_ip"`
}

// ClientMessage is a message received from a client.
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubscriptionRequest narrows the event types a client receives.
type SubscriptionRequest struct {
	Events []EventType `json:"events"`
}
