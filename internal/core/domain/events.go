package domain

import "time"

// Event names published on the event bus.
const (
	EventDeviceDiscovered   = "bluetooth_device_discovered"
	EventDeviceConnected    = "bluetooth_device_connected"
	EventDeviceDisconnected = "bluetooth_device_disconnected"
	EventScanStarted        = "bluetooth_scan_started"
	EventScanCompleted      = "bluetooth_scan_completed"
	EventScanFailed         = "bluetooth_scan_failed"
	EventEntryCreated       = "speaker_entry_created"
	EventEntryRemoved       = "speaker_entry_removed"
)

// Event is a domain notification fanned out to websocket, MQTT and log sinks.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType string, payload interface{}) Event {
	return Event{Type: eventType, Timestamp: time.Now(), Payload: payload}
}

// ScanSummary is the payload of scan completion events.
type ScanSummary struct {
	Source     string        `json:"source"`
	Seen       int           `json:"seen"`
	New        int           `json:"new"`
	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}
