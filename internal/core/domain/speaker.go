package domain

import (
	"errors"
	"time"
)

// ErrEntryNotFound is returned by entry stores for unknown IDs or addresses.
var ErrEntryNotFound = errors.New("speaker entry not found")

// DefaultSpeakerName is suggested when a device has no usable name.
const DefaultSpeakerName = "Bluetooth Speaker"

// SpeakerEntry is a configured speaker created by the config flow.
type SpeakerEntry struct {
	ID           string     `json:"id"`
	Address      string     `json:"address"`
	Name         string     `json:"name"`
	DeviceType   DeviceType `json:"device_type"`
	Manufacturer string     `json:"manufacturer"`
	CreatedAt    time.Time  `json:"created_at"`
}

// LinkState is the simulated connection state of a speaker.
type LinkState string

const (
	LinkDisconnected  LinkState = "disconnected"
	LinkPairing       LinkState = "pairing"
	LinkConnected     LinkState = "connected"
	LinkDisconnecting LinkState = "disconnecting"
	LinkFailed        LinkState = "failed"
)

// Playback is the media-player view of a speaker.
type Playback string

const (
	PlaybackOff     Playback = "off"
	PlaybackIdle    Playback = "idle"
	PlaybackPlaying Playback = "playing"
)

// SpeakerStatus is the externally visible link status of one address.
type SpeakerStatus struct {
	Address   string    `json:"address"`
	State     LinkState `json:"state"`
	Playback  Playback  `json:"playback"`
	Paired    bool      `json:"paired"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
