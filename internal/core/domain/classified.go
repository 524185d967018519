package domain

import "time"

// MatchSource tells which classifier rule produced the device type.
type MatchSource string

const (
	MatchNone       MatchSource = ""
	MatchKeyword    MatchSource = "keyword"
	MatchAppearance MatchSource = "appearance"
)

// ClassifiedDevice is a descriptor with its derived type and icon.
type ClassifiedDevice struct {
	DeviceDescriptor
	DeviceType DeviceType  `json:"device_type"`
	Icon       Icon        `json:"icon"`
	MatchedBy  MatchSource `json:"matched_by,omitempty"`
}

// SeenDevice is a classified device tracked across scan passes.
type SeenDevice struct {
	ClassifiedDevice
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	SeenCount int       `json:"seen_count"`
	Source    string    `json:"source,omitempty"` // scanner or agent that reported it
}

// DeviceFilter narrows device listings.
type DeviceFilter struct {
	Type      DeviceType
	MinRSSI   *int
	AudioOnly bool
}

// Matches reports whether d passes the filter.
func (f DeviceFilter) Matches(d SeenDevice) bool {
	if f.Type != "" && d.DeviceType != f.Type {
		return false
	}
	if f.MinRSSI != nil && (d.RSSI == nil || *d.RSSI < *f.MinRSSI) {
		return false
	}
	if f.AudioOnly && !d.DeviceType.IsAudio() {
		return false
	}
	return true
}
