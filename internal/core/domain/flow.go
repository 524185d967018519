package domain

import "time"

// FlowStep identifies where a config flow currently is.
type FlowStep string

const (
	StepUser        FlowStep = "user" // pick a discovered device
	StepName        FlowStep = "name" // name the speaker
	StepCreateEntry FlowStep = "create_entry"
)

// DeviceOption is one selectable device shown in the first flow step.
type DeviceOption struct {
	Address      string     `json:"address"`
	Label        string     `json:"label"`
	DeviceType   DeviceType `json:"device_type"`
	Icon         Icon       `json:"icon"`
	RSSI         *int       `json:"rssi,omitempty"`
	AudioCapable bool       `json:"audio_capable"`
}

// ConfigFlow is the state of one select → name → create wizard.
type ConfigFlow struct {
	ID            string         `json:"flow_id"`
	Step          FlowStep       `json:"step"`
	Options       []DeviceOption `json:"options,omitempty"`
	Address       string         `json:"address,omitempty"`
	SuggestedName string         `json:"suggested_name,omitempty"`
	Entry         *SpeakerEntry  `json:"entry,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
