package classifier

import "github.com/lcalzada-xor/bluespeak/internal/core/domain"

// GAP appearance values are 16 bits: a 10-bit category followed by a 6-bit sub-category.
const appearanceCategoryShift = 6

// Exact appearance codes that refine their category.
var appearanceSubcategories = map[uint16]domain.DeviceType{
	0x0087: domain.DeviceTypeTablet,         // Computer: Tablet
	0x0841: domain.DeviceTypeSpeaker,        // Audio Sink: Standalone Speaker
	0x0842: domain.DeviceTypeSpeaker,        // Audio Sink: Soundbar
	0x0843: domain.DeviceTypeSpeaker,        // Audio Sink: Bookshelf Speaker
	0x0844: domain.DeviceTypeSpeaker,        // Audio Sink: Standmounted Speaker
	0x0845: domain.DeviceTypeSpeaker,        // Audio Sink: Speakerphone
	0x03C1: domain.DeviceTypeKeyboard,       // HID: Keyboard
	0x03C2: domain.DeviceTypeMouse,          // HID: Mouse
	0x03C3: domain.DeviceTypeGameController, // HID: Joystick
	0x03C4: domain.DeviceTypeGameController, // HID: Gamepad
	0x03C5: domain.DeviceTypeTablet,         // HID: Digitizer Tablet
}

// Appearance categories (code >> 6).
var appearanceCategories = map[uint16]domain.DeviceType{
	0x001: domain.DeviceTypePhone,
	0x003: domain.DeviceTypeWearable, // Watch
	0x005: domain.DeviceTypeTV,       // Display
	0x00A: domain.DeviceTypeSpeaker,  // Media Player
	0x00D: domain.DeviceTypeFitnessTracker,
	0x011: domain.DeviceTypeFitnessTracker, // Running Walking Sensor
	0x012: domain.DeviceTypeFitnessTracker, // Cycling
	0x014: domain.DeviceTypeHub,            // Network Device
	0x015: domain.DeviceTypeSensor,
	0x016: domain.DeviceTypeSmartLight, // Light Fixtures
	0x01F: domain.DeviceTypeSmartLight, // Light Source
	0x021: domain.DeviceTypeSpeaker,    // Audio Sink
	0x023: domain.DeviceTypeCarAudio,   // Motorized Vehicle
	0x025: domain.DeviceTypeHeadphone,  // Wearable Audio Device
	0x026: domain.DeviceTypeDrone,      // Aircraft
	0x028: domain.DeviceTypeTV,         // Display Equipment
	0x02A: domain.DeviceTypeGameController,
	0x031: domain.DeviceTypeFitnessTracker, // Pulse Oximeter
}

// TypeForAppearance maps a GAP appearance code to a device type, trying the
// exact sub-category before the category.
func TypeForAppearance(code uint16) (domain.DeviceType, bool) {
	if t, ok := appearanceSubcategories[code]; ok {
		return t, true
	}
	if t, ok := appearanceCategories[code>>appearanceCategoryShift]; ok {
		return t, true
	}
	return domain.DeviceTypeUnknown, false
}
