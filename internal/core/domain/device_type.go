package domain

// DeviceType is the closed set of categories a device can be classified into.
type DeviceType string

const (
	DeviceTypeHeadphone      DeviceType = "Headphone"
	DeviceTypeSpeaker        DeviceType = "Speaker"
	DeviceTypeTV             DeviceType = "TV"
	DeviceTypePhone          DeviceType = "Phone"
	DeviceTypeWearable       DeviceType = "Wearable"
	DeviceTypeKeyboard       DeviceType = "Keyboard"
	DeviceTypeMouse          DeviceType = "Mouse"
	DeviceTypeCarAudio       DeviceType = "CarAudio"
	DeviceTypePrinter        DeviceType = "Printer"
	DeviceTypeTablet         DeviceType = "Tablet"
	DeviceTypeCamera         DeviceType = "Camera"
	DeviceTypeGameController DeviceType = "GameController"
	DeviceTypeSmartDevice    DeviceType = "SmartDevice"
	DeviceTypeFitnessTracker DeviceType = "FitnessTracker"
	DeviceTypeDrone          DeviceType = "Drone"
	DeviceTypeHub            DeviceType = "Hub"
	DeviceTypeSensor         DeviceType = "Sensor"
	DeviceTypeSmartLight     DeviceType = "SmartLight"
	DeviceTypeUnknown        DeviceType = "Unknown"
)

// Icon is a Material Design icon tag, one per DeviceType.
type Icon string

const IconUnknown Icon = "mdi:bluetooth"

var deviceIcons = map[DeviceType]Icon{
	DeviceTypeHeadphone:      "mdi:headphones",
	DeviceTypeSpeaker:        "mdi:speaker",
	DeviceTypeTV:             "mdi:television",
	DeviceTypePhone:          "mdi:cellphone",
	DeviceTypeWearable:       "mdi:watch",
	DeviceTypeKeyboard:       "mdi:keyboard",
	DeviceTypeMouse:          "mdi:mouse",
	DeviceTypeCarAudio:       "mdi:car",
	DeviceTypePrinter:        "mdi:printer",
	DeviceTypeTablet:         "mdi:tablet",
	DeviceTypeCamera:         "mdi:camera",
	DeviceTypeGameController: "mdi:gamepad-variant",
	DeviceTypeSmartDevice:    "mdi:home-automation",
	DeviceTypeFitnessTracker: "mdi:run",
	DeviceTypeDrone:          "mdi:quadcopter",
	DeviceTypeHub:            "mdi:router-wireless",
	DeviceTypeSensor:         "mdi:motion-sensor",
	DeviceTypeSmartLight:     "mdi:lightbulb",
	DeviceTypeUnknown:        IconUnknown,
}

// Icon returns the icon tag for t. Types outside the enumeration get the unknown icon.
func (t DeviceType) Icon() Icon {
	if icon, ok := deviceIcons[t]; ok {
		return icon
	}
	return IconUnknown
}

// IsValid reports whether t belongs to the enumeration.
func (t DeviceType) IsValid() bool {
	_, ok := deviceIcons[t]
	return ok
}

// IsAudio reports whether the type is a candidate for a speaker entry.
func (t DeviceType) IsAudio() bool {
	return t == DeviceTypeSpeaker || t == DeviceTypeHeadphone || t == DeviceTypeCarAudio
}

// AllDeviceTypes lists every type in a stable order, Unknown last.
func AllDeviceTypes() []DeviceType {
	return []DeviceType{
		DeviceTypeHeadphone, DeviceTypeSpeaker, DeviceTypeTV, DeviceTypePhone,
		DeviceTypeWearable, DeviceTypeKeyboard, DeviceTypeMouse, DeviceTypeCarAudio,
		DeviceTypePrinter, DeviceTypeTablet, DeviceTypeCamera, DeviceTypeGameController,
		DeviceTypeSmartDevice, DeviceTypeFitnessTracker, DeviceTypeDrone, DeviceTypeHub,
		DeviceTypeSensor, DeviceTypeSmartLight, DeviceTypeUnknown,
	}
}
