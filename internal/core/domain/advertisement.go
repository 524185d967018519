package domain

// RawAdvertisementVersion is bumped whenever RawAdvertisement gains or changes fields.
const RawAdvertisementVersion = 1

// RawAdvertisement is one advertisement record as reported by a scanner.
// Adapters populate it once at the boundary; the core only reads it.
type RawAdvertisement struct {
	Address          string            `json:"address"`
	DeviceName       string            `json:"device_name,omitempty"` // transport-layer device name
	LocalName        string            `json:"local_name,omitempty"`  // advertised local name
	RSSI             *int              `json:"rssi,omitempty"`
	ManufacturerData map[uint16][]byte `json:"manufacturer_data,omitempty"`
	ServiceUUIDs     []string          `json:"service_uuids,omitempty"`
	TxPower          *int              `json:"tx_power,omitempty"`
	Appearance       *uint16           `json:"appearance,omitempty"` // GAP appearance (AD type 0x19)
}

// NameSource records which rule produced a descriptor's display name.
type NameSource string

const (
	NameFromLocalName        NameSource = "local_name"
	NameFromDeviceName       NameSource = "device_name"
	NameFromManufacturerData NameSource = "manufacturer_data"
	NameFromFallback         NameSource = "fallback"
)

// Resolved reports whether the name came from the device itself rather than
// being synthesized from the manufacturer and address.
func (s NameSource) Resolved() bool {
	return s != NameFromFallback && s != ""
}

// DeviceDescriptor is the canonical, immutable view of one advertisement.
type DeviceDescriptor struct {
	Address          string     `json:"address"`
	DisplayName      string     `json:"display_name"`
	NameSource       NameSource `json:"name_source"`
	ManufacturerID   *uint16    `json:"manufacturer_id,omitempty"`
	ManufacturerName string     `json:"manufacturer_name"`
	RSSI             *int       `json:"rssi,omitempty"`
	TxPower          *int       `json:"tx_power,omitempty"`
	ServiceUUIDs     []string   `json:"service_uuids"`
	Appearance       *uint16    `json:"appearance,omitempty"`
	AppearanceName   string     `json:"appearance_name,omitempty"`
}

// IntPtr is a helper for optional integer fields.
func IntPtr(v int) *int { return &v }

// Uint16Ptr is a helper for optional company IDs and appearance codes.
func Uint16Ptr(v uint16) *uint16 { return &v }
