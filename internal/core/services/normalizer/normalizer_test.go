package normalizer

import (
	"strings"
	"testing"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapRegistry is a minimal in-memory ports.ManufacturerRegistry.
type mapRegistry struct {
	companies   map[uint16]string
	appearances map[uint16]string
}

func (m mapRegistry) LookupCompany(id uint16) (string, bool) {
	name, ok := m.companies[id]
	return name, ok
}

func (m mapRegistry) LookupAppearance(code uint16) (string, bool) {
	name, ok := m.appearances[code]
	return name, ok
}

var emptyRegistry = mapRegistry{}

func payload(prefix []byte, text string) []byte {
	return append(append([]byte{}, prefix...), []byte(text)...)
}

func TestNormalize_Scenarios(t *testing.T) {
	apple := mapRegistry{companies: map[uint16]string{76: "Apple, Inc."}}

	tests := []struct {
		name             string
		raw              domain.RawAdvertisement
		reg              mapRegistry
		wantName         string
		wantSource       domain.NameSource
		wantManufacturer string
	}{
		{
			name:             "local name without manufacturer data",
			raw:              domain.RawAdvertisement{Address: "AA:BB:CC:DD:EE:FF", LocalName: "JBL Flip 5"},
			reg:              emptyRegistry,
			wantName:         "JBL Flip 5",
			wantSource:       domain.NameFromLocalName,
			wantManufacturer: "Unknown",
		},
		{
			name: "name recovered from manufacturer payload",
			raw: domain.RawAdvertisement{
				Address:          "AA:BB:CC:DD:EE:FF",
				ManufacturerData: map[uint16][]byte{76: payload([]byte{0x01, 0x02}, "AirPods")},
			},
			reg:              emptyRegistry,
			wantName:         "AirPods",
			wantSource:       domain.NameFromManufacturerData,
			wantManufacturer: "Unknown (ID 76)",
		},
		{
			name: "fallback uses registry name and address suffix",
			raw: domain.RawAdvertisement{
				Address:          "AA:BB:CC:DD:E1234",
				ManufacturerData: map[uint16][]byte{76: {0x10}},
			},
			reg:              apple,
			wantName:         "Apple, Inc. Device (E1234)",
			wantSource:       domain.NameFromFallback,
			wantManufacturer: "Apple, Inc.",
		},
		{
			name:             "no manufacturer data at all",
			raw:              domain.RawAdvertisement{Address: "AA:BB:CC:DD:EE:FF"},
			reg:              emptyRegistry,
			wantName:         "Unknown Device (EE:FF)",
			wantSource:       domain.NameFromFallback,
			wantManufacturer: "Unknown",
		},
		{
			name:             "device name used when local name is blank",
			raw:              domain.RawAdvertisement{Address: "AA:BB:CC:DD:EE:FF", LocalName: "   ", DeviceName: " Soundcore 2 "},
			reg:              emptyRegistry,
			wantName:         "Soundcore 2",
			wantSource:       domain.NameFromDeviceName,
			wantManufacturer: "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := Normalize(tt.raw, tt.reg)
			assert.Equal(t, tt.wantName, desc.DisplayName)
			assert.Equal(t, tt.wantSource, desc.NameSource)
			assert.Equal(t, tt.wantManufacturer, desc.ManufacturerName)
			assert.Equal(t, tt.raw.Address, desc.Address)
		})
	}
}

func TestNormalize_LocalNameAlwaysWins(t *testing.T) {
	data := map[uint16][]byte{0x004C: payload([]byte{0, 0}, "FromPayload")}
	for _, local := range []string{"Kitchen", "  Boombox  ", "x"} {
		desc := Normalize(domain.RawAdvertisement{
			Address:          "11:22:33:44:55:66",
			LocalName:        local,
			DeviceName:       "Transport Name",
			ManufacturerData: data,
		}, emptyRegistry)
		assert.Equal(t, strings.TrimSpace(local), desc.DisplayName)
		assert.Equal(t, domain.NameFromLocalName, desc.NameSource)
	}
}

func TestNormalize_LowestCompanyIDWins(t *testing.T) {
	reg := mapRegistry{companies: map[uint16]string{0x0006: "Microsoft", 0x004C: "Apple, Inc."}}
	raw := domain.RawAdvertisement{
		Address: "AA:BB:CC:DD:EE:FF",
		ManufacturerData: map[uint16][]byte{
			0x004C: payload([]byte{1, 2}, "Second"),
			0x0006: payload([]byte{1, 2}, "First"),
		},
	}

	for i := 0; i < 20; i++ {
		desc := Normalize(raw, reg)
		require.NotNil(t, desc.ManufacturerID)
		assert.Equal(t, uint16(0x0006), *desc.ManufacturerID)
		assert.Equal(t, "Microsoft", desc.ManufacturerName)
		assert.Equal(t, "First", desc.DisplayName)
	}
}

func TestNormalize_RecoveryFallsThroughToNextPair(t *testing.T) {
	raw := domain.RawAdvertisement{
		Address: "AA:BB:CC:DD:EE:FF",
		ManufacturerData: map[uint16][]byte{
			0x0001: {0x02, 0x15, 0xFF, 0xFE, 0x00}, // undecodable
			0x0002: {0x00},                         // too short
			0x0003: payload([]byte{9, 9}, "Marshall Emberton"),
		},
	}
	desc := Normalize(raw, emptyRegistry)
	assert.Equal(t, "Marshall Emberton", desc.DisplayName)
	assert.Equal(t, domain.NameFromManufacturerData, desc.NameSource)
	assert.Equal(t, "Unknown (ID 1)", desc.ManufacturerName)
}

func TestNormalize_PassThroughFields(t *testing.T) {
	raw := domain.RawAdvertisement{
		Address:      "AA:BB:CC:DD:EE:FF",
		RSSI:         domain.IntPtr(-61),
		TxPower:      domain.IntPtr(4),
		ServiceUUIDs: []string{"0000110b-0000-1000-8000-00805f9b34fb", "180F", "0000110b-0000-1000-8000-00805f9b34fb"},
		Appearance:   domain.Uint16Ptr(0x0841),
	}
	reg := mapRegistry{appearances: map[uint16]string{0x0841: "Standalone Speaker"}}

	desc := Normalize(raw, reg)
	require.NotNil(t, desc.RSSI)
	assert.Equal(t, -61, *desc.RSSI)
	require.NotNil(t, desc.TxPower)
	assert.Equal(t, 4, *desc.TxPower)
	assert.Equal(t, []string{"0000110b-0000-1000-8000-00805f9b34fb", "180F"}, desc.ServiceUUIDs)
	assert.Equal(t, "Standalone Speaker", desc.AppearanceName)

	// mutating the input afterwards must not leak into the descriptor
	*raw.RSSI = 0
	assert.Equal(t, -61, *desc.RSSI)
}

func TestNormalize_AbsentRSSIStaysAbsent(t *testing.T) {
	desc := Normalize(domain.RawAdvertisement{Address: "AA:BB:CC:DD:EE:FF"}, emptyRegistry)
	assert.Nil(t, desc.RSSI)
	assert.Nil(t, desc.TxPower)
	assert.NotNil(t, desc.ServiceUUIDs)
	assert.Empty(t, desc.ServiceUUIDs)
}

func TestNormalize_ServiceUUIDsPassThrough(t *testing.T) {
	raw := domain.RawAdvertisement{
		Address:      "AA:BB:CC:DD:EE:FF",
		ServiceUUIDs: []string{"180f", "", "0000110B-0000-1000-8000-00805F9B34FB", ""},
	}
	desc := Normalize(raw, nil)
	assert.Equal(t, []string{"", "0000110B-0000-1000-8000-00805F9B34FB", "180f"}, desc.ServiceUUIDs)
}

func TestNormalize_Totality(t *testing.T) {
	inputs := []domain.RawAdvertisement{
		{},
		{Address: "x"},
		{Address: "AA:BB:CC:DD:EE:FF", ManufacturerData: map[uint16][]byte{0: nil}},
		{Address: "AA:BB:CC:DD:EE:FF", ManufacturerData: map[uint16][]byte{0xFFFF: {0xFF, 0xFF, 0xFF, 0xFF, 0xFF}}},
		{Address: "AA:BB:CC:DD:EE:FF", ServiceUUIDs: []string{""}},
	}
	for _, raw := range inputs {
		assert.NotPanics(t, func() {
			desc := Normalize(raw, nil)
			assert.NotEmpty(t, desc.DisplayName)
			assert.NotEmpty(t, desc.ManufacturerName)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := domain.RawAdvertisement{
		Address:          "AA:BB:CC:DD:EE:FF",
		RSSI:             domain.IntPtr(-70),
		ManufacturerData: map[uint16][]byte{0x0087: payload([]byte{0, 1}, "Bose Home Speaker"), 0x004C: {1}},
		ServiceUUIDs:     []string{"b", "a"},
	}
	reg := mapRegistry{companies: map[uint16]string{0x0087: "Bose Corporation"}}
	assert.Equal(t, Normalize(raw, reg), Normalize(raw, reg))
}

func BenchmarkNormalize(b *testing.B) {
	raw := domain.RawAdvertisement{
		Address:          "AA:BB:CC:DD:EE:FF",
		ManufacturerData: map[uint16][]byte{0x004C: payload([]byte{1, 2}, "AirPods Pro")},
	}
	reg := mapRegistry{companies: map[uint16]string{0x004C: "Apple, Inc."}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Normalize(raw, reg)
	}
}
