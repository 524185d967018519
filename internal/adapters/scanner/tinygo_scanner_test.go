package scanner

import (
	"testing"

	"github.com/lcalzada-xor/bluespeak/internal/adapters/scanner/adstruct"
	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/bluetooth"
)

// fakePayload answers the accessors the way the structured (BlueZ, WinRT)
// backends do: no raw bytes, services only queryable by membership.
type fakePayload struct {
	name     string
	services []bluetooth.UUID
	mfr      []bluetooth.ManufacturerDataElement
	raw      []byte
}

func (p fakePayload) LocalName() string { return p.name }

func (p fakePayload) HasServiceUUID(u bluetooth.UUID) bool {
	for _, s := range p.services {
		if s == u {
			return true
		}
	}
	return false
}

func (p fakePayload) Bytes() []byte { return p.raw }

func (p fakePayload) ManufacturerData() []bluetooth.ManufacturerDataElement { return p.mfr }

func (p fakePayload) ServiceData() []bluetooth.ServiceDataElement { return nil }

func TestFromPayload_StructuredBackend(t *testing.T) {
	payload := fakePayload{
		name: "Boombox",
		services: []bluetooth.UUID{
			bluetooth.New16BitUUID(0x110B),
			bluetooth.New16BitUUID(0x180F), // battery, not an audio profile
		},
		mfr: []bluetooth.ManufacturerDataElement{{CompanyID: 0x0057, Data: []byte{0x01, 0x02}}},
	}

	adv := fromPayload("aa:bb:cc:dd:ee:01", -61, payload)

	assert.Equal(t, "AA:BB:CC:DD:EE:01", adv.Address)
	assert.Equal(t, "Boombox", adv.LocalName)
	require.NotNil(t, adv.RSSI)
	assert.Equal(t, -61, *adv.RSSI)
	assert.Equal(t, []string{domain.UUIDAudioSink}, adv.ServiceUUIDs)
	assert.True(t, domain.HasAudioService(adv.ServiceUUIDs))
	assert.Equal(t, map[uint16][]byte{0x0057: {0x01, 0x02}}, adv.ManufacturerData)
}

func TestFromPayload_RawBytes(t *testing.T) {
	raw, err := adstruct.Encode([]adstruct.Structure{
		{Type: adstruct.TypeCompleteLocalName, Data: []byte("Headset")},
		{Type: adstruct.TypeComplete16BitUUIDs, Data: []byte{0x08, 0x11}},
		{Type: adstruct.TypeAppearance, Data: []byte{0x41, 0x08}},
	})
	require.NoError(t, err)

	payload := fakePayload{raw: raw, services: []bluetooth.UUID{bluetooth.New16BitUUID(0x1108)}}
	adv := fromPayload("AA:BB:CC:DD:EE:02", -70, payload)

	assert.Equal(t, "Headset", adv.LocalName)
	assert.Equal(t, []string{domain.UUIDHeadset}, adv.ServiceUUIDs, "profile found in raw bytes is not duplicated")
	require.NotNil(t, adv.Appearance)
	assert.Equal(t, uint16(0x0841), *adv.Appearance)
}

func TestFromPayload_NoPayload(t *testing.T) {
	adv := fromPayload("AA:BB:CC:DD:EE:03", -90, nil)
	assert.Equal(t, "AA:BB:CC:DD:EE:03", adv.Address)
	assert.Empty(t, adv.ServiceUUIDs)
	assert.Nil(t, adv.ManufacturerData)
}
