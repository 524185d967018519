// Package adstruct decodes the length/type/value structures carried in BLE
// advertising and scan-response payloads.
package adstruct

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

// AD types used by the decoder.
const (
	TypeFlags                    = 0x01
	TypeIncomplete16BitUUIDs     = 0x02
	TypeComplete16BitUUIDs       = 0x03
	TypeIncomplete32BitUUIDs     = 0x04
	TypeComplete32BitUUIDs       = 0x05
	TypeIncomplete128BitUUIDs    = 0x06
	TypeComplete128BitUUIDs      = 0x07
	TypeShortenedLocalName       = 0x08
	TypeCompleteLocalName        = 0x09
	TypeTxPowerLevel             = 0x0A
	TypeAppearance               = 0x19
	TypeManufacturerSpecificData = 0xFF
)

// Structure is a single AD element. Data excludes the length and type bytes.
type Structure struct {
	Type byte
	Data []byte
}

// Parse splits a payload into AD structures. A zero length byte ends the
// payload (padding). A structure that overruns the buffer is an error, but the
// structures decoded before it are still returned.
func Parse(data []byte) ([]Structure, error) {
	var out []Structure
	offset := 0

	for offset < len(data) {
		length := int(data[offset])
		if length == 0 {
			break
		}
		offset++
		if offset+length > len(data) {
			return out, fmt.Errorf("AD structure length exceeds data: length=%d, remaining=%d", length, len(data)-offset)
		}

		s := Structure{Type: data[offset]}
		s.Data = append([]byte(nil), data[offset+1:offset+length]...)
		out = append(out, s)
		offset += length
	}
	return out, nil
}

// Encode serializes structures back into a payload.
func Encode(structures []Structure) ([]byte, error) {
	var buf []byte
	for _, s := range structures {
		length := 1 + len(s.Data)
		if length > 255 {
			return nil, fmt.Errorf("AD structure too long: %d bytes (max 255)", length)
		}
		buf = append(buf, byte(length), s.Type)
		buf = append(buf, s.Data...)
	}
	return buf, nil
}

// Apply merges the fields found in structures into adv. Repeated company IDs keep the
// last payload; UUIDs accumulate. A complete local name replaces a shortened one.
func Apply(structures []Structure, adv *domain.RawAdvertisement) {
	shortened := false
	for _, s := range structures {
		switch s.Type {
		case TypeCompleteLocalName:
			adv.LocalName = string(s.Data)
			shortened = false
		case TypeShortenedLocalName:
			if adv.LocalName == "" || shortened {
				adv.LocalName = string(s.Data)
				shortened = true
			}
		case TypeIncomplete16BitUUIDs, TypeComplete16BitUUIDs:
			for i := 0; i+2 <= len(s.Data); i += 2 {
				adv.ServiceUUIDs = append(adv.ServiceUUIDs, domain.ShortUUID(uint32(binary.LittleEndian.Uint16(s.Data[i:]))))
			}
		case TypeIncomplete32BitUUIDs, TypeComplete32BitUUIDs:
			for i := 0; i+4 <= len(s.Data); i += 4 {
				adv.ServiceUUIDs = append(adv.ServiceUUIDs, domain.ShortUUID(binary.LittleEndian.Uint32(s.Data[i:])))
			}
		case TypeIncomplete128BitUUIDs, TypeComplete128BitUUIDs:
			for i := 0; i+16 <= len(s.Data); i += 16 {
				adv.ServiceUUIDs = append(adv.ServiceUUIDs, LongUUID(s.Data[i:i+16]))
			}
		case TypeTxPowerLevel:
			if len(s.Data) >= 1 {
				tx := int(int8(s.Data[0]))
				adv.TxPower = &tx
			}
		case TypeAppearance:
			if len(s.Data) >= 2 {
				code := binary.LittleEndian.Uint16(s.Data)
				adv.Appearance = &code
			}
		case TypeManufacturerSpecificData:
			if len(s.Data) >= 2 {
				if adv.ManufacturerData == nil {
					adv.ManufacturerData = make(map[uint16][]byte)
				}
				id := binary.LittleEndian.Uint16(s.Data)
				adv.ManufacturerData[id] = append([]byte(nil), s.Data[2:]...)
			}
		}
	}
}

// Decode parses payload and applies it to adv in one step.
func Decode(payload []byte, adv *domain.RawAdvertisement) error {
	structures, err := Parse(payload)
	Apply(structures, adv)
	return err
}

// LongUUID converts 16 little-endian bytes to canonical form.
func LongUUID(le []byte) string {
	var u uuid.UUID
	for i := 0; i < 16; i++ {
		u[i] = le[15-i]
	}
	return u.String()
}
