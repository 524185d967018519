// Package normalizer turns raw advertisement records into canonical device descriptors.
//
// Normalize is a pure function: it performs no I/O, keeps no state and never panics
// on malformed input. Every absent or undecodable field degrades to a documented default.
package normalizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
)

// UnknownManufacturer is used when an advertisement carries no manufacturer data.
const UnknownManufacturer = "Unknown"

// addressSuffixLen is how many trailing address characters the fallback name shows.
const addressSuffixLen = 5

// Normalize builds the descriptor for one advertisement. A nil registry behaves as an empty one.
func Normalize(raw domain.RawAdvertisement, reg ports.ManufacturerRegistry) domain.DeviceDescriptor {
	desc := domain.DeviceDescriptor{
		Address:          raw.Address,
		ManufacturerName: UnknownManufacturer,
		RSSI:             copyInt(raw.RSSI),
		TxPower:          copyInt(raw.TxPower),
		ServiceUUIDs:     uuidSet(raw.ServiceUUIDs),
	}

	ids := sortedCompanyIDs(raw.ManufacturerData)
	if len(ids) > 0 {
		id := ids[0]
		desc.ManufacturerID = &id
		desc.ManufacturerName = ManufacturerName(reg, id)
	}

	if raw.Appearance != nil {
		code := *raw.Appearance
		desc.Appearance = &code
		if reg != nil {
			if name, ok := reg.LookupAppearance(code); ok {
				desc.AppearanceName = name
			}
		}
	}

	desc.DisplayName, desc.NameSource = resolveDisplayName(raw, ids, desc.ManufacturerName)
	return desc
}

// ManufacturerName resolves a company ID, producing "Unknown (ID n)" when unregistered.
func ManufacturerName(reg ports.ManufacturerRegistry, id uint16) string {
	if reg != nil {
		if name, ok := reg.LookupCompany(id); ok && name != "" {
			return name
		}
	}
	return fmt.Sprintf("Unknown (ID %d)", id)
}

// FallbackName is the synthesized name used when nothing else resolves.
func FallbackName(manufacturer, address string) string {
	return fmt.Sprintf("%s Device (%s)", manufacturer, addressSuffix(address))
}

func resolveDisplayName(raw domain.RawAdvertisement, ids []uint16, manufacturer string) (string, domain.NameSource) {
	if name := strings.TrimSpace(raw.LocalName); name != "" {
		return name, domain.NameFromLocalName
	}
	if name := strings.TrimSpace(raw.DeviceName); name != "" {
		return name, domain.NameFromDeviceName
	}
	if name, ok := recoverName(raw.ManufacturerData, ids); ok {
		return name, domain.NameFromManufacturerData
	}
	return FallbackName(manufacturer, raw.Address), domain.NameFromFallback
}

func addressSuffix(address string) string {
	runes := []rune(address)
	if len(runes) <= addressSuffixLen {
		return address
	}
	return string(runes[len(runes)-addressSuffixLen:])
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// uuidSet deduplicates and sorts service UUIDs without rewriting or dropping them.
func uuidSet(uuids []string) []string {
	set := make([]string, 0, len(uuids))
	seen := make(map[string]struct{}, len(uuids))
	for _, u := range uuids {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		set = append(set, u)
	}
	sort.Strings(set)
	return set
}
