package storage

import (
	"encoding/json"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

// toDomain converts a database model to a domain entity.
func toDomain(m DeviceModel) *domain.SeenDevice {
	uuids := []string{}
	if m.ServiceUUIDs != "" {
		_ = json.Unmarshal([]byte(m.ServiceUUIDs), &uuids)
	}

	return &domain.SeenDevice{
		ClassifiedDevice: domain.ClassifiedDevice{
			DeviceDescriptor: domain.DeviceDescriptor{
				Address:          m.Address,
				DisplayName:      m.DisplayName,
				NameSource:       domain.NameSource(m.NameSource),
				ManufacturerID:   m.ManufacturerID,
				ManufacturerName: m.ManufacturerName,
				RSSI:             m.RSSI,
				TxPower:          m.TxPower,
				ServiceUUIDs:     uuids,
				Appearance:       m.Appearance,
				AppearanceName:   m.AppearanceName,
			},
			DeviceType: domain.DeviceType(m.DeviceType),
			Icon:       domain.Icon(m.Icon),
			MatchedBy:  domain.MatchSource(m.MatchedBy),
		},
		FirstSeen: m.FirstSeen,
		LastSeen:  m.LastSeen,
		SeenCount: m.SeenCount,
		Source:    m.Source,
	}
}

// toModel converts a domain entity to a database model.
func toModel(d domain.SeenDevice) DeviceModel {
	var uuids string
	if len(d.ServiceUUIDs) > 0 {
		b, _ := json.Marshal(d.ServiceUUIDs)
		uuids = string(b)
	}

	return DeviceModel{
		Address:          d.Address,
		DisplayName:      d.DisplayName,
		NameSource:       string(d.NameSource),
		ManufacturerID:   d.ManufacturerID,
		ManufacturerName: d.ManufacturerName,
		RSSI:             d.RSSI,
		TxPower:          d.TxPower,
		ServiceUUIDs:     uuids,
		Appearance:       d.Appearance,
		AppearanceName:   d.AppearanceName,
		DeviceType:       string(d.DeviceType),
		Icon:             string(d.Icon),
		MatchedBy:        string(d.MatchedBy),
		FirstSeen:        d.FirstSeen,
		LastSeen:         d.LastSeen,
		SeenCount:        d.SeenCount,
		Source:           d.Source,
	}
}

func entryToModel(e domain.SpeakerEntry) SpeakerEntryModel {
	return SpeakerEntryModel{
		ID:           e.ID,
		Address:      e.Address,
		Name:         e.Name,
		DeviceType:   string(e.DeviceType),
		Manufacturer: e.Manufacturer,
		CreatedAt:    e.CreatedAt,
	}
}

func entryToDomain(m SpeakerEntryModel) domain.SpeakerEntry {
	return domain.SpeakerEntry{
		ID:           m.ID,
		Address:      m.Address,
		Name:         m.Name,
		DeviceType:   domain.DeviceType(m.DeviceType),
		Manufacturer: m.Manufacturer,
		CreatedAt:    m.CreatedAt,
	}
}
