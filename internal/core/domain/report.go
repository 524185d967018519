package domain

import (
	"sort"
	"time"
)

// InventoryReport aggregates everything needed for a device inventory export.
type InventoryReport struct {
	Title       string
	GeneratedAt time.Time
	Stats       InventoryStats
	Devices     []SeenDevice
	Entries     []SpeakerEntry
}

// InventoryStats holds summary statistics.
type InventoryStats struct {
	TotalDevices      int
	AudioDevices      int
	NamedDevices      int
	ConfiguredDevices int
	ByType            []TypeStat
	TopManufacturers  []ManufacturerStat
}

type TypeStat struct {
	Type  DeviceType
	Count int
}

type ManufacturerStat struct {
	Name  string
	Count int
}

// NewInventoryReport computes the summary for devices and entries.
func NewInventoryReport(title string, devices []SeenDevice, entries []SpeakerEntry, now time.Time) *InventoryReport {
	r := &InventoryReport{
		Title:       title,
		GeneratedAt: now,
		Devices:     devices,
		Entries:     entries,
	}

	configured := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		configured[e.Address] = struct{}{}
	}

	byType := make(map[DeviceType]int)
	byVendor := make(map[string]int)
	for _, d := range devices {
		r.Stats.TotalDevices++
		byType[d.DeviceType]++
		if d.DeviceType.IsAudio() || HasAudioService(d.ServiceUUIDs) {
			r.Stats.AudioDevices++
		}
		if d.NameSource.Resolved() {
			r.Stats.NamedDevices++
		}
		if _, ok := configured[d.Address]; ok {
			r.Stats.ConfiguredDevices++
		}
		if d.ManufacturerName != "" {
			byVendor[d.ManufacturerName]++
		}
	}

	for _, t := range AllDeviceTypes() {
		if n := byType[t]; n > 0 {
			r.Stats.ByType = append(r.Stats.ByType, TypeStat{Type: t, Count: n})
		}
	}

	for name, n := range byVendor {
		r.Stats.TopManufacturers = append(r.Stats.TopManufacturers, ManufacturerStat{Name: name, Count: n})
	}
	sort.Slice(r.Stats.TopManufacturers, func(i, j int) bool {
		a, b := r.Stats.TopManufacturers[i], r.Stats.TopManufacturers[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	if len(r.Stats.TopManufacturers) > 5 {
		r.Stats.TopManufacturers = r.Stats.TopManufacturers[:5]
	}
	return r
}
