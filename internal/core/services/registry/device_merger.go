package registry

import (
	"sort"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

// DeviceMerger folds a fresh classification into an existing record.
type DeviceMerger struct{}

// NewDeviceMerger creates a new DeviceMerger.
func NewDeviceMerger() *DeviceMerger {
	return &DeviceMerger{}
}

// Merge updates 'existing' with fields from 'update'. FirstSeen is never changed.
func (dm *DeviceMerger) Merge(existing *domain.SeenDevice, update domain.ClassifiedDevice, seenAt time.Time, source string) {
	existing.SeenCount++
	if seenAt.After(existing.LastSeen) {
		existing.LastSeen = seenAt
	}
	if source != "" {
		existing.Source = source
	}

	if update.RSSI != nil {
		existing.RSSI = update.RSSI
	}
	if update.TxPower != nil {
		existing.TxPower = update.TxPower
	}

	// A synthesized name never replaces one the device reported itself.
	if update.NameSource.Resolved() || !existing.NameSource.Resolved() {
		existing.DisplayName = update.DisplayName
		existing.NameSource = update.NameSource
	}

	if update.ManufacturerID != nil {
		existing.ManufacturerID = update.ManufacturerID
		existing.ManufacturerName = update.ManufacturerName
	}
	if update.Appearance != nil {
		existing.Appearance = update.Appearance
		existing.AppearanceName = update.AppearanceName
	}

	existing.ServiceUUIDs = unionUUIDs(existing.ServiceUUIDs, update.ServiceUUIDs)

	if update.DeviceType != domain.DeviceTypeUnknown || existing.DeviceType == "" {
		existing.DeviceType = update.DeviceType
		existing.Icon = update.Icon
		existing.MatchedBy = update.MatchedBy
	}
}

func unionUUIDs(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, u := range list {
			if _, ok := set[u]; ok {
				continue
			}
			set[u] = struct{}{}
			out = append(out, u)
		}
	}
	sort.Strings(out)
	return out
}
