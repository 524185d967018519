package scanner

import (
	"sort"
	"sync"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

// collector merges repeated reports of the same address seen within one scan window.
type collector struct {
	mu     sync.Mutex
	byAddr map[string]*domain.RawAdvertisement
}

func newCollector() *collector {
	return &collector{byAddr: make(map[string]*domain.RawAdvertisement)}
}

// add folds adv into the report for its address: newer names, RSSI, TX power and
// appearance win, service UUIDs are unioned and manufacturer payloads are replaced per company.
func (c *collector) add(adv domain.RawAdvertisement) {
	if adv.Address == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.byAddr[adv.Address]
	if !ok {
		cp := adv
		cp.ServiceUUIDs = append([]string(nil), adv.ServiceUUIDs...)
		cp.ManufacturerData = copyManufacturerData(adv.ManufacturerData)
		c.byAddr[adv.Address] = &cp
		return
	}

	if adv.LocalName != "" {
		cur.LocalName = adv.LocalName
	}
	if adv.DeviceName != "" {
		cur.DeviceName = adv.DeviceName
	}
	if adv.RSSI != nil {
		cur.RSSI = adv.RSSI
	}
	if adv.TxPower != nil {
		cur.TxPower = adv.TxPower
	}
	if adv.Appearance != nil {
		cur.Appearance = adv.Appearance
	}
	cur.ServiceUUIDs = append(cur.ServiceUUIDs, adv.ServiceUUIDs...)
	for id, data := range adv.ManufacturerData {
		if cur.ManufacturerData == nil {
			cur.ManufacturerData = make(map[uint16][]byte)
		}
		cur.ManufacturerData[id] = append([]byte(nil), data...)
	}
}

// results returns the merged reports ordered by address.
func (c *collector) results() []domain.RawAdvertisement {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.RawAdvertisement, 0, len(c.byAddr))
	for _, adv := range c.byAddr {
		out = append(out, *adv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byAddr)
}

func copyManufacturerData(in map[uint16][]byte) map[uint16][]byte {
	if in == nil {
		return nil
	}
	out := make(map[uint16][]byte, len(in))
	for id, data := range in {
		out[id] = append([]byte(nil), data...)
	}
	return out
}
