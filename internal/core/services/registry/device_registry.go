package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

const numShards = 16

type deviceShard struct {
	mu      sync.RWMutex
	devices map[string]domain.SeenDevice
}

// DeviceRegistry implements ports.DeviceRegistry.
type DeviceRegistry struct {
	shards  []*deviceShard
	merger  *DeviceMerger
	subject *RegistrySubject
}

// NewDeviceRegistry creates a new sharded registry.
func NewDeviceRegistry() *DeviceRegistry {
	r := &DeviceRegistry{
		shards:  make([]*deviceShard, numShards),
		merger:  NewDeviceMerger(),
		subject: NewRegistrySubject(),
	}
	for i := 0; i < numShards; i++ {
		r.shards[i] = &deviceShard{devices: make(map[string]domain.SeenDevice)}
	}
	return r
}

// AddObserver registers a component notified on every add/update.
func (r *DeviceRegistry) AddObserver(o DeviceObserver) {
	r.subject.AddObserver(o)
}

func (r *DeviceRegistry) getShard(address string) *deviceShard {
	hash := uint32(0)
	for i := 0; i < len(address); i++ {
		hash = hash*31 + uint32(address[i])
	}
	return r.shards[hash%uint32(len(r.shards))]
}

func (r *DeviceRegistry) ProcessDevice(device domain.ClassifiedDevice, seenAt time.Time, source string) (domain.SeenDevice, bool) {
	shard := r.getShard(device.Address)
	shard.mu.Lock()

	existing, ok := shard.devices[device.Address]
	if !ok {
		seen := domain.SeenDevice{
			ClassifiedDevice: device,
			FirstSeen:        seenAt,
			LastSeen:         seenAt,
			SeenCount:        1,
			Source:           source,
		}
		shard.devices[device.Address] = seen
		shard.mu.Unlock()

		r.subject.NotifyAdded(seen)
		return seen, true
	}

	r.merger.Merge(&existing, device, seenAt, source)
	shard.devices[device.Address] = existing
	shard.mu.Unlock()

	r.subject.NotifyUpdated(existing)
	return existing, false
}

// LoadDevice restores a persisted device without notifying observers.
func (r *DeviceRegistry) LoadDevice(device domain.SeenDevice) {
	shard := r.getShard(device.Address)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	shard.devices[device.Address] = device
}

func (r *DeviceRegistry) GetDevice(address string) (domain.SeenDevice, bool) {
	shard := r.getShard(address)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	d, ok := shard.devices[address]
	return d, ok
}

// GetAllDevices returns a snapshot sorted by RSSI descending, unknown RSSI last, then by address.
func (r *DeviceRegistry) GetAllDevices() []domain.SeenDevice {
	all := make([]domain.SeenDevice, 0, r.GetActiveCount())
	for _, shard := range r.shards {
		shard.mu.RLock()
		for _, d := range shard.devices {
			dCopy := d
			if d.ServiceUUIDs != nil {
				dCopy.ServiceUUIDs = append([]string(nil), d.ServiceUUIDs...)
			}
			all = append(all, dCopy)
		}
		shard.mu.RUnlock()
	}
	SortByRSSI(all)
	return all
}

// SortByRSSI orders devices strongest first; devices without RSSI go last.
func SortByRSSI(devices []domain.SeenDevice) {
	sort.SliceStable(devices, func(i, j int) bool {
		a, b := devices[i].RSSI, devices[j].RSSI
		switch {
		case a != nil && b != nil && *a != *b:
			return *a > *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return devices[i].Address < devices[j].Address
	})
}

func (r *DeviceRegistry) PruneOldDevices(ttl time.Duration) int {
	threshold := time.Now().Add(-ttl)
	deletedCount := 0
	for _, shard := range r.shards {
		shard.mu.Lock()
		for addr, d := range shard.devices {
			if d.LastSeen.Before(threshold) {
				delete(shard.devices, addr)
				deletedCount++
			}
		}
		shard.mu.Unlock()
	}
	return deletedCount
}

// Clear wipes all in-memory state.
func (r *DeviceRegistry) Clear() {
	for _, shard := range r.shards {
		shard.mu.Lock()
		shard.devices = make(map[string]domain.SeenDevice)
		shard.mu.Unlock()
	}
}

func (r *DeviceRegistry) GetActiveCount() int {
	count := 0
	for _, shard := range r.shards {
		shard.mu.RLock()
		count += len(shard.devices)
		shard.mu.RUnlock()
	}
	return count
}
