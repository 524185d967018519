package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classified(addr, name string, source domain.NameSource, rssi *int, dt domain.DeviceType) domain.ClassifiedDevice {
	return domain.ClassifiedDevice{
		DeviceDescriptor: domain.DeviceDescriptor{
			Address:          addr,
			DisplayName:      name,
			NameSource:       source,
			ManufacturerName: "Unknown",
			RSSI:             rssi,
			ServiceUUIDs:     []string{},
		},
		DeviceType: dt,
		Icon:       dt.Icon(),
	}
}

func TestNewDeviceRegistry(t *testing.T) {
	registry := NewDeviceRegistry()
	assert.NotNil(t, registry)
	assert.Equal(t, numShards, len(registry.shards))
	assert.Equal(t, 0, registry.GetActiveCount())
}

func TestDeviceRegistry_ProcessDevice_NewDevice(t *testing.T) {
	registry := NewDeviceRegistry()
	now := time.Now()

	dev := classified("AA:BB:CC:DD:EE:FF", "JBL Flip 5", domain.NameFromLocalName, domain.IntPtr(-50), domain.DeviceTypeSpeaker)
	processed, isNew := registry.ProcessDevice(dev, now, "tinygo")

	assert.True(t, isNew, "Should be identified as a new device")
	assert.Equal(t, dev.Address, processed.Address)
	assert.Equal(t, 1, processed.SeenCount)
	assert.Equal(t, now, processed.FirstSeen)
	assert.Equal(t, "tinygo", processed.Source)

	stored, found := registry.GetDevice(dev.Address)
	assert.True(t, found)
	assert.Equal(t, "JBL Flip 5", stored.DisplayName)
}

func TestDeviceRegistry_ProcessDevice_Merge(t *testing.T) {
	registry := NewDeviceRegistry()
	addr := "11:22:33:44:55:66"
	t1 := time.Now().Add(-time.Minute)
	t2 := time.Now()

	registry.ProcessDevice(classified(addr, "Bose Mini", domain.NameFromLocalName, domain.IntPtr(-80), domain.DeviceTypeSpeaker), t1, "tinygo")

	update := classified(addr, "Bose Device (55:66)", domain.NameFromFallback, domain.IntPtr(-40), domain.DeviceTypeUnknown)
	update.ServiceUUIDs = []string{"0000110b-0000-1000-8000-00805f9b34fb"}
	processed, isNew := registry.ProcessDevice(update, t2, "agent-1")

	assert.False(t, isNew)
	assert.Equal(t, t1, processed.FirstSeen, "first-seen is kept")
	assert.Equal(t, t2, processed.LastSeen)
	assert.Equal(t, 2, processed.SeenCount)
	require.NotNil(t, processed.RSSI)
	assert.Equal(t, -40, *processed.RSSI)
	assert.Equal(t, "Bose Mini", processed.DisplayName, "fallback name must not replace a resolved one")
	assert.Equal(t, domain.DeviceTypeSpeaker, processed.DeviceType, "unknown must not replace a known type")
	assert.Equal(t, []string{"0000110b-0000-1000-8000-00805f9b34fb"}, processed.ServiceUUIDs)
	assert.Equal(t, "agent-1", processed.Source)
}

func TestDeviceRegistry_ProcessDevice_ResolvedNameReplacesFallback(t *testing.T) {
	registry := NewDeviceRegistry()
	addr := "11:22:33:44:55:66"
	now := time.Now()

	registry.ProcessDevice(classified(addr, "Unknown Device (55:66)", domain.NameFromFallback, nil, domain.DeviceTypeUnknown), now, "")
	processed, _ := registry.ProcessDevice(classified(addr, "Sonos Move", domain.NameFromManufacturerData, nil, domain.DeviceTypeUnknown), now, "")

	assert.Equal(t, "Sonos Move", processed.DisplayName)
	assert.Equal(t, domain.NameFromManufacturerData, processed.NameSource)
}

func TestDeviceRegistry_AbsentRSSIKeepsLastKnown(t *testing.T) {
	registry := NewDeviceRegistry()
	addr := "11:22:33:44:55:66"
	registry.ProcessDevice(classified(addr, "x", domain.NameFromLocalName, domain.IntPtr(-70), domain.DeviceTypeUnknown), time.Now(), "")
	processed, _ := registry.ProcessDevice(classified(addr, "x", domain.NameFromLocalName, nil, domain.DeviceTypeUnknown), time.Now(), "")

	require.NotNil(t, processed.RSSI)
	assert.Equal(t, -70, *processed.RSSI)
}

func TestDeviceRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewDeviceRegistry()
	addr := "00:11:22:33:44:55"

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.ProcessDevice(classified(addr, "Speaker", domain.NameFromLocalName, nil, domain.DeviceTypeSpeaker), time.Now(), "")
		}()
	}
	wg.Wait()

	stored, found := registry.GetDevice(addr)
	assert.True(t, found)
	assert.Equal(t, 100, stored.SeenCount)
}

func TestDeviceRegistry_GetAllDevices_Order(t *testing.T) {
	registry := NewDeviceRegistry()
	now := time.Now()
	registry.ProcessDevice(classified("CC", "c", domain.NameFromLocalName, nil, domain.DeviceTypeUnknown), now, "")
	registry.ProcessDevice(classified("BB", "b", domain.NameFromLocalName, domain.IntPtr(-80), domain.DeviceTypeUnknown), now, "")
	registry.ProcessDevice(classified("AA", "a", domain.NameFromLocalName, domain.IntPtr(-40), domain.DeviceTypeUnknown), now, "")
	registry.ProcessDevice(classified("AB", "a", domain.NameFromLocalName, nil, domain.DeviceTypeUnknown), now, "")
	registry.ProcessDevice(classified("AC", "a", domain.NameFromLocalName, domain.IntPtr(-80), domain.DeviceTypeUnknown), now, "")

	var order []string
	for _, d := range registry.GetAllDevices() {
		order = append(order, d.Address)
	}
	assert.Equal(t, []string{"AA", "AC", "BB", "AB", "CC"}, order)
}

func TestDeviceRegistry_PruneOldDevices(t *testing.T) {
	registry := NewDeviceRegistry()

	registry.ProcessDevice(classified("OLD", "old", domain.NameFromLocalName, nil, domain.DeviceTypeUnknown), time.Now().Add(-2*time.Hour), "")
	registry.ProcessDevice(classified("NEW", "new", domain.NameFromLocalName, nil, domain.DeviceTypeUnknown), time.Now(), "")

	deleted := registry.PruneOldDevices(time.Hour)
	assert.Equal(t, 1, deleted)

	_, foundOld := registry.GetDevice("OLD")
	assert.False(t, foundOld)
	_, foundNew := registry.GetDevice("NEW")
	assert.True(t, foundNew)
}

func TestDeviceRegistry_Clear(t *testing.T) {
	registry := NewDeviceRegistry()
	registry.ProcessDevice(classified("AA", "a", domain.NameFromLocalName, nil, domain.DeviceTypeUnknown), time.Now(), "")
	registry.LoadDevice(domain.SeenDevice{ClassifiedDevice: classified("BB", "b", domain.NameFromLocalName, nil, domain.DeviceTypeUnknown)})
	assert.Equal(t, 2, registry.GetActiveCount())

	registry.Clear()
	assert.Equal(t, 0, registry.GetActiveCount())
	assert.Empty(t, registry.GetAllDevices())
}

type recordingObserver struct {
	mu      sync.Mutex
	added   []string
	updated []string
}

func (o *recordingObserver) OnDeviceAdded(d domain.SeenDevice) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.added = append(o.added, d.Address)
}

func (o *recordingObserver) OnDeviceUpdated(d domain.SeenDevice) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updated = append(o.updated, d.Address)
}

func TestDeviceRegistry_Observers(t *testing.T) {
	registry := NewDeviceRegistry()
	obs := &recordingObserver{}
	registry.AddObserver(obs)

	var seen []int
	registry.AddObserver(ObserverFunc(func(d domain.SeenDevice) { seen = append(seen, d.SeenCount) }))

	dev := classified("AA", "a", domain.NameFromLocalName, nil, domain.DeviceTypeUnknown)
	registry.ProcessDevice(dev, time.Now(), "")
	registry.ProcessDevice(dev, time.Now(), "")
	registry.LoadDevice(domain.SeenDevice{ClassifiedDevice: classified("BB", "b", domain.NameFromLocalName, nil, domain.DeviceTypeUnknown)})

	assert.Equal(t, []string{"AA"}, obs.added)
	assert.Equal(t, []string{"AA"}, obs.updated)
	assert.Equal(t, []int{1, 2}, seen)
}
