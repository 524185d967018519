package ports

import (
	"context"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

// ManufacturerRegistry resolves Bluetooth SIG company identifiers and appearance codes.
// Implementations must be safe for concurrent reads and expose no write path.
type ManufacturerRegistry interface {
	LookupCompany(id uint16) (string, bool)
	LookupAppearance(code uint16) (string, bool)
}

// DeviceRegistry manages the in-memory state of discovered devices.
type DeviceRegistry interface {
	// ProcessDevice updates or adds a device to the registry.
	// Returns the merged device and whether it was newly discovered.
	ProcessDevice(device domain.ClassifiedDevice, seenAt time.Time, source string) (domain.SeenDevice, bool)

	// GetDevice returns a device by address.
	GetDevice(address string) (domain.SeenDevice, bool)

	// GetAllDevices returns all known devices, strongest signal first.
	GetAllDevices() []domain.SeenDevice

	// PruneOldDevices removes devices not seen for more than the given TTL.
	PruneOldDevices(ttl time.Duration) int

	// GetActiveCount returns the number of devices currently in the registry.
	GetActiveCount() int

	// Clear wipes all in-memory state.
	Clear()
}

// RegistryProvider hands out the active manufacturer registry snapshot and rebuilds it on demand.
type RegistryProvider interface {
	Snapshot() ManufacturerRegistry

	// Reload rebuilds the snapshot and returns how many companies it holds.
	Reload(ctx context.Context) (int, error)
}
