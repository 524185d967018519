package ports

import (
	"context"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

// DiscoveryService is the application API for scanning and browsing devices.
type DiscoveryService interface {
	Scan(ctx context.Context, timeout time.Duration) (domain.ScanSummary, error)
	LastSummary() (domain.ScanSummary, bool)
	Devices(filter domain.DeviceFilter) []domain.SeenDevice
	Device(address string) (domain.SeenDevice, bool)
	DeviceCount() int
	LookupManufacturer(id uint16) (string, bool)
	RefreshRegistry(ctx context.Context) (int, error)
	Reset()
}

// SpeakerService drives the link state of configured speakers.
type SpeakerService interface {
	Status(address string) domain.SpeakerStatus
	List() []domain.SpeakerStatus
	Pair(ctx context.Context, address string) (domain.SpeakerStatus, error)
	Connect(ctx context.Context, address string) (domain.SpeakerStatus, error)
	Disconnect(ctx context.Context, address string) (domain.SpeakerStatus, error)
	Reconnect(ctx context.Context, address string) (domain.SpeakerStatus, error)
	TurnOn(ctx context.Context, address string) (domain.SpeakerStatus, error)
	TurnOff(ctx context.Context, address string) (domain.SpeakerStatus, error)
	Forget(address string)
	Reset()
}

// ConfigFlowService is the select, name, create wizard plus entry management.
type ConfigFlowService interface {
	Start(ctx context.Context) (domain.ConfigFlow, error)
	SelectDevice(ctx context.Context, flowID, address string) (domain.ConfigFlow, error)
	SetName(ctx context.Context, flowID, name string) (domain.ConfigFlow, error)
	Get(flowID string) (domain.ConfigFlow, error)
	Abort(flowID string) error
	Entries(ctx context.Context) ([]domain.SpeakerEntry, error)
	RemoveEntry(ctx context.Context, id string) (domain.SpeakerEntry, error)
}

// InventoryExporter renders an inventory report to a document.
type InventoryExporter interface {
	ExportInventory(report *domain.InventoryReport) ([]byte, error)
}
