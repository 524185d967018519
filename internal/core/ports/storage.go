package ports

import (
	"context"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

// DeviceStore persists devices seen across scan passes.
type DeviceStore interface {
	SaveDevicesBatch(devices []domain.SeenDevice) error
	GetDevice(address string) (*domain.SeenDevice, error)
	GetAllDevices() ([]domain.SeenDevice, error)
	Close() error
}

// EntryStore persists speaker entries created by the config flow.
type EntryStore interface {
	SaveEntry(ctx context.Context, entry domain.SpeakerEntry) error
	GetEntry(ctx context.Context, id string) (*domain.SpeakerEntry, error)
	GetEntryByAddress(ctx context.Context, address string) (*domain.SpeakerEntry, error)
	ListEntries(ctx context.Context) ([]domain.SpeakerEntry, error)
	DeleteEntry(ctx context.Context, id string) error
}
