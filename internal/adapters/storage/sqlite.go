package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// ErrDuplicateEntry is returned when an address is already configured.
var ErrDuplicateEntry = errors.New("speaker entry already exists for this address")

// SQLiteAdapter implements ports.DeviceStore and ports.EntryStore using GORM and SQLite.
type SQLiteAdapter struct {
	db *gorm.DB
}

// DeviceModel is the GORM model for devices seen across scan passes.
type DeviceModel struct {
	Address          string `gorm:"primaryKey"`
	DisplayName      string
	NameSource       string
	ManufacturerID   *uint16
	ManufacturerName string
	RSSI             *int
	TxPower          *int
	ServiceUUIDs     string // JSON encoded []string
	Appearance       *uint16
	AppearanceName   string
	DeviceType       string `gorm:"index"`
	Icon             string
	MatchedBy        string
	FirstSeen        time.Time
	LastSeen         time.Time `gorm:"index"`
	SeenCount        int
	Source           string
}

// SpeakerEntryModel is the GORM model for configured speakers.
type SpeakerEntryModel struct {
	ID           string `gorm:"primaryKey"`
	Address      string `gorm:"uniqueIndex"`
	Name         string
	DeviceType   string
	Manufacturer string
	CreatedAt    time.Time
}

// NewSQLiteAdapter initializes the database and migrates schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("failed to install tracing plugin: %w", err)
	}

	if err := db.AutoMigrate(&DeviceModel{}, &SpeakerEntryModel{}); err != nil {
		return nil, err
	}

	return &SQLiteAdapter{db: db}, nil
}

// SaveDevicesBatch saves multiple devices in a single transaction.
func (a *SQLiteAdapter) SaveDevicesBatch(devices []domain.SeenDevice) error {
	if len(devices) == 0 {
		return nil
	}

	models := make([]DeviceModel, len(devices))
	for i, d := range devices {
		models[i] = toModel(d)
	}

	return a.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			UpdateAll: true,
		}).CreateInBatches(models, 100).Error
	})
}

// GetDevice retrieves a device by address.
func (a *SQLiteAdapter) GetDevice(address string) (*domain.SeenDevice, error) {
	var model DeviceModel
	if err := a.db.First(&model, "address = ?", address).Error; err != nil {
		return nil, err
	}
	return toDomain(model), nil
}

// GetAllDevices retrieves all devices, most recently seen first.
func (a *SQLiteAdapter) GetAllDevices() ([]domain.SeenDevice, error) {
	var models []DeviceModel
	if err := a.db.Order("last_seen DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	devices := make([]domain.SeenDevice, len(models))
	for i, m := range models {
		devices[i] = *toDomain(m)
	}
	return devices, nil
}

// SaveEntry stores a new speaker entry. An address can be configured once.
func (a *SQLiteAdapter) SaveEntry(ctx context.Context, entry domain.SpeakerEntry) error {
	model := entryToModel(entry)
	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", ErrDuplicateEntry, entry.Address)
		}
		return err
	}
	return nil
}

// GetEntry retrieves an entry by ID.
func (a *SQLiteAdapter) GetEntry(ctx context.Context, id string) (*domain.SpeakerEntry, error) {
	var model SpeakerEntryModel
	if err := a.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	e := entryToDomain(model)
	return &e, nil
}

// GetEntryByAddress retrieves the entry configured for address.
func (a *SQLiteAdapter) GetEntryByAddress(ctx context.Context, address string) (*domain.SpeakerEntry, error) {
	var model SpeakerEntryModel
	if err := a.db.WithContext(ctx).First(&model, "address = ?", address).Error; err != nil {
		return nil, translateNotFound(err)
	}
	e := entryToDomain(model)
	return &e, nil
}

// ListEntries returns all entries, oldest first.
func (a *SQLiteAdapter) ListEntries(ctx context.Context) ([]domain.SpeakerEntry, error) {
	var models []SpeakerEntryModel
	if err := a.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	entries := make([]domain.SpeakerEntry, len(models))
	for i, m := range models {
		entries[i] = entryToDomain(m)
	}
	return entries, nil
}

// DeleteEntry removes an entry by ID.
func (a *SQLiteAdapter) DeleteEntry(ctx context.Context, id string) error {
	res := a.db.WithContext(ctx).Delete(&SpeakerEntryModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrEntryNotFound
	}
	return err
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure interface compliance
var (
	_ ports.DeviceStore = (*SQLiteAdapter)(nil)
	_ ports.EntryStore  = (*SQLiteAdapter)(nil)
)
