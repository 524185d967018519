package persistence

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
)

const (
	defaultBatchSize = 100
	defaultInterval  = 5 * time.Second
)

// PersistenceManager handles background batch writing of devices to storage.
type PersistenceManager struct {
	storage     ports.DeviceStore
	persistChan chan domain.SeenDevice
	batchSize   int
	interval    time.Duration
	enabled     bool
	dropped     int
	done        chan struct{}
	mu          sync.RWMutex
}

// NewPersistenceManager creates a new manager.
func NewPersistenceManager(storage ports.DeviceStore, bufferSize int) *PersistenceManager {
	return &PersistenceManager{
		storage:     storage,
		persistChan: make(chan domain.SeenDevice, bufferSize),
		batchSize:   defaultBatchSize,
		interval:    defaultInterval,
		enabled:     storage != nil,
		done:        make(chan struct{}),
	}
}

// Persist queues a device for persistence if enabled. It never blocks.
func (p *PersistenceManager) Persist(device domain.SeenDevice) {
	p.mu.RLock()
	enabled := p.enabled
	p.mu.RUnlock()
	if !enabled {
		return
	}
	select {
	case p.persistChan <- device:
	default:
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
	}
}

// OnDeviceAdded queues newly discovered devices.
func (p *PersistenceManager) OnDeviceAdded(device domain.SeenDevice) { p.Persist(device) }

// OnDeviceUpdated queues merged devices.
func (p *PersistenceManager) OnDeviceUpdated(device domain.SeenDevice) { p.Persist(device) }

// IsEnabled returns the current persistence status.
func (p *PersistenceManager) IsEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enabled
}

// SetEnabled toggles the persistence logic.
func (p *PersistenceManager) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled && p.storage != nil
}

// Dropped reports how many devices were discarded because the queue was full.
func (p *PersistenceManager) Dropped() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dropped
}

// Start begins the persistence loop. The final buffer is flushed when ctx is cancelled.
func (p *PersistenceManager) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	buffer := make(map[string]domain.SeenDevice)

	go func() {
		defer close(p.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				p.drain(buffer)
				p.flushBuffer(buffer)
				return
			case dev := <-p.persistChan:
				buffer[dev.Address] = dev
				if len(buffer) >= p.batchSize {
					p.flushBuffer(buffer)
					buffer = make(map[string]domain.SeenDevice)
				}
			case <-ticker.C:
				if len(buffer) > 0 {
					p.flushBuffer(buffer)
					buffer = make(map[string]domain.SeenDevice)
				}
			}
		}
	}()
}

// Done is closed once the loop has performed its shutdown flush.
func (p *PersistenceManager) Done() <-chan struct{} {
	return p.done
}

func (p *PersistenceManager) drain(buffer map[string]domain.SeenDevice) {
	for {
		select {
		case dev := <-p.persistChan:
			buffer[dev.Address] = dev
		default:
			return
		}
	}
}

func (p *PersistenceManager) flushBuffer(buffer map[string]domain.SeenDevice) {
	if len(buffer) == 0 || p.storage == nil {
		return
	}
	devices := make([]domain.SeenDevice, 0, len(buffer))
	for _, d := range buffer {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Address < devices[j].Address })
	if err := p.storage.SaveDevicesBatch(devices); err != nil {
		slog.Error("Failed to batch save devices", "count", len(devices), "error", err)
		return
	}
	slog.Debug("Persisted device batch", "count", len(devices))
}
