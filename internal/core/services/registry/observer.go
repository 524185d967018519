package registry

import (
	"sync"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

// DeviceObserver defines the interface for components interested in device updates.
type DeviceObserver interface {
	OnDeviceAdded(device domain.SeenDevice)
	OnDeviceUpdated(device domain.SeenDevice)
}

// ObserverFunc adapts a plain function to DeviceObserver, called for both adds and updates.
type ObserverFunc func(device domain.SeenDevice)

func (f ObserverFunc) OnDeviceAdded(device domain.SeenDevice)   { f(device) }
func (f ObserverFunc) OnDeviceUpdated(device domain.SeenDevice) { f(device) }

// RegistrySubject manages observers and notifies them of events.
type RegistrySubject struct {
	observers []DeviceObserver
	mu        sync.RWMutex
}

// NewRegistrySubject creates a new subject.
func NewRegistrySubject() *RegistrySubject {
	return &RegistrySubject{
		observers: make([]DeviceObserver, 0),
	}
}

// AddObserver registers a new observer.
func (s *RegistrySubject) AddObserver(observer DeviceObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

// NotifyUpdated calls observers inline; they must not block.
func (s *RegistrySubject) NotifyUpdated(device domain.SeenDevice) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obs := range s.observers {
		obs.OnDeviceUpdated(device)
	}
}

// NotifyAdded notifies all observers of a new device.
func (s *RegistrySubject) NotifyAdded(device domain.SeenDevice) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obs := range s.observers {
		obs.OnDeviceAdded(device)
	}
}
