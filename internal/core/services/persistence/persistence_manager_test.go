package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockStorage implements ports.DeviceStore for testing
type MockStorage struct {
	SavedDevices []domain.SeenDevice
	Batches      int
	Err          error
	mu           sync.Mutex
}

func (m *MockStorage) SaveDevicesBatch(devices []domain.SeenDevice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Batches++
	m.SavedDevices = append(m.SavedDevices, devices...)
	return nil
}

func (m *MockStorage) GetDevice(address string) (*domain.SeenDevice, error) { return nil, nil }
func (m *MockStorage) GetAllDevices() ([]domain.SeenDevice, error)           { return nil, nil }
func (m *MockStorage) Close() error                                          { return nil }

func (m *MockStorage) saved() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SavedDevices)
}

func device(addr string) domain.SeenDevice {
	return domain.SeenDevice{ClassifiedDevice: domain.ClassifiedDevice{
		DeviceDescriptor: domain.DeviceDescriptor{Address: addr},
	}}
}

func TestPersistenceManager_Persist_Batching(t *testing.T) {
	mockStore := &MockStorage{}
	pm := NewPersistenceManager(mockStore, 10)
	pm.batchSize = 5
	pm.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pm.Start(ctx)

	for i := 0; i < 4; i++ {
		pm.Persist(device(fmt.Sprintf("00:00:00:00:00:0%d", i)))
	}
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, mockStore.saved())

	pm.Persist(device("00:00:00:00:00:05"))
	assert.Eventually(t, func() bool { return mockStore.saved() == 5 }, time.Second, 10*time.Millisecond)
}

func TestPersistenceManager_Persist_Timer(t *testing.T) {
	mockStore := &MockStorage{}
	pm := NewPersistenceManager(mockStore, 10)
	pm.interval = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pm.Start(ctx)

	pm.OnDeviceAdded(device("AA:BB:CC:DD:EE:FF"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, mockStore.saved(), "should wait for timer")

	assert.Eventually(t, func() bool { return mockStore.saved() == 1 }, time.Second, 20*time.Millisecond)
}

func TestPersistenceManager_DedupesWithinBatch(t *testing.T) {
	mockStore := &MockStorage{}
	pm := NewPersistenceManager(mockStore, 10)
	pm.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	pm.Start(ctx)

	pm.OnDeviceAdded(device("AA"))
	pm.OnDeviceUpdated(device("AA"))
	pm.OnDeviceUpdated(device("BB"))
	cancel()
	<-pm.Done()

	assert.Equal(t, 2, mockStore.saved())
	assert.Equal(t, 1, mockStore.Batches)
}

func TestPersistenceManager_FlushOnShutdown(t *testing.T) {
	mockStore := &MockStorage{}
	pm := NewPersistenceManager(mockStore, 10)
	pm.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	pm.Start(ctx)
	pm.Persist(device("AA"))
	cancel()

	select {
	case <-pm.Done():
	case <-time.After(time.Second):
		t.Fatal("persistence loop did not stop")
	}
	assert.Equal(t, 1, mockStore.saved())
}

func TestPersistenceManager_Disabled(t *testing.T) {
	mockStore := &MockStorage{}
	pm := NewPersistenceManager(mockStore, 10)
	pm.SetEnabled(false)
	assert.False(t, pm.IsEnabled())

	pm.Persist(device("AA"))
	assert.Len(t, pm.persistChan, 0)

	nilStore := NewPersistenceManager(nil, 1)
	nilStore.SetEnabled(true)
	assert.False(t, nilStore.IsEnabled(), "cannot enable without a store")
}

func TestPersistenceManager_QueueFullDrops(t *testing.T) {
	pm := NewPersistenceManager(&MockStorage{}, 1)
	pm.Persist(device("AA"))
	pm.Persist(device("BB"))
	assert.Equal(t, 1, pm.Dropped())
}

func TestPersistenceManager_StoreErrorIsNotFatal(t *testing.T) {
	mockStore := &MockStorage{Err: errors.New("disk full")}
	pm := NewPersistenceManager(mockStore, 10)

	ctx, cancel := context.WithCancel(context.Background())
	pm.Start(ctx)
	pm.Persist(device("AA"))
	cancel()
	<-pm.Done()
	require.Equal(t, 0, mockStore.saved())
}
