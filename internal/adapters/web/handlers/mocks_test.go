package handlers

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

// MockDiscoveryService implements ports.DiscoveryService
type MockDiscoveryService struct {
	mock.Mock
}

func (m *MockDiscoveryService) Scan(ctx context.Context, timeout time.Duration) (domain.ScanSummary, error) {
	args := m.Called(timeout)
	return args.Get(0).(domain.ScanSummary), args.Error(1)
}

func (m *MockDiscoveryService) LastSummary() (domain.ScanSummary, bool) {
	args := m.Called()
	return args.Get(0).(domain.ScanSummary), args.Bool(1)
}

func (m *MockDiscoveryService) Devices(filter domain.DeviceFilter) []domain.SeenDevice {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.SeenDevice)
}

func (m *MockDiscoveryService) Device(address string) (domain.SeenDevice, bool) {
	args := m.Called(address)
	return args.Get(0).(domain.SeenDevice), args.Bool(1)
}

func (m *MockDiscoveryService) DeviceCount() int {
	return m.Called().Int(0)
}

func (m *MockDiscoveryService) LookupManufacturer(id uint16) (string, bool) {
	args := m.Called(id)
	return args.String(0), args.Bool(1)
}

func (m *MockDiscoveryService) RefreshRegistry(ctx context.Context) (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockDiscoveryService) Reset() {
	m.Called()
}

// MockSpeakerService implements ports.SpeakerService
type MockSpeakerService struct {
	mock.Mock
}

func (m *MockSpeakerService) Status(address string) domain.SpeakerStatus {
	return m.Called(address).Get(0).(domain.SpeakerStatus)
}

func (m *MockSpeakerService) List() []domain.SpeakerStatus {
	return m.Called().Get(0).([]domain.SpeakerStatus)
}

func (m *MockSpeakerService) op(name, address string) (domain.SpeakerStatus, error) {
	args := m.Called(name, address)
	return args.Get(0).(domain.SpeakerStatus), args.Error(1)
}

func (m *MockSpeakerService) Pair(_ context.Context, address string) (domain.SpeakerStatus, error) {
	return m.op("pair", address)
}

func (m *MockSpeakerService) Connect(_ context.Context, address string) (domain.SpeakerStatus, error) {
	return m.op("connect", address)
}

func (m *MockSpeakerService) Disconnect(_ context.Context, address string) (domain.SpeakerStatus, error) {
	return m.op("disconnect", address)
}

func (m *MockSpeakerService) Reconnect(_ context.Context, address string) (domain.SpeakerStatus, error) {
	return m.op("reconnect", address)
}

func (m *MockSpeakerService) TurnOn(_ context.Context, address string) (domain.SpeakerStatus, error) {
	return m.op("turn_on", address)
}

func (m *MockSpeakerService) TurnOff(_ context.Context, address string) (domain.SpeakerStatus, error) {
	return m.op("turn_off", address)
}

func (m *MockSpeakerService) Forget(address string) { m.Called(address) }

func (m *MockSpeakerService) Reset() { m.Called() }

// MockFlowService implements ports.ConfigFlowService
type MockFlowService struct {
	mock.Mock
}

func (m *MockFlowService) Start(ctx context.Context) (domain.ConfigFlow, error) {
	args := m.Called()
	return args.Get(0).(domain.ConfigFlow), args.Error(1)
}

func (m *MockFlowService) SelectDevice(ctx context.Context, flowID, address string) (domain.ConfigFlow, error) {
	args := m.Called(flowID, address)
	return args.Get(0).(domain.ConfigFlow), args.Error(1)
}

func (m *MockFlowService) SetName(ctx context.Context, flowID, name string) (domain.ConfigFlow, error) {
	args := m.Called(flowID, name)
	return args.Get(0).(domain.ConfigFlow), args.Error(1)
}

func (m *MockFlowService) Get(flowID string) (domain.ConfigFlow, error) {
	args := m.Called(flowID)
	return args.Get(0).(domain.ConfigFlow), args.Error(1)
}

func (m *MockFlowService) Abort(flowID string) error {
	return m.Called(flowID).Error(0)
}

func (m *MockFlowService) Entries(ctx context.Context) ([]domain.SpeakerEntry, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SpeakerEntry), args.Error(1)
}

func (m *MockFlowService) RemoveEntry(ctx context.Context, id string) (domain.SpeakerEntry, error) {
	args := m.Called(id)
	return args.Get(0).(domain.SpeakerEntry), args.Error(1)
}

// MockExporter implements ports.InventoryExporter
type MockExporter struct {
	mock.Mock
}

func (m *MockExporter) ExportInventory(report *domain.InventoryReport) ([]byte, error) {
	args := m.Called(report)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
