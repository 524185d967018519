// Package configflow implements the select → name → create wizard that turns a
// discovered device into a configured speaker entry.
package configflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
)

// DefaultTTL is how long an untouched flow survives.
const DefaultTTL = 10 * time.Minute

var (
	ErrFlowNotFound      = errors.New("config flow not found")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrAlreadyConfigured = errors.New("device already configured")
	ErrNoDevicesFound    = errors.New("no unconfigured devices found")
	ErrInvalidName       = errors.New("invalid speaker name")
	ErrWrongStep         = errors.New("operation not valid for the current flow step")
)

// DeviceSource lists devices seen by discovery.
type DeviceSource interface {
	Devices(filter domain.DeviceFilter) []domain.SeenDevice
	Device(address string) (domain.SeenDevice, bool)
}

type flowState struct {
	flow   domain.ConfigFlow
	device domain.SeenDevice
}

// Service keeps flows in memory and writes finished entries to the entry store.
type Service struct {
	devices   DeviceSource
	entries   ports.EntryStore
	publisher ports.EventPublisher
	ttl       time.Duration
	now       func() time.Time

	mu    sync.Mutex
	flows map[string]*flowState
}

// NewService creates the wizard. ttl <= 0 uses DefaultTTL.
func NewService(devices DeviceSource, entries ports.EntryStore, publisher ports.EventPublisher, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		devices:   devices,
		entries:   entries,
		publisher: publisher,
		ttl:       ttl,
		now:       time.Now,
		flows:     make(map[string]*flowState),
	}
}

// IsAudioCapable reports whether a device looks like something that plays audio.
func IsAudioCapable(d domain.SeenDevice) bool {
	return d.DeviceType.IsAudio() || domain.HasAudioService(d.ServiceUUIDs)
}

// Start opens a flow at the device selection step. Configured devices are left
// out; audio-capable ones are listed first.
func (s *Service) Start(ctx context.Context) (domain.ConfigFlow, error) {
	configured, err := s.configuredAddresses(ctx)
	if err != nil {
		return domain.ConfigFlow{}, err
	}

	var options []domain.DeviceOption
	for _, d := range s.devices.Devices(domain.DeviceFilter{}) {
		if _, done := configured[d.Address]; done {
			continue
		}
		options = append(options, domain.DeviceOption{
			Address:      d.Address,
			Label:        fmt.Sprintf("%s (%s)", d.DisplayName, d.Address),
			DeviceType:   d.DeviceType,
			Icon:         d.Icon,
			RSSI:         d.RSSI,
			AudioCapable: IsAudioCapable(d),
		})
	}
	if len(options) == 0 {
		return domain.ConfigFlow{}, ErrNoDevicesFound
	}
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].AudioCapable && !options[j].AudioCapable
	})

	now := s.now()
	flow := domain.ConfigFlow{
		ID:        uuid.NewString(),
		Step:      domain.StepUser,
		Options:   options,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.pruneLocked(now)
	s.flows[flow.ID] = &flowState{flow: flow}
	s.mu.Unlock()

	slog.Debug("Config flow started", "flow_id", flow.ID, "options", len(options))
	return flow, nil
}

// SelectDevice picks the device to configure and moves to the naming step.
func (s *Service) SelectDevice(ctx context.Context, flowID, address string) (domain.ConfigFlow, error) {
	address = domain.NormalizeAddress(address)

	s.mu.Lock()
	st, err := s.getLocked(flowID)
	if err == nil && st.flow.Step != domain.StepUser {
		err = ErrWrongStep
	}
	s.mu.Unlock()
	if err != nil {
		return domain.ConfigFlow{}, err
	}

	device, ok := s.devices.Device(address)
	if !ok {
		return domain.ConfigFlow{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, address)
	}
	if err := s.ensureUnconfigured(ctx, address); err != nil {
		return domain.ConfigFlow{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, err = s.getLocked(flowID)
	if err != nil {
		return domain.ConfigFlow{}, err
	}
	st.device = device
	st.flow.Step = domain.StepName
	st.flow.Address = address
	st.flow.SuggestedName = SuggestedName(device)
	st.flow.UpdatedAt = s.now()
	return st.flow, nil
}

// SuggestedName is the device's own name, or the generic default when the
// name was synthesized from manufacturer and address.
func SuggestedName(d domain.SeenDevice) string {
	if d.NameSource.Resolved() && strings.TrimSpace(d.DisplayName) != "" {
		return d.DisplayName
	}
	return domain.DefaultSpeakerName
}

// SetName validates the name and creates the speaker entry. The finished flow
// is returned at step create_entry and forgotten.
func (s *Service) SetName(ctx context.Context, flowID, name string) (domain.ConfigFlow, error) {
	if !domain.IsValidEntryName(name) {
		return domain.ConfigFlow{}, fmt.Errorf("%w: must be 1-%d printable characters", ErrInvalidName, domain.MaxEntryNameLength)
	}

	s.mu.Lock()
	st, err := s.getLocked(flowID)
	if err == nil && st.flow.Step != domain.StepName {
		err = ErrWrongStep
	}
	var flow domain.ConfigFlow
	var device domain.SeenDevice
	if err == nil {
		flow, device = st.flow, st.device
	}
	s.mu.Unlock()
	if err != nil {
		return domain.ConfigFlow{}, err
	}

	if err := s.ensureUnconfigured(ctx, flow.Address); err != nil {
		return domain.ConfigFlow{}, err
	}

	entry := domain.SpeakerEntry{
		ID:           uuid.NewString(),
		Address:      flow.Address,
		Name:         strings.TrimSpace(name),
		DeviceType:   device.DeviceType,
		Manufacturer: device.ManufacturerName,
		CreatedAt:    s.now(),
	}
	if err := s.entries.SaveEntry(ctx, entry); err != nil {
		return domain.ConfigFlow{}, fmt.Errorf("failed to save entry: %w", err)
	}

	s.mu.Lock()
	delete(s.flows, flowID)
	s.mu.Unlock()

	flow.Step = domain.StepCreateEntry
	flow.Entry = &entry
	flow.UpdatedAt = entry.CreatedAt

	slog.Info("Speaker entry created", "id", entry.ID, "address", entry.Address, "name", entry.Name)
	s.publish(ctx, domain.EventEntryCreated, entry)
	return flow, nil
}

// Get returns a live flow.
func (s *Service) Get(flowID string) (domain.ConfigFlow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.getLocked(flowID)
	if err != nil {
		return domain.ConfigFlow{}, err
	}
	return st.flow, nil
}

// Abort discards a flow.
func (s *Service) Abort(flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.getLocked(flowID); err != nil {
		return err
	}
	delete(s.flows, flowID)
	return nil
}

// Active returns the number of live flows.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.now())
	return len(s.flows)
}

// Entries lists configured speakers.
func (s *Service) Entries(ctx context.Context) ([]domain.SpeakerEntry, error) {
	return s.entries.ListEntries(ctx)
}

// RemoveEntry deletes a configured speaker and returns what was removed.
func (s *Service) RemoveEntry(ctx context.Context, id string) (domain.SpeakerEntry, error) {
	entry, err := s.entries.GetEntry(ctx, id)
	if err != nil {
		return domain.SpeakerEntry{}, err
	}
	if err := s.entries.DeleteEntry(ctx, id); err != nil {
		return domain.SpeakerEntry{}, err
	}
	slog.Info("Speaker entry removed", "id", id, "address", entry.Address)
	s.publish(ctx, domain.EventEntryRemoved, *entry)
	return *entry, nil
}

func (s *Service) getLocked(flowID string) (*flowState, error) {
	st, ok := s.flows[flowID]
	if !ok {
		return nil, ErrFlowNotFound
	}
	if s.now().Sub(st.flow.UpdatedAt) > s.ttl {
		delete(s.flows, flowID)
		return nil, ErrFlowNotFound
	}
	return st, nil
}

func (s *Service) pruneLocked(now time.Time) {
	for id, st := range s.flows {
		if now.Sub(st.flow.UpdatedAt) > s.ttl {
			delete(s.flows, id)
		}
	}
}

func (s *Service) ensureUnconfigured(ctx context.Context, address string) error {
	_, err := s.entries.GetEntryByAddress(ctx, address)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrAlreadyConfigured, address)
	case errors.Is(err, domain.ErrEntryNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check existing entries: %w", err)
	}
}

func (s *Service) configuredAddresses(ctx context.Context) (map[string]struct{}, error) {
	entries, err := s.entries.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	out := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		out[e.Address] = struct{}{}
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, eventType string, payload interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, domain.NewEvent(eventType, payload))
	}
}
