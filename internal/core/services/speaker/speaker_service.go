// Package speaker tracks the link state of configured speakers and drives
// pair/connect/disconnect through a LinkDriver.
package speaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
	"github.com/lcalzada-xor/bluespeak/internal/telemetry"
)

// DefaultConnectionTimeout bounds every driver call.
const DefaultConnectionTimeout = 30 * time.Second

var (
	ErrInvalidTransition   = errors.New("invalid link state transition")
	ErrOperationInProgress = errors.New("another operation is in progress for this speaker")
	ErrInvalidAddress      = errors.New("invalid speaker address")
)

type speakerState struct {
	status domain.SpeakerStatus
	busy   bool
	wanted bool // user asked for the link to be up
}

// Service is the speaker link state machine.
type Service struct {
	driver    ports.LinkDriver
	publisher ports.EventPublisher
	timeout   time.Duration
	now       func() time.Time

	mu       sync.Mutex
	speakers map[string]*speakerState
}

// NewService creates the service. A nil driver uses SimulatedLinkDriver.
func NewService(driver ports.LinkDriver, publisher ports.EventPublisher, timeout time.Duration) *Service {
	if driver == nil {
		driver = NewSimulatedLinkDriver(0)
	}
	if timeout <= 0 {
		timeout = DefaultConnectionTimeout
	}
	return &Service{
		driver:    driver,
		publisher: publisher,
		timeout:   timeout,
		now:       time.Now,
		speakers:  make(map[string]*speakerState),
	}
}

// Status returns the status of address; unknown addresses are disconnected.
func (s *Service) Status(address string) domain.SpeakerStatus {
	address = domain.NormalizeAddress(address)
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.speakers[address]; ok {
		return st.status
	}
	return domain.SpeakerStatus{Address: address, State: domain.LinkDisconnected, Playback: domain.PlaybackOff}
}

// List returns every tracked speaker ordered by address.
func (s *Service) List() []domain.SpeakerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SpeakerStatus, 0, len(s.speakers))
	for _, st := range s.speakers {
		out = append(out, st.status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Forget drops one speaker, e.g. when its entry is removed.
func (s *Service) Forget(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.speakers, domain.NormalizeAddress(address))
}

// Reset drops every tracked speaker status.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speakers = make(map[string]*speakerState)
	slog.Info("Speaker states reset")
}

// begin validates the transition and marks the speaker busy. from lists the
// accepted current states.
func (s *Service) begin(address string, op string, from ...domain.LinkState) (*speakerState, error) {
	if address == "" {
		return nil, ErrInvalidAddress
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.speakers[address]
	if !ok {
		st = &speakerState{status: domain.SpeakerStatus{
			Address:  address,
			State:    domain.LinkDisconnected,
			Playback: domain.PlaybackOff,
		}}
		s.speakers[address] = st
	}
	if st.busy {
		return nil, ErrOperationInProgress
	}
	for _, f := range from {
		if st.status.State == f {
			st.busy = true
			return st, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, op, st.status.State)
}

func (s *Service) set(st *speakerState, state domain.LinkState, mutate func(*domain.SpeakerStatus)) domain.SpeakerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.status.State = state
	if mutate != nil {
		mutate(&st.status)
	}
	st.status.UpdatedAt = s.now()
	return st.status
}

func (s *Service) finish(st *speakerState, state domain.LinkState, opErr error, mutate func(*domain.SpeakerStatus)) domain.SpeakerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.busy = false
	st.status.State = state
	if opErr != nil {
		st.status.LastError = opErr.Error()
	} else {
		st.status.LastError = ""
	}
	if mutate != nil {
		mutate(&st.status)
	}
	st.status.UpdatedAt = s.now()
	return st.status
}

func (s *Service) call(ctx context.Context, fn func(context.Context, string) error, address string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx, address)
}

func (s *Service) publish(ctx context.Context, eventType string, status domain.SpeakerStatus) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, domain.NewEvent(eventType, status))
	}
}

func record(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	telemetry.SpeakerTransitions.WithLabelValues(op, result).Inc()
}

// Pair pairs and connects a speaker: disconnected|failed → pairing → connected|failed.
func (s *Service) Pair(ctx context.Context, address string) (domain.SpeakerStatus, error) {
	address = domain.NormalizeAddress(address)
	st, err := s.begin(address, "pair", domain.LinkDisconnected, domain.LinkFailed)
	if err != nil {
		return s.Status(address), err
	}
	s.setWanted(st, true)
	s.set(st, domain.LinkPairing, func(ss *domain.SpeakerStatus) { ss.LastError = "" })
	slog.Info("Pairing speaker", "address", address)

	err = s.call(ctx, s.driver.Pair, address)
	if err == nil {
		err = s.call(ctx, s.driver.Connect, address)
	}
	record("pair", err)
	if err != nil {
		status := s.finish(st, domain.LinkFailed, err, nil)
		slog.Warn("Pairing failed", "address", address, "error", err)
		return status, fmt.Errorf("pair %s: %w", address, err)
	}

	status := s.finish(st, domain.LinkConnected, nil, func(ss *domain.SpeakerStatus) {
		ss.Paired = true
		ss.Playback = domain.PlaybackIdle
	})
	s.publish(ctx, domain.EventDeviceConnected, status)
	return status, nil
}

// Connect brings the link up: disconnected|failed → connected|failed. Connected is a no-op.
func (s *Service) Connect(ctx context.Context, address string) (domain.SpeakerStatus, error) {
	address = domain.NormalizeAddress(address)
	if cur := s.Status(address); cur.State == domain.LinkConnected {
		return cur, nil
	}
	st, err := s.begin(address, "connect", domain.LinkDisconnected, domain.LinkFailed)
	if err != nil {
		if cur := s.Status(address); cur.State == domain.LinkConnected {
			return cur, nil
		}
		return s.Status(address), err
	}
	s.setWanted(st, true)

	err = s.call(ctx, s.driver.Connect, address)
	record("connect", err)
	if err != nil {
		status := s.finish(st, domain.LinkFailed, err, nil)
		slog.Warn("Connect failed", "address", address, "error", err)
		return status, fmt.Errorf("connect %s: %w", address, err)
	}

	status := s.finish(st, domain.LinkConnected, nil, func(ss *domain.SpeakerStatus) {
		if ss.Playback == domain.PlaybackOff {
			ss.Playback = domain.PlaybackIdle
		}
	})
	slog.Info("Speaker connected", "address", address)
	s.publish(ctx, domain.EventDeviceConnected, status)
	return status, nil
}

// Disconnect tears the link down: connected → disconnecting → disconnected. Disconnected is a no-op.
func (s *Service) Disconnect(ctx context.Context, address string) (domain.SpeakerStatus, error) {
	address = domain.NormalizeAddress(address)
	if cur := s.Status(address); cur.State == domain.LinkDisconnected {
		return cur, nil
	}
	st, err := s.begin(address, "disconnect", domain.LinkConnected)
	if err != nil {
		return s.Status(address), err
	}
	s.setWanted(st, false)
	s.set(st, domain.LinkDisconnecting, nil)

	err = s.call(ctx, s.driver.Disconnect, address)
	record("disconnect", err)
	if err != nil {
		status := s.finish(st, domain.LinkFailed, err, nil)
		slog.Warn("Disconnect failed", "address", address, "error", err)
		return status, fmt.Errorf("disconnect %s: %w", address, err)
	}

	status := s.finish(st, domain.LinkDisconnected, nil, func(ss *domain.SpeakerStatus) {
		ss.Playback = domain.PlaybackOff
	})
	slog.Info("Speaker disconnected", "address", address)
	s.publish(ctx, domain.EventDeviceDisconnected, status)
	return status, nil
}

// Reconnect disconnects when needed and connects again.
func (s *Service) Reconnect(ctx context.Context, address string) (domain.SpeakerStatus, error) {
	if s.Status(address).State == domain.LinkConnected {
		if status, err := s.Disconnect(ctx, address); err != nil {
			return status, err
		}
	}
	return s.Connect(ctx, address)
}

// TurnOn connects the speaker and marks it playing.
func (s *Service) TurnOn(ctx context.Context, address string) (domain.SpeakerStatus, error) {
	status, err := s.Connect(ctx, address)
	if err != nil {
		return status, err
	}
	return s.setPlayback(status.Address, domain.PlaybackPlaying), nil
}

// TurnOff disconnects the speaker; playback becomes off.
func (s *Service) TurnOff(ctx context.Context, address string) (domain.SpeakerStatus, error) {
	return s.Disconnect(ctx, address)
}

func (s *Service) setPlayback(address string, p domain.Playback) domain.SpeakerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.speakers[address]
	if !ok {
		return domain.SpeakerStatus{Address: address, State: domain.LinkDisconnected, Playback: domain.PlaybackOff}
	}
	st.status.Playback = p
	st.status.UpdatedAt = s.now()
	return st.status
}

func (s *Service) setWanted(st *speakerState, wanted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.wanted = wanted
}

// failedWanted lists speakers the user wants up whose last operation failed.
func (s *Service) failedWanted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for addr, st := range s.speakers {
		if st.wanted && !st.busy && st.status.State == domain.LinkFailed {
			out = append(out, addr)
		}
	}
	sort.Strings(out)
	return out
}

// MaintainConnections retries failed links the user asked for every interval until ctx ends.
func (s *Service) MaintainConnections(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, addr := range s.failedWanted() {
				if _, err := s.Connect(ctx, addr); err != nil {
					slog.Debug("Reconnect attempt failed", "address", addr, "error", err)
				}
			}
		}
	}
}
