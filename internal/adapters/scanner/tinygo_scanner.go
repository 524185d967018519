package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/adapters/scanner/adstruct"
	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"tinygo.org/x/bluetooth"
)

// stopGrace bounds how long Scan waits for the adapter to acknowledge StopScan.
const stopGrace = 2 * time.Second

// TinyGoScanner collects advertisements from the host Bluetooth adapter.
type TinyGoScanner struct {
	adapter *bluetooth.Adapter

	enableOnce sync.Once
	enableErr  error

	mu sync.Mutex // one scan window at a time
}

// NewTinyGoScanner uses the platform default adapter.
func NewTinyGoScanner() *TinyGoScanner {
	return &TinyGoScanner{adapter: bluetooth.DefaultAdapter}
}

func (s *TinyGoScanner) Name() string { return "tinygo" }

func (s *TinyGoScanner) enable() error {
	s.enableOnce.Do(func() {
		if err := s.adapter.Enable(); err != nil {
			s.enableErr = fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
		}
	})
	return s.enableErr
}

// Scan listens for timeout and returns one merged report per address.
// On context cancellation it returns what it has seen so far together with ctx.Err().
func (s *TinyGoScanner) Scan(ctx context.Context, timeout time.Duration) ([]domain.RawAdvertisement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enable(); err != nil {
		return nil, err
	}

	col := newCollector()
	done := make(chan error, 1)
	go func() {
		done <- s.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			col.add(fromScanResult(result))
		})
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var cause error
	select {
	case err := <-done:
		if err != nil {
			return col.results(), fmt.Errorf("scan failed: %w", err)
		}
		return col.results(), nil
	case <-timer.C:
	case <-ctx.Done():
		cause = ctx.Err()
	}

	if err := s.adapter.StopScan(); err != nil {
		slog.Warn("Failed to stop BLE scan", "error", err)
	}
	select {
	case err := <-done:
		if err != nil && cause == nil {
			slog.Debug("Scan returned after stop", "error", err)
		}
	case <-time.After(stopGrace):
		slog.Warn("BLE adapter did not acknowledge StopScan", "grace", stopGrace)
	}

	slog.Debug("BLE scan window closed", "devices", col.len(), "timeout", timeout)
	return col.results(), cause
}

// fromScanResult copies one tinygo result into the domain record.
func fromScanResult(result bluetooth.ScanResult) domain.RawAdvertisement {
	return fromPayload(result.Address.String(), result.RSSI, result.AdvertisementPayload)
}

// fromPayload decodes raw AD bytes when the platform exposes them; the parsed
// accessors take precedence. Service UUIDs can only be queried by membership on
// most platforms, so the audio profiles are checked one by one.
func fromPayload(address string, rssi int16, payload bluetooth.AdvertisementPayload) domain.RawAdvertisement {
	r := int(rssi)
	adv := domain.RawAdvertisement{
		Address: domain.NormalizeAddress(address),
		RSSI:    &r,
	}
	if payload == nil {
		return adv
	}

	if raw := payload.Bytes(); len(raw) > 0 {
		if err := adstruct.Decode(raw, &adv); err != nil {
			slog.Debug("Malformed advertisement payload", "address", adv.Address, "error", err)
		}
	}

	if name := payload.LocalName(); name != "" {
		adv.LocalName = name
	}
	for _, short := range domain.AudioProfiles {
		if !payload.HasServiceUUID(bluetooth.New16BitUUID(short)) {
			continue
		}
		if u := domain.ShortUUID(uint32(short)); !slices.Contains(adv.ServiceUUIDs, u) {
			adv.ServiceUUIDs = append(adv.ServiceUUIDs, u)
		}
	}
	for _, m := range payload.ManufacturerData() {
		if adv.ManufacturerData == nil {
			adv.ManufacturerData = make(map[uint16][]byte)
		}
		adv.ManufacturerData[m.CompanyID] = append([]byte(nil), m.Data...)
	}
	return adv
}
