// Package discovery drives scan passes through the normalize/classify pipeline
// and keeps the device registry current.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/classifier"
	"github.com/lcalzada-xor/bluespeak/internal/core/services/normalizer"
	"github.com/lcalzada-xor/bluespeak/internal/telemetry"
)

var (
	ErrScanInProgress        = errors.New("a scan is already in progress")
	ErrScanAttemptsExhausted = errors.New("scan attempts exhausted")
	ErrNoScanner             = errors.New("no scanner configured")
)

// Options tunes the scan loop.
type Options struct {
	ScanInterval    time.Duration
	ScanTimeout     time.Duration
	MaxScanAttempts int
	DeviceTTL       time.Duration // zero disables pruning
	Workers         int
}

// DefaultOptions mirrors the integration defaults: 15s interval, 5 attempts.
func DefaultOptions() Options {
	return Options{
		ScanInterval:    15 * time.Second,
		ScanTimeout:     10 * time.Second,
		MaxScanAttempts: 5,
		Workers:         runtime.NumCPU(),
	}
}

// Service owns scan passes and agent ingestion.
type Service struct {
	scanner       ports.Scanner
	registry      ports.DeviceRegistry
	manufacturers ports.RegistryProvider
	publisher     ports.EventPublisher
	opts          Options
	tracer        trace.Tracer

	scanMu sync.Mutex

	mu          sync.RWMutex
	lastSummary *domain.ScanSummary
}

// NewService wires the discovery service. scanner may be nil when only agents report.
func NewService(scanner ports.Scanner, registry ports.DeviceRegistry, manufacturers ports.RegistryProvider, publisher ports.EventPublisher, opts Options) *Service {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxScanAttempts < 1 {
		opts.MaxScanAttempts = 1
	}
	return &Service{
		scanner:       scanner,
		registry:      registry,
		manufacturers: manufacturers,
		publisher:     publisher,
		opts:          opts,
		tracer:        otel.Tracer("github.com/lcalzada-xor/bluespeak/discovery"),
	}
}

func (s *Service) snapshot() ports.ManufacturerRegistry {
	if s.manufacturers == nil {
		return nil
	}
	return s.manufacturers.Snapshot()
}

func (s *Service) publish(ctx context.Context, eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, domain.NewEvent(eventType, payload))
}

// Process normalizes and classifies a batch in parallel. The result has the
// same length and order as raws; one registry snapshot serves the whole batch.
func (s *Service) Process(ctx context.Context, raws []domain.RawAdvertisement) ([]domain.ClassifiedDevice, error) {
	out := make([]domain.ClassifiedDevice, len(raws))
	if len(raws) == 0 {
		return out, nil
	}
	reg := s.snapshot()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i := range raws {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = classifier.Classify(normalizer.Normalize(raws[i], reg))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Ingest runs a batch reported by source through the pipeline into the registry.
// A discovered event is published for every address the registry had not seen.
func (s *Service) Ingest(ctx context.Context, source string, raws []domain.RawAdvertisement) (domain.ScanSummary, error) {
	started := time.Now()
	summary := domain.ScanSummary{Source: source, StartedAt: started}

	telemetry.AdvertisementsReceived.WithLabelValues(source).Add(float64(len(raws)))

	devices, err := s.Process(ctx, raws)
	if err != nil {
		return summary, err
	}

	seenAt := time.Now()
	for _, d := range devices {
		if d.Address == "" {
			slog.Debug("Skipping advertisement without address", "source", source)
			continue
		}
		telemetry.DevicesClassified.WithLabelValues(string(d.DeviceType), string(d.MatchedBy)).Inc()

		seen, isNew := s.registry.ProcessDevice(d, seenAt, source)
		summary.Seen++
		if isNew {
			summary.New++
			slog.Info("Device discovered", "address", seen.Address, "name", seen.DisplayName, "type", seen.DeviceType, "source", source)
			s.publish(ctx, domain.EventDeviceDiscovered, seen)
		}
	}
	telemetry.DevicesActive.Set(float64(s.registry.GetActiveCount()))

	summary.FinishedAt = time.Now()
	summary.Duration = summary.FinishedAt.Sub(started)
	return summary, nil
}

// Scan performs one scan pass. Only one pass runs at a time; a concurrent
// call returns ErrScanInProgress. A timeout <= 0 uses the configured one.
func (s *Service) Scan(ctx context.Context, timeout time.Duration) (domain.ScanSummary, error) {
	if s.scanner == nil {
		return domain.ScanSummary{}, ErrNoScanner
	}
	if !s.scanMu.TryLock() {
		return domain.ScanSummary{}, ErrScanInProgress
	}
	defer s.scanMu.Unlock()

	if timeout <= 0 {
		timeout = s.opts.ScanTimeout
	}
	name := s.scanner.Name()

	ctx, span := s.tracer.Start(ctx, "discovery.Scan", trace.WithAttributes(
		attribute.String("scanner", name),
		attribute.Int64("timeout_ms", timeout.Milliseconds()),
	))
	defer span.End()

	started := time.Now()
	s.publish(ctx, domain.EventScanStarted, map[string]interface{}{"source": name, "timeout": timeout.String()})

	raws, scanErr := s.scanner.Scan(ctx, timeout)
	telemetry.ScanDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())

	// Partial results from an interrupted scan are still worth keeping.
	summary, err := s.Ingest(ctx, name, raws)
	summary.StartedAt = started
	summary.FinishedAt = time.Now()
	summary.Duration = summary.FinishedAt.Sub(started)
	if scanErr == nil {
		scanErr = err
	}

	span.SetAttributes(attribute.Int("devices.seen", summary.Seen), attribute.Int("devices.new", summary.New))
	if scanErr != nil {
		span.RecordError(scanErr)
		span.SetStatus(codes.Error, scanErr.Error())
		telemetry.ScansTotal.WithLabelValues(name, "error").Inc()
		slog.Warn("Scan failed", "scanner", name, "seen", summary.Seen, "error", scanErr)
		s.publish(ctx, domain.EventScanFailed, map[string]interface{}{"source": name, "error": scanErr.Error()})
		return summary, fmt.Errorf("scan via %s: %w", name, scanErr)
	}

	telemetry.ScansTotal.WithLabelValues(name, "ok").Inc()
	slog.Debug("Scan completed", "scanner", name, "seen", summary.Seen, "new", summary.New, "duration", summary.Duration)
	s.publish(ctx, domain.EventScanCompleted, summary)

	s.mu.Lock()
	s.lastSummary = &summary
	s.mu.Unlock()
	return summary, nil
}

// Run scans every ScanInterval until ctx is cancelled. The loop stops with an
// error once MaxScanAttempts consecutive scans have failed, and returns nil
// when the scanner reports it is exhausted.
func (s *Service) Run(ctx context.Context) error {
	if s.scanner == nil {
		return ErrNoScanner
	}
	slog.Info("Discovery loop started", "scanner", s.scanner.Name(), "interval", s.opts.ScanInterval, "timeout", s.opts.ScanTimeout)

	failures := 0
	for {
		_, err := s.Scan(ctx, s.opts.ScanTimeout)
		if ctx.Err() != nil {
			return nil
		}
		switch {
		case err == nil:
			failures = 0
		case errors.Is(err, ErrScanInProgress):
		case errors.Is(err, ports.ErrScannerExhausted):
			slog.Info("Scanner exhausted, discovery loop stopped", "scanner", s.scanner.Name())
			return nil
		default:
			failures++
			if failures >= s.opts.MaxScanAttempts {
				return fmt.Errorf("%w after %d consecutive failures: %v", ErrScanAttemptsExhausted, failures, err)
			}
			slog.Warn("Retrying scan", "attempt", failures, "max", s.opts.MaxScanAttempts, "in", s.opts.ScanInterval)
		}

		if s.opts.DeviceTTL > 0 {
			if n := s.registry.PruneOldDevices(s.opts.DeviceTTL); n > 0 {
				slog.Debug("Pruned stale devices", "count", n)
				telemetry.DevicesActive.Set(float64(s.registry.GetActiveCount()))
			}
		}

		timer := time.NewTimer(s.opts.ScanInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// RefreshRegistry rebuilds the manufacturer registry snapshot.
func (s *Service) RefreshRegistry(ctx context.Context) (int, error) {
	if s.manufacturers == nil {
		return 0, errors.New("no manufacturer registry configured")
	}
	n, err := s.manufacturers.Reload(ctx)
	if err != nil {
		return 0, err
	}
	telemetry.RegistryCompanies.Set(float64(n))
	return n, nil
}

// LookupManufacturer resolves a company ID against the active snapshot.
func (s *Service) LookupManufacturer(id uint16) (string, bool) {
	reg := s.snapshot()
	if reg == nil {
		return "", false
	}
	return reg.LookupCompany(id)
}

// Devices lists registry devices passing filter, strongest signal first.
func (s *Service) Devices(filter domain.DeviceFilter) []domain.SeenDevice {
	all := s.registry.GetAllDevices()
	out := make([]domain.SeenDevice, 0, len(all))
	for _, d := range all {
		if filter.Matches(d) {
			out = append(out, d)
		}
	}
	return out
}

// Device returns one tracked device.
func (s *Service) Device(address string) (domain.SeenDevice, bool) {
	return s.registry.GetDevice(address)
}

// DeviceCount returns the number of tracked devices.
func (s *Service) DeviceCount() int {
	return s.registry.GetActiveCount()
}

// LastSummary returns the most recent successful scan summary.
func (s *Service) LastSummary() (domain.ScanSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSummary == nil {
		return domain.ScanSummary{}, false
	}
	return *s.lastSummary, true
}

// Reset forgets every tracked device.
func (s *Service) Reset() {
	s.registry.Clear()
	s.mu.Lock()
	s.lastSummary = nil
	s.mu.Unlock()
	telemetry.DevicesActive.Set(0)
	slog.Info("Device registry cleared")
}
