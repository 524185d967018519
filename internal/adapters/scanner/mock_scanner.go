package scanner

import (
	"context"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
	"github.com/lcalzada-xor/bluespeak/internal/mock"
)

// MockScanner serves synthetic advertisements for -mock mode and tests.
type MockScanner struct {
	gen   *mock.DataGenerator
	delay time.Duration
}

// NewMockScanner builds a scenario ("basic", "crowded", "speakers") from seed.
// delay simulates the scan window and is capped by the requested timeout.
func NewMockScanner(scenario string, seed int64, delay time.Duration) *MockScanner {
	gen := mock.NewDataGenerator(seed)
	gen.GenerateScenario(scenario)
	return &MockScanner{gen: gen, delay: delay}
}

func (m *MockScanner) Name() string { return "mock" }

func (m *MockScanner) Scan(ctx context.Context, timeout time.Duration) ([]domain.RawAdvertisement, error) {
	wait := m.delay
	if timeout > 0 && timeout < wait {
		wait = timeout
	}
	if wait > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	m.gen.SimulateActivity()
	return m.gen.Advertisements(), nil
}
