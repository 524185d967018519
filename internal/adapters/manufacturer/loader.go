package manufacturer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/core/ports"
)

// Loader owns the lifecycle of Registry snapshots. Refresh builds a new snapshot
// from the configured source and swaps it in atomically; readers holding the
// previous snapshot keep a consistent view.
type Loader struct {
	source CompanyRepository
	cache  *JSONCacheRepository

	current   atomic.Pointer[Registry]
	refreshMu sync.Mutex
	loadedAt  atomic.Int64
}

// NewLoader creates a loader serving an empty registry until the first Refresh.
// cache may be nil; when set, each successful refresh rewrites it.
func NewLoader(source CompanyRepository, cache *JSONCacheRepository) *Loader {
	l := &Loader{source: source, cache: cache}
	l.current.Store(EmptyRegistry())
	return l
}

// Current returns the active snapshot. It never returns nil.
func (l *Loader) Current() *Registry {
	return l.current.Load()
}

// LastRefresh returns when the active snapshot was built, or the zero time.
func (l *Loader) LastRefresh() time.Time {
	ns := l.loadedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Refresh rebuilds the snapshot. On error the previous snapshot stays active.
func (l *Loader) Refresh(ctx context.Context) (*Registry, error) {
	l.refreshMu.Lock()
	defer l.refreshMu.Unlock()

	companies, err := l.source.ListCompanies(ctx)
	if err != nil {
		return l.Current(), fmt.Errorf("failed to list companies: %w", err)
	}

	appearances := copyTable(CommonAppearances)
	if src, ok := l.source.(AppearanceSource); ok {
		extra, err := src.ListAppearances(ctx)
		if err != nil {
			return l.Current(), fmt.Errorf("failed to list appearances: %w", err)
		}
		for code, name := range extra {
			appearances[code] = name
		}
	}

	reg := NewRegistry(companies, appearances)
	l.current.Store(reg)
	l.loadedAt.Store(time.Now().UnixNano())

	slog.Info("Manufacturer registry refreshed", "companies", reg.Len(), "appearances", reg.AppearanceCount())

	if l.cache != nil && reg.Len() > 0 {
		if err := l.cache.Save(companies); err != nil {
			slog.Warn("Failed to write manufacturer cache", "path", l.cache.Path(), "error", err)
		}
	}
	return reg, nil
}

// Snapshot implements ports.RegistryProvider.
func (l *Loader) Snapshot() ports.ManufacturerRegistry {
	return l.Current()
}

// Reload implements ports.RegistryProvider.
func (l *Loader) Reload(ctx context.Context) (int, error) {
	reg, err := l.Refresh(ctx)
	if err != nil {
		return 0, err
	}
	return reg.Len(), nil
}

// Lookup resolves a single company ID through the source, bypassing the snapshot.
func (l *Loader) Lookup(ctx context.Context, id uint16) (string, error) {
	return l.source.LookupCompany(ctx, id)
}

// Close closes the underlying source.
func (l *Loader) Close() error {
	return l.source.Close()
}
