package manufacturer

import (
	"context"
	"errors"
	"time"
)

// CompanyRepository looks up Bluetooth SIG company identifiers.
type CompanyRepository interface {
	// LookupCompany returns the registered name for id or ErrCompanyNotFound.
	LookupCompany(ctx context.Context, id uint16) (string, error)

	// ListCompanies returns every known id → name pair.
	ListCompanies(ctx context.Context) (map[uint16]string, error)

	// Close releases any resources held by the repository
	Close() error
}

// AppearanceSource lists GAP appearance names. Only some repositories carry them.
type AppearanceSource interface {
	ListAppearances(ctx context.Context) (map[uint16]string, error)
}

// CompanyWriter defines the interface for writing registry data
type CompanyWriter interface {
	InsertCompany(ctx context.Context, entry CompanyEntry) error
	BulkInsertCompanies(ctx context.Context, entries []CompanyEntry) error
	BulkInsertAppearances(ctx context.Context, entries []AppearanceEntry) error
}

// CompanyEntry is one row of the SIG company identifier list.
type CompanyEntry struct {
	ID          uint16
	Name        string
	LastUpdated time.Time
}

// AppearanceEntry is one GAP appearance value. Category-level entries have Subcategory 0.
type AppearanceEntry struct {
	Code        uint16
	Category    string
	Subcategory string
}

// Name is the display name of the appearance, e.g. "Audio Sink: Soundbar".
func (a AppearanceEntry) Name() string {
	if a.Subcategory == "" {
		return a.Category
	}
	return a.Category + ": " + a.Subcategory
}

// RepositoryStats contains statistics about a company repository
type RepositoryStats struct {
	TotalCompanies   int
	TotalAppearances int
	CacheHits        int64
	CacheMisses      int64
	LastUpdated      string
}

// CompositeCompanyRepository implements a chain-of-responsibility pattern
// for company lookups, trying multiple repositories in order
type CompositeCompanyRepository struct {
	repositories []CompanyRepository
}

// NewCompositeCompanyRepository creates a repository that tries each of repos in order
func NewCompositeCompanyRepository(repos ...CompanyRepository) *CompositeCompanyRepository {
	return &CompositeCompanyRepository{
		repositories: repos,
	}
}

// LookupCompany tries each repository in order until one returns a result
func (c *CompositeCompanyRepository) LookupCompany(ctx context.Context, id uint16) (string, error) {
	var lastErr error
	for _, repo := range c.repositories {
		name, err := repo.LookupCompany(ctx, id)
		if err == nil && name != "" {
			return name, nil
		}
		if err != nil && !errors.Is(err, ErrCompanyNotFound) {
			lastErr = err
		}
	}

	if lastErr != nil {
		return "", lastErr
	}
	return "", ErrCompanyNotFound
}

// ListCompanies merges every repository; earlier repositories win on conflicts.
// A failing repository is skipped as long as at least one other succeeds.
func (c *CompositeCompanyRepository) ListCompanies(ctx context.Context) (map[uint16]string, error) {
	merged := make(map[uint16]string)
	var lastErr error
	succeeded := 0

	for i := len(c.repositories) - 1; i >= 0; i-- {
		companies, err := c.repositories[i].ListCompanies(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		succeeded++
		for id, name := range companies {
			if name != "" {
				merged[id] = name
			}
		}
	}

	if succeeded == 0 && lastErr != nil {
		return nil, lastErr
	}
	return merged, nil
}

// ListAppearances merges the appearance tables of repositories that carry one.
func (c *CompositeCompanyRepository) ListAppearances(ctx context.Context) (map[uint16]string, error) {
	merged := make(map[uint16]string)
	for i := len(c.repositories) - 1; i >= 0; i-- {
		src, ok := c.repositories[i].(AppearanceSource)
		if !ok {
			continue
		}
		appearances, err := src.ListAppearances(ctx)
		if err != nil {
			return nil, err
		}
		for code, name := range appearances {
			merged[code] = name
		}
	}
	return merged, nil
}

// Close closes all repositories
func (c *CompositeCompanyRepository) Close() error {
	var firstErr error
	for _, repo := range c.repositories {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// StaticCompanyRepository provides lookups from an in-memory map
type StaticCompanyRepository struct {
	companies   map[uint16]string
	appearances map[uint16]string
}

// NewStaticCompanyRepository creates a new static repository
func NewStaticCompanyRepository(companies, appearances map[uint16]string) *StaticCompanyRepository {
	return &StaticCompanyRepository{
		companies:   companies,
		appearances: appearances,
	}
}

// NewDefaultStaticRepository serves the built-in CommonCompanies and CommonAppearances tables.
func NewDefaultStaticRepository() *StaticCompanyRepository {
	return NewStaticCompanyRepository(CommonCompanies, CommonAppearances)
}

// LookupCompany looks up a company in the static map
func (s *StaticCompanyRepository) LookupCompany(_ context.Context, id uint16) (string, error) {
	if name, ok := s.companies[id]; ok {
		return name, nil
	}
	return "", ErrCompanyNotFound
}

// ListCompanies returns a copy of the static map
func (s *StaticCompanyRepository) ListCompanies(context.Context) (map[uint16]string, error) {
	return copyTable(s.companies), nil
}

// ListAppearances returns a copy of the static appearance map
func (s *StaticCompanyRepository) ListAppearances(context.Context) (map[uint16]string, error) {
	return copyTable(s.appearances), nil
}

// Close is a no-op for static repository
func (s *StaticCompanyRepository) Close() error {
	return nil
}

func copyTable(in map[uint16]string) map[uint16]string {
	out := make(map[uint16]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
