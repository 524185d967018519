package manufacturer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// JSONCacheRepository serves company names from a flat JSON file of the form
// {"76": "Apple, Inc."}. Keys are decimal company IDs; 0x-prefixed hex is accepted on read.
type JSONCacheRepository struct {
	path      string
	companies map[uint16]string
	mu        sync.RWMutex
}

// NewJSONCacheRepository creates an empty repository bound to path. Call Load to populate it.
func NewJSONCacheRepository(path string) *JSONCacheRepository {
	return &JSONCacheRepository{
		path:      path,
		companies: make(map[uint16]string),
	}
}

// Load replaces the in-memory table with the file contents.
// A missing file leaves the table empty and returns an error wrapping os.ErrNotExist.
func (j *JSONCacheRepository) Load() error {
	data, err := os.ReadFile(j.path)
	if err != nil {
		return fmt.Errorf("failed to read company cache: %w", err)
	}

	companies, err := ParseCompanyJSON(data)
	if err != nil {
		return err
	}

	j.mu.Lock()
	j.companies = companies
	j.mu.Unlock()
	return nil
}

// ParseCompanyJSON decodes the flat cache format.
func ParseCompanyJSON(data []byte) (map[uint16]string, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse company cache: %w", err)
	}

	out := make(map[uint16]string, len(raw))
	for key, name := range raw {
		id, err := strconv.ParseUint(key, 0, 16)
		if err != nil {
			return nil, &ValidationError{Field: "company_id", Value: key, Err: ErrInvalidCompanyID}
		}
		if name == "" {
			continue
		}
		out[uint16(id)] = name
	}
	return out, nil
}

// Save writes companies to the cache file atomically and adopts them as the in-memory table.
func (j *JSONCacheRepository) Save(companies map[uint16]string) error {
	raw := make(map[string]string, len(companies))
	for id, name := range companies {
		raw[strconv.Itoa(int(id))] = name
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode company cache: %w", err)
	}

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".companies-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write company cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write company cache: %w", err)
	}
	if err := os.Rename(tmpName, j.path); err != nil {
		return fmt.Errorf("failed to replace company cache: %w", err)
	}

	j.mu.Lock()
	j.companies = copyTable(companies)
	j.mu.Unlock()
	return nil
}

// Path returns the cache file location.
func (j *JSONCacheRepository) Path() string {
	return j.path
}

// LookupCompany implements CompanyRepository
func (j *JSONCacheRepository) LookupCompany(_ context.Context, id uint16) (string, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if name, ok := j.companies[id]; ok {
		return name, nil
	}
	return "", ErrCompanyNotFound
}

// ListCompanies implements CompanyRepository
func (j *JSONCacheRepository) ListCompanies(context.Context) (map[uint16]string, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return copyTable(j.companies), nil
}

// Close implements CompanyRepository
func (j *JSONCacheRepository) Close() error {
	j.mu.Lock()
	j.companies = make(map[uint16]string)
	j.mu.Unlock()
	return nil
}
