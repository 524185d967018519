package manufacturer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// CompanyDatabase provides company and appearance lookups from a SQLite file.
// It implements CompanyRepository, AppearanceSource and CompanyWriter.
type CompanyDatabase struct {
	db       *sql.DB
	cache    *CompanyCache
	mu       sync.RWMutex
	dbPath   string
	fallback CompanyRepository
	closed   bool

	lookupStmt *sql.Stmt
}

// NewCompanyDatabase opens (creating if needed) the company database at dbPath.
// fallback, when non-nil, answers IDs the database does not know.
func NewCompanyDatabase(dbPath string, cacheSize int, fallback CompanyRepository) (*CompanyDatabase, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, &DatabaseError{Op: "open", Err: err}
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &DatabaseError{Op: "ping", Err: err}
	}

	cdb := &CompanyDatabase{
		db:       db,
		cache:    NewCompanyCache(cacheSize),
		dbPath:   dbPath,
		fallback: fallback,
	}

	if err := cdb.initializeSchema(); err != nil {
		db.Close()
		return nil, &DatabaseError{Op: "initialize_schema", Err: err}
	}

	stmt, err := db.Prepare("SELECT name FROM company_registry WHERE company_id = ?")
	if err != nil {
		db.Close()
		return nil, &DatabaseError{Op: "prepare_statement", Err: err}
	}
	cdb.lookupStmt = stmt

	return cdb, nil
}

func (c *CompanyDatabase) initializeSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS company_registry (
		company_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		last_updated INTEGER
	);

	CREATE TABLE IF NOT EXISTS appearance_registry (
		code INTEGER PRIMARY KEY,
		category TEXT NOT NULL,
		subcategory TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_company_name ON company_registry(name);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (c *CompanyDatabase) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// LookupCompany implements CompanyRepository
func (c *CompanyDatabase) LookupCompany(ctx context.Context, id uint16) (string, error) {
	if c.isClosed() {
		return "", ErrRepositoryClosed
	}

	if name, ok := c.cache.Get(id); ok {
		return name, nil
	}

	var name string
	err := c.lookupStmt.QueryRowContext(ctx, int(id)).Scan(&name)

	if errors.Is(err, sql.ErrNoRows) {
		if c.fallback != nil {
			if v, ferr := c.fallback.LookupCompany(ctx, id); ferr == nil && v != "" {
				c.cache.Set(id, v)
				return v, nil
			}
		}
		return "", ErrCompanyNotFound
	}

	if err != nil {
		if c.fallback != nil {
			if v, ferr := c.fallback.LookupCompany(ctx, id); ferr == nil {
				return v, nil
			}
		}
		return "", &DatabaseError{Op: "lookup", Err: err}
	}

	c.cache.Set(id, name)
	return name, nil
}

// ListCompanies implements CompanyRepository. Fallback entries are included
// underneath the database rows.
func (c *CompanyDatabase) ListCompanies(ctx context.Context) (map[uint16]string, error) {
	if c.isClosed() {
		return nil, ErrRepositoryClosed
	}

	out := make(map[uint16]string)
	if c.fallback != nil {
		if fb, err := c.fallback.ListCompanies(ctx); err == nil {
			for id, name := range fb {
				out[id] = name
			}
		}
	}

	rows, err := c.db.QueryContext(ctx, "SELECT company_id, name FROM company_registry")
	if err != nil {
		return nil, &DatabaseError{Op: "list_companies", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, &DatabaseError{Op: "scan_company", Err: err}
		}
		out[uint16(id)] = name
	}
	if err := rows.Err(); err != nil {
		return nil, &DatabaseError{Op: "list_companies", Err: err}
	}
	return out, nil
}

// ListAppearances implements AppearanceSource
func (c *CompanyDatabase) ListAppearances(ctx context.Context) (map[uint16]string, error) {
	if c.isClosed() {
		return nil, ErrRepositoryClosed
	}

	rows, err := c.db.QueryContext(ctx, "SELECT code, category, COALESCE(subcategory, '') FROM appearance_registry")
	if err != nil {
		return nil, &DatabaseError{Op: "list_appearances", Err: err}
	}
	defer rows.Close()

	out := make(map[uint16]string)
	for rows.Next() {
		var code int
		var entry AppearanceEntry
		if err := rows.Scan(&code, &entry.Category, &entry.Subcategory); err != nil {
			return nil, &DatabaseError{Op: "scan_appearance", Err: err}
		}
		out[uint16(code)] = entry.Name()
	}
	if err := rows.Err(); err != nil {
		return nil, &DatabaseError{Op: "list_appearances", Err: err}
	}
	return out, nil
}

// InsertCompany implements CompanyWriter
func (c *CompanyDatabase) InsertCompany(ctx context.Context, entry CompanyEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrRepositoryClosed
	}

	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO company_registry (company_id, name, last_updated) VALUES (?, ?, ?)",
		int(entry.ID), entry.Name, entry.LastUpdated.Unix(),
	)
	if err != nil {
		return &DatabaseError{Op: "insert", Err: err}
	}

	c.cache.Set(entry.ID, entry.Name)
	return nil
}

// BulkInsertCompanies implements CompanyWriter
func (c *CompanyDatabase) BulkInsertCompanies(ctx context.Context, entries []CompanyEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrRepositoryClosed
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return &DatabaseError{Op: "begin_transaction", Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO company_registry (company_id, name, last_updated) VALUES (?, ?, ?)")
	if err != nil {
		return &DatabaseError{Op: "prepare_bulk_insert", Err: err}
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.ExecContext(ctx, int(entry.ID), entry.Name, entry.LastUpdated.Unix()); err != nil {
			return &DatabaseError{Op: "bulk_insert_entry", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &DatabaseError{Op: "commit_transaction", Err: err}
	}

	// Cached names may be stale now.
	c.cache.Clear()
	return nil
}

// BulkInsertAppearances implements CompanyWriter
func (c *CompanyDatabase) BulkInsertAppearances(ctx context.Context, entries []AppearanceEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrRepositoryClosed
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return &DatabaseError{Op: "begin_transaction", Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO appearance_registry (code, category, subcategory) VALUES (?, ?, ?)")
	if err != nil {
		return &DatabaseError{Op: "prepare_bulk_insert", Err: err}
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.ExecContext(ctx, int(entry.Code), entry.Category, entry.Subcategory); err != nil {
			return &DatabaseError{Op: "bulk_insert_appearance", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &DatabaseError{Op: "commit_transaction", Err: err}
	}
	return nil
}

// GetStats returns row counts, cache counters and the newest import date.
func (c *CompanyDatabase) GetStats(ctx context.Context) (RepositoryStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return RepositoryStats{}, ErrRepositoryClosed
	}

	var companies, appearances int
	var lastUpdateUnix int64

	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(MAX(last_updated), 0) FROM company_registry",
	).Scan(&companies, &lastUpdateUnix)
	if err != nil {
		return RepositoryStats{}, &DatabaseError{Op: "get_stats", Err: err}
	}

	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM appearance_registry").Scan(&appearances); err != nil {
		return RepositoryStats{}, &DatabaseError{Op: "get_stats", Err: err}
	}

	cacheStats := c.cache.Stats()
	return RepositoryStats{
		TotalCompanies:   companies,
		TotalAppearances: appearances,
		CacheHits:        cacheStats.Hits,
		CacheMisses:      cacheStats.Misses,
		LastUpdated:      time.Unix(lastUpdateUnix, 0).UTC().Format("2006-01-02"),
	}, nil
}

// Path returns the database file path.
func (c *CompanyDatabase) Path() string {
	return c.dbPath
}

// Close implements CompanyRepository
func (c *CompanyDatabase) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.lookupStmt != nil {
		c.lookupStmt.Close()
	}
	if c.cache != nil {
		c.cache.Close()
	}
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
