package main

import (
	"context"
	"flag"
	"log"
	"os"
	"sort"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/adapters/manufacturer"
)

// Imports a legacy {"76": "Apple, Inc."} manufacturer cache into the company database.
func main() {
	jsonPath := flag.String("json", "company_ids.json", "Path to JSON company cache")
	dbPath := flag.String("db", "data/company_ids.db", "Path to company identifier database")
	flag.Parse()

	data, err := os.ReadFile(*jsonPath)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *jsonPath, err)
	}
	companies, err := manufacturer.ParseCompanyJSON(data)
	if err != nil {
		log.Fatalf("Failed to parse %s: %v", *jsonPath, err)
	}
	log.Printf("Parsed %d companies from %s", len(companies), *jsonPath)

	db, err := manufacturer.NewCompanyDatabase(*dbPath, 1000, nil)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ids := make([]int, 0, len(companies))
	for id := range companies {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	now := time.Now()
	entries := make([]manufacturer.CompanyEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, manufacturer.CompanyEntry{ID: uint16(id), Name: companies[uint16(id)], LastUpdated: now})
	}

	ctx := context.Background()
	if err := db.BulkInsertCompanies(ctx, entries); err != nil {
		log.Fatalf("Failed to insert companies: %v", err)
	}

	stats, err := db.GetStats(ctx)
	if err != nil {
		log.Fatalf("Failed to get stats: %v", err)
	}
	log.Printf("Import complete: %d companies in %s", stats.TotalCompanies, db.Path())
}
