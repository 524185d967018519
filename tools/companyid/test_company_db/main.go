package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/lcalzada-xor/bluespeak/internal/adapters/manufacturer"
)

func main() {
	dbPath := flag.String("db", "data/company_ids.db", "Path to company identifier database")
	flag.Parse()

	db, err := manufacturer.NewCompanyDatabase(*dbPath, 10000, nil)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	stats, err := db.GetStats(ctx)
	if err != nil {
		log.Fatalf("Failed to get stats: %v", err)
	}

	fmt.Printf("Company Database Statistics:\n")
	fmt.Printf("  Companies: %d\n", stats.TotalCompanies)
	fmt.Printf("  Appearances: %d\n", stats.TotalAppearances)
	fmt.Printf("  Last updated: %s\n", stats.LastUpdated)
	fmt.Println()

	testIDs := []uint16{
		0x004C, // Apple
		0x0006, // Microsoft
		0x0075, // Samsung
		0x0057, // Harman
		0x009E, // Bose
		0x012D, // Sony
		0x05A7, // Sonos
		0xFFFF, // Reserved
	}

	fmt.Println("Test Lookups:")
	for _, id := range testIDs {
		name, err := db.LookupCompany(ctx, id)
		if err != nil {
			log.Printf("  0x%04X -> ERROR: %v", id, err)
			continue
		}
		fmt.Printf("  0x%04X -> %s\n", id, name)
	}

	// Second pass should be served from the LRU cache.
	for _, id := range testIDs {
		db.LookupCompany(ctx, id)
	}
	stats, _ = db.GetStats(ctx)
	fmt.Printf("\n  Cache stats: Hits=%d Misses=%d\n", stats.CacheHits, stats.CacheMisses)
}
