package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lcalzada-xor/bluespeak/internal/adapters/manufacturer"
)

func main() {
	dbPath := flag.String("db", "data/company_ids.db", "Path to company identifier database")
	companiesSrc := flag.String("companies", manufacturer.CompanyIdentifiersURL, "URL or file of company_identifiers.yaml")
	appearanceSrc := flag.String("appearances", manufacturer.AppearanceValuesURL, "URL or file of appearance_values.yaml (empty to skip)")
	force := flag.Bool("force", false, "Force update even if recent")
	flag.Parse()

	log.Printf("Company Identifier Updater")
	log.Printf("Database: %s", *dbPath)

	db, err := manufacturer.NewCompanyDatabase(*dbPath, 1000, nil)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Check if update needed
	stats, err := db.GetStats(ctx)
	if err != nil {
		log.Printf("Warning: Could not get stats: %v", err)
	} else {
		log.Printf("Current database: %d companies, %d appearances, last updated %s", stats.TotalCompanies, stats.TotalAppearances, stats.LastUpdated)
		if last, err := time.Parse("2006-01-02", stats.LastUpdated); err == nil && stats.TotalCompanies > 0 && !*force && time.Since(last) < 30*24*time.Hour {
			log.Printf("Database is recent (< 30 days). Use --force to update anyway.")
			return
		}
	}

	data, err := fetch(*companiesSrc)
	if err != nil {
		log.Fatalf("Failed to download company identifiers: %v", err)
	}
	companies, err := manufacturer.ParseCompanyIdentifiersYAML(data, time.Now())
	if err != nil {
		log.Fatalf("Failed to parse company identifiers: %v", err)
	}
	log.Printf("Downloaded %d company identifiers", len(companies))

	if err := db.BulkInsertCompanies(ctx, companies); err != nil {
		log.Fatalf("Failed to insert companies: %v", err)
	}

	if *appearanceSrc != "" {
		data, err := fetch(*appearanceSrc)
		if err != nil {
			log.Fatalf("Failed to download appearance values: %v", err)
		}
		appearances, err := manufacturer.ParseAppearanceValuesYAML(data)
		if err != nil {
			log.Fatalf("Failed to parse appearance values: %v", err)
		}
		if err := db.BulkInsertAppearances(ctx, appearances); err != nil {
			log.Fatalf("Failed to insert appearances: %v", err)
		}
		log.Printf("Imported %d appearance values", len(appearances))
	}

	stats, err = db.GetStats(ctx)
	if err != nil {
		log.Fatalf("Failed to get final stats: %v", err)
	}

	log.Printf("Update complete")
	log.Printf("  Companies: %d", stats.TotalCompanies)
	log.Printf("  Appearances: %d", stats.TotalAppearances)
	log.Printf("  Last updated: %s", stats.LastUpdated)
}

// fetch reads src from disk, or downloads it when it is an http(s) URL.
func fetch(src string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.ReadFile(src)
	}

	log.Printf("Downloading %s...", src)
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Get(src)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
