// Seed script that writes a demo report into the configured persistent
// report store and suggests an API token.
// Run with: go run ./scripts/seed
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vishal27shetty/Company-Research-Agent/internal/config"
	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
	"github.com/vishal27shetty/Company-Research-Agent/internal/store"
)

const demoThread = "demo"

func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	ctx := context.Background()

	var reports domain.ReportStore
	switch config.ReportStore() {
	case "postgres":
		pool, err := pgxpool.New(ctx, config.DatabaseURL())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}
		s := store.NewPostgresReportStore(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to create schema: %v", err)
		}
		reports = s
		fmt.Println("Connected to postgres")
	case "sqlite":
		s, err := store.OpenSQLiteReportStore(config.SQLitePath())
		if err != nil {
			log.Fatalf("Failed to open sqlite: %v", err)
		}
		defer s.Close()
		reports = s
		fmt.Printf("Opened sqlite at %s\n", config.SQLitePath())
	default:
		log.Fatalf("REPORT_STORE=%s keeps nothing between runs; seed postgres or sqlite instead", config.ReportStore())
	}

	report := &domain.Report{
		ThreadID:     demoThread,
		Company:      "Acme Corp",
		ResearchType: domain.ResearchFull,
		Industry:     "Industrial equipment",
		HQLocation:   "Phoenix, Arizona",
		Sections: []domain.Section{
			{
				Name:      "Executive Summary",
				Body:      "Acme Corp is a privately held maker of anvils and rocket-powered devices [1]. Revenue grew to $12M in fiscal 2024 [2].",
				Citations: []string{"https://acme.example/about", "https://filings.example/acme-2024"},
			},
			{
				Name:      "Company Overview",
				Body:      "Founded in 1949, Acme sells through catalog and direct channels [1].",
				Citations: []string{"https://acme.example/about"},
			},
			{
				Name:      "Financial Overview",
				Body:      "Total revenue was $12M in fiscal 2024, up from $10M a year earlier [1].",
				Citations: []string{"https://filings.example/acme-2024"},
			},
		},
	}
	if err := reports.Replace(ctx, report); err != nil {
		log.Fatalf("Failed to write demo report: %v", err)
	}
	fmt.Printf("Created report for %s on thread %q with %d sections\n", report.Company, demoThread, len(report.Sections))

	token := generateToken()
	fmt.Println("\n=== Seed Complete ===")
	fmt.Printf("\nSuggested API token (set API_TOKEN=%s on the server)\n", token)
	fmt.Println("\nTo read the report:")
	fmt.Printf("curl -H 'Authorization: Bearer %s' 'http://localhost:8080/v1/threads/%s/report?format=markdown'\n", token, demoThread)
}

func generateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	return "cra_" + base64.RawURLEncoding.EncodeToString(b)[:40]
}
