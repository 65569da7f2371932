// Command genmock generates deterministic mock data fixtures for tests and
// local development: per-category raw frames for a region×crop grid plus a
// batch of assessment requests. It uses the actual simulated provider with a
// fixed clock so regenerated fixtures are byte-stable.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -regions punjab,karnataka -crops wheat,rice
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ddv2311/agri-risk-assessment/internal/adapter/agdata"
	"github.com/ddv2311/agri-risk-assessment/internal/domain"
)

// Fixed clock keeps record dates and request timestamps reproducible.
var baseTime = time.Date(2025, time.June, 1, 6, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "data/mock", "output directory for fixtures")
	regionsFlag := flag.String("regions", "punjab,maharashtra", "comma-separated regions")
	cropsFlag := flag.String("crops", "wheat,rice", "comma-separated crops")
	seed := flag.Int64("seed", 42, "simulator base seed")
	lookbackDays := flag.Int("lookback-days", 365, "days of daily history per frame")
	flag.Parse()

	regions := splitList(*regionsFlag)
	crops := splitList(*cropsFlag)
	if len(regions) == 0 || len(crops) == 0 {
		flag.Usage()
		return fmt.Errorf("need at least one region and one crop")
	}

	clock := clockwork.NewFakeClockAt(baseTime)
	provider := agdata.NewSimulatedProvider(*seed, clock)
	ctx := context.Background()

	total := 0
	for _, region := range regions {
		for _, crop := range crops {
			for _, cat := range domain.Categories() {
				frame, err := provider.Collect(ctx, cat, region, crop, *lookbackDays)
				if err != nil {
					return fmt.Errorf("collect %s/%s/%s: %w", cat, region, crop, err)
				}
				name := fmt.Sprintf("%s_%s_%s.json", cat, region, crop)
				if err := writeJSON(filepath.Join(*outDir, name), frame); err != nil {
					return fmt.Errorf("writing %s: %w", name, err)
				}
				total += frame.Len()
			}
			log.Printf("%s/%s: frames written", region, crop)
		}
	}

	requests := buildRequests(regions, crops)
	if err := writeJSON(filepath.Join(*outDir, "requests.json"), requests); err != nil {
		return fmt.Errorf("writing requests fixture: %w", err)
	}

	log.Printf("total: %d records across %d frames, %d requests",
		total, len(regions)*len(crops)*len(domain.Categories()), len(requests))
	log.Printf("wrote fixtures: %s", *outDir)
	return nil
}

// buildRequests produces one request per region×crop×scenario with stable
// IDs so tests can reference them by name.
func buildRequests(regions, crops []string) []domain.AssessmentRequest {
	scenarios := []string{"normal", "drought", "flood"}

	var requests []domain.AssessmentRequest
	for _, region := range regions {
		for _, crop := range crops {
			for _, scenario := range scenarios {
				requests = append(requests, domain.AssessmentRequest{
					ID:       fmt.Sprintf("req-%s-%s-%s", region, crop, scenario),
					Region:   region,
					Crop:     crop,
					Scenario: scenario,
				})
			}
		}
	}
	return requests
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
