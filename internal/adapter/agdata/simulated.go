package agdata

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ddv2311/agri-risk-assessment/internal/domain"
)

// SimulatedProvider generates plausible raw frames deterministically: the
// same seed, category, region, crop, and clock date always yield the same
// records. It backs development, tests, and the synthetic training
// bootstrap when no collector service is reachable.
type SimulatedProvider struct {
	seed  int64
	clock clockwork.Clock
}

// NewSimulatedProvider creates a simulator with the given base seed.
func NewSimulatedProvider(seed int64, clock clockwork.Clock) *SimulatedProvider {
	return &SimulatedProvider{seed: seed, clock: clock}
}

func (p *SimulatedProvider) Collect(_ context.Context, category domain.Category, region, crop string, lookbackDays int) (domain.Frame, error) {
	if lookbackDays <= 0 {
		lookbackDays = 365
	}
	rng := p.rng(category, region, crop)
	now := p.clock.Now().UTC().Truncate(24 * time.Hour)

	frame := domain.Frame{Category: category}
	switch category {
	case domain.CategoryWeather:
		frame.Weather = simulateWeather(rng, now, lookbackDays)
	case domain.CategoryPrices:
		frame.Prices = simulatePrices(rng, now, lookbackDays)
	case domain.CategoryProduction:
		frame.Production = simulateProduction(rng, now)
	case domain.CategorySoil:
		frame.Soil = simulateSoil(rng, now)
	}
	return frame, nil
}

// rng derives a per-key source from the base seed so different region/crop
// pairs see different but reproducible series.
func (p *SimulatedProvider) rng(category domain.Category, region, crop string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(string(category)))
	h.Write([]byte{0})
	h.Write([]byte(region))
	h.Write([]byte{0})
	h.Write([]byte(crop))
	return rand.New(rand.NewSource(p.seed ^ int64(h.Sum64())))
}

func simulateWeather(rng *rand.Rand, now time.Time, days int) []domain.WeatherRecord {
	records := make([]domain.WeatherRecord, 0, days)
	for d := days - 1; d >= 0; d-- {
		date := now.AddDate(0, 0, -d)
		seasonal := 8 * math.Sin(2*math.Pi*float64(date.YearDay())/365)

		rainfall := 0.0
		if rng.Float64() < 0.3 {
			rainfall = rng.ExpFloat64() * 12
		}

		records = append(records, domain.WeatherRecord{
			Date:        date,
			Temperature: 25 + seasonal + rng.NormFloat64()*2,
			Rainfall:    rainfall,
			Humidity:    55 + 20*math.Sin(2*math.Pi*float64(date.YearDay())/365+1) + rng.NormFloat64()*5,
		})
	}
	return records
}

func simulatePrices(rng *rand.Rand, now time.Time, days int) []domain.PriceRecord {
	base := 1500 + rng.Float64()*3000
	price := base

	records := make([]domain.PriceRecord, 0, days)
	for d := days - 1; d >= 0; d-- {
		// Mean-reverting walk keeps prices near the crop's base level.
		price += (base-price)*0.02 + rng.NormFloat64()*base*0.015
		if price < base*0.4 {
			price = base * 0.4
		}

		records = append(records, domain.PriceRecord{
			Date:         now.AddDate(0, 0, -d),
			Price:        price,
			VolumeTraded: 50 + rng.Float64()*450,
		})
	}
	return records
}

func simulateProduction(rng *rand.Rand, now time.Time) []domain.ProductionRecord {
	const years = 10
	baseYield := 15 + rng.Float64()*25
	baseArea := 5000 + rng.Float64()*20000

	records := make([]domain.ProductionRecord, 0, years)
	for y := years - 1; y >= 0; y-- {
		yield := baseYield * (1 + rng.NormFloat64()*0.15)
		area := baseArea * (1 + rng.NormFloat64()*0.05)
		records = append(records, domain.ProductionRecord{
			Year:       now.Year() - y,
			Yield:      yield,
			Production: yield * area,
			Area:       area,
		})
	}
	return records
}

func simulateSoil(rng *rand.Rand, now time.Time) []domain.SoilRecord {
	const samples = 4
	records := make([]domain.SoilRecord, 0, samples)
	for q := samples - 1; q >= 0; q-- {
		records = append(records, domain.SoilRecord{
			SampledAt:     now.AddDate(0, -3*q, 0),
			PH:            5.5 + rng.Float64()*2.5,
			OrganicCarbon: 0.3 + rng.Float64()*0.9,
			Nitrogen:      150 + rng.Float64()*200,
			Phosphorus:    10 + rng.Float64()*50,
			Potassium:     100 + rng.Float64()*200,
		})
	}
	return records
}
