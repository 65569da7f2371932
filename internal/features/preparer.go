// Package features assembles per-category raw frames into the ordered
// numeric feature matrix consumed by the risk model. It owns the canonical
// feature-name ordering and the per-category scaler state.
package features

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ddv2311/agri-risk-assessment/internal/domain"
)

// Per-category feature slots in canonical order. The concatenation order
// follows domain.Categories(); together they fix the full 14-column layout:
//
//	avg_temp, temp_volatility, rainfall_total, rainfall_deviation,
//	humidity_avg, price_avg, price_volatility, price_trend,
//	volume_traded_avg, yield_per_hectare, production_trend,
//	area_cultivated, soil_quality_score, nutrient_balance_score
var categorySlots = map[domain.Category][]string{
	domain.CategoryWeather:    {"avg_temp", "temp_volatility", "rainfall_total", "rainfall_deviation", "humidity_avg"},
	domain.CategoryPrices:     {"price_avg", "price_volatility", "price_trend", "volume_traded_avg"},
	domain.CategoryProduction: {"yield_per_hectare", "production_trend", "area_cultivated"},
	domain.CategorySoil:       {"soil_quality_score", "nutrient_balance_score"},
}

// Matrix is an ordered feature matrix: one column per name, one row per sample.
type Matrix struct {
	Names []string
	Rows  [][]float64
}

// Empty reports whether the matrix has no feature columns. Callers must not
// train or predict on an empty matrix; the documented degraded fallback
// applies instead.
func (m *Matrix) Empty() bool { return len(m.Names) == 0 }

// ScalerState is the serializable per-category scaler parameters, persisted
// alongside the model blob and restored in lock-step with it.
type ScalerState map[domain.Category]StandardScaler

// Preparer converts raw category frames into scaled, imputed feature rows.
// Scalers are fit during FitTransform (training) and only reused by
// Transform (inference).
type Preparer struct {
	scalers map[domain.Category]*StandardScaler
}

// NewPreparer creates a Preparer with unfitted scalers.
func NewPreparer() *Preparer {
	return &Preparer{scalers: make(map[domain.Category]*StandardScaler)}
}

// FitTransform builds the training feature matrix from multiple raw samples,
// fitting one scaler per category on the way. Categories empty in every
// sample contribute zero columns: the feature space shrinks rather than
// padding with defaults, so callers must check Matrix.Empty.
func (p *Preparer) FitTransform(samples []domain.RawData) *Matrix {
	names, present := p.realizedColumns(samples)

	rows := make([][]float64, len(samples))
	for i, raw := range samples {
		rows[i] = extractRow(raw, present)
	}

	// Fit and apply each category's scaler over its column block.
	offset := 0
	for _, cat := range domain.Categories() {
		if !present[cat] {
			continue
		}
		width := len(categorySlots[cat])
		scaler := &StandardScaler{}
		scaler.Fit(sliceColumns(rows, offset, width), width)
		for _, row := range rows {
			scaler.Transform(row[offset : offset+width])
		}
		p.scalers[cat] = scaler
		offset += width
	}

	imputeColumns(rows, len(names))
	return &Matrix{Names: names, Rows: rows}
}

// Transform builds a single inference row using the scalers fitted at
// training time. Categories with no fitted scaler pass through unscaled;
// the scorer's reindexing drops columns unknown to the model anyway.
func (p *Preparer) Transform(raw domain.RawData) *Matrix {
	names, present := p.realizedColumns([]domain.RawData{raw})
	row := extractRow(raw, present)

	offset := 0
	for _, cat := range domain.Categories() {
		if !present[cat] {
			continue
		}
		width := len(categorySlots[cat])
		if scaler, ok := p.scalers[cat]; ok && scaler.Fitted() {
			scaler.Transform(row[offset : offset+width])
		}
		offset += width
	}

	imputeColumns([][]float64{row}, len(names))
	return &Matrix{Names: names, Rows: [][]float64{row}}
}

// State snapshots the fitted scaler parameters for persistence.
func (p *Preparer) State() ScalerState {
	state := make(ScalerState, len(p.scalers))
	for cat, s := range p.scalers {
		state[cat] = *s
	}
	return state
}

// Restore replaces the scaler state, typically from a persisted artifact
// loaded in lock-step with its model blob.
func (p *Preparer) Restore(state ScalerState) {
	p.scalers = make(map[domain.Category]*StandardScaler, len(state))
	for cat, s := range state {
		scaler := s
		p.scalers[cat] = &scaler
	}
}

// realizedColumns determines which categories contribute columns: a category
// must be non-empty in at least one sample. Returns the realized ordered
// name list. This ordering is canonical for the session — every later call
// over a compatible category set yields the identical list.
func (p *Preparer) realizedColumns(samples []domain.RawData) ([]string, map[domain.Category]bool) {
	present := make(map[domain.Category]bool)
	for _, raw := range samples {
		for cat, frame := range raw {
			if !frame.Empty() {
				present[cat] = true
			}
		}
	}

	var names []string
	for _, cat := range domain.Categories() {
		if present[cat] {
			names = append(names, categorySlots[cat]...)
		}
	}
	return names, present
}

// extractRow pulls the raw (unscaled) feature values for every present
// category, in canonical order. Missing frames within a present category
// yield NaN cells for later imputation.
func extractRow(raw domain.RawData, present map[domain.Category]bool) []float64 {
	var row []float64
	for _, cat := range domain.Categories() {
		if !present[cat] {
			continue
		}
		frame := raw[cat]
		switch cat {
		case domain.CategoryWeather:
			row = append(row, weatherFeatures(frame.Weather)...)
		case domain.CategoryPrices:
			row = append(row, priceFeatures(frame.Prices)...)
		case domain.CategoryProduction:
			row = append(row, productionFeatures(frame.Production)...)
		case domain.CategorySoil:
			row = append(row, soilFeatures(frame.Soil)...)
		}
	}
	return row
}

func weatherFeatures(records []domain.WeatherRecord) []float64 {
	if len(records) == 0 {
		return nanRow(5)
	}
	temps := make([]float64, len(records))
	rainTotal := 0.0
	humidity := make([]float64, len(records))
	for i, r := range records {
		temps[i] = r.Temperature
		rainTotal += r.Rainfall
		humidity[i] = r.Humidity
	}

	avgTemp, tempVol := stat.MeanStdDev(temps, nil)
	return []float64{
		avgTemp,
		tempVol,
		rainTotal,
		domain.RainfallDeviation(records),
		stat.Mean(humidity, nil),
	}
}

func priceFeatures(records []domain.PriceRecord) []float64 {
	if len(records) == 0 {
		return nanRow(4)
	}
	prices := make([]float64, len(records))
	volumes := make([]float64, len(records))
	for i, r := range records {
		prices[i] = r.Price
		volumes[i] = r.VolumeTraded
	}

	trend := math.NaN()
	if first := prices[0]; len(prices) > 1 && first != 0 {
		trend = (prices[len(prices)-1] - first) / first
	}

	return []float64{
		stat.Mean(prices, nil),
		domain.PriceVolatility(records),
		trend,
		stat.Mean(volumes, nil),
	}
}

func productionFeatures(records []domain.ProductionRecord) []float64 {
	if len(records) == 0 {
		return nanRow(3)
	}
	latest := records[len(records)-1]

	trend := 0.0
	if first := records[0]; len(records) > 1 && first.Production != 0 {
		trend = (latest.Production - first.Production) / first.Production
	}

	return []float64{latest.Yield, trend, latest.Area}
}

func soilFeatures(records []domain.SoilRecord) []float64 {
	if len(records) == 0 {
		return nanRow(2)
	}
	quality := make([]float64, len(records))
	balance := make([]float64, len(records))
	for i, r := range records {
		// Component scaling brings pH, carbon, and NPK into one comparable range.
		components := []float64{r.PH, r.OrganicCarbon * 10, r.Nitrogen / 100, r.Phosphorus / 100, r.Potassium / 100}
		quality[i] = stat.Mean(components, nil)

		nutrients := []float64{r.Nitrogen / 100, r.Phosphorus / 100, r.Potassium / 100}
		balance[i] = stat.PopStdDev(nutrients, nil)
	}
	return []float64{stat.Mean(quality, nil), stat.Mean(balance, nil)}
}

// imputeColumns fills NaN cells with the column mean, then zeroes any column
// that had no finite values at all.
func imputeColumns(rows [][]float64, cols int) {
	for c := 0; c < cols; c++ {
		sum, n := 0.0, 0
		for _, row := range rows {
			if !math.IsNaN(row[c]) {
				sum += row[c]
				n++
			}
		}
		fill := 0.0
		if n > 0 {
			fill = sum / float64(n)
		}
		for _, row := range rows {
			if math.IsNaN(row[c]) {
				row[c] = fill
			}
		}
	}
}

func sliceColumns(rows [][]float64, offset, width int) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = row[offset : offset+width]
	}
	return out
}

func nanRow(n int) []float64 {
	row := make([]float64, n)
	for i := range row {
		row[i] = math.NaN()
	}
	return row
}
