package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Indicator names produced by GenerateIndicators.
const (
	IndicatorYieldVariability   = "yield_variability"
	IndicatorRainfallDeviation  = "rainfall_deviation"
	IndicatorTemperatureAnomaly = "temperature_anomaly"
	IndicatorPriceVolatility    = "price_volatility"
)

// YieldVariability returns the coefficient of variation of yearly yields:
// 100 × std/mean. Returns ErrInsufficientData when fewer than two
// observations exist (the sample std is undefined).
func YieldVariability(records []ProductionRecord) (float64, error) {
	if len(records) < 2 {
		return 0, fmt.Errorf("yield variability needs >=2 yearly records, got %d: %w",
			len(records), ErrInsufficientData)
	}

	yields := make([]float64, len(records))
	for i, r := range records {
		yields[i] = r.Yield
	}

	mean, std := stat.MeanStdDev(yields, nil)
	return 100 * std / mean, nil
}

// RainfallDeviation returns the z-score of the most recent month's rainfall
// total against the historical monthly distribution. Returns NaN when fewer
// than two months of history exist or the historical std is zero; NaN means
// "no signal" and must be omitted, not treated as 0.
func RainfallDeviation(records []WeatherRecord) float64 {
	months := monthlyAggregate(records, func(r WeatherRecord) float64 { return r.Rainfall }, sumValues)
	return recentZScore(months)
}

// TemperatureAnomaly returns the z-score of the most recent month's mean
// temperature against the historical monthly distribution. Same NaN
// semantics as RainfallDeviation.
func TemperatureAnomaly(records []WeatherRecord) float64 {
	months := monthlyAggregate(records, func(r WeatherRecord) float64 { return r.Temperature }, meanValues)
	return recentZScore(months)
}

// PriceVolatility returns the annualized volatility of monthly prices:
// std of month-over-month percentage returns × √12. Returns NaN when fewer
// than three months exist (two returns are the minimum for a sample std).
func PriceVolatility(records []PriceRecord) float64 {
	type monthKey struct {
		year  int
		month time.Month
	}
	byMonth := make(map[monthKey][]float64)
	for _, r := range records {
		k := monthKey{r.Date.Year(), r.Date.Month()}
		byMonth[k] = append(byMonth[k], r.Price)
	}

	keys := make([]monthKey, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	monthly := make([]float64, len(keys))
	for i, k := range keys {
		monthly[i] = stat.Mean(byMonth[k], nil)
	}

	if len(monthly) < 3 {
		return math.NaN()
	}

	returns := make([]float64, 0, len(monthly)-1)
	for i := 1; i < len(monthly); i++ {
		returns = append(returns, (monthly[i]-monthly[i-1])/monthly[i-1])
	}

	return stat.StdDev(returns, nil) * math.Sqrt(12)
}

// GenerateIndicators computes the flat indicator map consumed by feature
// preparation. A yield series too short for variability omits that key;
// z-score and volatility indicators carry NaN when undefined.
func GenerateIndicators(production []ProductionRecord, weather []WeatherRecord, prices []PriceRecord) map[string]float64 {
	indicators := map[string]float64{
		IndicatorRainfallDeviation:  RainfallDeviation(weather),
		IndicatorTemperatureAnomaly: TemperatureAnomaly(weather),
		IndicatorPriceVolatility:    PriceVolatility(prices),
	}

	if cv, err := YieldVariability(production); err == nil {
		indicators[IndicatorYieldVariability] = cv
	}

	return indicators
}

// ExplainIndicators builds the deterministic rule-based explanation for a
// risk category. Clause order is fixed: yield, rainfall, temperature, price,
// then the scenario clause. NaN indicators contribute no clause.
func ExplainIndicators(category RiskCategory, indicators map[string]float64, scenario string) string {
	var clauses []string

	if cv, ok := indicators[IndicatorYieldVariability]; ok && cv > 30 {
		clauses = append(clauses, "high yield variability indicates unstable production")
	}

	switch dev := indicators[IndicatorRainfallDeviation]; {
	case dev < -1:
		clauses = append(clauses, "significant rainfall deficit")
	case dev > 1:
		clauses = append(clauses, "excessive rainfall")
	}

	switch anom := indicators[IndicatorTemperatureAnomaly]; {
	case anom > 1:
		clauses = append(clauses, "higher than normal temperatures")
	case anom < -1:
		clauses = append(clauses, "lower than normal temperatures")
	}

	if vol := indicators[IndicatorPriceVolatility]; vol > 0.1 {
		clauses = append(clauses, "high price volatility")
	}

	switch scenario {
	case "drought":
		clauses = append(clauses, "drought conditions are expected")
	case "flood":
		clauses = append(clauses, "flood conditions are expected")
	}

	if len(clauses) == 0 {
		clauses = append(clauses, "no adverse indicators detected")
	}

	return fmt.Sprintf("%s risk due to: %s", titleCase(string(category)), strings.Join(clauses, ", "))
}

// monthlyAggregate groups records by calendar month and reduces each month's
// values with the given aggregator, returning the series in chronological order.
func monthlyAggregate(records []WeatherRecord, value func(WeatherRecord) float64, aggregate func([]float64) float64) []float64 {
	type monthKey struct {
		year  int
		month time.Month
	}
	byMonth := make(map[monthKey][]float64)
	for _, r := range records {
		k := monthKey{r.Date.Year(), r.Date.Month()}
		byMonth[k] = append(byMonth[k], value(r))
	}

	keys := make([]monthKey, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	out := make([]float64, len(keys))
	for i, k := range keys {
		out[i] = aggregate(byMonth[k])
	}
	return out
}

// recentZScore standardizes the last element of a series against the whole
// series. NaN when fewer than two elements exist or the std is zero.
func recentZScore(series []float64) float64 {
	if len(series) < 2 {
		return math.NaN()
	}
	mean, std := stat.MeanStdDev(series, nil)
	if std == 0 {
		return math.NaN()
	}
	return (series[len(series)-1] - mean) / std
}

func sumValues(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func meanValues(values []float64) float64 {
	return stat.Mean(values, nil)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
