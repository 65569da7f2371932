// Package domain models the raw agricultural data categories and the risk
// indicators derived from them.
//
// # Data Categories
//
// Raw data arrives from the upstream collector service as per-category
// tabular JSON. Four categories exist:
//
//	weather     daily observations: temperature (°C), rainfall (mm), humidity (%)
//	prices      market observations: modal price (INR/quintal), volume traded
//	production  yearly records: yield (quintal/hectare), total production, area (hectare)
//	soil        panel samples: pH, organic carbon (%), N/P/K (kg/hectare)
//
// An empty frame is a valid response meaning "no data available" — it is not
// an error. Upstream data is untrusted; callers fall back to simulated data
// when live collection fails or returns too few rows.
//
// # Risk Indicators
//
// Indicators are scale-free scalar statistics computed from one category's
// series:
//
//	yield_variability    coefficient of variation: 100 × std/mean of yearly
//	                     yields. Requires at least 2 observations.
//	rainfall_deviation   z-score of the most recent month's rainfall total
//	                     against the monthly historical distribution.
//	temperature_anomaly  z-score of the most recent month's mean temperature.
//	price_volatility     std of month-over-month percentage returns,
//	                     annualized by √12.
//
// The z-score indicators return NaN when the historical std is zero or fewer
// than two months of history exist. NaN means "no signal": callers must omit
// the indicator, never substitute 0 (a zero z-score is a real "exactly
// average" reading).
//
// # Risk Categories
//
// Scores discretize into three contiguous bands:
//
//	low    [0, 0.33)
//	medium [0.33, 0.66)
//	high   [0.66, 1.0]   (closed upper bound: a score of exactly 1.0 is high)
//
// The extra "unknown" category is a serving-path sentinel for degraded
// results and is never produced by CategoryForScore.
package domain
