package domain

import (
	"context"
	"time"
)

// Category identifies one of the four raw data categories.
type Category string

const (
	CategoryWeather    Category = "weather"
	CategoryPrices     Category = "prices"
	CategoryProduction Category = "production"
	CategorySoil       Category = "soil"
)

// Categories returns all categories in their canonical order. The order is
// load-bearing: feature preparation walks categories in this order, which
// fixes the feature-column ordering shared by training and inference.
func Categories() []Category {
	return []Category{CategoryWeather, CategoryPrices, CategoryProduction, CategorySoil}
}

// WeatherRecord is one daily weather observation.
type WeatherRecord struct {
	Date        time.Time `json:"date"`
	Temperature float64   `json:"temperature"` // °C
	Rainfall    float64   `json:"rainfall"`    // mm
	Humidity    float64   `json:"humidity"`    // %
}

// PriceRecord is one market price observation.
type PriceRecord struct {
	Date         time.Time `json:"date"`
	Price        float64   `json:"price"`         // modal price, INR per quintal
	VolumeTraded float64   `json:"volume_traded"` // quintals
}

// ProductionRecord is one yearly crop production record.
type ProductionRecord struct {
	Year       int     `json:"year"`
	Yield      float64 `json:"yield"`      // quintal per hectare
	Production float64 `json:"production"` // total quintals
	Area       float64 `json:"area"`       // hectares
}

// SoilRecord is one soil health panel sample.
type SoilRecord struct {
	SampledAt     time.Time `json:"sampled_at"`
	PH            float64   `json:"ph_value"`
	OrganicCarbon float64   `json:"organic_carbon"` // %
	Nitrogen      float64   `json:"nitrogen"`       // kg/hectare
	Phosphorus    float64   `json:"phosphorus"`     // kg/hectare
	Potassium     float64   `json:"potassium"`      // kg/hectare
}

// Frame holds one category's raw records. Only the slice matching Category
// is populated; the others stay nil. Frames are produced per request or
// retrain cycle and discarded afterwards.
type Frame struct {
	Category   Category           `json:"category"`
	Weather    []WeatherRecord    `json:"weather,omitempty"`
	Prices     []PriceRecord      `json:"prices,omitempty"`
	Production []ProductionRecord `json:"production,omitempty"`
	Soil       []SoilRecord       `json:"soil,omitempty"`
}

// Len returns the number of records in the frame.
func (f Frame) Len() int {
	switch f.Category {
	case CategoryWeather:
		return len(f.Weather)
	case CategoryPrices:
		return len(f.Prices)
	case CategoryProduction:
		return len(f.Production)
	case CategorySoil:
		return len(f.Soil)
	default:
		return 0
	}
}

// Empty reports whether the frame carries no records.
func (f Frame) Empty() bool { return f.Len() == 0 }

// RawData maps categories to their collected frames. Absent keys and empty
// frames both mean "no data for that category".
type RawData map[Category]Frame

// RawDataProvider supplies per-category tabular data for a region and crop.
// An empty frame is a valid, non-error response.
type RawDataProvider interface {
	Collect(ctx context.Context, category Category, region, crop string, lookbackDays int) (Frame, error)
}
