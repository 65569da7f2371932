package risk

import (
	"math"
	"sort"
	"strings"

	"github.com/ddv2311/agri-risk-assessment/internal/domain"
)

// maxContributingFactors bounds the attribution map on results.
const maxContributingFactors = 5

// Factor is one signed feature contribution to a prediction.
type Factor struct {
	Name  string
	Value float64
}

// factorPhrases maps feature names to the wording used in result
// explanations.
var factorPhrases = map[string]string{
	"avg_temp":               "temperature conditions",
	"temp_volatility":        "temperature variability",
	"rainfall_total":         "rainfall amount",
	"rainfall_deviation":     "rainfall patterns",
	"humidity_avg":           "humidity levels",
	"price_avg":              "market prices",
	"price_volatility":       "price stability",
	"price_trend":            "price trends",
	"volume_traded_avg":      "market activity",
	"yield_per_hectare":      "crop yield",
	"production_trend":       "production patterns",
	"area_cultivated":        "cultivation area",
	"soil_quality_score":     "soil conditions",
	"nutrient_balance_score": "soil nutrient levels",
}

// scenarioClauses holds the closing clause per known scenario. Unknown
// scenarios append nothing.
var scenarioClauses = map[string]string{
	"drought": " under drought conditions",
	"flood":   " in flood-affected areas",
	"normal":  " under normal conditions",
}

// ExplainFactors renders the result explanation from the strongest signed
// contributions, consumed in the order given: "<Category> risk level due to
// <direction> <factor>, ... and <factor><scenario clause>". Positive
// contributions read as "high", negative as "low". Factors without a known
// phrase are skipped; returns "" when nothing is renderable so the caller
// can fall back to the indicator-based wording.
func ExplainFactors(category domain.RiskCategory, factors []Factor, scenario string) string {
	var parts []string
	for _, f := range factors {
		phrase, ok := factorPhrases[f.Name]
		if !ok {
			continue
		}
		direction := "low"
		if f.Value > 0 {
			direction = "high"
		}
		parts = append(parts, direction+" "+phrase)
	}
	if len(parts) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(capitalize(string(category)))
	b.WriteString(" risk level due to ")
	if len(parts) == 1 {
		b.WriteString(parts[0])
	} else {
		b.WriteString(strings.Join(parts[:len(parts)-1], ", "))
		b.WriteString(" and ")
		b.WriteString(parts[len(parts)-1])
	}
	b.WriteString(scenarioClauses[scenario])
	return b.String()
}

// explanationFor derives the rule-based explanation from the request's raw
// indicators. Used when no contributing factor has renderable wording, e.g.
// under the trivial fallback model.
func explanationFor(raw domain.RawData, category domain.RiskCategory, scenario string) string {
	indicators := domain.GenerateIndicators(
		raw[domain.CategoryProduction].Production,
		raw[domain.CategoryWeather].Weather,
		raw[domain.CategoryPrices].Prices,
	)
	return domain.ExplainIndicators(category, indicators, scenario)
}

// rankFactors orders contributions by absolute value descending and keeps the
// strongest n. NaN contributions are dropped; equal magnitudes order
// alphabetically so the ranking is stable for identical inputs.
func rankFactors(factors map[string]float64, n int) []Factor {
	names := make([]string, 0, len(factors))
	for name, v := range factors {
		if math.IsNaN(v) {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ai, aj := math.Abs(factors[names[i]]), math.Abs(factors[names[j]])
		if ai != aj {
			return ai > aj
		}
		return names[i] < names[j]
	})

	if n > len(names) {
		n = len(names)
	}
	ranked := make([]Factor, 0, n)
	for _, name := range names[:n] {
		ranked = append(ranked, Factor{Name: name, Value: factors[name]})
	}
	return ranked
}

// flattenFactors drops the ranking order into the contributing_factors map
// shape results carry.
func flattenFactors(ranked []Factor) map[string]float64 {
	out := make(map[string]float64, len(ranked))
	for _, f := range ranked {
		out[f.Name] = f.Value
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
