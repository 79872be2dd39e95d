// Package stats analyzes A/B test results: per-variant conversion rates
// with Wilson confidence intervals and a two-proportion z-test between the
// leading variant and the control.
package stats

import (
	"math"

	"github.com/formloom/formloom/internal/store"
)

// Result is the statistical analysis of one test.
type Result struct {
	Variants        []VariantResult `json:"variants"`
	Confident       bool            `json:"confident"` // >= 95% confidence
	ConfidenceLevel float64         `json:"confidence_level"`
	Leading         int             `json:"leading"` // index into Variants
	ReachedSample   bool            `json:"reached_sample"`
}

// VariantResult contains statistics for a single variant.
type VariantResult struct {
	ID          string  `json:"id"`
	Letter      string  `json:"letter"`
	Name        string  `json:"name"`
	Control     bool    `json:"control"`
	Impressions int     `json:"impressions"`
	Conversions int     `json:"conversions"`
	Rate        float64 `json:"rate"`
	CILower     float64 `json:"ci_lower"`
	CIUpper     float64 `json:"ci_upper"`
}

// SignificanceTest performs a two-proportion z-test. Returns the
// confidence level (0-1) that variant A beats variant B.
func SignificanceTest(aConv, aViews, bConv, bViews int) float64 {
	if aViews == 0 || bViews == 0 {
		return 0.5 // need data from both sides
	}

	pA := float64(aConv) / float64(aViews)
	pB := float64(bConv) / float64(bViews)

	// Pooled proportion under the null hypothesis pA = pB.
	pooled := float64(aConv+bConv) / float64(aViews+bViews)
	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(aViews) + 1/float64(bViews)))

	if se == 0 {
		switch {
		case pA > pB:
			return 1.0
		case pA < pB:
			return 0.0
		}
		return 0.5
	}

	z := (pA - pB) / se
	return normalCDF(z)
}

// normalCDF approximates the standard normal CDF using Abramowitz and
// Stegun formula 7.1.26.
func normalCDF(x float64) float64 {
	a1 := 0.254829592
	a2 := -0.284496736
	a3 := 1.421413741
	a4 := -1.453152027
	a5 := 1.061405429
	p := 0.3275911

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt(2)

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}

// Analyze calculates full statistics for a test's variants. The control
// is the flagged variant, or the first one when no flag is set.
func Analyze(test *store.ABTest, variants []store.Variant) *Result {
	results := make([]VariantResult, len(variants))
	control := 0
	leading := 0
	maxRate := -1.0
	reached := len(variants) > 0

	for i, v := range variants {
		rate := v.Rate()
		lower, upper := WilsonInterval(v.Conversions, v.Impressions, 0.95)
		results[i] = VariantResult{
			ID:          v.ID,
			Letter:      v.Letter,
			Name:        v.Name,
			Control:     v.Control,
			Impressions: v.Impressions,
			Conversions: v.Conversions,
			Rate:        rate,
			CILower:     lower,
			CIUpper:     upper,
		}
		if v.Control {
			control = i
		}
		if rate > maxRate {
			maxRate = rate
			leading = i
		}
		if test.MinSample > 0 && v.Conversions < test.MinSample {
			reached = false
		}
	}

	var confidence float64
	if len(results) >= 2 {
		challenger := leading
		if challenger == control {
			// Control leads: compare it against the best challenger.
			best := -1.0
			for i := range results {
				if i != control && results[i].Rate > best {
					best = results[i].Rate
					challenger = i
				}
			}
		}
		confidence = SignificanceTest(
			results[leading].Conversions, results[leading].Impressions,
			results[otherOf(leading, challenger, control)].Conversions,
			results[otherOf(leading, challenger, control)].Impressions,
		)
	}

	return &Result{
		Variants:        results,
		Confident:       confidence >= 0.95,
		ConfidenceLevel: confidence,
		Leading:         leading,
		ReachedSample:   reached,
	}
}

// otherOf picks the comparison partner for the leading variant: the
// control when a challenger leads, the challenger when the control leads.
func otherOf(leading, challenger, control int) int {
	if leading == control {
		return challenger
	}
	return control
}
