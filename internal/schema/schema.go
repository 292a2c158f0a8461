// Package schema defines the normalized market record shared by every
// platform adapter and consumed by the analytics and orchestration layers.
package schema

import (
	"fmt"
	"time"
)

// Categories is the closed vocabulary every adapter must normalize into.
var Categories = map[string]bool{
	"politics":      true,
	"crypto":        true,
	"sports":        true,
	"ai":            true,
	"technology":    true,
	"science":       true,
	"economics":     true,
	"finance":       true,
	"entertainment": true,
	"gaming":        true,
	"health":        true,
	"other":         true,
}

// NormalizeCategory maps an unknown tag to "other"; a known tag passes through.
func NormalizeCategory(tag string) string {
	if Categories[tag] {
		return tag
	}
	return "other"
}

// Outcome is one named side of a market with its own standalone price.
type Outcome struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

// PricePoint is a historical snapshot of a market's probability.
type PricePoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Probability float64   `json:"probability"`
}

// Market is the unified representation of a market across all platforms.
type Market struct {
	Platform    string
	NativeID    string
	URL         string
	Title       string
	Description string
	Category    string
	Probability float64
	Outcomes    []Outcome
	Volume      *float64
	Liquidity   *float64
	CreatedAt   time.Time
	ClosesAt    *time.Time
	Resolved    bool
	Resolution  *string
	LastFetched time.Time
	PriceHistory []PricePoint
}

// ID returns the federation-wide key "{platform}:{native_id}".
func (m Market) ID() string {
	return fmt.Sprintf("%s:%s", m.Platform, m.NativeID)
}

const probEpsilon = 1e-9

// NewMarket validates probability invariants and constructs a Market.
// It returns an error (the caller should wrap it as errs.InvariantViolation)
// rather than panicking, since a malformed upstream payload is expected
// input at the adapter boundary, not a programming error.
func NewMarket(m Market) (Market, error) {
	if m.Probability < 0.0 || m.Probability > 1.0 {
		return Market{}, fmt.Errorf("probability %f out of range [0,1]", m.Probability)
	}
	for _, o := range m.Outcomes {
		if o.Probability < 0.0 || o.Probability > 1.0 {
			return Market{}, fmt.Errorf("outcome %q probability %f out of range [0,1]", o.Name, o.Probability)
		}
		if o.Name == "Yes" {
			if diff := o.Probability - m.Probability; diff > probEpsilon || diff < -probEpsilon {
				return Market{}, fmt.Errorf("yes outcome probability %f does not match market probability %f", o.Probability, m.Probability)
			}
		}
	}
	if !Categories[m.Category] {
		return Market{}, fmt.Errorf("category %q not in normalized vocabulary", m.Category)
	}
	return m, nil
}

// ClampProbability clamps a raw upstream probability into [0,1]. Adapters
// use this before constructing outcomes so a slightly-out-of-range upstream
// value never reaches NewMarket as a hard invariant failure.
func ClampProbability(p float64) float64 {
	if p < 0.0 {
		return 0.0
	}
	if p > 1.0 {
		return 1.0
	}
	return p
}

// BinaryOutcomes builds the standard [Yes=p, No=1-p] pair for binary markets.
func BinaryOutcomes(p float64) []Outcome {
	return []Outcome{
		{Name: "Yes", Probability: p},
		{Name: "No", Probability: 1 - p},
	}
}
