package adapters

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/artemgubar/predictive-market-federation/internal/errs"
	"github.com/artemgubar/predictive-market-federation/internal/schema"
)

var polymarketCategoryMap = map[string]string{
	"politics":      "politics",
	"crypto":        "crypto",
	"bitcoin":       "crypto",
	"ethereum":      "crypto",
	"sports":        "sports",
	"entertainment": "entertainment",
	"science":       "science",
	"technology":    "technology",
	"ai":            "ai",
	"business":      "economics",
	"finance":       "finance",
}

// PolymarketAdapter talks to the Polymarket Gamma API.
type PolymarketAdapter struct {
	client *resty.Client
}

func NewPolymarketAdapter() *PolymarketAdapter {
	return &PolymarketAdapter{client: newHTTPClient("https://gamma-api.polymarket.com")}
}

func (a *PolymarketAdapter) Platform() string { return "polymarket" }
func (a *PolymarketAdapter) Close() error     { return nil }

type polymarketMarket struct {
	ID            string   `json:"id"`
	Slug          string   `json:"slug"`
	Question      string   `json:"question"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags"`
	StartDate     string   `json:"startDate"`
	EndDate       string   `json:"endDate"`
	OutcomePrices []string `json:"outcomePrices"`
	Outcomes      []string `json:"outcomes"`
	Volume        any      `json:"volume"`
	Liquidity     any      `json:"liquidity"`
	Closed        bool     `json:"closed"`
	Active        bool     `json:"active"`
}

func (a *PolymarketAdapter) GetMarket(ctx context.Context, nativeID string) (schema.Market, error) {
	var data polymarketMarket
	if err := getJSON(ctx, a.client, a.Platform(), "/markets/"+nativeID, nil, &data); err != nil {
		return schema.Market{}, err
	}
	return a.parseMarket(data)
}

func (a *PolymarketAdapter) SearchMarkets(ctx context.Context, query, category string) ([]schema.Market, error) {
	var data []polymarketMarket
	params := map[string]string{
		"active": "true", "closed": "false", "limit": "20", "title_like": query,
	}
	if err := getJSON(ctx, a.client, a.Platform(), "/markets", params, &data); err != nil {
		return nil, err
	}
	return a.parseAll(data)
}

func (a *PolymarketAdapter) ListCategories(ctx context.Context) ([]string, error) {
	return sortedUniqueValues(polymarketCategoryMap), nil
}

func (a *PolymarketAdapter) BrowseCategory(ctx context.Context, category string, limit int) ([]schema.Market, error) {
	if !hasCategoryValue(polymarketCategoryMap, category) {
		return nil, nil
	}
	var data []polymarketMarket
	params := map[string]string{"active": "true", "closed": "false", "limit": strconv.Itoa(limit)}
	if err := getJSON(ctx, a.client, a.Platform(), "/markets", params, &data); err != nil {
		return nil, err
	}

	var out []schema.Market
	for _, raw := range data {
		m, err := a.parseMarket(raw)
		if err != nil {
			return nil, err
		}
		if m.Category == category {
			out = append(out, m)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (a *PolymarketAdapter) parseAll(data []polymarketMarket) ([]schema.Market, error) {
	out := make([]schema.Market, 0, len(data))
	for _, raw := range data {
		m, err := a.parseMarket(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (a *PolymarketAdapter) parseMarket(data polymarketMarket) (schema.Market, error) {
	category := "other"
	for _, tag := range data.Tags {
		if c, ok := polymarketCategoryMap[strings.ToLower(tag)]; ok {
			category = c
			break
		}
	}

	createdAt := time.Now().UTC()
	if data.StartDate != "" {
		if t, err := time.Parse(time.RFC3339, data.StartDate); err == nil {
			createdAt = t
		}
	}
	var closesAt *time.Time
	if data.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, data.EndDate); err == nil {
			closesAt = &t
		}
	}

	probability := 0.5
	if len(data.OutcomePrices) >= 1 {
		if p, err := strconv.ParseFloat(data.OutcomePrices[0], 64); err == nil {
			probability = p
		}
	}
	probability = schema.ClampProbability(probability)

	names := data.Outcomes
	if len(names) == 0 {
		names = []string{"Yes", "No"}
	}
	outcomes := make([]schema.Outcome, 0, len(names))
	for i, name := range names {
		p := 0.5
		if i < len(data.OutcomePrices) {
			if parsed, err := strconv.ParseFloat(data.OutcomePrices[i], 64); err == nil {
				p = parsed
			}
		}
		outcomes = append(outcomes, schema.Outcome{Name: name, Probability: schema.ClampProbability(p)})
	}

	slugOrID := data.Slug
	if slugOrID == "" {
		slugOrID = data.ID
	}

	m, err := schema.NewMarket(schema.Market{
		Platform:    a.Platform(),
		NativeID:    data.ID,
		URL:         "https://polymarket.com/market/" + slugOrID,
		Title:       data.Question,
		Description: data.Description,
		Category:    schema.NormalizeCategory(category),
		Probability: probability,
		Outcomes:    outcomes,
		Volume:      numericPtr(data.Volume),
		Liquidity:   numericPtr(data.Liquidity),
		CreatedAt:   createdAt,
		ClosesAt:    closesAt,
		Resolved:    data.Closed && !data.Active,
		LastFetched: time.Now().UTC(),
	})
	if err != nil {
		return schema.Market{}, errs.NewInvariantViolation("polymarket market %s: %v", data.ID, err)
	}
	return m, nil
}

// numericPtr coerces Polymarket's string-or-number volume/liquidity fields
// into a *float64, treating anything unparsable as absent.
func numericPtr(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		if p, err := strconv.ParseFloat(t, 64); err == nil {
			return &p
		}
	}
	return nil
}
