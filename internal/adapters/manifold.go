package adapters

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/artemgubar/predictive-market-federation/internal/errs"
	"github.com/artemgubar/predictive-market-federation/internal/schema"
)

// manifoldCategoryMap maps Manifold group slugs to the normalized vocabulary.
var manifoldCategoryMap = map[string]string{
	"politics":       "politics",
	"us-politics":    "politics",
	"world-politics": "politics",
	"sports":         "sports",
	"crypto":         "crypto",
	"bitcoin":        "crypto",
	"ethereum":       "crypto",
	"ai":             "ai",
	"technology":     "technology",
	"science":        "science",
	"economics":      "economics",
	"finance":        "finance",
	"entertainment":  "entertainment",
	"gaming":         "gaming",
}

// ManifoldAdapter talks to the Manifold Markets v0 API.
type ManifoldAdapter struct {
	client *resty.Client
}

// NewManifoldAdapter builds a ManifoldAdapter pointed at the public API.
func NewManifoldAdapter() *ManifoldAdapter {
	return &ManifoldAdapter{client: newHTTPClient("https://api.manifold.markets/v0")}
}

func (a *ManifoldAdapter) Platform() string { return "manifold" }

func (a *ManifoldAdapter) Close() error { return nil }

type manifoldMarket struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Question    string   `json:"question"`
	Description any      `json:"description"`
	GroupSlugs  []string `json:"groupSlugs"`
	CreatedTime float64  `json:"createdTime"`
	CloseTime   *float64 `json:"closeTime"`
	OutcomeType string   `json:"outcomeType"`
	Probability *float64 `json:"probability"`
	Volume      *float64 `json:"volume"`
	IsResolved  bool     `json:"isResolved"`
	Resolution  *string  `json:"resolution"`
}

func (a *ManifoldAdapter) GetMarket(ctx context.Context, nativeID string) (schema.Market, error) {
	var data manifoldMarket
	if err := getJSON(ctx, a.client, a.Platform(), "/market/"+nativeID, nil, &data); err != nil {
		return schema.Market{}, err
	}
	return a.parseMarket(data)
}

func (a *ManifoldAdapter) SearchMarkets(ctx context.Context, query, category string) ([]schema.Market, error) {
	var data []manifoldMarket
	params := map[string]string{"term": query, "limit": "20"}
	if err := getJSON(ctx, a.client, a.Platform(), "/search-markets", params, &data); err != nil {
		return nil, err
	}
	return a.parseAll(data)
}

func (a *ManifoldAdapter) ListCategories(ctx context.Context) ([]string, error) {
	return sortedUniqueValues(manifoldCategoryMap), nil
}

func (a *ManifoldAdapter) BrowseCategory(ctx context.Context, category string, limit int) ([]schema.Market, error) {
	if !hasCategoryValue(manifoldCategoryMap, category) {
		return nil, nil
	}
	var data []manifoldMarket
	params := map[string]string{"term": "", "filter": "open", "limit": strconv.Itoa(limit)}
	if err := getJSON(ctx, a.client, a.Platform(), "/search-markets", params, &data); err != nil {
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

func (a *ManifoldAdapter) parseAll(data []manifoldMarket) ([]schema.Market, error) {
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

func (a *ManifoldAdapter) parseMarket(data manifoldMarket) (schema.Market, error) {
	category := "other"
	for _, slug := range data.GroupSlugs {
		if c, ok := manifoldCategoryMap[slug]; ok {
			category = c
			break
		}
	}

	createdAt := time.Unix(0, int64(data.CreatedTime)*int64(time.Millisecond)).UTC()
	var closesAt *time.Time
	if data.CloseTime != nil {
		t := time.Unix(0, int64(*data.CloseTime)*int64(time.Millisecond)).UTC()
		closesAt = &t
	}

	prob := 0.5
	if data.Probability != nil {
		prob = *data.Probability
	}
	prob = schema.ClampProbability(prob)

	var outcomes []schema.Outcome
	if data.OutcomeType == "BINARY" {
		outcomes = schema.BinaryOutcomes(prob)
	}

	url := data.URL
	if url == "" {
		url = "https://manifold.markets/market/" + data.ID
	}
	description, _ := data.Description.(string)

	m, err := schema.NewMarket(schema.Market{
		Platform:    a.Platform(),
		NativeID:    data.ID,
		URL:         url,
		Title:       data.Question,
		Description: description,
		Category:    schema.NormalizeCategory(category),
		Probability: prob,
		Outcomes:    outcomes,
		Volume:      data.Volume,
		CreatedAt:   createdAt,
		ClosesAt:    closesAt,
		Resolved:    data.IsResolved,
		Resolution:  data.Resolution,
		LastFetched: time.Now().UTC(),
	})
	if err != nil {
		return schema.Market{}, errs.NewInvariantViolation("manifold market %s: %v", data.ID, err)
	}
	return m, nil
}

func sortedUniqueValues(m map[string]string) []string {
	seen := make(map[string]struct{}, len(m))
	out := make([]string, 0, len(m))
	for _, v := range m {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func hasCategoryValue(m map[string]string, category string) bool {
	for _, v := range m {
		if v == category {
			return true
		}
	}
	return false
}
