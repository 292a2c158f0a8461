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

var metaculusCategoryMap = map[string]string{
	"ai":                    "ai",
	"artificial intelligence": "ai",
	"technology":            "technology",
	"tech":                  "technology",
	"science":               "science",
	"biology":               "science",
	"physics":               "science",
	"space":                 "science",
	"crypto":                "crypto",
	"cryptocurrency":        "crypto",
	"bitcoin":               "crypto",
	"finance":               "finance",
	"economics":             "economics",
	"politics":              "politics",
	"geopolitics":           "politics",
	"sports":                "sports",
	"entertainment":         "entertainment",
	"health":                "health",
	"medicine":              "health",
	"climate":               "science",
	"environment":           "science",
}

// MetaculusAdapter talks to the Metaculus API2 question endpoints.
type MetaculusAdapter struct {
	client *resty.Client
}

func NewMetaculusAdapter() *MetaculusAdapter {
	return &MetaculusAdapter{client: newHTTPClient("https://www.metaculus.com/api2")}
}

func (a *MetaculusAdapter) Platform() string { return "metaculus" }
func (a *MetaculusAdapter) Close() error     { return nil }

type metaculusCategory struct {
	Name string `json:"name"`
}

type metaculusCommunityPrediction struct {
	Full *struct {
		Q2 *float64 `json:"q2"`
	} `json:"full"`
}

type metaculusQuestion struct {
	ID                   int                          `json:"id"`
	PageURL              string                       `json:"page_url"`
	Title                string                       `json:"title"`
	Description          string                       `json:"description"`
	Categories           []metaculusCategory          `json:"categories"`
	CreatedTime          string                       `json:"created_time"`
	CloseTime            string                       `json:"close_time"`
	CommunityPrediction  metaculusCommunityPrediction `json:"community_prediction"`
	ActiveState          string                       `json:"active_state"`
	Resolution           any                          `json:"resolution"`
}

type metaculusSearchResponse struct {
	Results []metaculusQuestion `json:"results"`
}

func (a *MetaculusAdapter) GetMarket(ctx context.Context, nativeID string) (schema.Market, error) {
	var data metaculusQuestion
	if err := getJSON(ctx, a.client, a.Platform(), "/questions/"+nativeID+"/", nil, &data); err != nil {
		return schema.Market{}, err
	}
	return a.parseMarket(data)
}

func (a *MetaculusAdapter) SearchMarkets(ctx context.Context, query, category string) ([]schema.Market, error) {
	var data metaculusSearchResponse
	params := map[string]string{"search": query, "limit": "20"}
	if err := getJSON(ctx, a.client, a.Platform(), "/questions/", params, &data); err != nil {
		return nil, err
	}
	return a.parseAll(data.Results)
}

func (a *MetaculusAdapter) ListCategories(ctx context.Context) ([]string, error) {
	return sortedUniqueValues(metaculusCategoryMap), nil
}

func (a *MetaculusAdapter) BrowseCategory(ctx context.Context, category string, limit int) ([]schema.Market, error) {
	var data metaculusSearchResponse
	params := map[string]string{"limit": strconv.Itoa(limit)}
	if err := getJSON(ctx, a.client, a.Platform(), "/questions/", params, &data); err != nil {
		return nil, err
	}

	var out []schema.Market
	for _, raw := range data.Results {
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

func (a *MetaculusAdapter) parseAll(data []metaculusQuestion) ([]schema.Market, error) {
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

func (a *MetaculusAdapter) parseMarket(data metaculusQuestion) (schema.Market, error) {
	category := "other"
	for _, c := range data.Categories {
		if v, ok := metaculusCategoryMap[strings.ToLower(c.Name)]; ok {
			category = v
			break
		}
	}

	createdAt := time.Now().UTC()
	if data.CreatedTime != "" {
		if t, err := time.Parse(time.RFC3339, data.CreatedTime); err == nil {
			createdAt = t
		}
	}
	var closesAt *time.Time
	if data.CloseTime != "" {
		if t, err := time.Parse(time.RFC3339, data.CloseTime); err == nil {
			closesAt = &t
		}
	}

	probability := 0.5
	if data.CommunityPrediction.Full != nil && data.CommunityPrediction.Full.Q2 != nil {
		probability = *data.CommunityPrediction.Full.Q2
	}
	probability = schema.ClampProbability(probability)

	resolved := data.ActiveState == "RESOLVED"
	var resolution *string
	if data.Resolution != nil {
		s := toString(data.Resolution)
		resolution = &s
	}

	url := data.PageURL
	if url == "" {
		url = "https://www.metaculus.com/questions/" + strconv.Itoa(data.ID) + "/"
	}

	m, err := schema.NewMarket(schema.Market{
		Platform:    a.Platform(),
		NativeID:    strconv.Itoa(data.ID),
		URL:         url,
		Title:       data.Title,
		Description: data.Description,
		Category:    schema.NormalizeCategory(category),
		Probability: probability,
		Outcomes:    schema.BinaryOutcomes(probability),
		CreatedAt:   createdAt,
		ClosesAt:    closesAt,
		Resolved:    resolved,
		Resolution:  resolution,
		LastFetched: time.Now().UTC(),
	})
	if err != nil {
		return schema.Market{}, errs.NewInvariantViolation("metaculus question %d: %v", data.ID, err)
	}
	return m, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return ""
	}
}
