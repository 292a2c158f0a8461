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

// PredictItAdapter talks to the PredictIt market data API. PredictIt is
// politics-only and exposes no search or category filtering server-side, so
// SearchMarkets and BrowseCategory filter a full market dump client-side.
// The API exposes no creation time, so CreatedAt is set to the decode time
// and is only an approximation.
type PredictItAdapter struct {
	client *resty.Client
}

func NewPredictItAdapter() *PredictItAdapter {
	return &PredictItAdapter{client: newHTTPClient("https://www.predictit.org/api/marketdata")}
}

func (a *PredictItAdapter) Platform() string { return "predictit" }
func (a *PredictItAdapter) Close() error     { return nil }

type predictItContract struct {
	Name           string   `json:"name"`
	LastTradePrice *float64 `json:"lastTradePrice"`
	BestBuyYesCost *float64 `json:"bestBuyYesCost"`
}

type predictItMarket struct {
	ID        int                 `json:"id"`
	Name      string              `json:"name"`
	ShortName string              `json:"shortName"`
	URL       string              `json:"url"`
	Status    string              `json:"status"`
	Contracts []predictItContract `json:"contracts"`
}

type predictItAllResponse struct {
	Markets []predictItMarket `json:"markets"`
}

func (a *PredictItAdapter) GetMarket(ctx context.Context, nativeID string) (schema.Market, error) {
	var data predictItMarket
	if err := getJSON(ctx, a.client, a.Platform(), "/markets/"+nativeID, nil, &data); err != nil {
		return schema.Market{}, err
	}
	return a.parseMarket(data)
}

func (a *PredictItAdapter) SearchMarkets(ctx context.Context, query, category string) ([]schema.Market, error) {
	var data predictItAllResponse
	if err := getJSON(ctx, a.client, a.Platform(), "/all/", nil, &data); err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	var out []schema.Market
	for _, raw := range data.Markets {
		if strings.Contains(strings.ToLower(raw.Name), queryLower) || strings.Contains(strings.ToLower(raw.ShortName), queryLower) {
			m, err := a.parseMarket(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
			if len(out) >= maxSearchResults {
				break
			}
		}
	}
	return out, nil
}

func (a *PredictItAdapter) ListCategories(ctx context.Context) ([]string, error) {
	return []string{"politics"}, nil
}

func (a *PredictItAdapter) BrowseCategory(ctx context.Context, category string, limit int) ([]schema.Market, error) {
	if category != "politics" {
		return nil, nil
	}
	var data predictItAllResponse
	if err := getJSON(ctx, a.client, a.Platform(), "/all/", nil, &data); err != nil {
		return nil, err
	}

	var out []schema.Market
	for _, raw := range data.Markets {
		if raw.Status != "Open" {
			continue
		}
		m, err := a.parseMarket(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (a *PredictItAdapter) parseMarket(data predictItMarket) (schema.Market, error) {
	probability := 0.5
	if len(data.Contracts) > 0 {
		probability = contractPrice(data.Contracts[0], 0.5)
	}
	probability = schema.ClampProbability(probability)

	outcomes := make([]schema.Outcome, 0, len(data.Contracts))
	for _, c := range data.Contracts {
		name := c.Name
		if name == "" {
			name = "Unknown"
		}
		outcomes = append(outcomes, schema.Outcome{
			Name:        name,
			Probability: schema.ClampProbability(contractPrice(c, 0.5)),
		})
	}

	url := data.URL
	if url == "" {
		url = "https://www.predictit.org/markets/detail/" + strconv.Itoa(data.ID)
	}

	m, err := schema.NewMarket(schema.Market{
		Platform:    a.Platform(),
		NativeID:    strconv.Itoa(data.ID),
		URL:         url,
		Title:       data.Name,
		Category:    "politics",
		Probability: probability,
		Outcomes:    outcomes,
		CreatedAt:   time.Now().UTC(),
		Resolved:    data.Status == "Closed",
		LastFetched: time.Now().UTC(),
	})
	if err != nil {
		return schema.Market{}, errs.NewInvariantViolation("predictit market %d: %v", data.ID, err)
	}
	return m, nil
}

// contractPrice prefers the last traded price, falling back to the best
// yes-buy cost, then to the supplied default.
func contractPrice(c predictItContract, def float64) float64 {
	if c.LastTradePrice != nil {
		return *c.LastTradePrice
	}
	if c.BestBuyYesCost != nil {
		return *c.BestBuyYesCost
	}
	return def
}
