package adapters

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/artemgubar/predictive-market-federation/internal/errs"
	"github.com/artemgubar/predictive-market-federation/internal/schema"
)

var kalshiCategories = []string{
	"politics", "crypto", "economics", "science", "entertainment", "sports", "technology",
}

// KalshiAdapter talks to the Kalshi trade API. Kalshi issues RSA-signed
// member tokens; when a signing key is configured, requests carry a short
// lived bearer token minted with jwt.v5 instead of hitting the API anonymously.
type KalshiAdapter struct {
	client    *resty.Client
	signKey   []byte // PEM-encoded RSA private key, optional
	keyID     string
	tokenFunc func() (string, error) // overridable in tests
}

// NewKalshiAdapter builds a KalshiAdapter. signKey and keyID may be empty to
// use the API anonymously (public market data does not require auth).
func NewKalshiAdapter(signKey []byte, keyID string) *KalshiAdapter {
	a := &KalshiAdapter{
		client:  newHTTPClient("https://api.elections.kalshi.com/trade-api/v2"),
		signKey: signKey,
		keyID:   keyID,
	}
	a.tokenFunc = a.mintBearerToken
	return a
}

func (a *KalshiAdapter) Platform() string { return "kalshi" }
func (a *KalshiAdapter) Close() error     { return nil }

// mintBearerToken signs a short-lived JWT identifying this client to Kalshi.
// Returns "" with no error when no signing key is configured.
func (a *KalshiAdapter) mintBearerToken() (string, error) {
	if len(a.signKey) == 0 {
		return "", nil
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(a.signKey)
	if err != nil {
		return "", errs.InternalPlatformError(a.Platform(), err)
	}
	claims := jwt.MapClaims{
		"sub": a.keyID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Minute).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = a.keyID
	signed, err := token.SignedString(key)
	if err != nil {
		return "", errs.InternalPlatformError(a.Platform(), err)
	}
	return signed, nil
}

type kalshiMarket struct {
	Ticker    string  `json:"ticker"`
	Title     string  `json:"title"`
	Subtitle  string  `json:"subtitle"`
	Category  string  `json:"category"`
	YesAsk    *int    `json:"yes_ask"`
	LastPrice *int    `json:"last_price"`
	CloseTime string  `json:"close_time"`
	Status    string  `json:"status"`
	Result    *string `json:"result"`
	Volume    *float64 `json:"volume"`
}

type kalshiGetMarketResponse struct {
	Market kalshiMarket `json:"market"`
}

type kalshiListMarketsResponse struct {
	Markets []kalshiMarket `json:"markets"`
}

func (a *KalshiAdapter) GetMarket(ctx context.Context, nativeID string) (schema.Market, error) {
	var data kalshiGetMarketResponse
	if err := a.get(ctx, "/markets/"+nativeID, nil, &data); err != nil {
		return schema.Market{}, err
	}
	return a.parseMarket(data.Market)
}

func (a *KalshiAdapter) SearchMarkets(ctx context.Context, query, category string) ([]schema.Market, error) {
	var data kalshiListMarketsResponse
	if err := a.get(ctx, "/markets", map[string]string{"ticker": query}, &data); err != nil {
		return nil, err
	}

	var out []schema.Market
	for _, raw := range data.Markets {
		m, err := a.parseMarket(raw)
		if err != nil {
			return nil, err
		}
		if category == "" || m.Category == category {
			out = append(out, m)
			if len(out) >= maxSearchResults {
				break
			}
		}
	}
	return out, nil
}

func (a *KalshiAdapter) ListCategories(ctx context.Context) ([]string, error) {
	out := append([]string(nil), kalshiCategories...)
	sort.Strings(out)
	return out, nil
}

func (a *KalshiAdapter) BrowseCategory(ctx context.Context, category string, limit int) ([]schema.Market, error) {
	var data kalshiListMarketsResponse
	params := map[string]string{"limit": strconv.Itoa(limit), "status": "active"}
	if err := a.get(ctx, "/markets", params, &data); err != nil {
		return nil, err
	}

	var out []schema.Market
	for _, raw := range data.Markets {
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

// get issues an authenticated (if configured) GET and decodes the response.
func (a *KalshiAdapter) get(ctx context.Context, path string, query map[string]string, out any) error {
	token, err := a.tokenFunc()
	if err != nil {
		return err
	}
	req := a.client.R().SetContext(ctx)
	if token != "" {
		req = req.SetAuthToken(token)
	}
	if len(query) > 0 {
		req = req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	if err != nil {
		return errs.NewPlatformError(a.Platform(), err)
	}
	if resp.IsError() {
		return errs.NewPlatformError(a.Platform(), errs.NewInvalidArgumentError("upstream status %d on %s", resp.StatusCode(), path))
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return errs.NewPlatformError(a.Platform(), err)
	}
	return nil
}

func (a *KalshiAdapter) parseMarket(data kalshiMarket) (schema.Market, error) {
	probability := 0.5
	switch {
	case data.YesAsk != nil:
		probability = float64(*data.YesAsk) / 100.0
	case data.LastPrice != nil:
		probability = float64(*data.LastPrice) / 100.0
	}
	probability = schema.ClampProbability(probability)

	category := strings.ToLower(data.Category)
	if category == "" {
		category = "other"
	}

	var closesAt *time.Time
	if data.CloseTime != "" {
		if t, err := time.Parse(time.RFC3339, data.CloseTime); err == nil {
			closesAt = &t
		}
	}

	resolved := data.Status == "finalized" || data.Result != nil

	m, err := schema.NewMarket(schema.Market{
		Platform:    a.Platform(),
		NativeID:    data.Ticker,
		URL:         "https://kalshi.com/markets/" + data.Ticker,
		Title:       data.Title,
		Description: data.Subtitle,
		Category:    schema.NormalizeCategory(category),
		Probability: probability,
		Outcomes:    schema.BinaryOutcomes(probability),
		Volume:      data.Volume,
		CreatedAt:   time.Now().UTC(),
		ClosesAt:    closesAt,
		Resolved:    resolved,
		Resolution:  data.Result,
		LastFetched: time.Now().UTC(),
	})
	if err != nil {
		return schema.Market{}, errs.NewInvariantViolation("kalshi market %s: %v", data.Ticker, err)
	}
	return m, nil
}
