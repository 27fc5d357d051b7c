package finnhub

import (
	"context"
	"fmt"
	"strings"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	xhttp "StockPulse/pkg/http"
)

// ProfileClient looks up company names and listing exchanges via the REST API.
type ProfileClient struct {
	http    *xhttp.Client
	baseURL string
	apiKey  string
}

func NewProfileClient(client *xhttp.Client, baseURL, apiKey string) *ProfileClient {
	return &ProfileClient{http: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

type profileResponse struct {
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Ticker   string `json:"ticker"`
}

// Lookup returns defaults from /stock/profile2. Unknown symbols come back as
// an empty object and are reported as an error so the caller falls back.
func (p *ProfileClient) Lookup(ctx context.Context, symbol string) (models.InstrumentDefaults, error) {
	var res profileResponse
	err := p.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    p.baseURL + "/stock/profile2",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {p.apiKey},
		},
	}, &res)
	if err != nil {
		return models.InstrumentDefaults{}, fmt.Errorf("finnhub profile %s: %w", symbol, err)
	}
	if res.Name == "" {
		return models.InstrumentDefaults{}, fmt.Errorf("finnhub profile %s: empty profile", symbol)
	}
	return models.InstrumentDefaults{DisplayName: res.Name, Exchange: normalizeExchange(res.Exchange)}, nil
}

// normalizeExchange shortens "NASDAQ NMS - GLOBAL MARKET" style names.
func normalizeExchange(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, " "); i > 0 {
		return s[:i]
	}
	return s
}

var _ drepo.ProfileLookup = (*ProfileClient)(nil)
