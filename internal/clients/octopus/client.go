// Package octopus fetches Agile tariff unit rates from the Octopus Energy API.
package octopus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Client is an Octopus Energy API client for a single Agile product/region.
type Client struct {
	client  *http.Client
	baseURL string
	product string
	region  string
	log     zerolog.Logger
}

// NewClient creates a new Octopus Energy client. baseURL should normally be
// "https://api.octopus.energy/v1".
func NewClient(baseURL, product, region string, log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
		product: product,
		region:  region,
		log:     log.With().Str("client", "octopus").Logger(),
	}
}

// Rate is a half-hourly unit price including VAT.
type Rate struct {
	ValidFrom time.Time
	Price     float64
}

type unitRatesResponse struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []struct {
		ValidFrom   string  `json:"valid_from"`
		ValidTo     string  `json:"valid_to"`
		ValueIncVAT float64 `json:"value_inc_vat"`
	} `json:"results"`
}

// UnitRates fetches all standard unit rates valid from periodFrom onwards,
// following pagination. The returned rates are unordered.
func (c *Client) UnitRates(ctx context.Context, periodFrom time.Time) ([]Rate, error) {
	tariffCode := fmt.Sprintf("E-1R-%s-%s", c.product, c.region)
	reqURL := fmt.Sprintf(
		"%s/products/%s/electricity-tariffs/%s/standard-unit-rates/?period_from=%s",
		c.baseURL, c.product, tariffCode,
		url.QueryEscape(periodFrom.UTC().Format("2006-01-02T15:04:05Z")),
	)

	var rates []Rate
	for reqURL != "" {
		page, err := c.getUnitRatesPage(ctx, reqURL)
		if err != nil {
			return nil, err
		}
		for _, result := range page.Results {
			validFrom, err := time.Parse(time.RFC3339, result.ValidFrom)
			if err != nil {
				return nil, fmt.Errorf("failed to parse valid_from %q: %w", result.ValidFrom, err)
			}
			rates = append(rates, Rate{ValidFrom: validFrom.UTC(), Price: result.ValueIncVAT})
		}
		if page.Next != nil {
			reqURL = *page.Next
		} else {
			reqURL = ""
		}
	}

	c.log.Debug().Int("count", len(rates)).Time("period_from", periodFrom).Msg("Fetched unit rates")
	return rates, nil
}

func (c *Client) getUnitRatesPage(ctx context.Context, reqURL string) (*unitRatesResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unit rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Octopus API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var page unitRatesResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &page, nil
}
