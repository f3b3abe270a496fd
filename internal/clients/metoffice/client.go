// Package metoffice fetches site-specific temperature forecasts from the Met
// Office DataHub API.
package metoffice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client is a Met Office DataHub client for a fixed location.
type Client struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	latitude  float64
	longitude float64
	log       zerolog.Logger
}

// NewClient creates a new Met Office client. baseURL should normally be
// "https://data.hub.api.metoffice.gov.uk/sitespecific/v0".
func NewClient(baseURL, apiKey string, latitude, longitude float64, log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:   baseURL,
		apiKey:    apiKey,
		latitude:  latitude,
		longitude: longitude,
		log:       log.With().Str("client", "metoffice").Logger(),
	}
}

// TemperaturePoint is a forecast temperature at a point in time.
type TemperaturePoint struct {
	Time        time.Time
	Temperature float64
}

type pointForecastResponse struct {
	Features []struct {
		Properties struct {
			TimeSeries []struct {
				Time              string   `json:"time"`
				ScreenTemperature *float64 `json:"screenTemperature"`
				MaxScreenAirTemp  *float64 `json:"maxScreenAirTemp"`
				MinScreenAirTemp  *float64 `json:"minScreenAirTemp"`
			} `json:"timeSeries"`
		} `json:"properties"`
	} `json:"features"`
}

// Hourly fetches the hourly screen-temperature forecast.
func (c *Client) Hourly(ctx context.Context) ([]TemperaturePoint, error) {
	series, err := c.pointForecast(ctx, "hourly")
	if err != nil {
		return nil, err
	}
	points := make([]TemperaturePoint, 0, len(series))
	for _, entry := range series {
		if entry.temp.ScreenTemperature == nil {
			continue
		}
		points = append(points, TemperaturePoint{Time: entry.time, Temperature: *entry.temp.ScreenTemperature})
	}
	return points, nil
}

// ThreeHourly fetches the three-hourly forecast; each point's temperature is
// the mean of the period's max and min screen air temperatures. The
// three-hourly product is less detailed but extends further into the future.
func (c *Client) ThreeHourly(ctx context.Context) ([]TemperaturePoint, error) {
	series, err := c.pointForecast(ctx, "three-hourly")
	if err != nil {
		return nil, err
	}
	points := make([]TemperaturePoint, 0, len(series))
	for _, entry := range series {
		if entry.temp.MaxScreenAirTemp == nil || entry.temp.MinScreenAirTemp == nil {
			continue
		}
		points = append(points, TemperaturePoint{
			Time:        entry.time,
			Temperature: 0.5 * (*entry.temp.MaxScreenAirTemp + *entry.temp.MinScreenAirTemp),
		})
	}
	return points, nil
}

type seriesEntry struct {
	time time.Time
	temp struct {
		ScreenTemperature *float64
		MaxScreenAirTemp  *float64
		MinScreenAirTemp  *float64
	}
}

func (c *Client) pointForecast(ctx context.Context, product string) ([]seriesEntry, error) {
	reqURL := fmt.Sprintf(
		"%s/point/%s?includeLocationName=true&latitude=%v&longitude=%v",
		c.baseURL, product, c.latitude, c.longitude,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s forecast: %w", product, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Met Office API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed pointForecastResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Features) == 0 {
		return nil, fmt.Errorf("no features in %s forecast response", product)
	}

	var entries []seriesEntry
	for _, ts := range parsed.Features[0].Properties.TimeSeries {
		// Times are UTC in the form 2006-01-02T15:04Z.
		pointTime, err := time.Parse("2006-01-02T15:04Z", ts.Time)
		if err != nil {
			return nil, fmt.Errorf("failed to parse forecast time %q: %w", ts.Time, err)
		}
		entry := seriesEntry{time: pointTime}
		entry.temp.ScreenTemperature = ts.ScreenTemperature
		entry.temp.MaxScreenAirTemp = ts.MaxScreenAirTemp
		entry.temp.MinScreenAirTemp = ts.MinScreenAirTemp
		entries = append(entries, entry)
	}
	return entries, nil
}
