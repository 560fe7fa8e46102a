package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Hit is a single ranked match returned by the geocoding service.
type Hit struct {
	Lat         float64
	Lng         float64
	DisplayName string
	Importance  float64
}

// Client queries the Nominatim search API. Per the provider's usage policy
// the caller identifies itself with a contact email and keeps request cadence
// at one per second; the cadence lives in Geocoder, not here.
type Client struct {
	baseURL     string
	email       string
	countryCode string
	viewbox     string
	httpClient  *http.Client
}

// ClientConfig captures the Nominatim endpoint parameters.
type ClientConfig struct {
	BaseURL     string
	Email       string
	CountryCode string
	// Viewbox is "minLng,minLat,maxLng,maxLat" biasing results to the city.
	Viewbox string
	Timeout time.Duration
}

// NewClient constructs a Nominatim client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		email:       cfg.Email,
		countryCode: cfg.CountryCode,
		viewbox:     cfg.Viewbox,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// nominatim serializes coordinates as strings.
type nominatimResult struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}

// Search runs a free-text query and returns the single best match, or
// found=false when the service has no result for the query.
func (c *Client) Search(ctx context.Context, query string) (Hit, bool, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("countrycodes", c.countryCode)
	params.Set("viewbox", c.viewbox)
	params.Set("bounded", "0")

	reqURL := c.baseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Hit{}, false, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf("BudzetObywatelskiScraper/1.0 (%s)", c.email))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Hit{}, false, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Hit{}, false, fmt.Errorf("geocode service returned status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Hit{}, false, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return Hit{}, false, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Hit{}, false, fmt.Errorf("parse latitude %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Hit{}, false, fmt.Errorf("parse longitude %q: %w", results[0].Lon, err)
	}

	importance := results[0].Importance
	if importance == 0 {
		importance = 0.5
	}
	return Hit{
		Lat:         lat,
		Lng:         lng,
		DisplayName: results[0].DisplayName,
		Importance:  importance,
	}, true, nil
}
