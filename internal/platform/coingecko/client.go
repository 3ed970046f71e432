// Package coingecko is a REST client for the CoinGecko simple price API,
// used as the Neon-side price source.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the REST client for the CoinGecko API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new CoinGecko client.
//
// baseURL is the API root, e.g. "https://api.coingecko.com/api/v3".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SimplePrices returns USD prices keyed by CoinGecko coin ID.
func (c *Client) SimplePrices(ctx context.Context, ids []string) (map[string]float64, error) {
	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", "usd")

	body, err := c.doGet(ctx, "/simple/price?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("coingecko: simple price: %w", err)
	}

	var raw map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("coingecko: decode prices: %w", err)
	}

	prices := make(map[string]float64, len(raw))
	for id, entry := range raw {
		prices[id] = entry.USD
	}
	return prices, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
