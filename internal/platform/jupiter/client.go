// Package jupiter is a REST client for the Jupiter price API, used as the
// Solana-side price source.
package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is the REST client for the Jupiter price API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new Jupiter client.
//
// baseURL is the API root, e.g. "https://lite-api.jup.ag/price/v2".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Prices returns USD prices keyed by SPL mint address.
func (c *Client) Prices(ctx context.Context, mints []string) (map[string]float64, error) {
	params := url.Values{}
	params.Set("ids", strings.Join(mints, ","))

	body, err := c.doGet(ctx, "?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("jupiter: prices: %w", err)
	}

	// Prices come back as decimal strings.
	var raw struct {
		Data map[string]struct {
			Price string `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("jupiter: decode prices: %w", err)
	}

	prices := make(map[string]float64, len(raw.Data))
	for mint, entry := range raw.Data {
		p, err := strconv.ParseFloat(entry.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("jupiter: parse price for %s: %w", mint, err)
		}
		prices[mint] = p
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
