// Package subgraph implements outbound.PositionValuer against an Aave v3
// subgraph: a single GraphQL POST per
// user resolving totalCollateralUSD/totalDebtUSD, using the shared
// retry.Do helper the same way coingecko.Client and httpclient.Client do,
// with a bespoke POST body since the shared httpclient.Client only issues
// GETs.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/pkg/errkind"
	"github.com/nodies-labs/liqsentinel/internal/pkg/retry"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

var _ outbound.PositionValuer = (*Client)(nil)

// Config configures the subgraph client.
type Config struct {
	URL        string
	Timeout    time.Duration
	Retry      retry.Config
	HTTPClient *http.Client
}

// ConfigDefaults returns sane request timeout and retry defaults.
func ConfigDefaults() Config {
	return Config{
		Timeout: 5 * time.Second,
		Retry:   retry.DefaultConfig(),
	}
}

// Client queries an Aave v3 subgraph for per-user position totals.
type Client struct {
	cfg  Config
	http *http.Client
}

// New constructs a Client. An empty URL makes every query fail, which
// callers should treat the same as "position value unknown".
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

const userPositionQuery = `query($id: ID!) {
  user(id: $id) {
    id
    totalCollateralUSD
    totalDebtUSD
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type userPositionResponse struct {
	Data struct {
		User *struct {
			TotalCollateralUSD string `json:"totalCollateralUSD"`
			TotalDebtUSD       string `json:"totalDebtUSD"`
		} `json:"user"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// UserPosition resolves one user's totals with a bounded number of
// retries on transport errors (not on a well-formed "no position" reply).
func (c *Client) UserPosition(ctx context.Context, user domain.Address) (outbound.PositionUSDValue, error) {
	if c.cfg.URL == "" {
		return outbound.PositionUSDValue{}, errkind.New(errkind.Config, "subgraph: no AAVE_SUBGRAPH_URL configured")
	}

	return retry.Do(ctx, c.cfg.Retry, isRetryableError, nil, func() (outbound.PositionUSDValue, error) {
		return c.query(ctx, user)
	})
}

func isRetryableError(err error) bool {
	return errkind.Is(err, errkind.Network)
}

func (c *Client) query(ctx context.Context, user domain.Address) (outbound.PositionUSDValue, error) {
	body, err := json.Marshal(graphqlRequest{
		Query:     userPositionQuery,
		Variables: map[string]any{"id": user.Hex()},
	})
	if err != nil {
		return outbound.PositionUSDValue{}, errkind.Wrap(errkind.Decode, "subgraph: encode query", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return outbound.PositionUSDValue{}, errkind.Wrap(errkind.Network, "subgraph: build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return outbound.PositionUSDValue{}, errkind.Wrap(errkind.Network, "subgraph: request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return outbound.PositionUSDValue{}, errkind.Wrap(errkind.Network, "subgraph: read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return outbound.PositionUSDValue{}, errkind.New(errkind.Network, fmt.Sprintf("subgraph: status %d", resp.StatusCode))
	}

	var parsed userPositionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return outbound.PositionUSDValue{}, errkind.Wrap(errkind.Decode, "subgraph: decode response", err)
	}
	if len(parsed.Errors) > 0 {
		return outbound.PositionUSDValue{}, errkind.New(errkind.Decode, fmt.Sprintf("subgraph: %s", parsed.Errors[0].Message))
	}
	if parsed.Data.User == nil {
		return outbound.PositionUSDValue{}, nil
	}

	var v outbound.PositionUSDValue
	fmt.Sscanf(parsed.Data.User.TotalCollateralUSD, "%f", &v.TotalCollateralUSD)
	fmt.Sscanf(parsed.Data.User.TotalDebtUSD, "%f", &v.TotalDebtUSD)
	return v, nil
}
