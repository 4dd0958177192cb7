// Package httprpc implements outbound.RPCClient over HTTPS: a JSON-RPC
// 2.0 client with retry/backoff, single and batched calls, and a
// capability-set HTTPDoer instead of a hard dependency on net/http so a
// test double can stand in.
package httprpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nodies-labs/liqsentinel/internal/pkg/errkind"
	"github.com/nodies-labs/liqsentinel/internal/pkg/retry"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

// Endpoint describes one JSON-RPC HTTP endpoint and its auth.
type Endpoint struct {
	URL string
	// AuthHeaderName/AuthHeaderValue set a named header (e.g.
	// "Authorization: Bearer ..."), used when the provider wants a
	// specific header name. AuthHeaderValue alone (AuthHeaderName empty)
	// is sent as a raw "Authorization" value.
	AuthHeaderName  string
	AuthHeaderValue string
}

func (e Endpoint) headers() map[string]string {
	if e.AuthHeaderValue == "" {
		return nil
	}
	name := e.AuthHeaderName
	if name == "" {
		name = "Authorization"
	}
	return map[string]string{name: e.AuthHeaderValue}
}

// Config configures the client.
type Config struct {
	Public          Endpoint
	Private         *Endpoint // optional; used only for SendRawPrivate
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	Retry           retry.Config
}

// ConfigDefaults returns sane defaults for the read/write timeouts and
// retry policy (300-900ms reads, up to 5s writes).
func ConfigDefaults() Config {
	return Config{
		ReadTimeout:  900 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		Retry:        retry.DefaultConfig(),
	}
}

// Client is the default outbound.RPCClient implementation.
type Client struct {
	cfg  Config
	http outbound.HTTPDoer
}

var _ outbound.RPCClient = (*Client)(nil)

// New creates a Client over the given HTTPDoer capability.
func New(cfg Config, doer outbound.HTTPDoer) (*Client, error) {
	if cfg.Public.URL == "" {
		return nil, errkind.New(errkind.Config, "httprpc: public endpoint URL is required")
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 900 * time.Millisecond
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Client{cfg: cfg, http: doer}, nil
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonRPCResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *jsonRPCError   `json:"error"`
}

func isRetryableHTTPErr(err error) bool {
	return err != nil
}

func (c *Client) doCall(ctx context.Context, ep Endpoint, timeout time.Duration, req jsonRPCRequest) (json.RawMessage, error) {
	resp, err := c.doCallRaw(ctx, ep, timeout, req)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

func (c *Client) doCallRaw(ctx context.Context, ep Endpoint, timeout time.Duration, req jsonRPCRequest) (*jsonRPCResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errkind.Wrap(errkind.Decode, "httprpc: marshal request", err)
	}

	result, err := retry.Do(ctx, c.cfg.Retry, isRetryableHTTPErr, nil, func() (*jsonRPCResponse, error) {
		status, respBody, err := c.http.Post(ctx, ep.URL, body, ep.headers(), timeout)
		if err != nil {
			return nil, errkind.Wrap(errkind.Network, "httprpc: transport error", err)
		}
		if status < 200 || status >= 300 {
			return nil, errkind.New(errkind.Network, fmt.Sprintf("httprpc: HTTP %d", status))
		}
		var rpcResp jsonRPCResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			return nil, errkind.Wrap(errkind.Decode, "httprpc: parse response", err)
		}
		if rpcResp.Error != nil {
			return nil, errkind.New(errkind.RPC, fmt.Sprintf("httprpc: %s (code %d)", rpcResp.Error.Message, rpcResp.Error.Code))
		}
		return &rpcResp, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Call implements outbound.RPCClient.
func (c *Client) Call(ctx context.Context, to string, data []byte, blockTag string) (json.RawMessage, error) {
	if blockTag == "" {
		blockTag = "latest"
	}
	req := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_call",
		Params:  []any{map[string]string{"to": to, "data": hexPrefix(data)}, blockTag},
	}
	return c.doCall(ctx, c.cfg.Public, c.cfg.ReadTimeout, req)
}

// BatchCall implements outbound.RPCClient. Each request carries a caller
// id; responses are reassembled into the caller's original order even if
// the server returns them out of order.
func (c *Client) BatchCall(ctx context.Context, reqs []outbound.BatchCallRequest) ([]outbound.BatchCallResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	batch := make([]jsonRPCRequest, len(reqs))
	for i, r := range reqs {
		tag := r.BlockTag
		if tag == "" {
			tag = "latest"
		}
		batch[i] = jsonRPCRequest{
			JSONRPC: "2.0",
			ID:      r.ID,
			Method:  "eth_call",
			Params:  []any{map[string]string{"to": r.To, "data": hexPrefix(r.Data)}, tag},
		}
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return nil, errkind.Wrap(errkind.Decode, "httprpc: marshal batch", err)
	}

	responses, err := retry.Do(ctx, c.cfg.Retry, isRetryableHTTPErr, nil, func() ([]jsonRPCResponse, error) {
		status, respBody, err := c.http.Post(ctx, c.cfg.Public.URL, body, c.cfg.Public.headers(), c.cfg.ReadTimeout)
		if err != nil {
			return nil, errkind.Wrap(errkind.Network, "httprpc: transport error", err)
		}
		if status < 200 || status >= 300 {
			return nil, errkind.New(errkind.Network, fmt.Sprintf("httprpc: HTTP %d", status))
		}
		var out []jsonRPCResponse
		if err := json.Unmarshal(respBody, &out); err != nil {
			return nil, errkind.Wrap(errkind.Decode, "httprpc: parse batch response", err)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[int]jsonRPCResponse, len(responses))
	for _, r := range responses {
		byID[r.ID] = r
	}

	out := make([]outbound.BatchCallResult, len(reqs))
	for i, r := range reqs {
		resp, ok := byID[r.ID]
		if !ok {
			out[i] = outbound.BatchCallResult{ID: r.ID, Err: errkind.New(errkind.Decode, fmt.Sprintf("httprpc: missing response for id %d", r.ID))}
			continue
		}
		if resp.Error != nil {
			out[i] = outbound.BatchCallResult{ID: r.ID, Err: errkind.New(errkind.RPC, resp.Error.Message)}
			continue
		}
		out[i] = outbound.BatchCallResult{ID: r.ID, Result: resp.Result}
	}
	return out, nil
}

// SendRawPublic implements outbound.RPCClient.
func (c *Client) SendRawPublic(ctx context.Context, rawTxHex string) (string, error) {
	return c.sendRaw(ctx, c.cfg.Public, rawTxHex)
}

// SendRawPrivate implements outbound.RPCClient.
func (c *Client) SendRawPrivate(ctx context.Context, rawTxHex string) (string, error) {
	if c.cfg.Private == nil {
		return "", errkind.New(errkind.Config, "httprpc: no private endpoint configured")
	}
	return c.sendRaw(ctx, *c.cfg.Private, rawTxHex)
}

func (c *Client) sendRaw(ctx context.Context, ep Endpoint, rawTxHex string) (string, error) {
	req := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_sendRawTransaction",
		Params:  []any{rawTxHex},
	}
	raw, err := c.doCall(ctx, ep, c.cfg.WriteTimeout, req)
	if err != nil {
		return "", err
	}
	var hash string
	if err := json.Unmarshal(raw, &hash); err != nil {
		return "", errkind.Wrap(errkind.Decode, "httprpc: parse tx hash", err)
	}
	return hash, nil
}

// GetBlockByNumber implements outbound.RPCClient.
func (c *Client) GetBlockByNumber(ctx context.Context, tag string, fullTx bool) (json.RawMessage, error) {
	req := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_getBlockByNumber",
		Params:  []any{tag, fullTx},
	}
	return c.doCall(ctx, c.cfg.Public, c.cfg.ReadTimeout, req)
}

// BlockNumber implements outbound.RPCClient.
func (c *Client) BlockNumber(ctx context.Context) (int64, error) {
	req := jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: "eth_blockNumber", Params: []any{}}
	raw, err := c.doCall(ctx, c.cfg.Public, c.cfg.ReadTimeout, req)
	if err != nil {
		return 0, err
	}
	return decodeQuantity(raw)
}

// TransactionReceipt implements outbound.RPCClient.
func (c *Client) TransactionReceipt(ctx context.Context, txHash string) (json.RawMessage, error) {
	req := jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: "eth_getTransactionReceipt", Params: []any{txHash}}
	return c.doCall(ctx, c.cfg.Public, c.cfg.ReadTimeout, req)
}

// TransactionCount implements outbound.RPCClient.
func (c *Client) TransactionCount(ctx context.Context, address, tag string) (uint64, error) {
	if tag == "" {
		tag = "pending"
	}
	req := jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: "eth_getTransactionCount", Params: []any{address, tag}}
	raw, err := c.doCall(ctx, c.cfg.Public, c.cfg.ReadTimeout, req)
	if err != nil {
		return 0, err
	}
	v, err := decodeQuantity(raw)
	if err != nil {
		return 0, err
	}
	return uint64(v), nil
}

// MaxPriorityFeePerGas implements outbound.RPCClient.
func (c *Client) MaxPriorityFeePerGas(ctx context.Context) (int64, error) {
	req := jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: "eth_maxPriorityFeePerGas", Params: []any{}}
	raw, err := c.doCall(ctx, c.cfg.Public, c.cfg.ReadTimeout, req)
	if err != nil {
		return 0, err
	}
	return decodeQuantity(raw)
}

// NewBlockFilter implements outbound.RPCClient.
func (c *Client) NewBlockFilter(ctx context.Context) (string, error) {
	req := jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: "eth_newBlockFilter", Params: []any{}}
	raw, err := c.doCall(ctx, c.cfg.Public, c.cfg.ReadTimeout, req)
	if err != nil {
		return "", err
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", errkind.Wrap(errkind.Decode, "httprpc: parse filter id", err)
	}
	return id, nil
}

// GetFilterChanges implements outbound.RPCClient.
func (c *Client) GetFilterChanges(ctx context.Context, filterID string) ([]json.RawMessage, error) {
	req := jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: "eth_getFilterChanges", Params: []any{filterID}}
	raw, err := c.doCall(ctx, c.cfg.Public, c.cfg.ReadTimeout, req)
	if err != nil {
		return nil, err
	}
	var out []json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errkind.Wrap(errkind.Decode, "httprpc: parse filter changes", err)
	}
	return out, nil
}

// UninstallFilter implements outbound.RPCClient.
func (c *Client) UninstallFilter(ctx context.Context, filterID string) error {
	req := jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: "eth_uninstallFilter", Params: []any{filterID}}
	_, err := c.doCall(ctx, c.cfg.Public, c.cfg.ReadTimeout, req)
	return err
}

func decodeQuantity(raw json.RawMessage) (int64, error) {
	var hexStr string
	if err := json.Unmarshal(raw, &hexStr); err != nil {
		return 0, errkind.Wrap(errkind.Decode, "httprpc: parse quantity", err)
	}
	var v int64
	if _, err := fmt.Sscanf(hexStr, "0x%x", &v); err != nil {
		return 0, errkind.Wrap(errkind.Decode, "httprpc: parse hex quantity "+hexStr, err)
	}
	return v, nil
}

func hexPrefix(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 2+len(b)*2)
	out[0], out[1] = '0', 'x'
	for i, c := range b {
		out[2+i*2] = hexdigits[c>>4]
		out[2+i*2+1] = hexdigits[c&0xf]
	}
	return string(out)
}
