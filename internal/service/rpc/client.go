package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	domrepo "LendPulse/internal/domain/repository"
	"LendPulse/internal/service/ratelimit"
	xhttp "LendPulse/pkg/http"
)

// Client is a JSON-RPC client for a chain node. It only implements the
// account-read methods the position loader needs; all writes and consensus
// concerns live elsewhere.
type Client struct {
	url        string
	commitment domrepo.Commitment
	http       *xhttp.Client
	limiter    *ratelimit.Limiter
	maxRPS     float64
	nextID     atomic.Int64
}

// NewClient builds a node client with timeout and request rate limiting.
func NewClient(url string, commitment domrepo.Commitment, timeout time.Duration, maxRPS float64) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxRPS <= 0 {
		maxRPS = 20
	}
	return &Client{
		url:        url,
		commitment: commitment,
		http:       xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter:    ratelimit.New(),
		maxRPS:     maxRPS,
	}
}

type rpcRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcContext struct {
	Slot uint64 `json:"slot"`
}

// accountValue is the node's account representation with base64 payload.
type accountValue struct {
	Data     []string `json:"data"` // [payload, encoding]
	Owner    string   `json:"owner"`
	Lamports uint64   `json:"lamports"`
}

func (v *accountValue) bytes() ([]byte, error) {
	if len(v.Data) == 0 {
		return nil, fmt.Errorf("account data missing")
	}
	b, err := base64.StdEncoding.DecodeString(v.Data[0])
	if err != nil {
		return nil, fmt.Errorf("decode account data: %w", err)
	}
	return b, nil
}

// KeyedAccount is one program account with its address and raw payload.
type KeyedAccount struct {
	Address string
	Data    []byte
}

// call performs one rate-limited JSON-RPC round trip.
func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	for !c.limiter.Allow("rpc", c.maxRPS, c.maxRPS) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(25 * time.Millisecond):
		}
	}

	id := c.nextID.Add(1)
	var resp rpcResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    rpcRequest{Jsonrpc: "2.0", ID: id, Method: method, Params: params},
	}, &resp)
	if err != nil {
		return fmt.Errorf("post %s: %w", method, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%s: %w", method, resp.Error)
	}
	if result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) encodingParams() map[string]interface{} {
	return map[string]interface{}{
		"encoding":   "base64",
		"commitment": string(c.commitment),
	}
}

// GetAccountInfo fetches one account's raw payload and the slot it was read at.
func (c *Client) GetAccountInfo(ctx context.Context, address string) ([]byte, uint64, error) {
	var result struct {
		Context rpcContext    `json:"context"`
		Value   *accountValue `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", []interface{}{address, c.encodingParams()}, &result); err != nil {
		return nil, 0, err
	}
	if result.Value == nil {
		return nil, 0, fmt.Errorf("account %s not found", address)
	}
	b, err := result.Value.bytes()
	if err != nil {
		return nil, 0, fmt.Errorf("account %s: %w", address, err)
	}
	return b, result.Context.Slot, nil
}

// GetMultipleAccounts fetches many accounts in one round trip. Missing
// accounts come back as nil entries in address order.
func (c *Client) GetMultipleAccounts(ctx context.Context, addresses []string) ([][]byte, uint64, error) {
	var result struct {
		Context rpcContext      `json:"context"`
		Value   []*accountValue `json:"value"`
	}
	if err := c.call(ctx, "getMultipleAccounts", []interface{}{addresses, c.encodingParams()}, &result); err != nil {
		return nil, 0, err
	}
	out := make([][]byte, len(result.Value))
	for i, v := range result.Value {
		if v == nil {
			continue
		}
		b, err := v.bytes()
		if err != nil {
			return nil, 0, fmt.Errorf("account %s: %w", addresses[i], err)
		}
		out[i] = b
	}
	return out, result.Context.Slot, nil
}

// MemcmpFilter matches accounts whose payload equals bytes at offset.
type MemcmpFilter struct {
	Offset int
	Bytes  string // base58
}

// GetProgramAccounts lists accounts owned by program, optionally narrowed
// by size and memcmp filters.
func (c *Client) GetProgramAccounts(ctx context.Context, program string, dataSize int, memcmp []MemcmpFilter) ([]KeyedAccount, error) {
	filters := make([]interface{}, 0, len(memcmp)+1)
	if dataSize > 0 {
		filters = append(filters, map[string]interface{}{"dataSize": dataSize})
	}
	for _, m := range memcmp {
		filters = append(filters, map[string]interface{}{
			"memcmp": map[string]interface{}{"offset": m.Offset, "bytes": m.Bytes},
		})
	}
	params := c.encodingParams()
	if len(filters) > 0 {
		params["filters"] = filters
	}

	var result []struct {
		Pubkey  string       `json:"pubkey"`
		Account accountValue `json:"account"`
	}
	if err := c.call(ctx, "getProgramAccounts", []interface{}{program, params}, &result); err != nil {
		return nil, err
	}

	out := make([]KeyedAccount, 0, len(result))
	for _, r := range result {
		b, err := r.Account.bytes()
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", r.Pubkey, err)
		}
		out = append(out, KeyedAccount{Address: r.Pubkey, Data: b})
	}
	return out, nil
}
