package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// ErrUnreachable indicates the daemon RPC endpoint could not be contacted.
var ErrUnreachable = errors.New("daemon unreachable")

// Error is a JSON-RPC error returned by divid.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Client speaks JSON-RPC 1.0 to a divid daemon over HTTP basic auth.
type Client struct {
	endpoint string
	user     string
	password string
	client   *http.Client
	id       atomic.Uint64
}

// New constructs a client for the given endpoint, e.g. "http://127.0.0.1:51473".
func New(endpoint string, creds Credentials, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		user:     creds.User,
		password: creds.Password,
		client:   &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the HTTP endpoint this client targets.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Call invokes a JSON-RPC method and decodes the result into out when non-nil.
// Transport failures wrap ErrUnreachable; daemon-reported failures return *Error.
func (c *Client) Call(ctx context.Context, method string, params []any, out any) error {
	if params == nil {
		params = []any{}
	}
	payload, err := json.Marshal(request{
		JSONRPC: "1.0",
		ID:      c.id.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.user, c.password)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnreachable, c.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnreachable, err)
	}

	// divid returns HTTP 500 for JSON-RPC errors (e.g. "Loading wallet..."),
	// with the error detail in the JSON body.
	var decoded response
	if err := json.Unmarshal(body, &decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &Error{Code: resp.StatusCode, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
		}
		return fmt.Errorf("decode rpc response: %w", err)
	}
	if decoded.Error != nil {
		return &Error{Code: decoded.Error.Code, Message: decoded.Error.Message}
	}
	if out != nil && len(decoded.Result) > 0 {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("decode rpc result: %w", err)
		}
	}
	return nil
}

// Ping reports whether the daemon is responding to RPC.
func (c *Client) Ping(ctx context.Context) error {
	return c.Call(ctx, "getinfo", nil, nil)
}

// BlockchainInfo is the subset of getblockchaininfo the orchestrator reads.
type BlockchainInfo struct {
	Blocks               int64   `json:"blocks"`
	Headers              int64   `json:"headers"`
	VerificationProgress float64 `json:"verificationprogress"`
}

// GetBlockchainInfo queries current sync progress.
func (c *Client) GetBlockchainInfo(ctx context.Context) (BlockchainInfo, error) {
	var info BlockchainInfo
	if err := c.Call(ctx, "getblockchaininfo", nil, &info); err != nil {
		return BlockchainInfo{}, err
	}
	return info, nil
}

// RecoverWallet asks the daemon to recreate the wallet from a mnemonic and
// rescan the chain. The seed is passed through verbatim and never logged.
func (c *Client) RecoverWallet(ctx context.Context, mnemonic string) error {
	return c.Call(ctx, "recoverwalletfromseed", []any{mnemonic, true}, nil)
}

// Stop asks the daemon to shut down.
func (c *Client) Stop(ctx context.Context) error {
	return c.Call(ctx, "stop", nil, nil)
}
