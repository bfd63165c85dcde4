package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	klog "github.com/olehkaliuzhnyi/pay2phone/internal/log"
)

// RPCConfig configures the node JSON-RPC endpoint.
type RPCConfig struct {
	URL      string
	User     string
	Password string
	Timeout  time.Duration
}

// RPCBackend calls the node's JSON-RPC interface over HTTP.
type RPCBackend struct {
	client *resty.Client
	logger zerolog.Logger
}

type nodeRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type nodeResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *nodeError      `json:"error"`
}

type nodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewRPCBackend returns a backend for the node at cfg.URL.
func NewRPCBackend(cfg RPCConfig) *RPCBackend {
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetHeader("Content-Type", "application/json")
	if cfg.User != "" {
		client.SetBasicAuth(cfg.User, cfg.Password)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &RPCBackend{
		client: client,
		logger: klog.WithComponent("backend").With().Str("backend", "rpc").Logger(),
	}
}

// SendToAddress calls sendtoaddress. The amount is sent as a JSON number.
func (b *RPCBackend) SendToAddress(ctx context.Context, address, amount string) (*chainhash.Hash, error) {
	raw, err := b.call(ctx, "sendtoaddress", address, json.Number(amount))
	if err != nil {
		return nil, err
	}
	var txid string
	if err := json.Unmarshal(raw, &txid); err != nil {
		return nil, fmt.Errorf("%w: sendtoaddress result: %v", ErrServiceFailed, err)
	}
	return parseTxID(txid)
}

// GetBalance calls getbalance and returns the reported number verbatim.
func (b *RPCBackend) GetBalance(ctx context.Context, account string) (string, error) {
	raw, err := b.call(ctx, "getbalance", account)
	if err != nil {
		return "", err
	}
	var quoted string
	if err := json.Unmarshal(raw, &quoted); err == nil {
		return parseBalance(quoted)
	}
	return parseBalance(string(raw))
}

func (b *RPCBackend) call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	var out nodeResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(nodeRequest{JSONRPC: "1.0", ID: "pay2phone", Method: method, Params: params}).
		SetResult(&out).
		SetError(&out).
		Post("")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrServiceFailed, method, err)
	}

	b.logger.Debug().
		Str("method", method).
		Int("status", resp.StatusCode()).
		Dur("duration", resp.Time()).
		Msg("node rpc call")

	if out.Error != nil {
		return nil, fmt.Errorf("%w: %s: node error %d: %s", ErrServiceFailed, method, out.Error.Code, out.Error.Message)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s: http status %d", ErrServiceFailed, method, resp.StatusCode())
	}
	if len(out.Result) == 0 || string(out.Result) == "null" {
		return nil, fmt.Errorf("%w: %s: empty result", ErrServiceFailed, method)
	}
	return out.Result, nil
}
