package rpc

import (
	"encoding/json"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// Application codes, one per failure class.
	CodeDerivationFailed    = -32010
	CodeNotImplemented      = -32011
	CodeSerializationFailed = -32012
	CodeServiceFailed       = -32013
	CodeExecutionError      = -32015
)

// Request is a JSON-RPC 2.0 request. Params are positional.
type Request struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// InputParam references a previous output. TxID is display-order hex.
type InputParam struct {
	TxID     string  `json:"txid"`
	Vout     uint32  `json:"vout"`
	Sequence *uint32 `json:"sequence,omitempty"`
}

// OutputParam describes one output. Exactly one of Phone, Address or Data is set.
type OutputParam struct {
	Phone   *string     `json:"phone,omitempty"`
	Address *string     `json:"address,omitempty"`
	Data    *string     `json:"data,omitempty"`
	Amount  json.Number `json:"amount,omitempty"`
}
