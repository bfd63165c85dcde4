// Package rpc implements the JSON-RPC 2.0 API server.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/olehkaliuzhnyi/pay2phone/internal/backend"
	klog "github.com/olehkaliuzhnyi/pay2phone/internal/log"
	"github.com/olehkaliuzhnyi/pay2phone/internal/service"
	"github.com/olehkaliuzhnyi/pay2phone/internal/tx"
	"github.com/olehkaliuzhnyi/pay2phone/internal/wallet"
	"github.com/olehkaliuzhnyi/pay2phone/pkg/models"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// InstantPay is the set of operations served over RPC.
type InstantPay interface {
	CreatePay2PhoneTransaction(inputs []models.TxInput, outputs []models.TxOutput, lockTime *uint32) ([]byte, error)
	GetPhonePubAddress(phone string) (string, error)
	PayToPhone(ctx context.Context, phone, amount, idempotencyKey string) (*models.PaymentReceipt, error)
	GetBalance(ctx context.Context, account string) (string, error)
}

var _ InstantPay = (*service.Service)(nil)

// Server is the JSON-RPC 2.0 HTTP server.
type Server struct {
	addr   string
	svc    InstantPay
	server *http.Server
	logger zerolog.Logger
	ln     net.Listener
}

// New creates a new RPC server listening on addr.
func New(addr string, svc InstantPay) *Server {
	s := &Server{
		addr:   addr,
		svc:    svc,
		logger: klog.WithComponent("rpc"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}
	return s
}

// Start begins listening and serving in a background goroutine.
// It returns immediately after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("RPC server error")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("RPC server listening")
	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// handleRequest is the main HTTP handler for JSON-RPC requests.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, nil, CodeInvalidRequest, "only POST method is allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, nil, CodeParseError, "failed to read request body")
		return
	}
	if len(body) > maxBodySize {
		writeError(w, nil, CodeInvalidRequest, "request body too large")
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, CodeParseError, "invalid JSON")
		return
	}

	if req.JSONRPC != "2.0" {
		writeError(w, req.ID, CodeInvalidRequest, "jsonrpc must be \"2.0\"")
		return
	}

	start := time.Now()
	result, rpcErr := s.dispatch(r.Context(), &req)
	logEvent := s.logger.Debug()
	if rpcErr != nil {
		logEvent = s.logger.Warn().Int("code", rpcErr.Code).Str("error", rpcErr.Message)
	}
	logEvent.Str("method", req.Method).Dur("duration", time.Since(start)).Msg("rpc call")

	if rpcErr != nil {
		writeJSON(w, Response{
			JSONRPC: "2.0",
			Error:   rpcErr,
			ID:      req.ID,
		})
		return
	}

	writeJSON(w, Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      req.ID,
	})
}

// dispatch routes a request to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, req *Request) (interface{}, *Error) {
	switch req.Method {
	case "createpay2phonetransaction":
		return s.handleCreatePay2PhoneTransaction(req)
	case "getphonepubaddress":
		return s.handleGetPhonePubAddress(req)
	case "pay2phone":
		return s.handlePay2Phone(ctx, req)
	case "getbalance":
		return s.handleGetBalance(ctx, req)
	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}

// writeJSON writes a JSON-RPC response.
func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeError writes a JSON-RPC error response.
func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	writeJSON(w, Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message},
		ID:      id,
	})
}

// parseParams decodes positional params into targets. The first required
// targets must be present; the rest are optional trailing params.
func parseParams(req *Request, required int, targets ...interface{}) *Error {
	if len(req.Params) < required {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("expected at least %d params, got %d", required, len(req.Params))}
	}
	if len(req.Params) > len(targets) {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("expected at most %d params, got %d", len(targets), len(req.Params))}
	}
	for i, raw := range req.Params {
		if string(raw) == "null" && i >= required {
			continue
		}
		if err := json.Unmarshal(raw, targets[i]); err != nil {
			return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid param %d: %v", i, err)}
		}
	}
	return nil
}

// toRPCError maps a service error to a JSON-RPC error with a stable code.
func toRPCError(err error) *Error {
	code := CodeExecutionError
	switch {
	case errors.Is(err, service.ErrInvalidParams), errors.Is(err, tx.ErrInvalidAmount):
		code = CodeInvalidParams
	case errors.Is(err, wallet.ErrDerivationFailed):
		code = CodeDerivationFailed
	case errors.Is(err, tx.ErrNotImplemented):
		code = CodeNotImplemented
	case errors.Is(err, tx.ErrSerializationFailed):
		code = CodeSerializationFailed
	case errors.Is(err, backend.ErrServiceFailed):
		code = CodeServiceFailed
	}
	return &Error{Code: code, Message: err.Error()}
}
