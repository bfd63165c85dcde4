// Package backend talks to the external wallet/node process that moves funds
// and reports balances.
package backend

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ErrServiceFailed is returned when the wallet/node service cannot be reached,
// fails, times out or answers with output that does not parse.
var ErrServiceFailed = errors.New("external service failed")

// PaymentBackend is the wallet/node service contract.
type PaymentBackend interface {
	// SendToAddress pays amount (decimal coins) to address and returns the txid.
	SendToAddress(ctx context.Context, address, amount string) (*chainhash.Hash, error)

	// GetBalance returns the balance of account as reported by the service.
	GetBalance(ctx context.Context, account string) (string, error)
}

// parseTxID validates a display-order txid printed by the service.
func parseTxID(out string) (*chainhash.Hash, error) {
	out = strings.TrimSpace(out)
	if len(out) != 2*chainhash.HashSize {
		return nil, fmt.Errorf("%w: malformed txid %q", ErrServiceFailed, truncate(out))
	}
	hash, err := chainhash.NewHashFromStr(out)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed txid %q: %v", ErrServiceFailed, truncate(out), err)
	}
	return hash, nil
}

// parseBalance checks that out is a decimal number and returns it unchanged
// apart from surrounding whitespace.
func parseBalance(out string) (string, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty balance", ErrServiceFailed)
	}
	if _, ok := new(big.Rat).SetString(out); !ok || strings.ContainsAny(out, "/xX") {
		return "", fmt.Errorf("%w: malformed balance %q", ErrServiceFailed, truncate(out))
	}
	return out, nil
}

func truncate(s string) string {
	const max = 80
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
