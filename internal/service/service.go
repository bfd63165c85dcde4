// Package service implements the pay-to-phone operations exposed over RPC.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/olehkaliuzhnyi/pay2phone/internal/backend"
	klog "github.com/olehkaliuzhnyi/pay2phone/internal/log"
	"github.com/olehkaliuzhnyi/pay2phone/internal/storage"
	"github.com/olehkaliuzhnyi/pay2phone/internal/tx"
	"github.com/olehkaliuzhnyi/pay2phone/internal/wallet"
	"github.com/olehkaliuzhnyi/pay2phone/pkg/models"
)

// DefaultPayTimeout bounds a payment made under an idempotency key.
const DefaultPayTimeout = time.Minute

// ErrInvalidParams is returned for caller input rejected before any work is done.
var ErrInvalidParams = errors.New("invalid params")

// Service ties the key deriver, the transaction builder and the payment
// backend together. Transaction assembly and address lookup are pure; only
// PayToPhone and GetBalance reach the backend.
type Service struct {
	addresses wallet.Generator
	builder   *tx.Builder
	backend   backend.PaymentBackend
	payments  storage.PaymentStore
	inflight  singleflight.Group
	logger    zerolog.Logger
	now       func() time.Time

	// payTimeout bounds a keyed payment, which runs detached from its callers.
	payTimeout time.Duration
}

// New creates a Service. payments may be nil, in which case idempotency keys
// are rejected.
func New(addresses wallet.Generator, builder *tx.Builder, b backend.PaymentBackend, payments storage.PaymentStore) *Service {
	return &Service{
		addresses: addresses,
		builder:   builder,
		backend:   b,
		payments:  payments,
		logger:    klog.WithComponent("service"),
		now:       time.Now,

		payTimeout: DefaultPayTimeout,
	}
}

// CreatePay2PhoneTransaction assembles an unsigned transaction and returns its
// wire encoding. Input ids are display order; the builder flips them once.
func (s *Service) CreatePay2PhoneTransaction(inputs []models.TxInput, outputs []models.TxOutput, lockTime *uint32) ([]byte, error) {
	msgTx, err := s.builder.Build(inputs, outputs, lockTime)
	if err != nil {
		return nil, err
	}
	raw, err := tx.Serialize(msgTx)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("txid", msgTx.TxHash().String()).
		Int("inputs", len(msgTx.TxIn)).
		Int("outputs", len(msgTx.TxOut)).
		Uint32("lock_time", msgTx.LockTime).
		Msg("assembled pay2phone transaction")
	return raw, nil
}

// GetPhonePubAddress returns the address derived from phone.
func (s *Service) GetPhonePubAddress(phone string) (string, error) {
	addr, err := s.addresses.GenerateFromPhone(phone)
	if err != nil {
		return "", err
	}
	return addr.Address, nil
}

// PayToPhone asks the backend to pay amount coins to the address derived from
// phone. The amount is sent in canonical form (e.g. "1.50000000").
// With a non-empty idempotencyKey, a repeated request for the same phone and
// amount returns the first receipt without paying again.
func (s *Service) PayToPhone(ctx context.Context, phone, amount, idempotencyKey string) (*models.PaymentReceipt, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrInvalidParams)
	}
	units, err := s.builder.ToBaseUnits(amount)
	if err != nil {
		return nil, err
	}
	if units == 0 {
		return nil, fmt.Errorf("%w: amount must be positive", tx.ErrInvalidAmount)
	}
	amount = s.builder.FormatAmount(units)

	if idempotencyKey == "" {
		return s.pay(ctx, phone, amount, "")
	}
	if s.payments == nil {
		return nil, fmt.Errorf("%w: idempotency keys are not enabled", ErrInvalidParams)
	}

	ch := s.inflight.DoChan(idempotencyKey, func() (interface{}, error) {
		existing, err := s.payments.Get(idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("payment store get: %w", err)
		}
		if existing != nil {
			s.logger.Info().
				Str("idempotency_key", idempotencyKey).
				Str("txid", existing.TxID).
				Msg("duplicate pay2phone request, returning existing receipt")
			return existing, nil
		}

		// Detached: other callers may be waiting on this payment.
		payCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.payTimeout)
		defer cancel()
		receipt, err := s.pay(payCtx, phone, amount, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if err := s.payments.Put(idempotencyKey, receipt); err != nil {
			// Funds already moved; report the receipt and log the store failure.
			s.logger.Error().Err(err).Str("idempotency_key", idempotencyKey).Msg("payment store put failed")
		}
		return receipt, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: pay2phone: %w", backend.ErrServiceFailed, ctx.Err())
	}
	if res.Err != nil {
		return nil, res.Err
	}
	receipt := *res.Val.(*models.PaymentReceipt)
	if receipt.Phone != phone || receipt.Amount != amount {
		return nil, fmt.Errorf("%w: idempotency key %q reused with different parameters", ErrInvalidParams, idempotencyKey)
	}
	return &receipt, nil
}

func (s *Service) pay(ctx context.Context, phone, amount, idempotencyKey string) (*models.PaymentReceipt, error) {
	addr, err := s.addresses.GenerateFromPhone(phone)
	if err != nil {
		return nil, err
	}

	hash, err := s.backend.SendToAddress(ctx, addr.Address, amount)
	if err != nil {
		s.logger.Error().Err(err).Str("address", addr.Address).Msg("pay2phone failed")
		return nil, err
	}

	s.logger.Info().
		Str("address", addr.Address).
		Str("amount", amount).
		Str("txid", hash.String()).
		Msg("pay2phone sent")

	return &models.PaymentReceipt{
		IdempotencyKey: idempotencyKey,
		Phone:          phone,
		Address:        addr.Address,
		Amount:         amount,
		TxID:           hash.String(),
		CreatedAt:      s.now().UTC(),
	}, nil
}

// GetBalance returns the backend's balance for account verbatim.
func (s *Service) GetBalance(ctx context.Context, account string) (string, error) {
	// Leading dashes would be read as options by the node CLI.
	if strings.HasPrefix(account, "-") {
		return "", fmt.Errorf("%w: account must not start with '-'", ErrInvalidParams)
	}
	return s.backend.GetBalance(ctx, account)
}
