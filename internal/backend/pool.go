package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	klog "github.com/olehkaliuzhnyi/pay2phone/internal/log"
)

// PoolConfig bounds calls into a PaymentBackend.
type PoolConfig struct {
	Workers int           // concurrent calls allowed
	Timeout time.Duration // per call, including the wait for a free worker
}

// Pool runs backend calls on a bounded set of workers with a deadline, so a
// hung service surfaces as ErrServiceFailed instead of blocking callers.
// Pool itself implements PaymentBackend.
type Pool struct {
	backend PaymentBackend
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  zerolog.Logger
}

// NewPool wraps b.
func NewPool(b PaymentBackend, cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Pool{
		backend: b,
		sem:     semaphore.NewWeighted(int64(cfg.Workers)),
		timeout: cfg.Timeout,
		logger:  klog.WithComponent("backend_pool"),
	}
}

// SendToAddress forwards to the wrapped backend.
func (p *Pool) SendToAddress(ctx context.Context, address, amount string) (*chainhash.Hash, error) {
	var hash *chainhash.Hash
	err := p.do(ctx, "sendtoaddress", func(ctx context.Context) error {
		h, err := p.backend.SendToAddress(ctx, address, amount)
		hash = h
		return err
	})
	if err != nil {
		return nil, err
	}
	return hash, nil
}

// GetBalance forwards to the wrapped backend.
func (p *Pool) GetBalance(ctx context.Context, account string) (string, error) {
	var balance string
	err := p.do(ctx, "getbalance", func(ctx context.Context) error {
		b, err := p.backend.GetBalance(ctx, account)
		balance = b
		return err
	})
	if err != nil {
		return "", err
	}
	return balance, nil
}

func (p *Pool) do(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.logger.Warn().Str("op", op).Err(err).Msg("no free backend worker")
		return fmt.Errorf("%w: %s: waiting for worker: %v", ErrServiceFailed, op, err)
	}

	done := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, ErrServiceFailed) {
			err = fmt.Errorf("%w: %s: %v", ErrServiceFailed, op, err)
		}
		return err
	case <-ctx.Done():
		p.logger.Warn().Str("op", op).Dur("timeout", p.timeout).Msg("backend call abandoned")
		return fmt.Errorf("%w: %s: %v", ErrServiceFailed, op, ctx.Err())
	}
}
