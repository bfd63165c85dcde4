package storage

import (
	"sync"

	"github.com/olehkaliuzhnyi/pay2phone/pkg/models"
)

// MemoryPaymentStore is an in-memory PaymentStore.
type MemoryPaymentStore struct {
	mu       sync.RWMutex
	receipts map[string]models.PaymentReceipt
}

func NewMemoryPaymentStore() *MemoryPaymentStore {
	return &MemoryPaymentStore{receipts: make(map[string]models.PaymentReceipt)}
}

func (s *MemoryPaymentStore) Get(idempotencyKey string) (*models.PaymentReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[idempotencyKey]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *MemoryPaymentStore) Put(idempotencyKey string, receipt *models.PaymentReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[idempotencyKey] = *receipt
	return nil
}

func (s *MemoryPaymentStore) Close() error { return nil }
