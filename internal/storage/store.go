package storage

import "github.com/olehkaliuzhnyi/pay2phone/pkg/models"

// PaymentStore provides idempotent storage of pay2phone receipts.
type PaymentStore interface {
	// Get returns a previously stored receipt by idempotency key, or nil if not found.
	Get(idempotencyKey string) (*models.PaymentReceipt, error)
	// Put stores a receipt keyed by idempotency key.
	Put(idempotencyKey string, receipt *models.PaymentReceipt) error
	// Close releases any underlying resources.
	Close() error
}
