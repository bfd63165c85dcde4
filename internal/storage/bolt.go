package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	klog "github.com/olehkaliuzhnyi/pay2phone/internal/log"
	"github.com/olehkaliuzhnyi/pay2phone/pkg/models"
)

var receiptsBucket = []byte("receipts")

// BoltPaymentStore persists receipts in a bbolt database file.
type BoltPaymentStore struct {
	db     *bolt.DB
	logger zerolog.Logger
}

// OpenBoltPaymentStore opens (creating if needed) the database at path.
func OpenBoltPaymentStore(path string) (*BoltPaymentStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open payment db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(receiptsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	logger := klog.WithComponent("storage")
	logger.Info().Str("path", path).Msg("payment store opened")
	return &BoltPaymentStore{db: db, logger: logger}, nil
}

func (s *BoltPaymentStore) Get(idempotencyKey string) (*models.PaymentReceipt, error) {
	var receipt *models.PaymentReceipt
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(receiptsBucket).Get([]byte(idempotencyKey))
		if data == nil {
			return nil
		}
		receipt = new(models.PaymentReceipt)
		return json.Unmarshal(data, receipt)
	})
	if err != nil {
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	return receipt, nil
}

func (s *BoltPaymentStore) Put(idempotencyKey string, receipt *models.PaymentReceipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(receiptsBucket).Put([]byte(idempotencyKey), data)
	})
}

func (s *BoltPaymentStore) Close() error {
	s.logger.Debug().Msg("closing payment store")
	return s.db.Close()
}
