package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hoa-ledger/apiserver/internal/storage"
	"github.com/hoa-ledger/apiserver/internal/store"
	"github.com/hoa-ledger/apiserver/types"
)

// ReceiptStore keeps uploaded receipt files.
type ReceiptStore interface {
	Save(ctx context.Context, userID string, paymentID int64, filename, contentType string, data []byte) (string, error)
	Open(ctx context.Context, key string) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
}

var receiptContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
}

// ReceiptService attaches receipt files to a neighbor's own payments.
type ReceiptService struct {
	payments LedgerRepository
	store    ReceiptStore
}

// NewReceiptService accepts a nil store; every call then fails with
// ErrStorageDisabled.
func NewReceiptService(payments LedgerRepository, receipts ReceiptStore) *ReceiptService {
	return &ReceiptService{payments: payments, store: receipts}
}

// Enabled reports whether a storage backend is configured.
func (s *ReceiptService) Enabled() bool {
	return s.store != nil
}

// Upload stores data as the receipt of payment paymentID, replacing any
// earlier receipt. The content type is sniffed from the data.
func (s *ReceiptService) Upload(ctx context.Context, userID string, paymentID int64, filename string, data []byte) (types.Payment, error) {
	if !s.Enabled() {
		return types.Payment{}, ErrStorageDisabled
	}
	if len(data) == 0 {
		return types.Payment{}, invalid("receipt file is empty")
	}
	contentType := http.DetectContentType(data)
	if !receiptContentTypes[contentType] {
		return types.Payment{}, invalid("receipt must be a PDF, JPEG, PNG or WebP file")
	}

	payment, err := s.ownPayment(ctx, userID, paymentID)
	if err != nil {
		return types.Payment{}, err
	}

	key, err := s.store.Save(ctx, userID, paymentID, filename, contentType, data)
	if err != nil {
		return types.Payment{}, err
	}
	if err := s.payments.SetPaymentReceipt(ctx, paymentID, key); err != nil {
		_ = s.store.Delete(ctx, key)
		return types.Payment{}, fmt.Errorf("attach receipt: %w", err)
	}
	if payment.ReceiptKey != nil {
		_ = s.store.Delete(ctx, *payment.ReceiptKey)
	}

	payment.ReceiptKey = &key
	return payment, nil
}

// Open returns the stored receipt of a payment. The caller closes Body.
func (s *ReceiptService) Open(ctx context.Context, userID string, paymentID int64) (*storage.Object, error) {
	if !s.Enabled() {
		return nil, ErrStorageDisabled
	}
	payment, err := s.ownPayment(ctx, userID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.ReceiptKey == nil {
		return nil, ErrReceiptNotFound
	}

	obj, err := s.store.Open(ctx, *payment.ReceiptKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, fmt.Errorf("open receipt: %w", err)
	}
	return obj, nil
}

// ownPayment hides other neighbors' payments behind ErrPaymentNotFound.
func (s *ReceiptService) ownPayment(ctx context.Context, userID string, paymentID int64) (types.Payment, error) {
	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Payment{}, ErrPaymentNotFound
		}
		return types.Payment{}, fmt.Errorf("load payment: %w", err)
	}
	if payment.UserID != userID {
		return types.Payment{}, ErrPaymentNotFound
	}
	return payment, nil
}
