package services

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/hoa-ledger/apiserver/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

func TestReceiptUploadAndOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.house(t, "12")
	f.neighbor(t, "ABC12", "12")
	f.neighbor(t, "XYZ99", "12")
	payment, _, err := f.ledger.RecordPayment(ctx, "ABC12", PaymentInput{Amount: dec("10")})
	require.NoError(t, err)

	files := storetest.NewReceipts()
	receipts := NewReceiptService(f.db.Ledger(), files)

	updated, err := receipts.Upload(ctx, "ABC12", payment.ID, "march.pdf", pdfBytes)
	require.NoError(t, err)
	require.NotNil(t, updated.ReceiptKey)
	assert.Contains(t, *updated.ReceiptKey, "receipts/ABC12/")

	_, err = receipts.Upload(ctx, "ABC12", payment.ID, "again.pdf", pdfBytes)
	require.NoError(t, err)
	assert.Equal(t, 1, files.Len(), "replaced receipt is removed")

	obj, err := receipts.Open(ctx, "ABC12", payment.ID)
	require.NoError(t, err)
	defer obj.Body.Close()
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, data)
	assert.Equal(t, "application/pdf", obj.ContentType)

	_, err = receipts.Open(ctx, "XYZ99", payment.ID)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
	_, err = receipts.Upload(ctx, "XYZ99", payment.ID, "x.pdf", pdfBytes)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestReceiptRejectsUnknownContent(t *testing.T) {
	f := newFixture(t)
	receipts := NewReceiptService(f.db.Ledger(), storetest.NewReceipts())

	var verr *ValidationError
	_, err := receipts.Upload(context.Background(), "ABC12", 1, "x.txt", []byte("plain text"))
	assert.True(t, errors.As(err, &verr))
}

func TestReceiptWithoutStorage(t *testing.T) {
	f := newFixture(t)
	receipts := NewReceiptService(f.db.Ledger(), nil)
	assert.False(t, receipts.Enabled())

	_, err := receipts.Upload(context.Background(), "ABC12", 1, "x.pdf", pdfBytes)
	assert.ErrorIs(t, err, ErrStorageDisabled)
	_, err = receipts.Open(context.Background(), "ABC12", 1)
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestReceiptMissingFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.house(t, "12")
	f.neighbor(t, "ABC12", "12")
	payment, _, err := f.ledger.RecordPayment(ctx, "ABC12", PaymentInput{Amount: dec("10")})
	require.NoError(t, err)

	_, err = NewReceiptService(f.db.Ledger(), storetest.NewReceipts()).Open(ctx, "ABC12", payment.ID)
	assert.ErrorIs(t, err, ErrReceiptNotFound)
}
