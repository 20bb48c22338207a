package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/hoa-ledger/apiserver/config"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Object is an open stored object. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Open builds the backend named by cfg.Storage.Backend and makes sure its
// bucket exists. It returns nil, nil for "none".
func Open(ctx context.Context, cfg config.Config) (ObjectStorage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.Storage.Backend {
	case "", "none":
		return nil, nil
	case "minio":
		backend, err = NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return backend, nil
}

// Receipts stores payment receipts under receipts/<user>/<payment>/.
type Receipts struct {
	backend ObjectStorage
}

func NewReceipts(backend ObjectStorage) *Receipts {
	return &Receipts{backend: backend}
}

// Save uploads data and returns its object key.
func (r *Receipts) Save(ctx context.Context, userID string, paymentID int64, filename, contentType string, data []byte) (string, error) {
	key := ReceiptKey(userID, paymentID, uuid.NewString(), filename)
	if err := r.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", fmt.Errorf("upload receipt: %w", err)
	}
	return key, nil
}

func (r *Receipts) Open(ctx context.Context, key string) (*Object, error) {
	return r.backend.Get(ctx, key)
}

func (r *Receipts) Delete(ctx context.Context, key string) error {
	return r.backend.Delete(ctx, key)
}

// ReceiptKey builds the object key for a receipt. Only the extension of the
// client file name is kept.
func ReceiptKey(userID string, paymentID int64, id, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, `\`, "/"))))
	return fmt.Sprintf("receipts/%s/%d/%s%s", userID, paymentID, id, ext)
}
