// Package images keeps uploaded receipt images in Google Cloud Storage.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"tamerun/internal/log"
)

const uploadTimeout = 2 * time.Minute

var ErrMissingBucket = errors.New("receipt bucket is required")

type writerFunc func(ctx context.Context, object, contentType string) io.WriteCloser

// GCSStore implements ports.ImageStore. It relies on Application Default
// Credentials.
type GCSStore struct {
	bucket    string
	client    *storage.Client
	newWriter writerFunc
	logger    *log.Logger
	nowFn     func() time.Time
}

func NewGCSStore(ctx context.Context, bucket string, logger *log.Logger) (*GCSStore, error) {
	if bucket == "" {
		return nil, ErrMissingBucket
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	s := &GCSStore{
		bucket: bucket,
		client: client,
		logger: logger.WithComponent(log.ComponentStorage),
		nowFn:  time.Now,
	}
	s.newWriter = func(ctx context.Context, object, contentType string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = contentType
		return w
	}
	return s, nil
}

// PutReceipt uploads the image and returns its gs:// URI.
func (s *GCSStore) PutReceipt(ctx context.Context, userID string, image []byte, mimeType string) (string, error) {
	object := ObjectName(userID, mimeType, s.nowFn(), uuid.NewString())

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.newWriter(ctx, object, mimeType)
	if _, err := io.Copy(w, bytes.NewReader(image)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy image to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	uri := fmt.Sprintf("gs://%s/%s", s.bucket, object)
	s.logger.InfoContext(ctx, "Stored receipt image",
		log.FieldUserID, userID,
		log.FieldReceiptSize, len(image),
		"uri", uri)
	return uri, nil
}

func (s *GCSStore) OwnsReceipt(userID, uri string) bool {
	object, ok := strings.CutPrefix(uri, fmt.Sprintf("gs://%s/", s.bucket))
	if !ok || userID == "" || strings.Contains(userID, "/") {
		return false
	}
	return path.Clean(object) == object && strings.HasPrefix(object, path.Join("receipts", userID)+"/")
}

func (s *GCSStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// ObjectName lays receipts out as receipts/<user>/<yyyy>/<mm>/<id><ext>.
func ObjectName(userID, mimeType string, at time.Time, id string) string {
	return path.Join("receipts", userID, at.UTC().Format("2006"), at.UTC().Format("01"), id+extension(mimeType))
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}
