package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/yungbote/truequecito-backend/internal/domain/exchange"
	"github.com/yungbote/truequecito-backend/internal/platform/apierr"
	"github.com/yungbote/truequecito-backend/internal/platform/gcp"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

const DefaultReceiptMaxBytes int64 = 10 << 20

var receiptExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// ReceiptService validates receipt uploads and keeps them in object storage.
// The returned key is the reference stored on the exchange.
type ReceiptService interface {
	Store(ctx context.Context, exchangeID uuid.UUID, role exchange.Role, r io.Reader) (string, error)
	Remove(ctx context.Context, key string) error
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	PublicURL(key string) string
}

type receiptService struct {
	log      *logger.Logger
	bucket   gcp.BucketService
	maxBytes int64
}

func NewReceiptService(log *logger.Logger, bucket gcp.BucketService, maxBytes int64) ReceiptService {
	if maxBytes <= 0 {
		maxBytes = DefaultReceiptMaxBytes
	}
	return &receiptService{
		log:      log.With("service", "ReceiptService"),
		bucket:   bucket,
		maxBytes: maxBytes,
	}
}

func (s *receiptService) Store(ctx context.Context, exchangeID uuid.UUID, role exchange.Role, r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("missing receipt body")
	}
	body, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read receipt: %w", err)
	}
	if int64(len(body)) > s.maxBytes {
		return "", apierr.PayloadTooLarge(fmt.Sprintf("receipt exceeds %d bytes", s.maxBytes))
	}
	if len(body) == 0 {
		return "", apierr.New(http.StatusBadRequest, "empty_receipt", fmt.Errorf("receipt file is empty"))
	}
	ext, err := sniffReceipt(body)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("receipts/%s/%s/%s%s", exchangeID, role, uuid.NewString(), ext)
	if err := s.bucket.Put(ctx, key, bytes.NewReader(body)); err != nil {
		return "", fmt.Errorf("store receipt: %w", err)
	}
	s.log.Debug("receipt stored", "exchange_id", exchangeID, "role", role, "bytes", len(body))
	return key, nil
}

// sniffReceipt accepts PDFs and images whose header actually decodes.
func sniffReceipt(body []byte) (string, error) {
	contentType := http.DetectContentType(body)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := receiptExtensions[contentType]
	if !ok {
		return "", apierr.UnsupportedMediaType(fmt.Sprintf("unsupported receipt type %s", contentType))
	}
	if strings.HasPrefix(contentType, "image/") {
		if _, _, err := image.DecodeConfig(bytes.NewReader(body)); err != nil {
			return "", apierr.UnsupportedMediaType("receipt image could not be decoded")
		}
	}
	return ext, nil
}

func (s *receiptService) Remove(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	return s.bucket.Delete(ctx, key)
}

func (s *receiptService) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, "", fmt.Errorf("missing receipt key")
	}
	obj, err := s.bucket.Open(ctx, key)
	if err != nil {
		return nil, "", err
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return obj.Body, contentType, nil
}

func (s *receiptService) PublicURL(key string) string {
	if strings.TrimSpace(key) == "" {
		return ""
	}
	return s.bucket.PublicURL(key)
}
