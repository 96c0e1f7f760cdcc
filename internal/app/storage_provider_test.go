package app

import (
	"errors"
	"testing"

	"github.com/yungbote/truequecito-backend/internal/platform/gcp"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

func TestReceiptStorageErrorReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"invalid mode", &gcp.ObjectStorageConfigError{Code: gcp.ObjectStorageConfigErrorInvalidMode, Value: "s3"}, "invalid_mode"},
		{"missing bucket", &gcp.ObjectStorageConfigError{Code: gcp.ObjectStorageConfigErrorMissingBucket}, "missing_bucket"},
		{"dial", errors.New("dial tcp: connection refused"), ReasonConnectFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := newReceiptStorageError("connect", gcp.ObjectStorageModeGCS, tc.err)
			if got := receiptStorageReason(err); got != tc.want {
				t.Fatalf("reason: want=%q got=%q", tc.want, got)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("cause not wrapped: %v", err)
			}
		})
	}
	if got := receiptStorageReason(errors.New("plain")); got != ReasonConnectFailed {
		t.Fatalf("plain error reason: got=%q", got)
	}
}

func TestResolveBucketServiceInvalidMode(t *testing.T) {
	_, err := resolveBucketService(logger.Nop(), Config{ObjectStorageMode: "s3"})
	var rse *ReceiptStorageError
	if !errors.As(err, &rse) || rse.Stage != "resolve" || rse.Reason != "invalid_mode" {
		t.Fatalf("want resolve/invalid_mode got=%v", err)
	}
}

func TestResolveBucketServiceCopiesReceiptSettings(t *testing.T) {
	prev := newBucketService
	t.Cleanup(func() { newBucketService = prev })

	var captured gcp.ObjectStorageConfig
	newBucketService = func(_ *logger.Logger, cfg gcp.ObjectStorageConfig) (gcp.BucketService, error) {
		captured = cfg
		return nil, errors.New("stop here")
	}
	_, err := resolveBucketService(logger.Nop(), Config{
		StorageEmulatorHost: "http://fake-gcs:4443",
		ReceiptBucket:       "receipts",
		ReceiptCDNDomain:    "cdn.truequecito.cl",
		GCPCredentialsJSON:  `{"type":"service_account"}`,
	})
	if got := receiptStorageReason(err); got != ReasonConnectFailed {
		t.Fatalf("reason: want=%q got=%q", ReasonConnectFailed, got)
	}
	if captured.Mode != gcp.ObjectStorageModeGCSEmulator || !captured.CompatibilityFallback {
		t.Fatalf("mode: want emulator fallback got=%s fallback=%v", captured.Mode, captured.CompatibilityFallback)
	}
	if captured.ReceiptBucket != "receipts" || captured.ReceiptCDNDomain != "cdn.truequecito.cl" || captured.Credentials == "" {
		t.Fatalf("receipt settings not copied: %+v", captured)
	}
}
