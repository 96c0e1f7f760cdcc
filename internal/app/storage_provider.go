package app

import (
	"errors"
	"fmt"

	"github.com/yungbote/truequecito-backend/internal/platform/gcp"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

var newBucketService = gcp.NewBucketService

// ReasonConnectFailed covers any failure that is not a config error.
const ReasonConnectFailed = "connect_failed"

// ReceiptStorageError explains why the receipt bucket could not be set up.
// Reason is a gcp.ObjectStorageConfigErrorCode or ReasonConnectFailed.
type ReceiptStorageError struct {
	Stage  string // "resolve" or "connect"
	Reason string
	Mode   gcp.ObjectStorageMode
	Cause  error
}

func (e *ReceiptStorageError) Error() string {
	return fmt.Sprintf("receipt storage %s failed (reason=%s mode=%q): %v", e.Stage, e.Reason, e.Mode, e.Cause)
}

func (e *ReceiptStorageError) Unwrap() error { return e.Cause }

func newReceiptStorageError(stage string, mode gcp.ObjectStorageMode, err error) *ReceiptStorageError {
	reason := ReasonConnectFailed
	var cfgErr *gcp.ObjectStorageConfigError
	if errors.As(err, &cfgErr) && cfgErr.Code != "" {
		reason = string(cfgErr.Code)
	}
	return &ReceiptStorageError{Stage: stage, Reason: reason, Mode: mode, Cause: err}
}

// receiptStorageReason is ReasonConnectFailed for errors of any other type.
func receiptStorageReason(err error) string {
	var rse *ReceiptStorageError
	if errors.As(err, &rse) {
		return rse.Reason
	}
	return ReasonConnectFailed
}

// resolveBucketService builds the receipt blob store from config.
func resolveBucketService(log *logger.Logger, cfg Config) (gcp.BucketService, error) {
	storageCfg, err := gcp.ResolveObjectStorageConfig(cfg.ObjectStorageMode, cfg.StorageEmulatorHost)
	if err != nil {
		rse := newReceiptStorageError("resolve", gcp.ObjectStorageMode(cfg.ObjectStorageMode), err)
		log.Error("Receipt storage misconfigured", "reason", rse.Reason, "error", err)
		return nil, rse
	}
	storageCfg.ReceiptBucket = cfg.ReceiptBucket
	storageCfg.ReceiptCDNDomain = cfg.ReceiptCDNDomain
	storageCfg.PublicBaseURL = cfg.PublicBaseURL
	storageCfg.Credentials = cfg.Credentials()

	bucket, err := newBucketService(log, storageCfg)
	if err != nil {
		rse := newReceiptStorageError("connect", storageCfg.Mode, err)
		log.Error("Receipt storage unavailable",
			"mode", storageCfg.Mode,
			"mode_source", storageCfg.ModeSource(),
			"bucket", storageCfg.ReceiptBucket,
			"reason", rse.Reason,
			"error", err,
		)
		return nil, rse
	}
	return bucket, nil
}
