package gcp

import (
	"fmt"
	"net/url"
	"strings"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

// ObjectStorageConfig is the resolved storage setup. Mode and EmulatorHost
// come from ResolveObjectStorageConfig; the rest is copied from app config.
type ObjectStorageConfig struct {
	Mode                  ObjectStorageMode
	EmulatorHost          string
	CompatibilityFallback bool

	ReceiptBucket    string
	ReceiptCDNDomain string
	PublicBaseURL    string
	Credentials      string
}

func IsSupportedObjectStorageMode(mode ObjectStorageMode) bool {
	switch mode {
	case ObjectStorageModeGCS, ObjectStorageModeGCSEmulator:
		return true
	default:
		return false
	}
}

func (cfg ObjectStorageConfig) IsEmulatorMode() bool {
	return cfg.Mode == ObjectStorageModeGCSEmulator
}

func (cfg ObjectStorageConfig) ModeSource() string {
	if cfg.CompatibilityFallback {
		return "compatibility_fallback"
	}
	return "explicit_or_default"
}

type ObjectStorageConfigErrorCode string

const (
	ObjectStorageConfigErrorInvalidMode         ObjectStorageConfigErrorCode = "invalid_mode"
	ObjectStorageConfigErrorMissingEmulatorHost ObjectStorageConfigErrorCode = "missing_emulator_host"
	ObjectStorageConfigErrorInvalidEmulatorHost ObjectStorageConfigErrorCode = "invalid_emulator_host"
	ObjectStorageConfigErrorMissingBucket       ObjectStorageConfigErrorCode = "missing_bucket"
	ObjectStorageConfigErrorInvalidPublicBase   ObjectStorageConfigErrorCode = "invalid_public_base_url"
)

type ObjectStorageConfigError struct {
	Code  ObjectStorageConfigErrorCode
	Value string
	Cause error
}

// configErrorText holds one format per code; %[1]q is the offending value.
var configErrorText = map[ObjectStorageConfigErrorCode]string{
	ObjectStorageConfigErrorInvalidMode:         `OBJECT_STORAGE_MODE=%[1]q is not one of "gcs", "gcs_emulator"`,
	ObjectStorageConfigErrorMissingEmulatorHost: `OBJECT_STORAGE_MODE="gcs_emulator" needs STORAGE_EMULATOR_HOST`,
	ObjectStorageConfigErrorInvalidEmulatorHost: `STORAGE_EMULATOR_HOST=%[1]q must be an absolute URL such as http://fake-gcs:4443`,
	ObjectStorageConfigErrorMissingBucket:       `RECEIPT_GCS_BUCKET_NAME is empty`,
	ObjectStorageConfigErrorInvalidPublicBase:   `OBJECT_STORAGE_PUBLIC_BASE_URL=%[1]q must be an absolute URL`,
}

func (e *ObjectStorageConfigError) Error() string {
	if e == nil {
		return "invalid object storage config"
	}
	format, ok := configErrorText[e.Code]
	if !ok {
		return "invalid object storage config: " + string(e.Code)
	}
	if !strings.Contains(format, "%[1]q") {
		return format
	}
	return fmt.Sprintf(format, e.Value)
}

func (e *ObjectStorageConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ResolveObjectStorageConfig picks the storage mode. An empty mode with an
// emulator host set falls back to the emulator for older compose files.
func ResolveObjectStorageConfig(rawMode, emulatorHost string) (ObjectStorageConfig, error) {
	cfg := ObjectStorageConfig{EmulatorHost: strings.TrimSpace(emulatorHost)}
	rawMode = strings.TrimSpace(rawMode)

	switch mode := ObjectStorageMode(strings.ToLower(rawMode)); mode {
	case "":
		if cfg.EmulatorHost != "" {
			cfg.Mode = ObjectStorageModeGCSEmulator
			cfg.CompatibilityFallback = true
		} else {
			cfg.Mode = ObjectStorageModeGCS
		}
	case ObjectStorageModeGCS, ObjectStorageModeGCSEmulator:
		cfg.Mode = mode
	default:
		return cfg, &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidMode, Value: rawMode}
	}
	if err := validateMode(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateMode(cfg ObjectStorageConfig) error {
	if !IsSupportedObjectStorageMode(cfg.Mode) {
		return &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidMode, Value: string(cfg.Mode)}
	}
	if !cfg.IsEmulatorMode() {
		return nil
	}
	if cfg.EmulatorHost == "" {
		return &ObjectStorageConfigError{Code: ObjectStorageConfigErrorMissingEmulatorHost}
	}
	if !isAbsoluteURL(cfg.EmulatorHost) {
		return &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidEmulatorHost, Value: cfg.EmulatorHost}
	}
	return nil
}

// ValidateObjectStorageConfig checks a fully populated config before a client is built.
func ValidateObjectStorageConfig(cfg ObjectStorageConfig) error {
	if err := validateMode(cfg); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.ReceiptBucket) == "" {
		return &ObjectStorageConfigError{Code: ObjectStorageConfigErrorMissingBucket}
	}
	if base := strings.TrimSpace(cfg.PublicBaseURL); base != "" && !isAbsoluteURL(base) {
		return &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidPublicBase, Value: base}
	}
	return nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && strings.TrimSpace(u.Scheme) != "" && strings.TrimSpace(u.Host) != ""
}

// publicBaseURL returns the base used for browser-facing links and where it came from.
func publicBaseURL(cfg ObjectStorageConfig) (string, string) {
	if base := strings.TrimSpace(cfg.PublicBaseURL); base != "" {
		return strings.TrimRight(base, "/"), "object_storage_public_base_url"
	}
	if cfg.IsEmulatorMode() {
		return strings.TrimRight(cfg.EmulatorHost, "/"), "storage_emulator_host"
	}
	return "", "gcs_default"
}
