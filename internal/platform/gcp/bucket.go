package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

const (
	writeTimeout  = 2 * time.Minute
	deleteTimeout = 30 * time.Second
)

// ErrObjectNotFound is returned by Open for keys that do not exist.
var ErrObjectNotFound = errors.New("object not found")

// Object is an open receipt. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// BucketService stores receipt files in the receipt bucket.
type BucketService interface {
	Put(ctx context.Context, key string, r io.Reader) error
	// Delete is idempotent: a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Open(ctx context.Context, key string) (*Object, error)
	PublicURL(key string) string
}

type bucketService struct {
	log       *logger.Logger
	client    *storage.Client
	bucket    string
	cdnDomain string
	// emulator is the fake-gcs base URL; empty against real GCS.
	emulator   string
	publicBase string
	httpClient *http.Client
}

func NewBucketService(log *logger.Logger, cfg ObjectStorageConfig) (BucketService, error) {
	if err := ValidateObjectStorageConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	client, err := newStorageClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	base, baseSource := publicBaseURL(cfg)
	bs := &bucketService{
		log:        log.With("service", "BucketService"),
		client:     client,
		bucket:     strings.TrimSpace(cfg.ReceiptBucket),
		cdnDomain:  strings.TrimSpace(cfg.ReceiptCDNDomain),
		publicBase: base,
		httpClient: &http.Client{Timeout: writeTimeout},
	}
	if cfg.IsEmulatorMode() {
		bs.emulator = strings.TrimRight(cfg.EmulatorHost, "/")
	}
	bs.log.Info("Receipt storage ready",
		"mode", cfg.Mode,
		"mode_source", cfg.ModeSource(),
		"bucket", bs.bucket,
		"public_base_source", baseSource,
	)
	return bs, nil
}

func newStorageClient(ctx context.Context, cfg ObjectStorageConfig) (*storage.Client, error) {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		opts := append(ClientOptions(cfg.Credentials), option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		// The client only honours the emulator through this variable.
		if err := os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(cfg.EmulatorHost, "/")); err != nil {
			return nil, err
		}
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ObjectStorageConfigError{Code: ObjectStorageConfigErrorInvalidMode, Value: string(cfg.Mode)}
	}
}

func (bs *bucketService) object(key string) *storage.ObjectHandle {
	return bs.client.Bucket(bs.bucket).Object(key)
}

func (bs *bucketService) Put(ctx context.Context, key string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	w := bs.object(key).NewWriter(ctx)
	w.ContentType = ContentTypeForKey(key)
	w.CacheControl = "private, max-age=0"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write receipt %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize receipt %q: %w", key, err)
	}
	return nil
}

func (bs *bucketService) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()
	err := bs.object(key).Delete(ctx)
	if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return fmt.Errorf("delete receipt %q from %s: %w", key, bs.bucket, err)
}

func (bs *bucketService) Open(ctx context.Context, key string) (*Object, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	if bs.emulator != "" {
		obj, err := bs.openFromEmulator(ctx, key)
		if err != nil {
			cancel()
			return nil, err
		}
		obj.Body = &cancelOnClose{ReadCloser: obj.Body, cancel: cancel}
		return obj, nil
	}
	r, err := bs.object(key).NewReader(ctx)
	if err != nil {
		cancel()
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open receipt %q: %w", key, err)
	}
	return &Object{
		Body:        &cancelOnClose{ReadCloser: r, cancel: cancel},
		ContentType: firstNonEmpty(r.Attrs.ContentType, ContentTypeForKey(key)),
		Size:        r.Attrs.Size,
	}, nil
}

// openFromEmulator reads media over plain HTTP; fake-gcs does not serve the
// client's signed media endpoint reliably.
func (bs *bucketService) openFromEmulator(ctx context.Context, key string) (*Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL(bs.emulator, bs.bucket, key), nil)
	if err != nil {
		return nil, err
	}
	resp, err := bs.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("emulator download %q: %w", key, err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, ErrObjectNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("emulator download %q: status=%d body=%s", key, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return &Object{
		Body:        resp.Body,
		ContentType: firstNonEmpty(resp.Header.Get("Content-Type"), ContentTypeForKey(key)),
		Size:        resp.ContentLength,
	}, nil
}

// PublicURL prefers the CDN, then an explicit public base, then the emulator
// media endpoint, then storage.googleapis.com.
func (bs *bucketService) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	switch {
	case key == "":
		return ""
	case bs.cdnDomain != "":
		return "https://" + bs.cdnDomain + "/" + key
	case bs.emulator != "":
		return mediaURL(firstNonEmpty(bs.publicBase, bs.emulator), bs.bucket, key)
	case bs.publicBase != "":
		return bs.publicBase + "/" + bs.bucket + "/" + key
	default:
		return "https://storage.googleapis.com/" + bs.bucket + "/" + key
	}
}

func mediaURL(base, bucket, key string) string {
	return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", strings.TrimRight(base, "/"), url.PathEscape(bucket), url.PathEscape(key))
}

// ContentTypeForKey maps receipt file extensions to their media type.
func ContentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(strings.TrimSpace(key))) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	}
	return ""
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
