package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"

	"github.com/yungbote/truequecito-backend/internal/platform/gcp"
)

// memBucket is an in-memory gcp.BucketService.
type memBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	deletes int
	failPut error
}

var _ gcp.BucketService = (*memBucket)(nil)

func newMemBucket() *memBucket {
	return &memBucket{objects: map[string][]byte{}}
}

func (b *memBucket) Put(_ context.Context, key string, r io.Reader) error {
	if b.failPut != nil {
		return b.failPut
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = raw
	return nil
}

func (b *memBucket) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deletes++
	return nil
}

func (b *memBucket) Open(_ context.Context, key string) (*gcp.Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.objects[key]
	if !ok {
		return nil, gcp.ErrObjectNotFound
	}
	return &gcp.Object{
		Body:        io.NopCloser(bytes.NewReader(raw)),
		ContentType: gcp.ContentTypeForKey(key),
		Size:        int64(len(raw)),
	}, nil
}

func (b *memBucket) PublicURL(key string) string {
	return "https://storage.example.cl/receipts-bucket/" + key
}

func (b *memBucket) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
