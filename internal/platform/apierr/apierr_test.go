package apierr

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAsFindsWrappedError(t *testing.T) {
	err := fmt.Errorf("store receipt: %w", PayloadTooLarge("receipt exceeds 10 bytes"))
	got, ok := As(err)
	if !ok {
		t.Fatalf("expected apierr in chain")
	}
	if got.Status != http.StatusRequestEntityTooLarge || got.Code != "payload_too_large" {
		t.Fatalf("unexpected apierr: %+v", got)
	}
	if got.Error() != "receipt exceeds 10 bytes" {
		t.Fatalf("message: got=%q", got.Error())
	}
}

func TestErrorFallbackMessages(t *testing.T) {
	if got := New(http.StatusTeapot, "", nil).Error(); got != "api error (418)" {
		t.Fatalf("status fallback: got=%q", got)
	}
	if got := New(0, "forbidden", nil).Error(); got != "forbidden" {
		t.Fatalf("code fallback: got=%q", got)
	}
}
