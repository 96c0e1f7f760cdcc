package observability

import (
	"context"
	"testing"

	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

func TestParseOTLPHeaders(t *testing.T) {
	got := ParseOTLPHeaders(" api-key = abc , broken, =x, token=a=b ")
	if len(got) != 2 || got["api-key"] != "abc" || got["token"] != "a=b" {
		t.Fatalf("headers: got=%v", got)
	}
	if ParseOTLPHeaders("") != nil {
		t.Fatalf("empty headers should be nil")
	}
}

func TestSampleRatioClamps(t *testing.T) {
	for in, want := range map[float64]float64{-1: 0, 0.25: 0.25, 3: 1} {
		if got := sampleRatio(in); got != want {
			t.Fatalf("sampleRatio(%v): want=%v got=%v", in, want, got)
		}
	}
}

func TestStartTracingDisabledIsNoop(t *testing.T) {
	shutdown := StartTracing(context.Background(), logger.Nop(), TracingConfig{Endpoint: "collector:4318"})
	if shutdown == nil {
		t.Fatalf("shutdown must never be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
