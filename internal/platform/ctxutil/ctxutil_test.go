package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestActorIDFromRequestData(t *testing.T) {
	if got := ActorID(context.Background()); got != uuid.Nil {
		t.Fatalf("anonymous actor: want=%s got=%s", uuid.Nil, got)
	}
	id := uuid.New()
	ctx := WithRequestData(context.Background(), &RequestData{UserID: id, Role: "admin"})
	if got := ActorID(ctx); got != id {
		t.Fatalf("actor: want=%s got=%s", id, got)
	}
	if rd := GetRequestData(ctx); rd == nil || rd.Role != "admin" {
		t.Fatalf("role: want=admin got=%+v", rd)
	}
}

func TestRequestIDFromTraceData(t *testing.T) {
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t-1", RequestID: "r-1"})
	if got := RequestID(ctx); got != "r-1" {
		t.Fatalf("request id: want=r-1 got=%q", got)
	}
	if got := RequestID(context.Background()); got != "" {
		t.Fatalf("missing request id: want=\"\" got=%q", got)
	}
}
