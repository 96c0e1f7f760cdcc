package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/truequecito-backend/internal/platform/ctxutil"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

func TestIdentityRoundTrip(t *testing.T) {
	svc := NewIdentityService(logger.Nop(), "s3cret", "truequecito", time.Hour)
	userID := uuid.New()
	token, err := svc.IssueToken(userID, "admin")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	ctx, err := svc.SetContextFromToken(context.Background(), token)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID != userID || rd.Role != "admin" {
		t.Fatalf("request data: got=%+v", rd)
	}
}

func TestIdentityRejectsForeignTokens(t *testing.T) {
	svc := NewIdentityService(logger.Nop(), "s3cret", "", time.Hour)
	other := NewIdentityService(logger.Nop(), "different", "", time.Hour)
	token, _ := other.IssueToken(uuid.New(), "")
	if _, err := svc.SetContextFromToken(context.Background(), token); err == nil {
		t.Fatalf("expected signature error")
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	signed, _ := expired.SignedString([]byte("s3cret"))
	if _, err := svc.SetContextFromToken(context.Background(), signed); err == nil {
		t.Fatalf("expected expiry error")
	}

	badSub := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-uuid"}})
	signed, _ = badSub.SignedString([]byte("s3cret"))
	if _, err := svc.SetContextFromToken(context.Background(), signed); err == nil {
		t.Fatalf("expected subject error")
	}
}

func TestIdentityEmptyTokenIsAnonymous(t *testing.T) {
	svc := NewIdentityService(logger.Nop(), "s3cret", "", time.Hour)
	ctx, err := svc.SetContextFromToken(context.Background(), "  ")
	if err != nil {
		t.Fatalf("empty token: %v", err)
	}
	if ctxutil.ActorID(ctx) != uuid.Nil {
		t.Fatalf("empty token must not set an actor")
	}
}
