package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/truequecito-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, username string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     username + "@example.cl",
		Role:      "user",
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedAdmin(tb testing.TB, ctx context.Context, tx *gorm.DB, username string) *types.User {
	tb.Helper()
	u := SeedUser(tb, ctx, tx, username)
	if err := tx.WithContext(ctx).Model(u).Update("role", "admin").Error; err != nil {
		tb.Fatalf("seed admin: %v", err)
	}
	u.Role = "admin"
	return u
}

func SeedProduct(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, title string) *types.Product {
	tb.Helper()
	now := time.Now().UTC()
	p := &types.Product{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       title,
		Description: title + " en buen estado",
		Images:      datatypes.JSON([]byte(`["https://img.example.cl/` + title + `.jpg"]`)),
		Condition:   "usado",
		Preference:  "cualquiera",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed product: %v", err)
	}
	return p
}

// SeedExchange inserts a pending exchange between the owners of offered and requested.
func SeedExchange(tb testing.TB, ctx context.Context, tx *gorm.DB, offered, requested *types.Product) *types.Exchange {
	tb.Helper()
	now := time.Now().UTC()
	e := &types.Exchange{
		ID:               uuid.New(),
		UniqueCode:       types.NewExchangeCode(),
		ProductOffered:   offered.ID,
		ProductRequested: requested.ID,
		UserOffered:      offered.OwnerID,
		UserRequested:    requested.OwnerID,
		Status:           types.ExchangeStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed exchange: %v", err)
	}
	return e
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
