package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/truequecito-backend/internal/data/repos"
	"github.com/yungbote/truequecito-backend/internal/domain/exchange"
	"github.com/yungbote/truequecito-backend/internal/platform/dbctx"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
	"github.com/yungbote/truequecito-backend/internal/platform/rediscache"
)

// CatalogService reads product and user display data owned by other services.
type CatalogService interface {
	ProductCards(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*exchange.ProductCard, error)
	UserCards(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*exchange.UserCard, error)
	ProductOwners(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]uuid.UUID, error)
	Enrich(ctx context.Context, views []*exchange.View) error
}

type catalogService struct {
	log      *logger.Logger
	products repos.ProductRepo
	users    repos.UserRepo
	cache    rediscache.Cache
	ttl      time.Duration
}

// NewCatalogService builds the catalog reader. cache may be nil.
func NewCatalogService(
	log *logger.Logger,
	products repos.ProductRepo,
	users repos.UserRepo,
	cache rediscache.Cache,
	ttl time.Duration,
) CatalogService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &catalogService{
		log:      log.With("service", "CatalogService"),
		products: products,
		users:    users,
		cache:    cache,
		ttl:      ttl,
	}
}

func (s *catalogService) ProductCards(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*exchange.ProductCard, error) {
	out := map[uuid.UUID]*exchange.ProductCard{}
	missing := s.fromCache(ctx, "product", uniqueIDs(ids), func(id uuid.UUID, raw []byte) bool {
		var card exchange.ProductCard
		if json.Unmarshal(raw, &card) != nil {
			return false
		}
		out[id] = &card
		return true
	})
	if len(missing) == 0 {
		return out, nil
	}
	rows, err := s.products.GetByIDs(dbctx.Context{Ctx: ctx}, missing)
	if err != nil {
		return nil, err
	}
	for _, p := range rows {
		card := &exchange.ProductCard{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Images:      p.ImageList(),
			Condition:   p.Condition,
			Preference:  p.Preference,
		}
		out[p.ID] = card
		s.toCache(ctx, "product", p.ID, card)
	}
	return out, nil
}

func (s *catalogService) UserCards(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*exchange.UserCard, error) {
	out := map[uuid.UUID]*exchange.UserCard{}
	missing := s.fromCache(ctx, "user", uniqueIDs(ids), func(id uuid.UUID, raw []byte) bool {
		var card exchange.UserCard
		if json.Unmarshal(raw, &card) != nil {
			return false
		}
		out[id] = &card
		return true
	})
	if len(missing) == 0 {
		return out, nil
	}
	rows, err := s.users.GetByIDs(dbctx.Context{Ctx: ctx}, missing)
	if err != nil {
		return nil, err
	}
	for _, u := range rows {
		card := &exchange.UserCard{ID: u.ID, Username: u.Username, Email: u.Email}
		out[u.ID] = card
		s.toCache(ctx, "user", u.ID, card)
	}
	return out, nil
}

// ProductOwners maps each known product id to its owner. Unknown ids are absent.
func (s *catalogService) ProductOwners(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	rows, err := s.products.GetByIDs(dbctx.Context{Ctx: ctx}, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]uuid.UUID, len(rows))
	for _, p := range rows {
		out[p.ID] = p.OwnerID
	}
	return out, nil
}

// Enrich attaches product and user cards to views in place.
func (s *catalogService) Enrich(ctx context.Context, views []*exchange.View) error {
	if len(views) == 0 {
		return nil
	}
	productIDs := make([]uuid.UUID, 0, len(views)*2)
	userIDs := make([]uuid.UUID, 0, len(views)*2)
	for _, v := range views {
		productIDs = append(productIDs, v.ProductOffered, v.ProductRequested)
		userIDs = append(userIDs, v.UserOffered, v.UserRequested)
	}

	var products map[uuid.UUID]*exchange.ProductCard
	var users map[uuid.UUID]*exchange.UserCard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.ProductCards(gctx, productIDs)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.UserCards(gctx, userIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	for _, v := range views {
		v.ProductOfferedCard = products[v.ProductOffered]
		v.ProductRequestedCard = products[v.ProductRequested]
		v.UserOfferedCard = users[v.UserOffered]
		v.UserRequestedCard = users[v.UserRequested]
	}
	return nil
}

func (s *catalogService) fromCache(ctx context.Context, kind string, ids []uuid.UUID, decode func(uuid.UUID, []byte) bool) []uuid.UUID {
	if s.cache == nil {
		return ids
	}
	missing := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		raw, ok, err := s.cache.Get(ctx, cacheKey(kind, id))
		if err != nil {
			s.log.Warn("catalog cache read failed", "kind", kind, "error", err)
		}
		if err != nil || !ok || !decode(id, raw) {
			missing = append(missing, id)
		}
	}
	return missing
}

func (s *catalogService) toCache(ctx context.Context, kind string, id uuid.UUID, card any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(card)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(kind, id), raw, s.ttl); err != nil {
		s.log.Warn("catalog cache write failed", "kind", kind, "error", err)
	}
}

func cacheKey(kind string, id uuid.UUID) string {
	return "catalog:" + kind + ":" + id.String()
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
