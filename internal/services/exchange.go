package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	dataagg "github.com/yungbote/truequecito-backend/internal/data/aggregates"
	"github.com/yungbote/truequecito-backend/internal/data/repos"
	domainagg "github.com/yungbote/truequecito-backend/internal/domain/aggregates"
	"github.com/yungbote/truequecito-backend/internal/domain/exchange"
	"github.com/yungbote/truequecito-backend/internal/domain/notification"
	"github.com/yungbote/truequecito-backend/internal/observability"
	"github.com/yungbote/truequecito-backend/internal/platform/ctxutil"
	"github.com/yungbote/truequecito-backend/internal/platform/dbctx"
	"github.com/yungbote/truequecito-backend/internal/platform/gcp"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

type ProposeRequest struct {
	ProductOffered   uuid.UUID
	ProductRequested uuid.UUID
	UserRequested    uuid.UUID
}

type UploadReceiptRequest struct {
	ExchangeID uuid.UUID
	Role       string
	Address    string
	Phone      string
	File       io.Reader
}

type StatusUpdate struct {
	Exchange   *exchange.Exchange
	UniqueCode string
}

// ExchangeService is the entry point for every exchange operation. The acting
// user always comes from the request context.
type ExchangeService interface {
	Propose(ctx context.Context, req ProposeRequest) (*exchange.Exchange, error)
	Accept(ctx context.Context, id uuid.UUID) (*exchange.Exchange, error)
	Reject(ctx context.Context, id uuid.UUID) (*exchange.Exchange, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (StatusUpdate, error)
	UploadReceipt(ctx context.Context, req UploadReceiptRequest) (*exchange.Exchange, error)
	OpenReceipt(ctx context.Context, id uuid.UUID, role string) (io.ReadCloser, string, error)

	GetByID(ctx context.Context, id uuid.UUID) (*exchange.View, error)
	ListReceived(ctx context.Context) ([]*exchange.View, error)
	ListSent(ctx context.Context) ([]*exchange.View, error)
	ListAll(ctx context.Context) ([]*exchange.View, error)
	ListCompleted(ctx context.Context) ([]*exchange.View, error)
}

type ExchangeServiceDeps struct {
	Log        *logger.Logger
	Aggregate  domainagg.ExchangeAggregate
	Exchanges  repos.ExchangeRepo
	Catalog    CatalogService
	Receipts   ReceiptService
	Completion CompletionHook
	Metrics    *observability.Metrics
	// VerifyOwnership rejects proposals whose products do not belong to the
	// proposer and counterparty.
	VerifyOwnership bool
}

type exchangeService struct {
	deps ExchangeServiceDeps
	log  *logger.Logger
}

func NewExchangeService(deps ExchangeServiceDeps) ExchangeService {
	if deps.Completion == nil {
		deps.Completion = CompletionHookFunc(func(context.Context, *exchange.Exchange) error { return nil })
	}
	return &exchangeService{deps: deps, log: deps.Log.With("service", "ExchangeService")}
}

func (s *exchangeService) Propose(ctx context.Context, req ProposeRequest) (*exchange.Exchange, error) {
	const op = "Exchange.Propose"
	actor, err := requireActor(ctx, op)
	if err != nil {
		return nil, err
	}
	if s.deps.VerifyOwnership && s.deps.Catalog != nil {
		if err := s.checkOwnership(ctx, actor, req); err != nil {
			return nil, err
		}
	}
	res, err := s.deps.Aggregate.Propose(ctx, domainagg.ProposeExchangeInput{
		ActorID:          actor,
		CounterpartyID:   req.UserRequested,
		ProductOffered:   req.ProductOffered,
		ProductRequested: req.ProductRequested,
	})
	if err != nil {
		return nil, err
	}
	s.deps.Metrics.AddNotifications(string(notification.KindProposalReceived), res.Notifications)
	s.log.Info("exchange proposed", "exchange_id", res.Exchange.ID, "actor_id", actor)
	return res.Exchange, nil
}

func (s *exchangeService) checkOwnership(ctx context.Context, actor uuid.UUID, req ProposeRequest) error {
	const op = "Exchange.Propose"
	if req.ProductOffered == uuid.Nil || req.ProductRequested == uuid.Nil {
		// The aggregate reports missing fields.
		return nil
	}
	owners, err := s.deps.Catalog.ProductOwners(ctx, []uuid.UUID{req.ProductOffered, req.ProductRequested})
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	offeredOwner, ok := owners[req.ProductOffered]
	if !ok {
		return domainagg.NewError(domainagg.CodeValidation, op, "productOffered does not exist", nil)
	}
	requestedOwner, ok := owners[req.ProductRequested]
	if !ok {
		return domainagg.NewError(domainagg.CodeValidation, op, "productRequested does not exist", nil)
	}
	if offeredOwner != actor {
		return domainagg.NewError(domainagg.CodeValidation, op, "productOffered does not belong to you", nil)
	}
	if req.UserRequested != uuid.Nil && requestedOwner != req.UserRequested {
		return domainagg.NewError(domainagg.CodeValidation, op, "productRequested does not belong to userRequested", nil)
	}
	return nil
}

func (s *exchangeService) Accept(ctx context.Context, id uuid.UUID) (*exchange.Exchange, error) {
	actor, err := requireActor(ctx, "Exchange.Accept")
	if err != nil {
		return nil, err
	}
	res, err := s.deps.Aggregate.Accept(ctx, domainagg.ExchangeTransitionInput{ActorID: actor, ExchangeID: id})
	if err != nil {
		return nil, err
	}
	s.deps.Metrics.AddNotifications(string(notification.KindStatusChanged), res.Notifications)
	return res.Exchange, nil
}

func (s *exchangeService) Reject(ctx context.Context, id uuid.UUID) (*exchange.Exchange, error) {
	actor, err := requireActor(ctx, "Exchange.Reject")
	if err != nil {
		return nil, err
	}
	res, err := s.deps.Aggregate.Reject(ctx, domainagg.ExchangeTransitionInput{ActorID: actor, ExchangeID: id})
	if err != nil {
		return nil, err
	}
	s.deps.Metrics.AddNotifications(string(notification.KindStatusChanged), res.Notifications)
	return res.Exchange, nil
}

func (s *exchangeService) UpdateStatus(ctx context.Context, id uuid.UUID, raw string) (StatusUpdate, error) {
	const op = "Exchange.UpdateStatus"
	actor, err := requireActor(ctx, op)
	if err != nil {
		return StatusUpdate{}, err
	}
	target, err := exchange.ParseStatus(raw)
	if err != nil {
		return StatusUpdate{}, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), nil)
	}
	res, err := s.deps.Aggregate.UpdateStatus(ctx, domainagg.ExchangeTransitionInput{
		ActorID:    actor,
		ExchangeID: id,
		Target:     target,
	})
	if err != nil {
		return StatusUpdate{}, err
	}
	s.deps.Metrics.IncExchangeTransition(string(target))
	s.deps.Metrics.AddNotifications(string(notification.KindStatusChanged), res.Notifications)
	if target == exchange.StatusCompleted {
		s.runCompletion(ctx, res.Exchange)
	}
	return StatusUpdate{Exchange: res.Exchange, UniqueCode: res.Exchange.UniqueCode}, nil
}

func (s *exchangeService) UploadReceipt(ctx context.Context, req UploadReceiptRequest) (*exchange.Exchange, error) {
	const op = "Exchange.UploadReceipt"
	actor, err := requireActor(ctx, op)
	if err != nil {
		return nil, err
	}
	role, err := exchange.ParseRole(req.Role)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "userType must be offered or requested", err)
	}
	if req.ExchangeID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "exchangeId is required", nil)
	}
	if req.File == nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "receipt file is required", nil)
	}

	// Cheap checks before the blob is written; the aggregate repeats them under lock.
	current, err := s.deps.Exchanges.GetByID(dbctx.Context{Ctx: ctx}, req.ExchangeID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if current.UserFor(role) != actor {
		return nil, domainagg.NewError(domainagg.CodeUnauthorized, op, "only the "+string(role)+" participant can upload that receipt", nil)
	}
	if !current.Status.IsActive() {
		return nil, domainagg.NewError(domainagg.CodeConflict, op, "receipts cannot be uploaded to a "+string(current.Status)+" exchange", nil)
	}

	key, err := s.deps.Receipts.Store(ctx, current.ID, role, req.File)
	if err != nil {
		s.deps.Metrics.IncReceiptUpload(string(role), "rejected")
		return nil, err
	}
	res, err := s.deps.Aggregate.UploadReceipt(ctx, domainagg.UploadReceiptInput{
		ActorID:    actor,
		ExchangeID: current.ID,
		Role:       role,
		ReceiptRef: key,
		Address:    req.Address,
		Phone:      req.Phone,
	})
	if err != nil {
		s.deps.Metrics.IncReceiptUpload(string(role), "failed")
		if rmErr := s.deps.Receipts.Remove(context.WithoutCancel(ctx), key); rmErr != nil {
			s.log.Warn("orphan receipt cleanup failed", "exchange_id", current.ID, "error", rmErr)
		}
		return nil, err
	}
	s.deps.Metrics.IncReceiptUpload(string(role), "stored")
	if res.ReplacedRef != "" {
		if rmErr := s.deps.Receipts.Remove(context.WithoutCancel(ctx), res.ReplacedRef); rmErr != nil {
			s.log.Warn("replaced receipt cleanup failed", "exchange_id", current.ID, "key", res.ReplacedRef, "error", rmErr)
		}
	}
	s.deps.Metrics.AddNotifications(string(notification.KindReceiptUploaded), res.Notifications)
	if res.Completed {
		s.deps.Metrics.IncExchangeTransition(string(exchange.StatusCompleted))
		s.log.Info("exchange completed", "exchange_id", current.ID, "actor_id", actor)
		s.runCompletion(ctx, res.Exchange)
	}
	return res.Exchange, nil
}

// runCompletion never fails the caller; the exchange is already committed.
func (s *exchangeService) runCompletion(ctx context.Context, e *exchange.Exchange) {
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.deps.Completion.OnCompleted(hookCtx, e); err != nil {
		s.deps.Metrics.IncCompletionHook("failed")
		s.log.Warn("completion hook failed", "exchange_id", e.ID, "error", err)
		return
	}
	s.deps.Metrics.IncCompletionHook("ok")
}

func (s *exchangeService) OpenReceipt(ctx context.Context, id uuid.UUID, rawRole string) (io.ReadCloser, string, error) {
	const op = "Exchange.OpenReceipt"
	actor, err := requireActor(ctx, op)
	if err != nil {
		return nil, "", err
	}
	role, err := exchange.ParseRole(rawRole)
	if err != nil {
		return nil, "", domainagg.NewError(domainagg.CodeValidation, op, err.Error(), nil)
	}
	if id == uuid.Nil {
		return nil, "", domainagg.NewError(domainagg.CodeValidation, op, "exchangeId is required", nil)
	}
	e, err := s.deps.Exchanges.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, "", dataagg.MapError(op, err)
	}
	if !e.IsParticipant(actor) {
		return nil, "", domainagg.NewError(domainagg.CodeUnauthorized, op, "only exchange participants can read receipts", nil)
	}
	key := e.ReceiptFor(role)
	if strings.TrimSpace(key) == "" {
		return nil, "", domainagg.NewError(domainagg.CodeNotFound, op, "receipt not uploaded", nil)
	}
	rc, contentType, err := s.deps.Receipts.Open(ctx, key)
	if errors.Is(err, gcp.ErrObjectNotFound) {
		return nil, "", domainagg.NewError(domainagg.CodeNotFound, op, "receipt file is missing from storage", err)
	}
	if err != nil {
		return nil, "", domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return rc, contentType, nil
}

func (s *exchangeService) GetByID(ctx context.Context, id uuid.UUID) (*exchange.View, error) {
	const op = "Exchange.GetByID"
	actor, err := requireActor(ctx, op)
	if err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "exchangeId is required", nil)
	}
	e, err := s.deps.Exchanges.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	views, err := s.views(ctx, op, []*exchange.Exchange{e})
	if err != nil {
		return nil, err
	}
	views[0].UserType = e.ViewerType(actor)
	return views[0], nil
}

func (s *exchangeService) ListReceived(ctx context.Context) ([]*exchange.View, error) {
	const op = "Exchange.ListReceived"
	actor, err := requireActor(ctx, op)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, op, repos.ExchangeListFilter{UserRequested: actor, Statuses: exchange.ActiveStatuses})
}

func (s *exchangeService) ListSent(ctx context.Context) ([]*exchange.View, error) {
	const op = "Exchange.ListSent"
	actor, err := requireActor(ctx, op)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, op, repos.ExchangeListFilter{UserOffered: actor, Statuses: exchange.ActiveStatuses})
}

func (s *exchangeService) ListAll(ctx context.Context) ([]*exchange.View, error) {
	const op = "Exchange.ListAll"
	if _, err := requireActor(ctx, op); err != nil {
		return nil, err
	}
	return s.list(ctx, op, repos.ExchangeListFilter{})
}

func (s *exchangeService) ListCompleted(ctx context.Context) ([]*exchange.View, error) {
	const op = "Exchange.ListCompleted"
	if _, err := requireActor(ctx, op); err != nil {
		return nil, err
	}
	return s.list(ctx, op, repos.ExchangeListFilter{Statuses: []exchange.Status{exchange.StatusCompleted}})
}

func (s *exchangeService) list(ctx context.Context, op string, filter repos.ExchangeListFilter) ([]*exchange.View, error) {
	rows, err := s.deps.Exchanges.List(dbctx.Context{Ctx: ctx}, filter)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	return s.views(ctx, op, rows)
}

func (s *exchangeService) views(ctx context.Context, op string, rows []*exchange.Exchange) ([]*exchange.View, error) {
	out := make([]*exchange.View, 0, len(rows))
	for _, e := range rows {
		v := exchange.NewView(e)
		if s.deps.Receipts != nil {
			v.ReceiptOfferedURL = s.deps.Receipts.PublicURL(e.ReceiptOffered)
			v.ReceiptRequestedURL = s.deps.Receipts.PublicURL(e.ReceiptRequested)
		}
		out = append(out, v)
	}
	if s.deps.Catalog == nil {
		return out, nil
	}
	if err := s.deps.Catalog.Enrich(ctx, out); err != nil {
		// Display data is optional; serve the bare records.
		if errors.Is(err, context.Canceled) {
			return nil, domainagg.Wrap(domainagg.CodeRetryable, op, err)
		}
		s.log.Warn("exchange enrichment failed", "op", op, "error", err)
	}
	return out, nil
}

func requireActor(ctx context.Context, op string) (uuid.UUID, error) {
	actor := ctxutil.ActorID(ctx)
	if actor == uuid.Nil {
		return uuid.Nil, domainagg.NewError(domainagg.CodeUnauthorized, op, "authentication required", nil)
	}
	return actor, nil
}
