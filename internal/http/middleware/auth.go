package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/truequecito-backend/internal/http/response"
	"github.com/yungbote/truequecito-backend/internal/platform/ctxutil"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
	"github.com/yungbote/truequecito-backend/internal/services"
)

// ActorKey is the gin context key holding the authenticated user id.
const ActorKey = "actor_id"

var (
	errNoCredentials = errors.New("missing or invalid token")
	errForbidden     = errors.New("forbidden")
)

type AuthMiddleware struct {
	log      *logger.Logger
	identity services.IdentityService
}

func NewAuthMiddleware(log *logger.Logger, identity services.IdentityService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), identity: identity}
}

// RequireAuth resolves the Authorization bearer token into the request's
// actor. Every failure answers the same 401 so callers cannot probe token
// validity.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return am.require(false)
}

// RequireLinkAuth also accepts a token query parameter. Mount it only on
// GET routes opened as plain links, such as receipt downloads.
func (am *AuthMiddleware) RequireLinkAuth() gin.HandlerFunc {
	return am.require(true)
}

func (am *AuthMiddleware) require(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ctx, ok := am.authenticate(c, allowQuery)
		if !ok {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errNoCredentials)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set(ActorKey, actor.String())
		c.Next()
	}
}

func (am *AuthMiddleware) authenticate(c *gin.Context, allowQuery bool) (uuid.UUID, context.Context, bool) {
	raw := bearerToken(c.Request)
	if raw == "" && allowQuery && c.Request.Method == http.MethodGet {
		raw = strings.TrimSpace(c.Query("token"))
	}
	if raw == "" {
		return uuid.Nil, nil, false
	}
	ctx, err := am.identity.SetContextFromToken(c.Request.Context(), raw)
	if err != nil {
		am.log.Debug("Token rejected", "path", c.Request.URL.Path, "error", err)
		return uuid.Nil, nil, false
	}
	actor := ctxutil.ActorID(ctx)
	if actor == uuid.Nil {
		return uuid.Nil, nil, false
	}
	return actor, ctx, true
}

// RequireRole lets through only actors whose token carries role, compared
// case-insensitively. An empty role disables the gate.
func (am *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	role = strings.TrimSpace(role)
	if role == "" {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd != nil && strings.EqualFold(rd.Role, role) {
			c.Next()
			return
		}
		response.RespondError(c, http.StatusForbidden, "forbidden", errForbidden)
		c.Abort()
	}
}

func bearerToken(r *http.Request) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if found && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
