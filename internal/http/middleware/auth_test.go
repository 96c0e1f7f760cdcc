package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/truequecito-backend/internal/platform/ctxutil"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
	"github.com/yungbote/truequecito-backend/internal/services"
)

func newAuthRouter(t *testing.T, role string) (*gin.Engine, services.IdentityService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	identity := services.NewIdentityService(logger.Nop(), "test-secret", "", time.Hour)
	am := NewAuthMiddleware(logger.Nop(), identity)
	r := gin.New()
	whoami := func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.ActorID(c.Request.Context()).String())
	}
	r.GET("/whoami", am.RequireAuth(), am.RequireRole(role), whoami)
	r.GET("/link", am.RequireLinkAuth(), whoami)
	r.POST("/link", am.RequireLinkAuth(), whoami)
	return r, identity
}

func TestRequireAuth(t *testing.T) {
	r, identity := newAuthRouter(t, "")
	userID := uuid.New()
	token, err := identity.IssueToken(userID, "")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	cases := []struct {
		name   string
		target string
		header string
		status int
	}{
		{"bearer", "/whoami", "Bearer " + token, http.StatusOK},
		{"query token refused", "/whoami?token=" + token, "", http.StatusUnauthorized},
		{"missing", "/whoami", "", http.StatusUnauthorized},
		{"garbage", "/whoami", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status: want=%d got=%d body=%s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status == http.StatusOK && rec.Body.String() != userID.String() {
				t.Fatalf("actor: want=%s got=%s", userID, rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	r, identity := newAuthRouter(t, "admin")
	userToken, _ := identity.IssueToken(uuid.New(), "user")
	adminToken, _ := identity.IssueToken(uuid.New(), "Admin")

	for token, want := range map[string]int{userToken: http.StatusForbidden, adminToken: http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("status: want=%d got=%d", want, rec.Code)
		}
	}
}

func TestAttachTraceContextEchoesIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.GetTraceData(c.Request.Context()).RequestID)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerRequestID, "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Body.String() != "req-123" || rec.Header().Get(headerRequestID) != "req-123" {
		t.Fatalf("request id: body=%q header=%q", rec.Body.String(), rec.Header().Get(headerRequestID))
	}
	if rec.Header().Get(headerTraceID) == "" {
		t.Fatalf("expected trace id header")
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerRequestID, "has space")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(headerRequestID); got == "has space" || got == "" {
		t.Fatalf("request id should be regenerated: got=%q", got)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header, query, want string
	}{
		{"Bearer abc", "", "abc"},
		{"bearer  abc ", "", "abc"},
		{"Basic abc", "q", ""},
		{"", "q", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/x?token="+tc.query, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := bearerToken(req); got != tc.want {
			t.Fatalf("bearerToken(%q, %q): want=%q got=%q", tc.header, tc.query, tc.want, got)
		}
	}
}

func TestRequireLinkAuthAcceptsQueryTokenOnGet(t *testing.T) {
	r, identity := newAuthRouter(t, "")
	userID := uuid.New()
	token, err := identity.IssueToken(userID, "")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	cases := []struct {
		name   string
		method string
		target string
		status int
	}{
		{"get with query", http.MethodGet, "/link?token=" + token, http.StatusOK},
		{"post with query", http.MethodPost, "/link?token=" + token, http.StatusUnauthorized},
		{"get without token", http.MethodGet, "/link", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, nil))
			if rec.Code != tc.status {
				t.Fatalf("status: want=%d got=%d", tc.status, rec.Code)
			}
			if tc.status == http.StatusOK && rec.Body.String() != userID.String() {
				t.Fatalf("actor: want=%s got=%s", userID, rec.Body.String())
			}
		})
	}
}
