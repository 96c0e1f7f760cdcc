package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/truequecito-backend/internal/domain/aggregates"
	"github.com/yungbote/truequecito-backend/internal/platform/apierr"
)

func TestRespondDomainError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"validation", domainagg.NewError(domainagg.CodeValidation, "Exchange.Propose", "productOffered is required", nil), http.StatusBadRequest, "validation", "productOffered is required"},
		{"unauthorized", domainagg.NewError(domainagg.CodeUnauthorized, "op", "nope", nil), http.StatusUnauthorized, "unauthorized", "nope"},
		{"not found wrapped", fmt.Errorf("outer: %w", domainagg.NewError(domainagg.CodeNotFound, "op", "exchange not found", nil)), http.StatusNotFound, "not_found", "exchange not found"},
		{"invariant", domainagg.NewError(domainagg.CodeInvariantViolation, "op", "both receipts required", nil), http.StatusConflict, "invariant_violation", "both receipts required"},
		{"retryable", domainagg.NewError(domainagg.CodeRetryable, "op", "busy", nil), http.StatusServiceUnavailable, "retryable", "busy"},
		{"internal hides cause", domainagg.NewError(domainagg.CodeInternal, "op", "dial tcp 10.0.0.1:5432", nil), http.StatusInternalServerError, "internal", "internal server error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal", "internal server error"},
		{"api error", apierr.UnsupportedMediaType("unsupported receipt type text/plain"), http.StatusUnsupportedMediaType, "unsupported_media_type", "unsupported receipt type text/plain"},
		{"missing file", http.ErrMissingFile, http.StatusBadRequest, "missing_file", "receipt file is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			RespondDomainError(c, tc.err)
			if rec.Code != tc.status {
				t.Fatalf("status: want=%d got=%d", tc.status, rec.Code)
			}
			var env ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error.Code != tc.code || env.Error.Message != tc.message {
				t.Fatalf("envelope: want=%s/%q got=%s/%q", tc.code, tc.message, env.Error.Code, env.Error.Message)
			}
		})
	}
}
