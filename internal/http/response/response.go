package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/truequecito-backend/internal/domain/aggregates"
	"github.com/yungbote/truequecito-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondDomainError maps service errors onto HTTP statuses. Internal
// failures never leak their cause to the client.
func RespondDomainError(c *gin.Context, err error) {
	if apiErr, ok := apierr.As(err); ok {
		status := apiErr.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		msg := "request failed"
		if apiErr.Err != nil {
			msg = apiErr.Err.Error()
		}
		c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: apiErr.Code}})
		return
	}
	if errors.Is(err, http.ErrMissingFile) {
		RespondError(c, http.StatusBadRequest, "missing_file", errors.New("receipt file is required"))
		return
	}
	code := domainagg.CodeOf(err)
	status := StatusForCode(code)
	msg := domainagg.MessageOf(err)
	if status == http.StatusInternalServerError {
		msg = "internal server error"
		code = domainagg.CodeInternal
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: string(code)}})
}

func StatusForCode(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest
	case domainagg.CodeUnauthorized:
		return http.StatusUnauthorized
	case domainagg.CodeNotFound:
		return http.StatusNotFound
	case domainagg.CodeConflict, domainagg.CodeInvariantViolation, domainagg.CodePreconditionFailed:
		return http.StatusConflict
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
