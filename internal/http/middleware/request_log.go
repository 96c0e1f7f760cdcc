package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/truequecito-backend/internal/platform/ctxutil"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

// quietRoutes are probed constantly; successful hits go to Debug.
var quietRoutes = map[string]bool{
	"/healthcheck": true,
}

// RequestLogger writes one access line per request after the handler chain
// has finished.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		began := time.Now()
		c.Next()

		route := c.FullPath()
		matched := route != ""
		if !matched {
			route = c.Request.URL.Path
		}
		code := c.Writer.Status()

		kv := make([]interface{}, 0, 20)
		kv = append(kv,
			"method", c.Request.Method,
			"route", route,
			"matched", matched,
			"status", code,
			"bytes", c.Writer.Size(),
			"latency_ms", time.Since(began).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		kv = append(kv, requestIdentity(c)...)
		if msg := c.Errors.ByType(gin.ErrorTypeAny).String(); msg != "" {
			kv = append(kv, "gin_errors", msg)
		}

		emit := log.Info
		switch {
		case code >= http.StatusInternalServerError:
			emit = log.Error
		case code >= http.StatusBadRequest:
			emit = log.Warn
		case quietRoutes[route]:
			emit = log.Debug
		}
		emit("request completed", kv...)
	}
}

func requestIdentity(c *gin.Context) []interface{} {
	var kv []interface{}
	ctx := c.Request.Context()
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.RequestID != "" {
			kv = append(kv, "request_id", td.RequestID)
		}
		if td.TraceID != "" {
			kv = append(kv, "trace_id", td.TraceID)
		}
	}
	if rd := ctxutil.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
		kv = append(kv, "user_id", rd.UserID.String(), "role", rd.Role)
	}
	return kv
}
