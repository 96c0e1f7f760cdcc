package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/truequecito-backend/internal/observability"
	httpH "github.com/yungbote/truequecito-backend/internal/http/handlers"
	httpMW "github.com/yungbote/truequecito-backend/internal/http/middleware"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	ExchangeHandler     *httpH.ExchangeHandler
	NotificationHandler *httpH.NotificationHandler
	HealthHandler       *httpH.HealthHandler

	CORSOrigins []string
	// AdminRole gates the all/completed listings. Empty leaves them open to
	// any authenticated user.
	AdminRole string
	// MaxUploadBytes caps receipt upload request bodies.
	MaxUploadBytes int64
	// OtelService enables otelgin spans when set.
	OtelService string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.OtelService != "" {
		r.Use(otelgin.Middleware(cfg.OtelService))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics, "/healthcheck"))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Routes live at the root and again under /api for clients behind the
	// web app's proxy prefix.
	mountAPI(r.Group("/"), cfg)
	mountAPI(r.Group("/api"), cfg)

	return r
}

func mountAPI(root *gin.RouterGroup, cfg RouterConfig) {
	g, links := root, root
	var adminGate gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if am := cfg.AuthMiddleware; am != nil {
		g = root.Group("/", am.RequireAuth())
		links = root.Group("/", am.RequireLinkAuth())
		adminGate = am.RequireRole(cfg.AdminRole)
	}

	if h := cfg.ExchangeHandler; h != nil {
		ex := g.Group("/exchanges")
		ex.POST("", h.Propose)
		ex.GET("/all", adminGate, h.ListAll)
		ex.GET("/completed", adminGate, h.ListCompleted)

		ex.GET("/received", h.ListReceived)
		ex.GET("/sent", h.ListSent)
		ex.PUT("/status", h.UpdateStatus)
		ex.POST("/upload-receipt", httpMW.LimitBody(cfg.MaxUploadBytes), h.UploadReceipt)
		ex.PUT("/accept/:exchangeId", h.Accept)
		ex.PUT("/cancel/:exchangeId", h.Cancel)
		ex.GET("/:exchangeId", h.Get)
		// Receipt links are opened straight from the browser.
		links.GET("/exchanges/:exchangeId/receipts/:role", h.DownloadReceipt)
	}

	if h := cfg.NotificationHandler; h != nil {
		g.GET("/notifications", h.List)
		g.PUT("/notifications/:notificationId/read", h.MarkRead)
	}
}
