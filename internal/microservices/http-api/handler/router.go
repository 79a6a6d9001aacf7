package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"libraryhub/internal/microservices/http-api/middleware"
)

// Handlers groups everything mounted under /api.
type Handlers struct {
	Auth          *AuthHandler
	Books         *BookHandler
	Loans         *LoanHandler
	Fines         *FineHandler
	Reservations  *ReservationHandler
	Notifications *NotificationHandler
	Members       *MemberHandler
	Admin         *AdminHandler
}

type RouterConfig struct {
	Logger      *zap.Logger
	CORSOrigins []string
	// Limiter is optional; nil disables rate limiting.
	Limiter *middleware.RateLimiter
	Tokens  middleware.TokenValidator
}

func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	if cfg.Limiter != nil {
		r.Use(cfg.Limiter.Middleware())
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	requireAuth := middleware.AuthMiddleware(cfg.Tokens)

	api := r.Group("/api")
	h.Auth.RegisterRoutes(api.Group("/auth"), requireAuth)

	protected := api.Group("", requireAuth)
	h.Books.RegisterRoutes(protected)
	h.Loans.RegisterRoutes(protected)
	h.Fines.RegisterRoutes(protected)
	h.Reservations.RegisterRoutes(protected)
	h.Notifications.RegisterRoutes(protected)
	h.Members.RegisterRoutes(protected)
	h.Admin.RegisterRoutes(protected)

	return r
}
