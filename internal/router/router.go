package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/handler"
	"github.com/stemsi/exam-portal/internal/logger"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	ExamPortal *handler.ExamPortalHandler
	Operator   *handler.OperatorHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), logger.AccessLog(log, response.ContextKeyRequestID))

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/operator/login", authLimiter.Middleware(), handlers.Auth.OperatorLogin)
		auth.GET("/operator/me", middleware.RequireOperatorJWT(authService), handlers.Auth.GetOperatorProfile)
	}

	// ─── 2. Exam Group (Session JWT) ───────────────────────────────────
	sessionLimiter := middleware.NewRateLimiter(30, time.Minute)
	exam := router.Group("/api/v1/exam")
	exam.Use(middleware.NoStore())
	{
		exam.POST("/sessions", sessionLimiter.Middleware(), handlers.ExamPortal.CreateSession)

		session := exam.Group("")
		session.Use(middleware.RequireSessionJWT(authService))
		{
			session.GET("/session", handlers.ExamPortal.GetSession)
			session.GET("/courses", handlers.ExamPortal.ListCourses)
			session.POST("/course", handlers.ExamPortal.SelectCourse)
			session.PUT("/answers/:question_id", handlers.ExamPortal.RecordAnswer)
			session.POST("/submit", handlers.ExamPortal.Submit)
		}
	}

	// ─── 3. WebSocket Group (Session JWT via ?token=) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireSessionJWT(authService))
	{
		ws.GET("/exam/stream", handlers.WS.ExamStream)
	}

	// ─── 4. Operator Group (Operator JWT) ──────────────────────────────
	operator := router.Group("/api/v1/operator")
	operator.Use(middleware.RequireOperatorJWT(authService))
	{
		operator.GET("/catalog", handlers.Operator.GetCatalog)
		operator.GET("/submissions", handlers.Operator.ListSubmissions)
		operator.GET("/status", handlers.Operator.StreamStatus)
	}

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	return router
}
