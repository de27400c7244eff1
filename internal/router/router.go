package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/handler"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Learner    *handler.LearnerHandler
	WS         *handler.WSHandler
	Assessment *handler.AssessmentHandler
	Question   *handler.QuestionHandler
	Result     *handler.ResultHandler
	Monitor    *handler.MonitorHandler
	System     *handler.SystemHandler
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
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", limiter.Middleware(), handlers.Auth.Login)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)
	}

	// ─── 2. Learner Group (JWT, any role) ──────────────────────────────
	learnerAPI := router.Group("/api/v1/learner")
	learnerAPI.Use(
		middleware.RequireJWT(authService),
		limiter.Middleware(),
		middleware.NoStore(),
	)
	{
		learnerAPI.GET("/assessments", handlers.Learner.ListAssessments)
		learnerAPI.POST("/assessments/:id/start", handlers.Learner.Start)

		learnerAPI.GET("/session", handlers.Learner.Current)
		learnerAPI.DELETE("/session", handlers.Learner.Leave)
		learnerAPI.PUT("/session/answers/:question_id", handlers.Learner.Answer)
		learnerAPI.POST("/session/signals", handlers.Learner.Signal)
		learnerAPI.POST("/session/submit", handlers.Learner.Submit)
		learnerAPI.POST("/session/terminate", handlers.Learner.ConfirmTermination)
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireJWT(authService))
	{
		ws.GET("/learner/session", handlers.WS.SessionStream)
	}

	// ─── 4. Admin Group (JWT + manager roles) ──────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireJWT(authService), middleware.RequireManager())
	{
		assessments := adminAPI.Group("/assessments")
		{
			assessments.GET("", handlers.Assessment.List)
			assessments.POST("", handlers.Assessment.Create)
			assessments.GET("/stats", handlers.Assessment.Stats)
			assessments.GET("/:id", handlers.Assessment.Get)
			assessments.PATCH("/:id", handlers.Assessment.Update)
			assessments.DELETE("/:id", handlers.Assessment.Delete)
			assessments.POST("/:id/publish", handlers.Assessment.Publish)
			assessments.POST("/:id/archive", handlers.Assessment.Archive)
			assessments.POST("/:id/questions", handlers.Assessment.AttachQuestion)
			assessments.DELETE("/:id/questions/:question_id", handlers.Assessment.DetachQuestion)
		}

		questions := adminAPI.Group("/questions")
		{
			questions.GET("", handlers.Question.List)
			questions.POST("", handlers.Question.Create)
			questions.GET("/:question_id", handlers.Question.Get)
		}

		adminAPI.GET("/results", handlers.Result.List)
		adminAPI.GET("/results/:id", handlers.Result.Get)

		adminAPI.GET("/monitor", handlers.Monitor.Stream)
		adminAPI.GET("/system", handlers.System.Metrics)
	}

	return router
}
