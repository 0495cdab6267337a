package server

import (
	"net/http"

	"backend/internal/config"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/mlbackend"
	"backend/internal/repository"
	"backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

type Server struct {
	router    *gin.Engine
	db        *sqlx.DB
	cfg       *config.Config
	logger    *zap.Logger
	backend   mlbackend.Client
	normalize mlbackend.Normalizer
	notifier  service.Notifier
}

func NewServer(db *sqlx.DB, cfg *config.Config, logger *zap.Logger, backend mlbackend.Client, normalize mlbackend.Normalizer, notifier service.Notifier) *Server {
	router := gin.Default()

	s := &Server{
		router:    router,
		db:        db,
		cfg:       cfg,
		logger:    logger,
		backend:   backend,
		normalize: normalize,
		notifier:  notifier,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	log := logrus.New()

	// Repositories
	authRepo := repository.NewAuthRepository(s.db, log)
	predictionRepo := repository.NewPredictionRepository(s.db, s.logger)
	feedbackRepo := repository.NewFeedbackRepository(s.db, s.logger)

	// Services
	authService := service.NewAuthService(authRepo, s.logger)
	predictionService := service.NewPredictionService(predictionRepo, s.backend, s.normalize, s.notifier, s.logger)
	feedbackService := service.NewFeedbackService(feedbackRepo, predictionRepo, s.logger)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, log)
	predictionHandler := handler.NewPredictionHandler(predictionService, s.logger)
	feedbackHandler := handler.NewFeedbackHandler(feedbackService, s.logger)
	statsHandler := handler.NewStatsHandler(predictionRepo, feedbackRepo, s.logger)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Authentication routes
	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", middleware.RequireAuth(s.logger), authHandler.Logout)

	// Prediction routes
	predictions := s.router.Group("/api/predictions")
	{
		predictions.POST("/predict", middleware.OptionalAuth(s.logger), predictionHandler.Predict)
		predictions.GET("/history", middleware.RequireAuth(s.logger), predictionHandler.GetHistory)
		predictions.GET("/stats", statsHandler.GetStats)
		predictions.GET("/:id", middleware.OptionalAuth(s.logger), predictionHandler.GetByID)
	}

	// Feedback routes
	s.router.POST("/api/feedback", middleware.OptionalAuth(s.logger), feedbackHandler.Submit)

	// Admin dashboard
	analytics := s.router.Group("/api/analytics")
	analytics.Use(middleware.RequireAuth(s.logger), middleware.RequireRole("admin"))
	{
		analytics.GET("/dashboard", statsHandler.GetDashboard)
	}
}

func (s *Server) Run(addr string) {
	s.logger.Info("Server starting", zap.String("port", addr))
	if err := s.router.Run(addr); err != nil {
		s.logger.Fatal("Server failed to start", zap.Error(err))
	}
}
