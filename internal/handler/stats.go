package handler

import (
	"net/http"

	"backend/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StatsHandler interface {
	GetStats(c *gin.Context)
	GetDashboard(c *gin.Context)
}

type statsHandler struct {
	predictionRepo repository.PredictionRepository
	feedbackRepo   repository.FeedbackRepository
	logger         *zap.Logger
}

func NewStatsHandler(predictionRepo repository.PredictionRepository, feedbackRepo repository.FeedbackRepository, logger *zap.Logger) StatsHandler {
	return &statsHandler{
		predictionRepo: predictionRepo,
		feedbackRepo:   feedbackRepo,
		logger:         logger,
	}
}

// GetStats handles GET /api/predictions/stats
func (h *statsHandler) GetStats(c *gin.Context) {
	stats, err := h.predictionRepo.GetStats()
	if err != nil {
		h.logger.Error("Failed to get prediction stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve statistics"})
		return
	}

	languages, err := h.predictionRepo.CountByLanguage()
	if err != nil {
		h.logger.Error("Failed to get per-language counts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve statistics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":                  stats.Total,
		"human_count":            stats.HumanCount,
		"machine_count":          stats.MachineCount,
		"avg_confidence":         stats.AvgConfidence,
		"avg_processing_time_ms": stats.AvgProcessingTime,
		"by_language":            languages,
	})
}

// DashboardStats represents the statistics for the admin dashboard
type DashboardStats struct {
	TotalPredictions  int                        `json:"total_predictions"`
	HumanCount        int                        `json:"human_count"`
	MachineCount      int                        `json:"machine_count"`
	AvgConfidence     float64                    `json:"avg_confidence"`
	AvgProcessingTime float64                    `json:"avg_processing_time_ms"`
	Predictions24h    int                        `json:"predictions_24h"`
	ByLanguage        []repository.LanguageCount `json:"by_language"`
	FeedbackTotal     int                        `json:"feedback_total"`
	FeedbackAvgRating float64                    `json:"feedback_avg_rating"`
	CorrectionRate    float64                    `json:"correction_rate"`
	RecentPredictions interface{}                `json:"recent_predictions"`
}

// GetDashboard handles GET /api/analytics/dashboard
func (h *statsHandler) GetDashboard(c *gin.Context) {
	stats, err := h.predictionRepo.GetStats()
	if err != nil {
		h.logger.Error("Failed to get prediction stats for dashboard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve dashboard data"})
		return
	}

	languages, err := h.predictionRepo.CountByLanguage()
	if err != nil {
		h.logger.Error("Failed to get per-language counts for dashboard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve dashboard data"})
		return
	}

	last24h, err := h.predictionRepo.CountSinceHours(24)
	if err != nil {
		h.logger.Error("Failed to count recent predictions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve dashboard data"})
		return
	}

	recent, err := h.predictionRepo.GetRecent(10)
	if err != nil {
		h.logger.Error("Failed to get recent predictions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve dashboard data"})
		return
	}

	feedbackStats, err := h.feedbackRepo.GetStats()
	if err != nil {
		h.logger.Error("Failed to get feedback stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve dashboard data"})
		return
	}

	c.JSON(http.StatusOK, DashboardStats{
		TotalPredictions:  stats.Total,
		HumanCount:        stats.HumanCount,
		MachineCount:      stats.MachineCount,
		AvgConfidence:     stats.AvgConfidence,
		AvgProcessingTime: stats.AvgProcessingTime,
		Predictions24h:    last24h,
		ByLanguage:        languages,
		FeedbackTotal:     feedbackStats.Total,
		FeedbackAvgRating: feedbackStats.AvgRating,
		CorrectionRate:    feedbackStats.CorrectionRate,
		RecentPredictions: recent,
	})
}
