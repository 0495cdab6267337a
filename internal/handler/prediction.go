package handler

import (
	"errors"
	"net/http"
	"strconv"

	"backend/internal/middleware"
	"backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PredictionHandler interface {
	Predict(c *gin.Context)
	GetHistory(c *gin.Context)
	GetByID(c *gin.Context)
}

type predictionHandler struct {
	predictionService service.PredictionService
	logger            *zap.Logger
}

func NewPredictionHandler(predictionService service.PredictionService, logger *zap.Logger) PredictionHandler {
	return &predictionHandler{
		predictionService: predictionService,
		logger:            logger,
	}
}

type PredictRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Predict handles POST /api/predictions/predict
func (h *predictionHandler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": []string{err.Error()}})
		return
	}

	principal := middleware.PrincipalFrom(c)

	prediction, err := h.predictionService.Predict(c.Request.Context(), service.PredictRequest{
		Text:          req.Text,
		Language:      req.Language,
		CallerAddress: c.ClientIP(),
		CallerAgent:   c.Request.UserAgent(),
	}, principal)
	if err != nil {
		h.respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"predictionId": prediction.ID,
			"prediction": gin.H{
				"label":         prediction.Label,
				"confidence":    prediction.Confidence,
				"probabilities": prediction.Probabilities,
			},
			"explanation":     prediction.Explanation,
			"biasScore":       prediction.BiasScores,
			"language":        prediction.Language,
			"processing_time": prediction.ProcessingTimeMs,
		},
	})
}

// GetHistory handles GET /api/predictions/history?page=&limit=
func (h *predictionHandler) GetHistory(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	principal := middleware.PrincipalFrom(c)

	predictions, pagination, err := h.predictionService.History(principal, page, limit)
	if err != nil {
		h.respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"predictions": predictions,
		"pagination":  pagination,
	})
}

// GetByID handles GET /api/predictions/:id
func (h *predictionHandler) GetByID(c *gin.Context) {
	id := c.Param("id")
	principal := middleware.PrincipalFrom(c)

	prediction, err := h.predictionService.GetByID(id, principal)
	if err != nil {
		h.respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"prediction": prediction})
}

// respondPipelineError maps pipeline errors to their stable HTTP statuses.
func (h *predictionHandler) respondPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": []string{err.Error()}})
	case errors.Is(err, service.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authentication required"})
	case errors.Is(err, service.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Access denied"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Prediction not found"})
	case errors.Is(err, service.ErrBackendUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Prediction service is unavailable"})
	case errors.Is(err, service.ErrBackendTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"success": false, "error": "Prediction service timed out"})
	default:
		h.logger.Error("Prediction pipeline failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	}
}
