package handler

import (
	"errors"
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FeedbackHandler interface {
	Submit(c *gin.Context)
}

type feedbackHandler struct {
	feedbackService service.FeedbackService
	logger          *zap.Logger
}

func NewFeedbackHandler(feedbackService service.FeedbackService, logger *zap.Logger) FeedbackHandler {
	return &feedbackHandler{feedbackService: feedbackService, logger: logger}
}

type FeedbackRequest struct {
	PredictionID string `json:"predictionId" binding:"required"`
	Rating       int    `json:"rating" binding:"required"`
	CorrectLabel *int   `json:"correctLabel"`
	Comment      string `json:"comment"`
	FeedbackType string `json:"feedbackType"`
}

// Submit handles POST /api/feedback
func (h *feedbackHandler) Submit(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": []string{err.Error()}})
		return
	}

	principal := middleware.PrincipalFrom(c)

	fb, err := h.feedbackService.Submit(service.FeedbackRequest{
		PredictionID: req.PredictionID,
		Rating:       req.Rating,
		CorrectLabel: req.CorrectLabel,
		Comment:      req.Comment,
		FeedbackType: req.FeedbackType,
	}, principal)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": []string{err.Error()}})
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Prediction not found"})
		default:
			h.logger.Error("Failed to submit feedback", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to submit feedback"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"feedbackId": fb.ID,
	})
}
