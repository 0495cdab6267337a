package service

import (
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"backend/internal/models"
	"backend/internal/repository"

	"go.uber.org/zap"
)

const maxCommentLength = 1000

// FeedbackRequest is a caller's rating of an existing prediction.
type FeedbackRequest struct {
	PredictionID string
	Rating       int
	CorrectLabel *int
	Comment      string
	FeedbackType string
}

type FeedbackService interface {
	Submit(req FeedbackRequest, principal models.Principal) (*models.Feedback, error)
}

type feedbackService struct {
	feedbackRepo   repository.FeedbackRepository
	predictionRepo repository.PredictionRepository
	logger         *zap.Logger
}

func NewFeedbackService(feedbackRepo repository.FeedbackRepository, predictionRepo repository.PredictionRepository, logger *zap.Logger) FeedbackService {
	return &feedbackService{
		feedbackRepo:   feedbackRepo,
		predictionRepo: predictionRepo,
		logger:         logger,
	}
}

// Submit stores the feedback row, then copies a snapshot onto the referenced
// prediction. The feedback row is the source of truth; the attach is
// best-effort and a failure there does not fail the submission.
func (s *feedbackService) Submit(req FeedbackRequest, principal models.Principal) (*models.Feedback, error) {
	if err := validateFeedbackRequest(req); err != nil {
		return nil, err
	}

	if _, err := s.predictionRepo.GetByID(req.PredictionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	feedbackType := req.FeedbackType
	if feedbackType == "" {
		feedbackType = "general"
	}

	fb := &models.Feedback{
		PredictionID: req.PredictionID,
		UserID:       requesterID(principal),
		Rating:       req.Rating,
		CorrectLabel: req.CorrectLabel,
		Comment:      req.Comment,
		FeedbackType: feedbackType,
	}

	if err := s.feedbackRepo.Create(fb); err != nil {
		s.logger.Error("Failed to create feedback", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	snapshot := &models.FeedbackSnapshot{
		Rating:       fb.Rating,
		CorrectLabel: fb.CorrectLabel,
		Comment:      fb.Comment,
		FeedbackType: fb.FeedbackType,
		SubmittedAt:  fb.CreatedAt,
	}
	if err := s.predictionRepo.AttachFeedback(req.PredictionID, snapshot); err != nil {
		s.logger.Warn("Failed to attach feedback snapshot to prediction",
			zap.String("prediction_id", req.PredictionID),
			zap.Error(err))
	}

	return fb, nil
}

func validateFeedbackRequest(req FeedbackRequest) error {
	if req.PredictionID == "" {
		return fmt.Errorf("%w: predictionId is required", ErrInvalidInput)
	}
	if req.Rating < 1 || req.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	if req.CorrectLabel != nil && *req.CorrectLabel != models.LabelHuman && *req.CorrectLabel != models.LabelMachine {
		return fmt.Errorf("%w: correctLabel must be 0 or 1", ErrInvalidInput)
	}
	if utf8.RuneCountInString(req.Comment) > maxCommentLength {
		return fmt.Errorf("%w: comment exceeds %d characters", ErrInvalidInput, maxCommentLength)
	}
	return nil
}
