package service

import (
	"errors"
	"testing"
	"time"

	"backend/internal/models"
	"backend/internal/repository"

	"go.uber.org/zap"
)

type fakeFeedbackRepo struct {
	created   []*models.Feedback
	createErr error
}

func (f *fakeFeedbackRepo) Create(fb *models.Feedback) error {
	if f.createErr != nil {
		return f.createErr
	}
	fb.ID = int64(len(f.created) + 1)
	fb.CreatedAt = time.Now()
	f.created = append(f.created, fb)
	return nil
}

func (f *fakeFeedbackRepo) GetByPredictionID(predictionID string) ([]*models.Feedback, error) {
	return f.created, nil
}

func (f *fakeFeedbackRepo) GetStats() (*repository.FeedbackStats, error) {
	return &repository.FeedbackStats{}, nil
}

func TestSubmitFeedbackUnknownPrediction(t *testing.T) {
	feedbackRepo := &fakeFeedbackRepo{}
	predictionRepo := newFakePredictionRepo()
	svc := NewFeedbackService(feedbackRepo, predictionRepo, zap.NewNop())

	_, err := svc.Submit(FeedbackRequest{PredictionID: "missing", Rating: 4}, models.Anonymous{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(feedbackRepo.created) != 0 {
		t.Error("no feedback row must be created for an unknown prediction")
	}
}

func TestSubmitFeedbackValidation(t *testing.T) {
	feedbackRepo := &fakeFeedbackRepo{}
	predictionRepo := newFakePredictionRepo()
	predictionRepo.records["p1"] = &models.Prediction{ID: "p1"}
	svc := NewFeedbackService(feedbackRepo, predictionRepo, zap.NewNop())

	bad := []FeedbackRequest{
		{PredictionID: "p1", Rating: 0},
		{PredictionID: "p1", Rating: 6},
		{PredictionID: "", Rating: 3},
	}
	for _, req := range bad {
		if _, err := svc.Submit(req, models.Anonymous{}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for %+v, got %v", req, err)
		}
	}

	label := 5
	if _, err := svc.Submit(FeedbackRequest{PredictionID: "p1", Rating: 3, CorrectLabel: &label}, models.Anonymous{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for correctLabel outside {0,1}, got %v", err)
	}
}

func TestSubmitFeedbackCreatesAndAttaches(t *testing.T) {
	feedbackRepo := &fakeFeedbackRepo{}
	predictionRepo := newFakePredictionRepo()
	predictionRepo.records["p1"] = &models.Prediction{ID: "p1"}
	svc := NewFeedbackService(feedbackRepo, predictionRepo, zap.NewNop())

	label := 0
	fb, err := svc.Submit(FeedbackRequest{
		PredictionID: "p1",
		Rating:       5,
		CorrectLabel: &label,
		Comment:      "clearly human prose",
	}, models.Authenticated{UserID: 9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(feedbackRepo.created) != 1 {
		t.Fatalf("expected one feedback row, got %d", len(feedbackRepo.created))
	}
	if fb.UserID == nil || *fb.UserID != 9 {
		t.Errorf("expected user id 9, got %v", fb.UserID)
	}
	if fb.FeedbackType != "general" {
		t.Errorf("expected default feedback type, got %q", fb.FeedbackType)
	}

	snapshot, ok := predictionRepo.attached["p1"]
	if !ok {
		t.Fatal("expected feedback snapshot attached to prediction")
	}
	if snapshot.Rating != 5 || snapshot.CorrectLabel == nil || *snapshot.CorrectLabel != 0 {
		t.Errorf("unexpected snapshot: %+v", snapshot)
	}
}

func TestSubmitFeedbackAttachIsBestEffort(t *testing.T) {
	feedbackRepo := &fakeFeedbackRepo{}
	predictionRepo := newFakePredictionRepo()
	predictionRepo.records["p1"] = &models.Prediction{ID: "p1"}
	predictionRepo.attachErr = errors.New("column locked")
	svc := NewFeedbackService(feedbackRepo, predictionRepo, zap.NewNop())

	fb, err := svc.Submit(FeedbackRequest{PredictionID: "p1", Rating: 2}, models.Anonymous{})
	if err != nil {
		t.Fatalf("attach failure must not fail the submission: %v", err)
	}
	if fb.ID == 0 {
		t.Error("expected feedback row to be created")
	}
}
