package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"backend/internal/mlbackend"
	"backend/internal/models"
	"backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ( // Define custom errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrAuthRequired       = errors.New("authentication required")
	ErrAccessDenied       = errors.New("access denied")
	ErrNotFound           = errors.New("prediction not found")
	ErrBackendUnavailable = errors.New("inference backend unavailable")
	ErrBackendTimeout     = errors.New("inference backend timed out")
	ErrBackend            = errors.New("inference backend error")
	ErrPersistence        = errors.New("failed to persist prediction")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PredictRequest is the validated input to one prediction.
type PredictRequest struct {
	Text          string
	Language      string
	CallerAddress string
	CallerAgent   string
}

// Pagination describes one page of a history listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Notifier is the optional ops alert hook fired when the backend is down.
type Notifier interface {
	BackendDown(variant string, err error)
}

type PredictionService interface {
	Predict(ctx context.Context, req PredictRequest, principal models.Principal) (*models.Prediction, error)
	History(principal models.Principal, page, limit int) ([]*models.Prediction, *Pagination, error)
	GetByID(id string, principal models.Principal) (*models.Prediction, error)
}

type predictionService struct {
	repo      repository.PredictionRepository
	backend   mlbackend.Client
	normalize mlbackend.Normalizer
	access    AccessPolicy
	notifier  Notifier
	logger    *zap.Logger
}

// NewPredictionService wires the orchestrator with the active backend
// client+normalizer pair. notifier may be nil.
func NewPredictionService(repo repository.PredictionRepository, backend mlbackend.Client, normalize mlbackend.Normalizer, notifier Notifier, logger *zap.Logger) PredictionService {
	return &predictionService{
		repo:      repo,
		backend:   backend,
		normalize: normalize,
		notifier:  notifier,
		logger:    logger,
	}
}

func (s *predictionService) Predict(ctx context.Context, req PredictRequest, principal models.Principal) (*models.Prediction, error) {
	if err := validatePredictRequest(req); err != nil {
		return nil, err
	}

	// A disconnected caller must not cancel an in-flight backend call or the
	// subsequent persistence; the record is either fully written or not at all.
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	raw, err := s.backend.Call(ctx, req.Text, req.Language, mlbackend.Options{Explain: true, Bias: true})
	if err != nil {
		return nil, s.translateBackendErr(err)
	}

	outcome, err := s.normalize(req.Text, raw)
	if err != nil {
		s.logger.Error("Failed to normalize backend response",
			zap.String("backend", s.backend.Name()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	modelVersion := outcome.ModelVersion
	if modelVersion == "" {
		modelVersion = s.backend.ModelVersion()
	}

	prediction := &models.Prediction{
		ID:               uuid.NewString(),
		Text:             req.Text,
		Language:         req.Language,
		RequesterID:      requesterID(principal),
		Label:            outcome.Label,
		Confidence:       outcome.Confidence,
		Probabilities:    outcome.Probabilities,
		Explanation:      outcome.Explanation,
		BiasScores:       outcome.BiasScores,
		CallerAddress:    req.CallerAddress,
		CallerAgent:      req.CallerAgent,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		BackendSource:    s.backend.Name(),
		ModelVersion:     modelVersion,
	}

	if err := s.repo.Create(prediction); err != nil {
		s.logger.Error("Failed to persist prediction", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return prediction, nil
}

func (s *predictionService) History(principal models.Principal, page, limit int) ([]*models.Prediction, *Pagination, error) {
	auth, ok := principal.(models.Authenticated)
	if !ok {
		return nil, nil, ErrAuthRequired
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	total, err := s.repo.CountByRequester(auth.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	predictions, err := s.repo.GetByRequester(auth.UserID, limit, (page-1)*limit)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	pagination := &Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: (total + limit - 1) / limit,
	}
	return predictions, pagination, nil
}

func (s *predictionService) GetByID(id string, principal models.Principal) (*models.Prediction, error) {
	prediction, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if !s.access.CanRead(prediction, principal) {
		return nil, ErrAccessDenied
	}
	return prediction, nil
}

func (s *predictionService) translateBackendErr(err error) error {
	switch {
	case errors.Is(err, mlbackend.ErrTimeout):
		s.logger.Warn("Inference backend timed out", zap.String("backend", s.backend.Name()))
		if s.notifier != nil {
			s.notifier.BackendDown(s.backend.Name(), err)
		}
		return ErrBackendTimeout
	case errors.Is(err, mlbackend.ErrUnavailable):
		s.logger.Warn("Inference backend unavailable", zap.String("backend", s.backend.Name()))
		if s.notifier != nil {
			s.notifier.BackendDown(s.backend.Name(), err)
		}
		return ErrBackendUnavailable
	default:
		// Raw status/body stay in the logs only.
		var callErr *mlbackend.CallError
		if errors.As(err, &callErr) {
			s.logger.Error("Inference backend call failed",
				zap.String("backend", s.backend.Name()),
				zap.Int("status", callErr.StatusCode),
				zap.String("body", callErr.Body))
		} else {
			s.logger.Error("Inference backend call failed",
				zap.String("backend", s.backend.Name()),
				zap.Error(err))
		}
		return ErrBackend
	}
}

func validatePredictRequest(req PredictRequest) error {
	if req.Text == "" {
		return fmt.Errorf("%w: text must not be empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(req.Text) > models.MaxTextLength {
		return fmt.Errorf("%w: text exceeds %d characters", ErrInvalidInput, models.MaxTextLength)
	}
	if !models.SupportedLanguages[req.Language] {
		return fmt.Errorf("%w: unsupported language %q", ErrInvalidInput, req.Language)
	}
	return nil
}

func requesterID(principal models.Principal) *int64 {
	switch p := principal.(type) {
	case models.Authenticated:
		id := p.UserID
		return &id
	default:
		return nil
	}
}
