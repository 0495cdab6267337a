package repository

import (
	"backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// FeedbackStats is the read-side aggregate over feedback submissions.
type FeedbackStats struct {
	Total          int     `db:"total" json:"total"`
	AvgRating      float64 `db:"avg_rating" json:"avg_rating"`
	CorrectionRate float64 `db:"correction_rate" json:"correction_rate"`
}

type FeedbackRepository interface {
	Create(fb *models.Feedback) error
	GetByPredictionID(predictionID string) ([]*models.Feedback, error)
	GetStats() (*FeedbackStats, error)
}

type feedbackRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewFeedbackRepository(db *sqlx.DB, logger *zap.Logger) FeedbackRepository {
	return &feedbackRepository{db: db, logger: logger}
}

func (r *feedbackRepository) Create(fb *models.Feedback) error {
	query := `INSERT INTO feedback (prediction_id, user_id, rating, correct_label, comment, feedback_type)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	return r.db.QueryRowx(query, fb.PredictionID, fb.UserID, fb.Rating, fb.CorrectLabel,
		fb.Comment, fb.FeedbackType).Scan(&fb.ID, &fb.CreatedAt)
}

func (r *feedbackRepository) GetByPredictionID(predictionID string) ([]*models.Feedback, error) {
	var feedback []*models.Feedback
	query := `SELECT id, prediction_id, user_id, rating, correct_label, comment, feedback_type, created_at
	          FROM feedback WHERE prediction_id = $1 ORDER BY created_at DESC`
	if err := r.db.Select(&feedback, query, predictionID); err != nil {
		return nil, err
	}
	return feedback, nil
}

func (r *feedbackRepository) GetStats() (*FeedbackStats, error) {
	var stats FeedbackStats
	query := `SELECT
	            COUNT(*) AS total,
	            COALESCE(AVG(rating), 0) AS avg_rating,
	            COALESCE(AVG(CASE WHEN correct_label IS NOT NULL THEN 1.0 ELSE 0.0 END), 0) AS correction_rate
	          FROM feedback`
	if err := r.db.Get(&stats, query); err != nil {
		return nil, err
	}
	return &stats, nil
}
