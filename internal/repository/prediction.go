package repository

import (
	"backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// LanguageCount is one row of the per-language aggregate.
type LanguageCount struct {
	Language string `db:"language" json:"language"`
	Count    int    `db:"count" json:"count"`
}

// PredictionStats is the read-side aggregate over all prediction records.
type PredictionStats struct {
	Total             int     `db:"total" json:"total"`
	HumanCount        int     `db:"human_count" json:"human_count"`
	MachineCount      int     `db:"machine_count" json:"machine_count"`
	AvgConfidence     float64 `db:"avg_confidence" json:"avg_confidence"`
	AvgProcessingTime float64 `db:"avg_processing_time_ms" json:"avg_processing_time_ms"`
}

type PredictionRepository interface {
	Create(p *models.Prediction) error
	GetByID(id string) (*models.Prediction, error)
	GetByRequester(requesterID int64, limit, offset int) ([]*models.Prediction, error)
	CountByRequester(requesterID int64) (int, error)
	AttachFeedback(id string, snapshot *models.FeedbackSnapshot) error
	GetStats() (*PredictionStats, error)
	CountByLanguage() ([]LanguageCount, error)
	CountSinceHours(hours int) (int, error)
	GetRecent(limit int) ([]*models.Prediction, error)
}

type predictionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPredictionRepository(db *sqlx.DB, logger *zap.Logger) PredictionRepository {
	return &predictionRepository{db: db, logger: logger}
}

const predictionColumns = `id, text, language, requester_id, label, confidence, probabilities, explanation, bias_scores,
	caller_address, caller_agent, processing_time_ms, backend_source, model_version, feedback, created_at`

func (r *predictionRepository) Create(p *models.Prediction) error {
	query := `INSERT INTO predictions (id, text, language, requester_id, label, confidence, probabilities, explanation, bias_scores,
	          caller_address, caller_agent, processing_time_ms, backend_source, model_version)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING created_at`
	return r.db.QueryRowx(query, p.ID, p.Text, p.Language, p.RequesterID, p.Label, p.Confidence,
		p.Probabilities, p.Explanation, p.BiasScores,
		p.CallerAddress, p.CallerAgent, p.ProcessingTimeMs, p.BackendSource, p.ModelVersion).Scan(&p.CreatedAt)
}

func (r *predictionRepository) GetByID(id string) (*models.Prediction, error) {
	var p models.Prediction
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`
	if err := r.db.Get(&p, query, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *predictionRepository) GetByRequester(requesterID int64, limit, offset int) ([]*models.Prediction, error) {
	var predictions []*models.Prediction
	query := `SELECT ` + predictionColumns + ` FROM predictions
	          WHERE requester_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.Select(&predictions, query, requesterID, limit, offset); err != nil {
		return nil, err
	}
	return predictions, nil
}

func (r *predictionRepository) CountByRequester(requesterID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM predictions WHERE requester_id = $1`
	if err := r.db.Get(&count, query, requesterID); err != nil {
		return 0, err
	}
	return count, nil
}

// AttachFeedback writes the denormalized feedback snapshot onto the record.
// Only the feedback column is touched; a repeated submission overwrites the
// previous snapshot.
func (r *predictionRepository) AttachFeedback(id string, snapshot *models.FeedbackSnapshot) error {
	query := `UPDATE predictions SET feedback = $1 WHERE id = $2`
	_, err := r.db.Exec(query, models.NullFeedback{Snapshot: snapshot}, id)
	return err
}

func (r *predictionRepository) GetStats() (*PredictionStats, error) {
	var stats PredictionStats
	query := `SELECT
	            COUNT(*) AS total,
	            COUNT(*) FILTER (WHERE label = 0) AS human_count,
	            COUNT(*) FILTER (WHERE label = 1) AS machine_count,
	            COALESCE(AVG(confidence), 0) AS avg_confidence,
	            COALESCE(AVG(processing_time_ms), 0) AS avg_processing_time_ms
	          FROM predictions`
	if err := r.db.Get(&stats, query); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *predictionRepository) CountByLanguage() ([]LanguageCount, error) {
	var counts []LanguageCount
	query := `SELECT language, COUNT(*) AS count FROM predictions GROUP BY language ORDER BY count DESC`
	if err := r.db.Select(&counts, query); err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *predictionRepository) CountSinceHours(hours int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM predictions WHERE created_at > now() - make_interval(hours => $1)`
	if err := r.db.Get(&count, query, hours); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *predictionRepository) GetRecent(limit int) ([]*models.Prediction, error) {
	var predictions []*models.Prediction
	query := `SELECT ` + predictionColumns + ` FROM predictions ORDER BY created_at DESC LIMIT $1`
	if err := r.db.Select(&predictions, query, limit); err != nil {
		return nil, err
	}
	return predictions, nil
}
