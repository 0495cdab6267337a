package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Feedback represents a row in the 'feedback' table. It is the source of
// truth; the snapshot attached to the prediction is a denormalized copy.
type Feedback struct {
	ID           int64     `db:"id" json:"id"`
	PredictionID string    `db:"prediction_id" json:"prediction_id"`
	UserID       *int64    `db:"user_id" json:"user_id,omitempty"`
	Rating       int       `db:"rating" json:"rating"`
	CorrectLabel *int      `db:"correct_label" json:"correct_label,omitempty"`
	Comment      string    `db:"comment" json:"comment,omitempty"`
	FeedbackType string    `db:"feedback_type" json:"feedback_type"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FeedbackSnapshot is the copy of a feedback submission embedded in the
// prediction record's 'feedback' JSONB column.
type FeedbackSnapshot struct {
	Rating       int       `json:"rating"`
	CorrectLabel *int      `json:"correct_label,omitempty"`
	Comment      string    `json:"comment,omitempty"`
	FeedbackType string    `json:"feedback_type"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// NullFeedback is a nullable FeedbackSnapshot column.
type NullFeedback struct {
	Snapshot *FeedbackSnapshot
}

func (f NullFeedback) Value() (driver.Value, error) {
	if f.Snapshot == nil {
		return nil, nil
	}
	return json.Marshal(f.Snapshot)
}

func (f *NullFeedback) Scan(src interface{}) error {
	if src == nil {
		f.Snapshot = nil
		return nil
	}
	f.Snapshot = &FeedbackSnapshot{}
	return scanJSON(src, f.Snapshot)
}

func (f NullFeedback) MarshalJSON() ([]byte, error) {
	if f.Snapshot == nil {
		return []byte("null"), nil
	}
	return json.Marshal(f.Snapshot)
}

func (f *NullFeedback) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		f.Snapshot = nil
		return nil
	}
	f.Snapshot = &FeedbackSnapshot{}
	return json.Unmarshal(data, f.Snapshot)
}
