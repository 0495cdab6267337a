package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Label values for the two-class outcome.
const (
	LabelHuman   = 0
	LabelMachine = 1
)

// Explanation status values.
const (
	ExplanationGenuine     = "genuine"
	ExplanationSynthesized = "synthesized"
)

// MethodFallbackAttribution tags explanations synthesized client-side when
// the backend returned label scores only.
const MethodFallbackAttribution = "fallback-attribution"

// SupportedLanguages is the fixed set of language codes the service accepts.
var SupportedLanguages = map[string]bool{
	"ha":  true, // Hausa
	"yo":  true, // Yoruba
	"ig":  true, // Igbo
	"sw":  true, // Swahili
	"am":  true, // Amharic
	"pcm": true, // Nigerian Pidgin
}

// MaxTextLength is the maximum accepted input length in runes.
const MaxTextLength = 50000

// Probabilities is the ordered (human, machine) probability pair.
type Probabilities [2]float64

func (p Probabilities) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *Probabilities) Scan(src interface{}) error {
	return scanJSON(src, p)
}

// Explanation carries per-token attributions for one classification.
// Status distinguishes genuine backend output from client-side synthesis.
type Explanation struct {
	Tokens      []string  `json:"tokens"`
	Importances []float64 `json:"importances"`
	Method      string    `json:"method"`
	Status      string    `json:"status"`
}

func (e Explanation) Value() (driver.Value, error) {
	return json.Marshal(e)
}

func (e *Explanation) Scan(src interface{}) error {
	return scanJSON(src, e)
}

// BiasScores holds per-category bias estimates in [0,1]. Overall is supplied
// by the backend independently of the sub-scores.
type BiasScores struct {
	Gender    float64 `json:"gender"`
	Ethnic    float64 `json:"ethnic"`
	Religious float64 `json:"religious"`
	Overall   float64 `json:"overall"`
}

func (b BiasScores) Value() (driver.Value, error) {
	return json.Marshal(b)
}

func (b *BiasScores) Scan(src interface{}) error {
	return scanJSON(src, b)
}

// Outcome is the canonical normalized result of one classification.
type Outcome struct {
	Label         int           `json:"label"`
	Confidence    float64       `json:"confidence"`
	Probabilities Probabilities `json:"probabilities"`
	Explanation   Explanation   `json:"explanation"`
	BiasScores    BiasScores    `json:"bias_scores"`
	ModelVersion  string        `json:"model_version,omitempty"`
}

// Prediction represents a record stored in the 'predictions' table.
type Prediction struct {
	ID               string        `db:"id" json:"id"`
	Text             string        `db:"text" json:"text"`
	Language         string        `db:"language" json:"language"`
	RequesterID      *int64        `db:"requester_id" json:"requester_id,omitempty"`
	Label            int           `db:"label" json:"label"`
	Confidence       float64       `db:"confidence" json:"confidence"`
	Probabilities    Probabilities `db:"probabilities" json:"probabilities"`
	Explanation      Explanation   `db:"explanation" json:"explanation"`
	BiasScores       BiasScores    `db:"bias_scores" json:"bias_scores"`
	CallerAddress    string        `db:"caller_address" json:"-"`
	CallerAgent      string        `db:"caller_agent" json:"-"`
	ProcessingTimeMs int64         `db:"processing_time_ms" json:"processing_time_ms"`
	BackendSource    string        `db:"backend_source" json:"backend_source"`
	ModelVersion     string        `db:"model_version" json:"model_version"`
	Feedback         NullFeedback  `db:"feedback" json:"feedback"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
}

// scanJSON decodes a JSONB column into dst.
func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}
