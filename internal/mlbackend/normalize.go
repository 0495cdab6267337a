package mlbackend

import (
	"fmt"
	"math"
	"strings"

	"backend/internal/models"
)

// maxFallbackTokens caps the synthesized attribution to the first tokens of
// the input.
const maxFallbackTokens = 50

// placeholderBias is the near-zero value reported for every bias category
// when the backend did not measure bias. Never to be mistaken for a genuine
// measurement; the synthesized explanation status is the marker.
const placeholderBias = 0.01

// hostedLabelIDs maps the hosted endpoint's label vocabulary to canonical
// label ids by explicit identifier. Ordinal position in the score list is
// not trusted.
var hostedLabelIDs = map[string]int{
	"LABEL_0": models.LabelHuman,
	"LABEL_1": models.LabelMachine,
	"HUMAN":   models.LabelHuman,
	"MACHINE": models.LabelMachine,
	"human":   models.LabelHuman,
	"machine": models.LabelMachine,
}

// NormalizeInference maps the dedicated detection service's response to the
// canonical outcome. Only a complete response passes through as genuine; any
// piece the backend omitted is synthesized, and partial responses never carry
// the genuine tag.
func NormalizeInference(text string, resp Response) (*models.Outcome, error) {
	r, ok := resp.(*InferenceResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T", resp)
	}

	if err := checkLabelConfidence(r.Label, r.Confidence); err != nil {
		return nil, err
	}

	out := &models.Outcome{
		Label:         r.Label,
		Confidence:    r.Confidence,
		Probabilities: deriveProbabilities(r.Label, r.Confidence, r.Probabilities),
		ModelVersion:  r.ModelVersion,
	}

	expl := r.Explanation
	hasExplanation := expl != nil && len(expl.Tokens) > 0 && len(expl.Tokens) == len(expl.Importances)
	hasBias := r.BiasScores != nil

	if hasExplanation {
		method := expl.Method
		if method == "" {
			method = "attribution"
		}
		// The genuine tag is reserved for complete responses. Backend
		// attribution with missing bias keeps its tokens but carries the
		// synthesized status, because the placeholder bias below must not
		// read as measured.
		status := models.ExplanationGenuine
		if !hasBias {
			status = models.ExplanationSynthesized
		}
		out.Explanation = models.Explanation{
			Tokens:      expl.Tokens,
			Importances: expl.Importances,
			Method:      method,
			Status:      status,
		}
	} else {
		out.Explanation = synthesizeExplanation(text)
	}

	if hasBias {
		out.BiasScores = models.BiasScores{
			Gender:    r.BiasScores.Gender,
			Ethnic:    r.BiasScores.Ethnic,
			Religious: r.BiasScores.Religious,
			Overall:   r.BiasScores.Overall,
		}
	} else {
		out.BiasScores = synthesizeBias()
	}

	return out, nil
}

// NormalizeHosted maps a score-only hosted response to the canonical outcome.
// Everything beyond label and confidence is synthesized.
func NormalizeHosted(text string, resp Response) (*models.Outcome, error) {
	r, ok := resp.(*HostedResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T", resp)
	}
	if len(r.Scores) == 0 {
		return nil, fmt.Errorf("hosted response has no scores")
	}

	best := r.Scores[0]
	for _, s := range r.Scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}

	label, ok := hostedLabelIDs[best.Label]
	if !ok {
		return nil, fmt.Errorf("unmapped hosted label %q", best.Label)
	}
	if err := checkLabelConfidence(label, best.Score); err != nil {
		return nil, err
	}

	return &models.Outcome{
		Label:         label,
		Confidence:    best.Score,
		Probabilities: deriveProbabilities(label, best.Score, nil),
		Explanation:   synthesizeExplanation(text),
		BiasScores:    synthesizeBias(),
	}, nil
}

func checkLabelConfidence(label int, confidence float64) error {
	if label != models.LabelHuman && label != models.LabelMachine {
		return fmt.Errorf("backend returned label %d outside {0,1}", label)
	}
	if confidence < 0 || confidence > 1 || math.IsNaN(confidence) {
		return fmt.Errorf("backend returned confidence %v outside [0,1]", confidence)
	}
	return nil
}

// deriveProbabilities keeps the supplied pair only when it is consistent with
// label and confidence; otherwise it rebuilds the pair from them so the
// record invariant holds.
func deriveProbabilities(label int, confidence float64, supplied []float64) models.Probabilities {
	if len(supplied) == 2 &&
		math.Abs(supplied[label]-confidence) < 1e-9 &&
		math.Abs(supplied[1-label]-(1-confidence)) < 1e-9 {
		return models.Probabilities{supplied[0], supplied[1]}
	}
	var p models.Probabilities
	p[label] = confidence
	p[1-label] = 1 - confidence
	return p
}

// synthesizeExplanation produces the degraded-mode attribution: whitespace
// tokens with uniform importances, clearly tagged as synthesized.
func synthesizeExplanation(text string) models.Explanation {
	tokens := strings.Fields(text)
	if len(tokens) > maxFallbackTokens {
		tokens = tokens[:maxFallbackTokens]
	}
	importances := make([]float64, len(tokens))
	if len(tokens) > 0 {
		w := 1.0 / float64(len(tokens))
		for i := range importances {
			importances[i] = w
		}
	}
	return models.Explanation{
		Tokens:      tokens,
		Importances: importances,
		Method:      models.MethodFallbackAttribution,
		Status:      models.ExplanationSynthesized,
	}
}

func synthesizeBias() models.BiasScores {
	return models.BiasScores{
		Gender:    placeholderBias,
		Ethnic:    placeholderBias,
		Religious: placeholderBias,
		Overall:   placeholderBias,
	}
}
