// Package sentiment assigns a scalar sentiment score and confidence to
// raw record text, and annotates scored records exactly once.
package sentiment

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// Kind classifies a scoring failure.
type Kind string

const (
	EmptyText        Kind = "EMPTY_TEXT"
	ModelUnavailable Kind = "MODEL_UNAVAILABLE"
)

// ScoringError is a per-record scoring failure. Records that fail stay
// unscored and are retried on the next cycle.
type ScoringError struct {
	Kind     Kind
	RecordID int64
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring record %d: %s", e.RecordID, e.Kind)
}

// Result is one record's sentiment verdict.
type Result struct {
	Score      float64 // [-1, +1]
	Confidence float64 // [0, 1]
}

// Scorer scores text against a weighted domain lexicon. Scores are in
// [-1, +1] with 0 neutral; confidence reflects how much of the text the
// lexicon could account for.
type Scorer struct {
	unigrams map[string]float64
	bigrams  map[string]float64
}

// NewScorer builds a scorer over the built-in lexicon.
func NewScorer() *Scorer {
	return &Scorer{unigrams: unigramWeights, bigrams: bigramWeights}
}

// minTextLen is the shortest text worth scoring; anything shorter gets a
// neutral verdict rather than an error.
const minTextLen = 10

// Score scores a single text. Blank text is an EmptyText error; text too
// short to carry sentiment returns a neutral Result.
func (s *Scorer) Score(text string) (Result, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{}, &ScoringError{Kind: EmptyText}
	}
	if len(trimmed) < minTextLen {
		return Result{Score: 0, Confidence: 0.5}, nil
	}

	tokens := tokenize(trimmed)
	if len(tokens) == 0 {
		return Result{Score: 0, Confidence: 0.5}, nil
	}

	var sum float64
	var hits int
	negated := false
	for i := 0; i < len(tokens); i++ {
		if isNegation(tokens[i]) {
			negated = true
			continue
		}

		w, ok := 0.0, false
		if i+1 < len(tokens) {
			w, ok = s.bigrams[tokens[i]+" "+tokens[i+1]]
			if ok {
				i++
			}
		}
		if !ok {
			w, ok = s.unigrams[tokens[i]]
		}
		if !ok {
			negated = false
			continue
		}

		if negated {
			w = -w
			negated = false
		}
		sum += w
		hits++
	}

	if hits == 0 {
		return Result{Score: 0, Confidence: 0.5}, nil
	}

	// tanh keeps stacked terms from saturating a single record.
	score := math.Tanh(sum / math.Sqrt(float64(hits)))
	confidence := 0.5 + 0.5*math.Min(1, float64(hits)/4)
	return Result{Score: score, Confidence: confidence}, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func isNegation(token string) bool {
	switch token {
	case "no", "not", "never", "without":
		return true
	}
	return false
}
