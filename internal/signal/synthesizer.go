// Package signal turns per-topic window aggregates into persisted Signal
// records when a topic crosses activity, sentiment, or anomaly thresholds.
package signal

import (
	"fmt"
	"math"
	"time"

	"github.com/Mitheesha/situational-awareness/internal/anomaly"
	"github.com/Mitheesha/situational-awareness/internal/database"
)

// Signal types, roughly ordered by how alarming they are.
const (
	TypeAnomaly        = "anomaly"
	TypeSpike          = "spike"
	TypeSentimentShift = "sentiment_shift"
	TypeTrend          = "trend"
)

// Thresholds are the synthesis rules. SentimentWeight and AnomalyWeight
// must sum to 1.
type Thresholds struct {
	MinMentions     int
	SentimentCutoff float64
	SentimentWeight float64
	AnomalyWeight   float64
	MergeWindow     time.Duration
}

// Observation is one topic's evidence for the current window.
type Observation struct {
	Vector              database.FeatureVector
	Anomaly             anomaly.Result
	SentimentConfidence float64
	BaselineVelocity    float64 // NaN when the topic has no history
	Locations           []string
}

// Outcome reports what Synthesize did for one observation.
type Outcome struct {
	Signal  *database.Signal
	Created bool
	Merged  bool
}

// Synthesizer evaluates observations against thresholds and writes or
// merges signals. Evaluation is a pure function of its inputs; only the
// signal write touches the store.
type Synthesizer struct {
	db *database.DB
	th Thresholds
}

func NewSynthesizer(db *database.DB, th Thresholds) *Synthesizer {
	return &Synthesizer{db: db, th: th}
}

// Synthesize evaluates one observation. Below every threshold it does
// nothing. Otherwise it merges into the topic's open signal when one
// exists within the merge window, or creates a new one.
func (s *Synthesizer) Synthesize(obs Observation, now time.Time) (Outcome, error) {
	fv := obs.Vector

	tripped := int(fv.MentionCount) >= s.th.MinMentions ||
		obs.Anomaly.Tier == anomaly.TierMedium || obs.Anomaly.Tier == anomaly.TierHigh ||
		fv.MeanSentiment < s.th.SentimentCutoff
	if !tripped {
		return Outcome{}, nil
	}

	sig := s.build(obs, now)

	open, err := s.db.GetOpenSignal(fv.Topic, now.Add(-s.th.MergeWindow))
	if err != nil {
		return Outcome{}, fmt.Errorf("looking up open signal for %q: %w", fv.Topic, err)
	}
	if open != nil {
		merged := mergeConfidence(open, sig)
		if err := s.db.MergeSignal(open.ID, now, sig.SourceCount, merged, sig.Description); err != nil {
			return Outcome{}, fmt.Errorf("merging signal %d: %w", open.ID, err)
		}
		open.LastSeen = database.FormatTime(now)
		open.SourceCount += sig.SourceCount
		open.ConfidenceScore = merged
		return Outcome{Signal: open, Merged: true}, nil
	}

	id, err := s.db.InsertSignal(sig)
	if err != nil {
		return Outcome{}, fmt.Errorf("inserting signal for %q: %w", fv.Topic, err)
	}
	sig.ID = id
	return Outcome{Signal: sig, Created: true}, nil
}

func (s *Synthesizer) build(obs Observation, now time.Time) *database.Signal {
	fv := obs.Vector
	mult := velocityMultiplier(fv.Velocity, obs.BaselineVelocity)
	sigType := s.classify(obs)
	urgency := s.deriveUrgency(obs, mult)
	confidence := s.confidence(obs)
	trend := velocityTrend(fv.Velocity, obs.BaselineVelocity)

	sig := &database.Signal{
		SignalType:      sigType,
		Topic:           fv.Topic,
		Description:     describe(sigType, fv, mult),
		Urgency:         urgency,
		ConfidenceScore: confidence,
		SourceCount:     int64(fv.MentionCount),
		FirstSeen:       fv.WindowStart,
		LastSeen:        database.FormatTime(now),
		Metadata: map[string]any{
			"mention_count":    fv.MentionCount,
			"mean_sentiment":   fv.MeanSentiment,
			"velocity":         fv.Velocity,
			"velocity_trend":   trend,
			"inherent_urgency": decodeUrgency(fv.UrgencyScore),
		},
	}
	if len(obs.Locations) > 0 {
		sig.Metadata["locations"] = obs.Locations
	}
	if !math.IsNaN(obs.BaselineVelocity) {
		sig.Metadata["baseline_velocity"] = obs.BaselineVelocity
		sig.Metadata["multiplier"] = mult
	}
	if obs.Anomaly.Status == anomaly.StatusScored {
		sig.Metadata["anomaly_score"] = obs.Anomaly.Score
		sig.Metadata["anomaly_tier"] = string(obs.Anomaly.Tier)
	}
	sig.Metadata["priority_score"] = PriorityScore(sig)
	return sig
}

// classify picks the most alarming applicable type.
func (s *Synthesizer) classify(obs Observation) string {
	switch {
	case obs.Anomaly.Status == anomaly.StatusScored && obs.Anomaly.Tier != anomaly.TierLow:
		return TypeAnomaly
	case int(obs.Vector.MentionCount) >= s.th.MinMentions:
		return TypeSpike
	case obs.Vector.MeanSentiment < s.th.SentimentCutoff:
		return TypeSentimentShift
	}
	return TypeTrend
}

// deriveUrgency starts from the window's mean inherent urgency and
// escalates on a HIGH anomaly tier or a sharp velocity multiple.
func (s *Synthesizer) deriveUrgency(obs Observation, mult float64) string {
	u := decodeUrgency(obs.Vector.UrgencyScore)
	if obs.Anomaly.Tier == anomaly.TierHigh || mult > 3 {
		u = escalate(u)
	}
	if obs.Vector.MeanSentiment < s.th.SentimentCutoff && u == "low" {
		u = "medium"
	}
	return u
}

// confidence blends sentiment confidence with the anomaly score. With no
// scored model yet, sentiment confidence stands alone.
func (s *Synthesizer) confidence(obs Observation) float64 {
	if obs.Anomaly.Status != anomaly.StatusScored {
		return clamp01(obs.SentimentConfidence)
	}
	return clamp01(s.th.SentimentWeight*obs.SentimentConfidence + s.th.AnomalyWeight*obs.Anomaly.Score)
}

func mergeConfidence(open *database.Signal, next *database.Signal) float64 {
	total := float64(open.SourceCount + next.SourceCount)
	if total == 0 {
		return next.ConfidenceScore
	}
	return (open.ConfidenceScore*float64(open.SourceCount) +
		next.ConfidenceScore*float64(next.SourceCount)) / total
}

func describe(sigType string, fv database.FeatureVector, mult float64) string {
	switch sigType {
	case TypeAnomaly:
		return fmt.Sprintf("Anomalous activity: %s deviates from its historical profile (%d mentions)",
			fv.Topic, int(fv.MentionCount))
	case TypeSpike:
		if !math.IsNaN(mult) {
			return fmt.Sprintf("Spike detected: %s mentioned %d times (%.1fx baseline)",
				fv.Topic, int(fv.MentionCount), mult)
		}
		return fmt.Sprintf("Spike detected: %s mentioned %d times", fv.Topic, int(fv.MentionCount))
	case TypeSentimentShift:
		return fmt.Sprintf("Negative sentiment detected: %s (mean %.2f over %d mentions)",
			fv.Topic, fv.MeanSentiment, int(fv.MentionCount))
	}
	return fmt.Sprintf("Upward trend: %s mentions increasing (velocity %.1f/day)", fv.Topic, fv.Velocity)
}

func velocityMultiplier(velocity, baseline float64) float64 {
	if math.IsNaN(baseline) || baseline <= 0 {
		return math.NaN()
	}
	return velocity / baseline
}

// velocityTrend labels the change in mention rate, in mentions per hour,
// against the topic's historical baseline.
func velocityTrend(velocity, baseline float64) string {
	if math.IsNaN(baseline) {
		baseline = 0
	}
	perHour := (velocity - baseline) / 24
	switch {
	case perHour > 2:
		return "ACCELERATING"
	case perHour > 0.5:
		return "GROWING"
	case perHour > -0.5:
		return "STABLE"
	case perHour > -2:
		return "DECLINING"
	}
	return "FADING"
}

var urgencyWeights = map[string]float64{
	"critical": 100,
	"high":     75,
	"medium":   50,
	"low":      25,
}

var typeWeights = map[string]float64{
	TypeAnomaly:        1.3,
	TypeSpike:          1.2,
	TypeSentimentShift: 1.1,
	TypeTrend:          0.9,
}

// PriorityScore rates a signal 0-100 from urgency, type, confidence, and
// log-scaled volume, for dashboard ranking.
func PriorityScore(sig *database.Signal) float64 {
	base, ok := urgencyWeights[sig.Urgency]
	if !ok {
		base = 25
	}
	typeMult, ok := typeWeights[sig.SignalType]
	if !ok {
		typeMult = 1.0
	}
	confidenceFactor := 0.5 + sig.ConfidenceScore/2
	volume := math.Max(1, float64(sig.SourceCount))
	volumeFactor := math.Min(1.5, 1+math.Log10(volume)/10)

	score := base * typeMult * confidenceFactor * volumeFactor
	return math.Min(100, math.Max(0, score))
}

func decodeUrgency(score float64) string {
	switch {
	case score >= 87.5:
		return "critical"
	case score >= 62.5:
		return "high"
	case score >= 37.5:
		return "medium"
	}
	return "low"
}

func escalate(urgency string) string {
	switch urgency {
	case "low":
		return "medium"
	case "medium":
		return "high"
	default:
		return "critical"
	}
}

func clamp01(f float64) float64 {
	return math.Min(1, math.Max(0, f))
}
