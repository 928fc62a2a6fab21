package anomaly

import (
	"errors"
	"testing"
	"time"

	"github.com/Mitheesha/situational-awareness/internal/database"
)

// corpusVector fabricates a plausible quiet-topic vector with mild
// deterministic jitter so the corpus is tie-free.
func corpusVector(i int) database.FeatureVector {
	j := float64(i) * 0.13
	return database.FeatureVector{
		Topic:             "baseline",
		MentionCount:      12 + j,
		UrgencyScore:      50 + j,
		MeanSentiment:     -0.1 - j/10,
		SentimentVariance: 0.02 + j/100,
		MeanRetweets:      3 + j,
		MaxRetweets:       8 + j,
		MeanLikes:         10 + j,
		MeanFollowers:     900 + 10*j,
		LocationSpread:    2,
		DaysActive:        1,
		Velocity:          12 + j,
		EngagementRate:    0.01 + j/1000,
	}
}

func spikeVector() database.FeatureVector {
	return database.FeatureVector{
		Topic:             "fuel prices",
		MentionCount:      847,
		UrgencyScore:      90,
		MeanSentiment:     -0.65,
		SentimentVariance: 0.3,
		MeanRetweets:      120,
		MaxRetweets:       900,
		MeanLikes:         300,
		MeanFollowers:     5000,
		LocationSpread:    5,
		DaysActive:        1,
		Velocity:          847,
		EngagementRate:    0.08,
	}
}

func trainedDetector(t *testing.T, corpusSize int) (*Detector, []database.FeatureVector) {
	t.Helper()
	corpus := make([]database.FeatureVector, corpusSize)
	for i := range corpus {
		corpus[i] = corpusVector(i)
	}
	d := NewDetector(Options{Contamination: 0.1, MinCorpus: 20, Trees: 50, Seed: 42})
	if _, err := d.Train(corpus, time.Now()); err != nil {
		t.Fatalf("training failed: %v", err)
	}
	return d, corpus
}

func TestUntrainedNeverScores(t *testing.T) {
	d := NewDetector(Options{Seed: 1})
	if d.Ready() {
		t.Fatal("expected detector to start untrained")
	}

	spike := spikeVector()
	res, err := d.Score(spike.Values())
	if !errors.Is(err, ErrUntrained) {
		t.Fatalf("expected ErrUntrained, got %v", err)
	}
	if res.Status != StatusInsufficientData {
		t.Errorf("expected INSUFFICIENT_DATA, got %s", res.Status)
	}
	if res.Tier != "" || res.Score != 0 {
		t.Errorf("untrained detector fabricated a verdict: %+v", res)
	}
}

func TestTrainRejectsSmallCorpus(t *testing.T) {
	d := NewDetector(Options{MinCorpus: 20, Seed: 1})
	corpus := []database.FeatureVector{corpusVector(0), corpusVector(1)}
	if _, err := d.Train(corpus, time.Now()); !errors.Is(err, ErrCorpusTooSmall) {
		t.Fatalf("expected ErrCorpusTooSmall, got %v", err)
	}
	if d.Ready() {
		t.Error("failed training must not install a model")
	}
}

func TestOutlierScoresHigher(t *testing.T) {
	d, corpus := trainedDetector(t, 40)

	normal, err := d.Score(corpus[0].Values())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	spike := spikeVector()
	outlier, err := d.Score(spike.Values())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if outlier.Score <= normal.Score {
		t.Errorf("expected spike to outscore baseline: spike %f, baseline %f",
			outlier.Score, normal.Score)
	}
	if outlier.Tier != TierHigh {
		t.Errorf("expected HIGH tier for spike, got %s (score %f)", outlier.Tier, outlier.Score)
	}
	for _, res := range []Result{normal, outlier} {
		if res.Score < 0 || res.Score > 1 {
			t.Errorf("score out of [0,1]: %f", res.Score)
		}
	}
}

func TestTierPartition(t *testing.T) {
	d, corpus := trainedDetector(t, 40)

	var high, medium int
	for _, fv := range corpus {
		res, err := d.Score(fv.Values())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		switch res.Tier {
		case TierHigh:
			high++
		case TierMedium:
			medium++
		}
	}

	// contamination 0.1 over 40 vectors: top 4 HIGH, next 12 at most MEDIUM.
	if high != 4 {
		t.Errorf("expected exactly 4 HIGH tiers, got %d", high)
	}
	if medium > 12 {
		t.Errorf("expected at most 12 MEDIUM tiers, got %d", medium)
	}
}

func TestDimensionMismatch(t *testing.T) {
	d, _ := trainedDetector(t, 40)
	_, err := d.Score([]float64{1, 2, 3})
	var derr *DimensionError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DimensionError, got %v", err)
	}
	if derr.Want != database.FeatureDim || derr.Got != 3 {
		t.Errorf("unexpected mismatch detail: %+v", derr)
	}
}

func TestRetrainSwapsVersion(t *testing.T) {
	d, corpus := trainedDetector(t, 40)
	first := d.Current()

	m, err := d.Train(corpus, time.Now())
	if err != nil {
		t.Fatalf("retraining failed: %v", err)
	}
	if m.Version <= first.Version {
		t.Errorf("expected version to advance, got %d after %d", m.Version, first.Version)
	}
	if d.Current() != m {
		t.Error("expected new model installed")
	}

	// The superseded model still scores; readers holding it are unaffected.
	if _, err := d.Score(corpus[0].Values()); err != nil {
		t.Errorf("unexpected error after swap: %v", err)
	}
	score := first.rawScore(corpus[0].Values())
	if score < 0 || score > 1 {
		t.Errorf("old model score out of range: %f", score)
	}
}

func TestDeterministicWithSeed(t *testing.T) {
	d1, corpus := trainedDetector(t, 40)
	d2 := NewDetector(Options{Contamination: 0.1, MinCorpus: 20, Trees: 50, Seed: 42})
	if _, err := d2.Train(corpus, time.Now()); err != nil {
		t.Fatalf("training failed: %v", err)
	}

	spike := spikeVector()
	a, _ := d1.Score(spike.Values())
	b, _ := d2.Score(spike.Values())
	if a.Score != b.Score {
		t.Errorf("same seed, different scores: %f vs %f", a.Score, b.Score)
	}
}
