package anomaly

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"github.com/Mitheesha/situational-awareness/internal/database"
)

// ErrUntrained is the expected steady state before the first training run.
var ErrUntrained = errors.New("anomaly model not trained")

// ErrCorpusTooSmall rejects training on too few vectors to prevent a
// degenerate model.
var ErrCorpusTooSmall = errors.New("training corpus too small")

// DimensionError is a feature-contract violation: scoring input does not
// match the trained dimensionality. Fatal for the cycle.
type DimensionError struct {
	Want, Got int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("feature dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// Tier is the risk tier assigned from the score quantiles.
type Tier string

const (
	TierLow    Tier = "LOW"
	TierMedium Tier = "MEDIUM"
	TierHigh   Tier = "HIGH"
)

// Status reports whether a vector could be scored at all.
type Status string

const (
	StatusScored           Status = "SCORED"
	StatusInsufficientData Status = "INSUFFICIENT_DATA"
)

// Result is one vector's anomaly verdict. Score is only meaningful when
// Status is SCORED.
type Result struct {
	Status Status
	Score  float64 // [0, 1]; ~0.5 normal, →1 anomalous
	Tier   Tier
}

// Model is an immutable trained ensemble. Replaced wholesale by
// retraining, never mutated.
type Model struct {
	Version       int
	TrainedAt     time.Time
	Contamination float64

	dim        int
	sampleSize int
	scaler     scaler
	trees      []*tree

	// score thresholds fixed at training time from the corpus quantiles
	highCut   float64
	mediumCut float64
}

func (m *Model) rawScore(v []float64) float64 {
	scaled := m.scaler.transform(v)
	var depthSum float64
	for _, t := range m.trees {
		depthSum += t.pathLength(scaled)
	}
	return anomalyScore(depthSum/float64(len(m.trees)), m.sampleSize)
}

func (m *Model) tier(score float64) Tier {
	switch {
	case score >= m.highCut:
		return TierHigh
	case score >= m.mediumCut:
		return TierMedium
	}
	return TierLow
}

// Detector holds the current model behind an atomic pointer so scoring
// against the previous version continues uninterrupted during retraining.
type Detector struct {
	contamination float64
	minCorpus     int
	numTrees      int
	sampleSize    int
	seed          int64

	model   atomic.Pointer[Model]
	version atomic.Int64
}

// Options configures a Detector. Zero values fall back to the defaults
// used throughout the pipeline.
type Options struct {
	Contamination float64 // expected anomaly fraction, (0, 0.5)
	MinCorpus     int
	Trees         int
	SampleSize    int
	Seed          int64 // 0 seeds from the clock
}

func NewDetector(opts Options) *Detector {
	if opts.Contamination <= 0 {
		opts.Contamination = 0.1
	}
	if opts.MinCorpus <= 0 {
		opts.MinCorpus = 20
	}
	if opts.Trees <= 0 {
		opts.Trees = 100
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = 256
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	return &Detector{
		contamination: opts.Contamination,
		minCorpus:     opts.MinCorpus,
		numTrees:      opts.Trees,
		sampleSize:    opts.SampleSize,
		seed:          opts.Seed,
	}
}

// Ready reports whether a trained model is installed.
func (d *Detector) Ready() bool { return d.model.Load() != nil }

// Current returns the installed model, or nil before the first training.
func (d *Detector) Current() *Model { return d.model.Load() }

// Train builds a fresh model from the full corpus and swaps it in
// atomically on success. The previous model keeps serving reads until the
// swap; a failed training leaves it untouched.
func (d *Detector) Train(corpus []database.FeatureVector, now time.Time) (*Model, error) {
	if len(corpus) < d.minCorpus {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrCorpusTooSmall, len(corpus), d.minCorpus)
	}

	vectors := make([][]float64, len(corpus))
	for i := range corpus {
		vectors[i] = corpus[i].Values()
	}
	dim := len(vectors[0])

	version := int(d.version.Add(1))
	rng := rand.New(rand.NewSource(d.seed + int64(version)))

	sampleSize := d.sampleSize
	if sampleSize > len(vectors) {
		sampleSize = len(vectors)
	}
	heightLimit := int(math.Ceil(math.Log2(float64(sampleSize))))

	sc := fitScaler(vectors, dim)
	scaled := make([][]float64, len(vectors))
	for i, v := range vectors {
		scaled[i] = sc.transform(v)
	}

	trees := make([]*tree, d.numTrees)
	for i := range trees {
		sample := scaled
		if sampleSize < len(scaled) {
			idx := rng.Perm(len(scaled))[:sampleSize]
			sample = make([][]float64, sampleSize)
			for j, k := range idx {
				sample[j] = scaled[k]
			}
		}
		trees[i] = buildTree(sample, heightLimit, rng)
	}

	m := &Model{
		Version:       version,
		TrainedAt:     now,
		Contamination: d.contamination,
		dim:           dim,
		sampleSize:    sampleSize,
		scaler:        sc,
		trees:         trees,
	}
	m.highCut, m.mediumCut = tierCuts(m, vectors, d.contamination)

	d.model.Store(m)
	return m, nil
}

// tierCuts derives the HIGH and MEDIUM score thresholds from the training
// corpus: top contamination fraction is HIGH, the next 3x is MEDIUM.
func tierCuts(m *Model, vectors [][]float64, contamination float64) (float64, float64) {
	scores := make([]float64, len(vectors))
	for i, v := range vectors {
		scores[i] = m.rawScore(v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	n := len(scores)
	highK := int(contamination * float64(n))
	if highK < 1 {
		highK = 1
	}
	mediumK := int(4 * contamination * float64(n))
	if mediumK <= highK {
		mediumK = highK + 1
	}
	if mediumK > n {
		mediumK = n
	}

	return scores[highK-1], scores[mediumK-1]
}

// Score scores one feature vector against the current model. Before the
// first training it reports INSUFFICIENT_DATA, never a fabricated score.
func (d *Detector) Score(v []float64) (Result, error) {
	m := d.model.Load()
	if m == nil {
		return Result{Status: StatusInsufficientData}, ErrUntrained
	}
	if len(v) != m.dim {
		return Result{}, &DimensionError{Want: m.dim, Got: len(v)}
	}

	score := m.rawScore(v)
	return Result{Status: StatusScored, Score: score, Tier: m.tier(score)}, nil
}
