// Package pipeline orchestrates one aggregation-through-insight cycle:
// window rollup, anomaly training/scoring, signal synthesis, insight
// generation, and batch stats.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Mitheesha/situational-awareness/internal/anomaly"
	"github.com/Mitheesha/situational-awareness/internal/config"
	"github.com/Mitheesha/situational-awareness/internal/database"
	"github.com/Mitheesha/situational-awareness/internal/feature"
	"github.com/Mitheesha/situational-awareness/internal/insight"
	"github.com/Mitheesha/situational-awareness/internal/signal"
)

// StepResult holds the result of a single cycle step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full cycle.
type Result struct {
	BatchID string
	Skipped bool // another worker owned this cycle
	Steps   []StepResult
}

// Pipeline runs the periodic derivation cycle against the shared store.
type Pipeline struct {
	cfg      *config.Config
	db       *database.DB
	detector *anomaly.Detector
	owner    string
}

// New creates a pipeline with its own detector instance and worker
// identity (used for cycle claims).
func New(cfg *config.Config, db *database.DB) *Pipeline {
	return &Pipeline{
		cfg: cfg,
		db:  db,
		detector: anomaly.NewDetector(anomaly.Options{
			Contamination: cfg.Anomaly.Contamination,
			MinCorpus:     cfg.Anomaly.MinCorpus,
			Trees:         cfg.Anomaly.Trees,
			SampleSize:    cfg.Anomaly.SampleSize,
		}),
		owner: uuid.NewString(),
	}
}

// Detector exposes the pipeline's anomaly detector (for status reporting).
func (p *Pipeline) Detector() *anomaly.Detector { return p.detector }

// RunCycle executes one cycle ending at now. Exactly one worker wins the
// claim for a given cycle window; losers skip. Per-record failures are
// tallied, not fatal; a deadline on ctx bounds the whole cycle.
func (p *Pipeline) RunCycle(ctx context.Context, now time.Time) *Result {
	r := &Result{BatchID: uuid.NewString()}
	started := time.Now()

	windowKey := database.FormatTime(now.Truncate(p.cfg.Pipeline.CycleInterval.Std()))
	claimed, err := p.db.ClaimCycle(windowKey, p.owner)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Claim", Err: err})
		return r
	}
	if !claimed {
		r.Skipped = true
		r.Steps = append(r.Steps, StepResult{
			Name:    "Claim",
			Summary: fmt.Sprintf("cycle %s already owned by another worker", windowKey),
		})
		return r
	}
	defer func() {
		if err := p.db.ReleaseCycle(windowKey); err != nil {
			log.Printf("pipeline: releasing cycle claim %s: %v", windowKey, err)
		}
	}()

	start := now.Add(-p.cfg.Pipeline.Window.Std())
	var failed int

	aggregates, step := p.runAggregate(start, now)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		p.recordBatch(r, start, now, started, 0, 1)
		return r
	}

	history, step := p.runTrain(now)
	r.Steps = append(r.Steps, step)

	outcomes, evidence, nfailed, step := p.runSynthesize(ctx, aggregates, history, now)
	failed += nfailed
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		p.recordBatch(r, start, now, started, len(aggregates), failed+1)
		return r
	}

	step = p.runInsights(outcomes, evidence, now)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		failed++
	}

	p.recordBatch(r, start, now, started, len(aggregates), failed)
	return r
}

func (p *Pipeline) runAggregate(start, end time.Time) ([]feature.Aggregate, StepResult) {
	log.Println("Step 1/4: Aggregating window features...")
	agg := feature.NewAggregator(p.db, p.cfg.Signals.SimulatedWeight)
	aggregates, err := agg.AggregateWindow(start, end)
	if err != nil {
		return nil, StepResult{Name: "Aggregate", Err: err}
	}
	return aggregates, StepResult{
		Name:    "Aggregate",
		Summary: fmt.Sprintf("Computed %d topic vectors for window ending %s", len(aggregates), database.FormatTime(end)),
	}
}

// runTrain retrains the detector when the corpus allows; a small corpus
// is the expected pre-bootstrap state, not a failure.
func (p *Pipeline) runTrain(now time.Time) ([]database.FeatureVector, StepResult) {
	log.Println("Step 2/4: Training anomaly model...")
	history, err := p.db.GetFeatureHistory()
	if err != nil {
		return nil, StepResult{Name: "Train", Err: err}
	}

	m, err := p.detector.Train(history, now)
	if err != nil {
		if errors.Is(err, anomaly.ErrCorpusTooSmall) {
			return history, StepResult{
				Name:    "Train",
				Summary: fmt.Sprintf("Corpus too small (%d vectors), detector stays untrained", len(history)),
			}
		}
		return history, StepResult{Name: "Train", Err: err}
	}
	return history, StepResult{
		Name:    "Train",
		Summary: fmt.Sprintf("Model v%d trained on %d vectors", m.Version, len(history)),
	}
}

func (p *Pipeline) runSynthesize(ctx context.Context, aggregates []feature.Aggregate, history []database.FeatureVector, now time.Time) ([]signal.Outcome, map[string]insight.Evidence, int, StepResult) {
	log.Println("Step 3/4: Synthesizing signals...")
	synth := signal.NewSynthesizer(p.db, signal.Thresholds{
		MinMentions:     p.cfg.Signals.MinMentions,
		SentimentCutoff: p.cfg.Signals.SentimentCutoff,
		SentimentWeight: p.cfg.Signals.SentimentWeight,
		AnomalyWeight:   p.cfg.Signals.AnomalyWeight,
		MergeWindow:     p.cfg.Signals.MergeWindow.Std(),
	})

	var outcomes []signal.Outcome
	evidence := map[string]insight.Evidence{}
	var failed int

	for _, agg := range aggregates {
		if err := ctx.Err(); err != nil {
			return outcomes, evidence, failed, StepResult{
				Name:    "Synthesize",
				Summary: fmt.Sprintf("Cycle deadline hit after %d/%d topics", len(outcomes), len(aggregates)),
			}
		}

		res, err := p.detector.Score(agg.Vector.Values())
		if err != nil {
			var derr *anomaly.DimensionError
			if errors.As(err, &derr) {
				// Feature-contract violation: abort the cycle before it
				// can corrupt signals.
				return outcomes, evidence, failed, StepResult{Name: "Synthesize", Err: derr}
			}
			if !errors.Is(err, anomaly.ErrUntrained) {
				log.Printf("pipeline: scoring %q: %v", agg.Vector.Topic, err)
				failed++
				continue
			}
		}

		out, err := synth.Synthesize(signal.Observation{
			Vector:              agg.Vector,
			Anomaly:             res,
			SentimentConfidence: agg.Confidence,
			BaselineVelocity:    feature.Baseline(history, agg.Vector.Topic, agg.Vector.WindowEnd),
			Locations:           agg.Locations,
		}, now)
		if err != nil {
			log.Printf("pipeline: synthesizing %q: %v", agg.Vector.Topic, err)
			failed++
			continue
		}
		if out.Signal != nil {
			outcomes = append(outcomes, out)
			evidence[agg.Vector.Topic] = insight.Evidence{Vector: agg.Vector, Anomaly: res}
		}
	}

	var created, merged int
	for _, out := range outcomes {
		if out.Created {
			created++
		}
		if out.Merged {
			merged++
		}
	}
	return outcomes, evidence, failed, StepResult{
		Name:    "Synthesize",
		Summary: fmt.Sprintf("%d signals created, %d merged, %d topics quiet", created, merged, len(aggregates)-len(outcomes)),
	}
}

func (p *Pipeline) runInsights(outcomes []signal.Outcome, evidence map[string]insight.Evidence, now time.Time) StepResult {
	log.Println("Step 4/4: Generating insights...")
	signals := make([]database.Signal, 0, len(outcomes))
	for _, out := range outcomes {
		signals = append(signals, *out.Signal)
	}

	gen := insight.NewGenerator(p.db)
	insights, err := gen.Generate(signals, evidence, now)
	if err != nil {
		return StepResult{Name: "Insights", Err: err}
	}
	return StepResult{
		Name:    "Insights",
		Summary: fmt.Sprintf("Generated %d insights from %d signals", len(insights), len(signals)),
	}
}

// recordBatch writes the cycle's ProcessingBatch row; stats recording
// never fails the cycle itself.
func (p *Pipeline) recordBatch(r *Result, start, end, started time.Time, processed, failed int) {
	breakdown, err := p.db.GetSourceBreakdown(start, end)
	if err != nil {
		log.Printf("pipeline: source breakdown: %v", err)
		breakdown = map[string]int64{}
	}

	elapsed := time.Since(started).Milliseconds()
	if _, err := p.db.InsertBatch(&database.ProcessingBatch{
		BatchID:          r.BatchID,
		RecordsProcessed: int64(processed),
		RecordsFailed:    int64(failed),
		ProcessingTimeMs: elapsed,
		SourceBreakdown:  breakdown,
	}); err != nil {
		log.Printf("pipeline: recording batch %s: %v", r.BatchID, err)
		return
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Record",
		Summary: fmt.Sprintf("Batch %s: %d processed, %d failed, %dms", r.BatchID, processed, failed, elapsed),
	})
}
