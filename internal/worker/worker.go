// Package worker schedules the periodic sentiment and derivation loops.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/Mitheesha/situational-awareness/internal/config"
	"github.com/Mitheesha/situational-awareness/internal/database"
	"github.com/Mitheesha/situational-awareness/internal/pipeline"
	"github.com/Mitheesha/situational-awareness/internal/sentiment"
)

// Worker drives the two background loops against the shared store: a fast
// sentiment pass over unscored records and the slower derivation cycle.
type Worker struct {
	cfg      *config.Config
	pipe     *pipeline.Pipeline
	scorer   *sentiment.Processor
	clock    func() time.Time
	runFirst bool
}

// New creates a worker with its own pipeline instance.
func New(cfg *config.Config, db *database.DB) *Worker {
	return &Worker{
		cfg:      cfg,
		pipe:     pipeline.New(cfg, db),
		scorer:   sentiment.NewProcessor(db, cfg.Pipeline.SentimentBatch),
		clock:    time.Now,
		runFirst: true,
	}
}

// Pipeline exposes the worker's pipeline (for status reporting).
func (w *Worker) Pipeline() *pipeline.Pipeline { return w.pipe }

// Run blocks until ctx is cancelled, running the sentiment pass every
// SentimentInterval and the derivation cycle every CycleInterval. Both
// loops share one goroutine so SQLite writes never contend.
func (w *Worker) Run(ctx context.Context) error {
	sentimentTick := time.NewTicker(w.cfg.Pipeline.SentimentInterval.Std())
	defer sentimentTick.Stop()
	cycleTick := time.NewTicker(w.cfg.Pipeline.CycleInterval.Std())
	defer cycleTick.Stop()

	log.Printf("worker: sentiment every %s, cycle every %s",
		w.cfg.Pipeline.SentimentInterval.Std(), w.cfg.Pipeline.CycleInterval.Std())

	if w.runFirst {
		w.RunSentiment()
		w.RunCycle(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("worker: shutting down")
			return nil
		case <-sentimentTick.C:
			w.RunSentiment()
		case <-cycleTick.C:
			w.RunCycle(ctx)
		}
	}
}

// RunSentiment scores one batch of pending records.
func (w *Worker) RunSentiment() {
	scored, failed, err := w.scorer.ProcessPending(w.clock())
	if err != nil {
		log.Printf("worker: sentiment pass: %v", err)
		return
	}
	if scored > 0 || failed > 0 {
		log.Printf("worker: sentiment pass scored %d records (%d failed)", scored, failed)
	}
}

// RunCycle runs one derivation cycle with a deadline of one cycle
// interval, so a slow cycle never overlaps the next.
func (w *Worker) RunCycle(ctx context.Context) *pipeline.Result {
	cycleCtx, cancel := context.WithTimeout(ctx, w.cfg.Pipeline.CycleInterval.Std())
	defer cancel()

	result := w.pipe.RunCycle(cycleCtx, w.clock())
	if result.Skipped {
		log.Printf("worker: cycle skipped, another worker owns this window")
		return result
	}
	for _, step := range result.Steps {
		if step.Err != nil {
			log.Printf("worker: cycle %s: step %s failed: %v", result.BatchID, step.Name, step.Err)
		}
	}
	return result
}
