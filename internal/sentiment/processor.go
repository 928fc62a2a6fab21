package sentiment

import (
	"fmt"
	"log"
	"time"

	"github.com/Mitheesha/situational-awareness/internal/database"
)

// Processor drains unscored records from the store in bounded batches and
// annotates each with its sentiment verdict.
type Processor struct {
	db        *database.DB
	scorer    *Scorer
	batchSize int
}

func NewProcessor(db *database.DB, batchSize int) *Processor {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Processor{db: db, scorer: NewScorer(), batchSize: batchSize}
}

// ProcessPending scores one batch of unscored records. Per-record failures
// are counted and skipped, never aborting the batch. Returns the number of
// records annotated and the number that failed.
func (p *Processor) ProcessPending(now time.Time) (int, int, error) {
	records, err := p.db.GetUnscoredRecords(p.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("fetching unscored records: %w", err)
	}
	if len(records) == 0 {
		return 0, 0, nil
	}

	var scored, failed int
	for _, rec := range records {
		text := rec.Title
		if rec.Snippet != nil {
			text += " " + *rec.Snippet
		}

		res, err := p.scorer.Score(text)
		if err != nil {
			if serr, ok := err.(*ScoringError); ok {
				serr.RecordID = rec.ID
				log.Printf("sentiment: skipping record: %v", serr)
				failed++
				continue
			}
			return scored, failed, fmt.Errorf("scoring record %d: %w", rec.ID, err)
		}

		wrote, err := p.db.AnnotateSentiment(rec.ID, res.Score, res.Confidence, now)
		if err != nil {
			log.Printf("sentiment: annotating record %d: %v", rec.ID, err)
			failed++
			continue
		}
		if wrote {
			scored++
		}
	}

	return scored, failed, nil
}
