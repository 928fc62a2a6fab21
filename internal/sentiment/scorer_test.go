package sentiment

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mitheesha/situational-awareness/internal/database"
)

func TestScoreNegativeText(t *testing.T) {
	s := NewScorer()
	res, err := s.Score("Fuel shortage worsens as queues grow across Colombo amid crisis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score >= 0 {
		t.Errorf("expected negative score, got %f", res.Score)
	}
	if res.Confidence <= 0.5 {
		t.Errorf("expected confidence above neutral, got %f", res.Confidence)
	}
}

func TestScorePositiveText(t *testing.T) {
	s := NewScorer()
	res, err := s.Score("Tourism boost continues as arrivals hit record and hotels report growth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score <= 0 {
		t.Errorf("expected positive score, got %f", res.Score)
	}
}

func TestScoreBounds(t *testing.T) {
	s := NewScorer()
	res, _ := s.Score("crisis crisis shortage emergency collapse deaths panic unrest blackout")
	if res.Score < -1 || res.Score > 1 {
		t.Errorf("score out of [-1,1]: %f", res.Score)
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		t.Errorf("confidence out of [0,1]: %f", res.Confidence)
	}
}

func TestScoreEmptyText(t *testing.T) {
	s := NewScorer()
	_, err := s.Score("   ")
	var serr *ScoringError
	if !errors.As(err, &serr) {
		t.Fatalf("expected ScoringError, got %v", err)
	}
	if serr.Kind != EmptyText {
		t.Errorf("expected EmptyText, got %s", serr.Kind)
	}
}

func TestScoreShortTextNeutral(t *testing.T) {
	s := NewScorer()
	res, err := s.Score("ok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 0 || res.Confidence != 0.5 {
		t.Errorf("expected neutral verdict, got %+v", res)
	}
}

func TestScoreNegation(t *testing.T) {
	s := NewScorer()
	plain, _ := s.Score("power outage reported in several areas tonight")
	negated, _ := s.Score("power supply stable with no outage reported in several areas tonight")
	if plain.Score >= 0 {
		t.Fatalf("expected negative plain score, got %f", plain.Score)
	}
	if negated.Score <= plain.Score {
		t.Errorf("expected negation to raise the score: plain %f, negated %f", plain.Score, negated.Score)
	}
}

func TestScoreBigramBeatsUnigram(t *testing.T) {
	s := NewScorer()
	// "record" alone is mildly positive, "power cut" must dominate via bigram.
	res, _ := s.Score("record crowds as island wide power cut expected this evening")
	if res.Score >= 0 {
		t.Errorf("expected negative score for power cut, got %f", res.Score)
	}
}

func TestProcessPending(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	defer db.Close()

	url1, url2, url3 := "https://a.com/1", "https://a.com/2", "https://a.com/3"
	snippet := "Long queues reported islandwide as shortage deepens."
	db.InsertRawRecord(&database.RawRecord{Source: "S", SourceType: "news", URL: &url1,
		Title: "Fuel crisis worsens", Snippet: &snippet,
		FetchedAt: database.FormatTime(time.Now()), Collector: "c"})
	db.InsertRawRecord(&database.RawRecord{Source: "S", SourceType: "news", URL: &url2,
		Title: "Tourism recovery continues with strong arrivals growth",
		FetchedAt: database.FormatTime(time.Now()), Collector: "c"})
	// Blank title: per-record failure, batch continues.
	db.InsertRawRecord(&database.RawRecord{Source: "S", SourceType: "news", URL: &url3,
		Title: "", FetchedAt: database.FormatTime(time.Now()), Collector: "c"})

	p := NewProcessor(db, 32)
	scored, failed, err := p.ProcessPending(time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scored != 2 {
		t.Errorf("expected 2 scored, got %d", scored)
	}
	if failed != 1 {
		t.Errorf("expected 1 failed, got %d", failed)
	}

	// Second pass: annotated records are done, the blank one retries and fails again.
	scored, failed, err = p.ProcessPending(time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scored != 0 {
		t.Errorf("expected 0 scored on re-run, got %d", scored)
	}
	if failed != 1 {
		t.Errorf("expected blank record to fail again, got %d", failed)
	}
}
