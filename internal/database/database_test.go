package database

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func testTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("bad test time %q: %v", s, err)
	}
	return ts
}

func insertSocial(t *testing.T, db *DB, topic, urgency string, fetchedAt time.Time, followers, retweets, likes int64) int64 {
	t.Helper()
	url := "https://x.com/u/status/" + fetchedAt.Format("20060102T150405") + topic
	id, err := db.InsertRawRecord(&RawRecord{
		Source:     "X (Twitter)",
		SourceType: "social",
		URL:        &url,
		Title:      "post about " + topic,
		FetchedAt:  FormatTime(fetchedAt),
		Collector:  "social_listener",
	})
	if err != nil {
		t.Fatalf("insert raw record: %v", err)
	}
	if id == 0 {
		t.Fatalf("unexpected duplicate for %s", url)
	}
	if _, err := db.InsertSocialPost(&SocialPost{
		RawDataID:     id,
		Topic:         topic,
		Urgency:       urgency,
		UserFollowers: followers,
		RetweetCount:  retweets,
		LikeCount:     likes,
	}); err != nil {
		t.Fatalf("insert social post: %v", err)
	}
	return id
}

func TestInsertRawRecord(t *testing.T) {
	db := openTestDB(t)
	url := "https://example.com/story"
	id, err := db.InsertRawRecord(&RawRecord{
		Source:     "Daily Mirror",
		SourceType: "news",
		URL:        &url,
		Title:      "Fuel queues return",
		Snippet:    ptr("Long queues reported at stations."),
		FetchedAt:  FormatTime(time.Now()),
		Collector:  "news_scraper",
		Metadata:   map[string]any{"raw_snippet": "Long queues"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == 0 {
		t.Error("expected non-zero record ID")
	}

	rec, err := db.GetRecordByID(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil {
		t.Fatal("expected record")
	}
	if rec.Metadata["raw_snippet"] != "Long queues" {
		t.Errorf("expected metadata round-trip, got %v", rec.Metadata)
	}
	if rec.SentimentScore != nil {
		t.Error("expected no sentiment annotation on fresh record")
	}
}

func TestInsertDuplicateRecord(t *testing.T) {
	db := openTestDB(t)
	url := "https://example.com/dup"
	rec := &RawRecord{Source: "S", SourceType: "news", URL: &url, Title: "First",
		FetchedAt: FormatTime(time.Now()), Collector: "c"}
	if _, err := db.InsertRawRecord(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec.Title = "Duplicate"
	id, err := db.InsertRawRecord(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 0 {
		t.Error("expected 0 for duplicate URL")
	}
}

func TestAnnotateSentimentExactlyOnce(t *testing.T) {
	db := openTestDB(t)
	url := "https://example.com/a"
	id, _ := db.InsertRawRecord(&RawRecord{Source: "S", SourceType: "news", URL: &url,
		Title: "T", FetchedAt: FormatTime(time.Now()), Collector: "c"})

	now := time.Now()
	wrote, err := db.AnnotateSentiment(id, -0.65, 0.9, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !wrote {
		t.Fatal("expected first annotation to write")
	}

	// Second annotation must be a no-op.
	wrote, err = db.AnnotateSentiment(id, 0.99, 0.1, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wrote {
		t.Error("expected re-annotation to be a no-op")
	}

	rec, _ := db.GetRecordByID(id)
	if rec.SentimentScore == nil || *rec.SentimentScore != -0.65 {
		t.Errorf("expected original score -0.65 preserved, got %v", rec.SentimentScore)
	}
	if rec.SentimentConfidence == nil || *rec.SentimentConfidence != 0.9 {
		t.Errorf("expected original confidence 0.9 preserved, got %v", rec.SentimentConfidence)
	}
}

func TestGetUnscoredRecords(t *testing.T) {
	db := openTestDB(t)
	u1, u2 := "https://a.com/1", "https://a.com/2"
	id1, _ := db.InsertRawRecord(&RawRecord{Source: "S", SourceType: "news", URL: &u1,
		Title: "A", FetchedAt: FormatTime(time.Now()), Collector: "c"})
	db.InsertRawRecord(&RawRecord{Source: "S", SourceType: "news", URL: &u2,
		Title: "B", FetchedAt: FormatTime(time.Now()), Collector: "c"})

	unscored, err := db.GetUnscoredRecords(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(unscored) != 2 {
		t.Fatalf("expected 2 unscored, got %d", len(unscored))
	}

	db.AnnotateSentiment(id1, 0.2, 0.8, time.Now())
	unscored, _ = db.GetUnscoredRecords(100)
	if len(unscored) != 1 {
		t.Errorf("expected 1 unscored after annotation, got %d", len(unscored))
	}
	if unscored[0].Title != "B" {
		t.Errorf("expected 'B' to remain unscored, got %q", unscored[0].Title)
	}
}

func TestGetWindowPosts(t *testing.T) {
	db := openTestDB(t)
	inWindow := testTime(t, "2026-08-28T10:00:00Z")
	outside := testTime(t, "2026-08-26T10:00:00Z")

	id := insertSocial(t, db, "fuel prices", "high", inWindow, 1000, 5, 12)
	insertSocial(t, db, "fuel prices", "high", outside, 500, 1, 2)
	db.AnnotateSentiment(id, -0.7, 0.85, inWindow)

	start := testTime(t, "2026-08-27T12:00:00Z")
	end := testTime(t, "2026-08-28T12:00:00Z")
	posts, err := db.GetWindowPosts(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post in window, got %d", len(posts))
	}
	p := posts[0]
	if p.Topic != "fuel prices" || p.UserFollowers != 1000 {
		t.Errorf("unexpected post: %+v", p)
	}
	if p.SentimentScore == nil || *p.SentimentScore != -0.7 {
		t.Errorf("expected joined sentiment -0.7, got %v", p.SentimentScore)
	}

	topics, _ := db.GetWindowTopics(start, end)
	if len(topics) != 1 || topics[0] != "fuel prices" {
		t.Errorf("expected [fuel prices], got %v", topics)
	}
}

func TestSignalLifecycle(t *testing.T) {
	db := openTestDB(t)
	first := testTime(t, "2026-08-28T00:00:00Z")
	last := testTime(t, "2026-08-28T06:00:00Z")

	id, err := db.InsertSignal(&Signal{
		SignalType:      "spike",
		Topic:           "power cut",
		Description:     "Spike detected",
		Urgency:         "high",
		ConfidenceScore: 0.8,
		SourceCount:     40,
		FirstSeen:       FormatTime(first),
		LastSeen:        FormatTime(last),
		Metadata:        map[string]any{"multiplier": 2.5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero signal ID")
	}

	open, err := db.GetOpenSignal("power cut", testTime(t, "2026-08-28T00:00:00Z"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if open == nil {
		t.Fatal("expected open signal")
	}
	if open.Metadata["multiplier"] != 2.5 {
		t.Errorf("expected metadata round-trip, got %v", open.Metadata)
	}

	// Outside the merge window the signal is not open.
	stale, _ := db.GetOpenSignal("power cut", testTime(t, "2026-08-28T08:00:00Z"))
	if stale != nil {
		t.Error("expected no open signal past the merge window")
	}

	merged := testTime(t, "2026-08-28T07:00:00Z")
	if err := db.MergeSignal(id, merged, 12, 0.85, "Spike persists"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sig, _ := db.GetSignalByID(id)
	if sig.SourceCount != 52 {
		t.Errorf("expected source_count 52 after merge, got %d", sig.SourceCount)
	}
	if sig.LastSeen != FormatTime(merged) {
		t.Errorf("expected last_seen extended, got %q", sig.LastSeen)
	}
	if sig.FirstSeen != FormatTime(first) {
		t.Errorf("expected first_seen unchanged, got %q", sig.FirstSeen)
	}
}

func TestInsightActiveFilter(t *testing.T) {
	db := openTestDB(t)
	now := testTime(t, "2026-08-28T12:00:00Z")

	db.InsertInsight(&Insight{
		InsightType:    "operational_risk",
		Title:          "Still valid",
		Description:    "d",
		Severity:       "high",
		AffectedAreas:  []string{"Colombo"},
		Recommendation: "r",
		SupportingData: map[string]any{"signal_ids": []any{float64(1)}},
		ValidUntil:     FormatTime(now.Add(24 * time.Hour)),
	})
	db.InsertInsight(&Insight{
		InsightType:    "situational_awareness",
		Title:          "Expired",
		Description:    "d",
		Severity:       "low",
		Recommendation: "r",
		SupportingData: map[string]any{"signal_ids": []any{float64(2)}},
		ValidUntil:     FormatTime(now.Add(-time.Hour)),
	})

	active, err := db.GetActiveInsights(now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active insight, got %d", len(active))
	}
	if active[0].Title != "Still valid" {
		t.Errorf("expected 'Still valid', got %q", active[0].Title)
	}
	if len(active[0].AffectedAreas) != 1 || active[0].AffectedAreas[0] != "Colombo" {
		t.Errorf("expected affected areas round-trip, got %v", active[0].AffectedAreas)
	}

	// Expiry is read-time only: the row survives.
	all, _ := db.GetAllInsights()
	if len(all) != 2 {
		t.Errorf("expected both insights persisted, got %d", len(all))
	}
}

func TestFeatureVectorUpsert(t *testing.T) {
	db := openTestDB(t)
	fv := &FeatureVector{
		Topic:        "fuel prices",
		WindowStart:  "2026-08-27T12:00:00Z",
		WindowEnd:    "2026-08-28T12:00:00Z",
		MentionCount: 10,
		DaysActive:   1,
		Velocity:     10,
	}
	if err := db.UpsertFeatureVector(fv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Re-aggregation replaces the cached row, never duplicates it.
	fv.MentionCount = 12
	fv.Velocity = 12
	if err := db.UpsertFeatureVector(fv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history, err := db.GetFeatureHistory()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(history))
	}
	if history[0].MentionCount != 12 {
		t.Errorf("expected replaced mention_count 12, got %f", history[0].MentionCount)
	}

	n, _ := db.CountFeatureVectors()
	if n != 1 {
		t.Errorf("expected corpus size 1, got %d", n)
	}
}

func TestInsertBatch(t *testing.T) {
	db := openTestDB(t)
	_, err := db.InsertBatch(&ProcessingBatch{
		BatchID:          "batch-1",
		RecordsProcessed: 95,
		RecordsFailed:    5,
		ProcessingTimeMs: 1200,
		SourceBreakdown:  map[string]int64{"Daily Mirror": 60, "X (Twitter)": 35},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batches, _ := db.GetRecentBatches(10)
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if batches[0].SourceBreakdown["Daily Mirror"] != 60 {
		t.Errorf("expected breakdown round-trip, got %v", batches[0].SourceBreakdown)
	}
}

func TestClaimCycle(t *testing.T) {
	db := openTestDB(t)

	ok, err := db.ClaimCycle("2026-08-28T12:00:00Z", "worker-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected first claim to win")
	}

	ok, _ = db.ClaimCycle("2026-08-28T12:00:00Z", "worker-b")
	if ok {
		t.Error("expected second claimant to lose")
	}

	// Same owner re-claiming is fine (idempotent re-run).
	ok, _ = db.ClaimCycle("2026-08-28T12:00:00Z", "worker-a")
	if !ok {
		t.Error("expected owner to keep its claim")
	}

	if err := db.ReleaseCycle("2026-08-28T12:00:00Z"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ok, _ = db.ClaimCycle("2026-08-28T12:00:00Z", "worker-b")
	if !ok {
		t.Error("expected claim to be available after release")
	}
}

func TestClaimCycleConcurrent(t *testing.T) {
	db := openTestDB(t)
	const workers = 8

	start := make(chan struct{})
	wins := make(chan string, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		owner := fmt.Sprintf("worker-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := db.ClaimCycle("2026-08-28T12:00:00Z", owner)
			if err != nil {
				errs <- err
				return
			}
			if ok {
				wins <- owner
			}
		}()
	}
	close(start)
	wg.Wait()
	close(wins)
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}
	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly one winner, got %v", winners)
	}

	// The winner's claim survived the race.
	ok, err := db.ClaimCycle("2026-08-28T12:00:00Z", winners[0])
	if err != nil || !ok {
		t.Errorf("winner lost its claim: ok=%v err=%v", ok, err)
	}
}

func TestHourlyCounts(t *testing.T) {
	db := openTestDB(t)
	insertSocial(t, db, "protest", "high", testTime(t, "2026-08-28T09:10:00Z"), 10, 0, 0)
	insertSocial(t, db, "protest", "high", testTime(t, "2026-08-28T09:40:00Z"), 10, 0, 0)
	insertSocial(t, db, "protest", "high", testTime(t, "2026-08-28T10:05:00Z"), 10, 0, 0)

	counts, err := db.GetHourlyCounts(testTime(t, "2026-08-28T00:00:00Z"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("expected 2 hour buckets, got %d", len(counts))
	}
	if counts[0].Hour != "2026-08-28T09" || counts[0].Count != 2 {
		t.Errorf("unexpected first bucket: %+v", counts[0])
	}
}

func TestTopicSummary(t *testing.T) {
	db := openTestDB(t)
	at := testTime(t, "2026-08-28T09:00:00Z")
	insertSocial(t, db, "power cut", "high", at, 100, 4, 6)
	insertSocial(t, db, "power cut", "high", at.Add(time.Minute), 100, 2, 8)
	insertSocial(t, db, "tourism boost", "low", at, 100, 0, 2)

	summary, err := db.GetTopicSummary(at.Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(summary))
	}
	if summary[0].Topic != "power cut" || summary[0].Mentions != 2 {
		t.Errorf("unexpected top row: %+v", summary[0])
	}
	if summary[0].MeanEngagement != 10 {
		t.Errorf("expected mean engagement 10, got %f", summary[0].MeanEngagement)
	}
}

func TestSourceStats(t *testing.T) {
	db := openTestDB(t)
	id := insertSocial(t, db, "flood warning", "high", testTime(t, "2026-08-28T09:00:00Z"), 10, 0, 0)
	db.AnnotateSentiment(id, -0.4, 0.7, time.Now())

	stats, err := db.GetSourceStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 source, got %d", len(stats))
	}
	if stats[0].Records != 1 || stats[0].Scored != 1 {
		t.Errorf("unexpected source stat: %+v", stats[0])
	}
}
