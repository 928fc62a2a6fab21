package ingest

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mitheesha/situational-awareness/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testConsumer(t *testing.T) *Consumer {
	t.Helper()
	return &Consumer{db: openTestDB(t)}
}

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func TestStoreNewsEnvelope(t *testing.T) {
	c := testConsumer(t)
	raw := []byte(`{
		"source": "Daily Mirror",
		"url": "https://example.lk/fuel",
		"title": "Fuel queues return to Colombo",
		"snippet": "Long queues formed outside stations.",
		"published_at": "2026-08-28T09:00:00Z",
		"collector": "rss_fetcher"
	}`)

	id, err := c.Store(raw, testNow)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	rec, err := c.db.GetRecordByID(id)
	if err != nil {
		t.Fatalf("fetching record: %v", err)
	}
	if rec.SourceType != "news" {
		t.Errorf("expected news source type, got %q", rec.SourceType)
	}
	if rec.Snippet == nil || *rec.Snippet != "Long queues formed outside stations." {
		t.Errorf("snippet not stored: %v", rec.Snippet)
	}
	if rec.FetchedAt != database.FormatTime(testNow) {
		t.Errorf("unexpected fetched_at %q", rec.FetchedAt)
	}
	if rec.Published == nil || *rec.Published != "2026-08-28T09:00:00Z" {
		t.Errorf("published timestamp not stored: %v", rec.Published)
	}
}

func TestStoreSocialEnvelope(t *testing.T) {
	c := testConsumer(t)
	raw := []byte(`{
		"source": "X (Twitter)",
		"url": "https://x.com/u/1",
		"title": "power cut in Kandy again",
		"social": {
			"topic": "power cut",
			"location": "Kandy",
			"username": "citizen_lk",
			"urgency": "high",
			"retweet_count": 12,
			"like_count": 40,
			"user_followers": 900
		}
	}`)

	id, err := c.Store(raw, testNow)
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	posts, err := c.db.GetWindowPosts(testNow.Add(-time.Hour), testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("window posts: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if id == 0 {
		t.Fatal("expected a record id")
	}
	p := posts[0]
	if p.Topic != "power cut" || p.Urgency != "high" {
		t.Errorf("unexpected post: %+v", p)
	}
	if p.RetweetCount != 12 || p.UserFollowers != 900 {
		t.Errorf("engagement not stored: %+v", p)
	}
}

func TestStoreDuplicateURL(t *testing.T) {
	c := testConsumer(t)
	raw := []byte(`{"source":"Daily Mirror","url":"https://example.lk/a","title":"first"}`)

	if _, err := c.Store(raw, testNow); err != nil {
		t.Fatalf("first store: %v", err)
	}
	_, err := c.Store(raw, testNow)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestStoreMalformed(t *testing.T) {
	c := testConsumer(t)
	cases := map[string]string{
		"bad json":        `{not json`,
		"missing source":  `{"title":"something happened"}`,
		"missing title":   `{"source":"Daily Mirror"}`,
		"blank title":     `{"source":"Daily Mirror","title":"   "}`,
		"bad published":   `{"source":"m","title":"t","published_at":"yesterday"}`,
		"social no topic": `{"source":"m","title":"t","social":{"urgency":"low"}}`,
		"bad urgency":     `{"source":"m","title":"t","social":{"topic":"x","urgency":"panic"}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Store([]byte(raw), testNow)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	env := &Envelope{
		Source: "  X (Twitter)  ",
		Title:  " flood warning issued ",
		Social: &SocialEnvelope{Topic: " flood warning "},
	}
	rec, post, err := Normalize(env, testNow)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if rec.Source != "X (Twitter)" || rec.Title != "flood warning issued" {
		t.Errorf("fields not trimmed: %+v", rec)
	}
	if rec.SourceType != "social" {
		t.Errorf("expected social source type inferred, got %q", rec.SourceType)
	}
	if rec.Collector != "kafka_ingest" {
		t.Errorf("expected default collector, got %q", rec.Collector)
	}
	if post.Topic != "flood warning" || post.Urgency != "low" {
		t.Errorf("unexpected post defaults: %+v", post)
	}
}
