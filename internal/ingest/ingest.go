// Package ingest consumes raw records from Kafka and normalizes them
// into the store. External collectors publish one JSON envelope per
// record; the consumer is the single writer path for remote input.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Mitheesha/situational-awareness/internal/config"
	"github.com/Mitheesha/situational-awareness/internal/database"
)

var (
	// ErrDuplicate means the record's URL is already stored.
	ErrDuplicate = errors.New("duplicate record")
	// ErrMalformed means the envelope failed validation.
	ErrMalformed = errors.New("malformed record")
)

// SocialEnvelope carries the social metadata of an envelope, when the
// record came from a social collector.
type SocialEnvelope struct {
	Topic         string `json:"topic"`
	Location      string `json:"location,omitempty"`
	Username      string `json:"username,omitempty"`
	Urgency       string `json:"urgency,omitempty"`
	RetweetCount  int64  `json:"retweet_count"`
	LikeCount     int64  `json:"like_count"`
	UserFollowers int64  `json:"user_followers"`
	IsSimulated   bool   `json:"is_simulated"`
}

// Envelope is the wire format collectors publish to the raw-records
// topic.
type Envelope struct {
	Source      string          `json:"source"`
	SourceType  string          `json:"source_type,omitempty"`
	URL         string          `json:"url,omitempty"`
	Title       string          `json:"title"`
	Snippet     string          `json:"snippet,omitempty"`
	PublishedAt string          `json:"published_at,omitempty"`
	Collector   string          `json:"collector,omitempty"`
	Social      *SocialEnvelope `json:"social,omitempty"`
}

// Consumer reads envelopes off Kafka and writes them to the store.
type Consumer struct {
	db     *database.DB
	reader *kafka.Reader
}

// NewConsumer creates a consumer for the configured raw-records topic.
func NewConsumer(cfg config.Kafka, db *database.DB) *Consumer {
	return &Consumer{
		db: db,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			Topic:          cfg.Topic,
			GroupID:        cfg.GroupID,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
			MaxWait:        time.Second,
		}),
	}
}

// Run consumes until ctx is cancelled. Malformed and duplicate
// messages are logged and skipped, never retried.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	log.Printf("ingest: consuming topic %s", c.reader.Config().Topic)

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Printf("ingest: shutting down")
				return nil
			}
			log.Printf("ingest: read error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		id, err := c.Store(msg.Value, time.Now().UTC())
		switch {
		case errors.Is(err, ErrDuplicate):
			// already stored, safe to commit and move on
		case errors.Is(err, ErrMalformed):
			log.Printf("ingest: dropping message at offset %d: %v", msg.Offset, err)
		case err != nil:
			return fmt.Errorf("storing record at offset %d: %w", msg.Offset, err)
		default:
			log.Printf("ingest: stored record %d from %s", id, msg.Topic)
		}
	}
}

// Store decodes, validates and persists one envelope. It returns the
// new record ID, or ErrDuplicate / ErrMalformed.
func (c *Consumer) Store(raw []byte, now time.Time) (int64, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	rec, social, err := Normalize(&env, now)
	if err != nil {
		return 0, err
	}

	id, err := c.db.InsertRawRecord(rec)
	if err != nil {
		return 0, fmt.Errorf("inserting record: %w", err)
	}
	if id == 0 {
		return 0, fmt.Errorf("%w: %s", ErrDuplicate, rec.Title)
	}
	if social != nil {
		social.RawDataID = id
		if _, err := c.db.InsertSocialPost(social); err != nil {
			return 0, fmt.Errorf("inserting social post: %w", err)
		}
	}
	return id, nil
}

// Normalize validates an envelope and maps it onto store rows. Social
// urgency defaults to low; unknown urgency labels are rejected.
func Normalize(env *Envelope, now time.Time) (*database.RawRecord, *database.SocialPost, error) {
	env.Source = strings.TrimSpace(env.Source)
	env.Title = strings.TrimSpace(env.Title)
	if env.Source == "" {
		return nil, nil, fmt.Errorf("%w: missing source", ErrMalformed)
	}
	if env.Title == "" {
		return nil, nil, fmt.Errorf("%w: missing title", ErrMalformed)
	}
	if env.SourceType == "" {
		if env.Social != nil {
			env.SourceType = "social"
		} else {
			env.SourceType = "news"
		}
	}
	if env.Collector == "" {
		env.Collector = "kafka_ingest"
	}

	rec := &database.RawRecord{
		Source:     env.Source,
		SourceType: env.SourceType,
		Title:      env.Title,
		FetchedAt:  database.FormatTime(now),
		Collector:  env.Collector,
	}
	if env.URL != "" {
		rec.URL = &env.URL
	}
	if env.Snippet != "" {
		rec.Snippet = &env.Snippet
	}
	if env.PublishedAt != "" {
		if _, err := database.ParseTime(env.PublishedAt); err != nil {
			return nil, nil, fmt.Errorf("%w: bad published_at %q", ErrMalformed, env.PublishedAt)
		}
		rec.Published = &env.PublishedAt
	}

	if env.Social == nil {
		return rec, nil, nil
	}

	s := env.Social
	if strings.TrimSpace(s.Topic) == "" {
		return nil, nil, fmt.Errorf("%w: social record missing topic", ErrMalformed)
	}
	urgency := s.Urgency
	if urgency == "" {
		urgency = "low"
	}
	switch urgency {
	case "low", "medium", "high", "critical":
	default:
		return nil, nil, fmt.Errorf("%w: unknown urgency %q", ErrMalformed, s.Urgency)
	}
	post := &database.SocialPost{
		Topic:         strings.TrimSpace(s.Topic),
		Urgency:       urgency,
		RetweetCount:  s.RetweetCount,
		LikeCount:     s.LikeCount,
		UserFollowers: s.UserFollowers,
		IsSimulated:   s.IsSimulated,
	}
	if loc := strings.TrimSpace(s.Location); loc != "" {
		post.Location = &loc
	}
	if name := strings.TrimSpace(s.Username); name != "" {
		post.Username = &name
	}
	return rec, post, nil
}
