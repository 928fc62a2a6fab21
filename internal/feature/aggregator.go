// Package feature computes per-(topic, window) aggregate feature vectors
// from the social posts falling inside a time window.
package feature

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Mitheesha/situational-awareness/internal/database"
)

// ErrInsufficientData marks a topic with no posts in the window. It is a
// valid sparse-case state, not a failure.
var ErrInsufficientData = errors.New("no posts in window")

// UrgencyScore encodes an urgency label on a 0-100 scale.
func UrgencyScore(urgency string) float64 {
	switch urgency {
	case "critical":
		return 100
	case "high":
		return 75
	case "medium":
		return 50
	case "low":
		return 25
	}
	return 0
}

// Aggregator rolls social posts up into feature vectors. simulatedWeight
// scales the engagement counts of simulated posts so that synthetic
// traffic never passes as attributed real engagement unless configured to.
type Aggregator struct {
	db              *database.DB
	simulatedWeight float64
}

func NewAggregator(db *database.DB, simulatedWeight float64) *Aggregator {
	return &Aggregator{db: db, simulatedWeight: simulatedWeight}
}

// Aggregate pairs a topic's feature vector with the mean sentiment
// confidence of its scored posts, which the signal synthesizer folds into
// signal confidence, and the distinct locations behind LocationSpread,
// which the insight generator surfaces as affected areas.
type Aggregate struct {
	Vector     database.FeatureVector
	Confidence float64
	Locations  []string
}

// AggregateWindow computes one feature vector per topic seen in
// [start, end) and caches each in the store. The cached rows are what the
// anomaly detector later trains on.
func (a *Aggregator) AggregateWindow(start, end time.Time) ([]Aggregate, error) {
	posts, err := a.db.GetWindowPosts(start, end)
	if err != nil {
		return nil, fmt.Errorf("scanning window posts: %w", err)
	}

	byTopic := make(map[string][]database.WindowPost)
	for _, p := range posts {
		byTopic[p.Topic] = append(byTopic[p.Topic], p)
	}

	aggregates := make([]Aggregate, 0, len(byTopic))
	for topic, group := range byTopic {
		fv, err := Compute(topic, group, start, end, a.simulatedWeight)
		if err != nil {
			continue
		}
		if err := a.db.UpsertFeatureVector(&fv); err != nil {
			return nil, fmt.Errorf("caching vector for %q: %w", topic, err)
		}
		aggregates = append(aggregates, Aggregate{
			Vector:     fv,
			Confidence: MeanConfidence(group),
			Locations:  Locations(group),
		})
	}

	return aggregates, nil
}

// MeanConfidence averages sentiment confidence over the scored posts of a
// group; 0.5 when none are scored yet.
func MeanConfidence(posts []database.WindowPost) float64 {
	var sum float64
	var n int
	for _, p := range posts {
		if p.SentimentConfidence != nil {
			sum += *p.SentimentConfidence
			n++
		}
	}
	if n == 0 {
		return 0.5
	}
	return sum / float64(n)
}

// Locations returns the sorted distinct locations of a group's posts.
func Locations(posts []database.WindowPost) []string {
	seen := map[string]struct{}{}
	var locations []string
	for _, p := range posts {
		if p.Location == nil || *p.Location == "" {
			continue
		}
		if _, dup := seen[*p.Location]; !dup {
			seen[*p.Location] = struct{}{}
			locations = append(locations, *p.Location)
		}
	}
	sort.Strings(locations)
	return locations
}

// Compute builds the 12-dimension vector for one topic's posts. A single
// mention is enough: variance is 0 when n = 1 and engagement rate is 0
// when no followers are attributed.
func Compute(topic string, posts []database.WindowPost, start, end time.Time, simulatedWeight float64) (database.FeatureVector, error) {
	if len(posts) == 0 {
		return database.FeatureVector{}, ErrInsufficientData
	}

	n := float64(len(posts))
	fv := database.FeatureVector{
		Topic:        topic,
		WindowStart:  database.FormatTime(start),
		WindowEnd:    database.FormatTime(end),
		MentionCount: n,
	}

	var (
		urgencySum  float64
		retweetSum  float64
		likeSum     float64
		followerSum float64
		sentiments  []float64
		locations   = map[string]struct{}{}
		days        = map[string]struct{}{}
	)

	for _, p := range posts {
		urgencySum += UrgencyScore(p.Urgency)

		w := 1.0
		if p.IsSimulated {
			w = simulatedWeight
		}
		retweets := w * float64(p.RetweetCount)
		likes := w * float64(p.LikeCount)
		retweetSum += retweets
		likeSum += likes
		followerSum += w * float64(p.UserFollowers)
		if retweets > fv.MaxRetweets {
			fv.MaxRetweets = retweets
		}

		if p.SentimentScore != nil {
			sentiments = append(sentiments, *p.SentimentScore)
		}
		if p.Location != nil && *p.Location != "" {
			locations[*p.Location] = struct{}{}
		}
		if len(p.FetchedAt) >= 10 {
			days[p.FetchedAt[:10]] = struct{}{}
		}
	}

	fv.UrgencyScore = urgencySum / n
	fv.MeanRetweets = retweetSum / n
	fv.MeanLikes = likeSum / n
	fv.MeanFollowers = followerSum / n
	fv.LocationSpread = float64(len(locations))

	fv.MeanSentiment, fv.SentimentVariance = meanVariance(sentiments)

	daysActive := float64(len(days))
	if daysActive < 1 {
		daysActive = 1
	}
	fv.DaysActive = daysActive
	fv.Velocity = n / daysActive

	if followerSum > 0 {
		fv.EngagementRate = (likeSum + retweetSum) / followerSum
	}

	return fv, nil
}

// meanVariance returns the population mean and variance; both 0 for an
// empty slice, variance 0 for a single element.
func meanVariance(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	if len(xs) == 1 {
		return mean, 0
	}
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, sq / float64(len(xs))
}

// Baseline returns the historical mean velocity for a topic from cached
// vectors, excluding the current window. Used by the synthesizer to label
// velocity trends. Returns NaN when no history exists.
func Baseline(history []database.FeatureVector, topic, currentWindowEnd string) float64 {
	var sum float64
	var count int
	for _, fv := range history {
		if fv.Topic != topic || fv.WindowEnd == currentWindowEnd {
			continue
		}
		sum += fv.Velocity
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}
