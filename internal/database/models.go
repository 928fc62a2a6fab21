package database

// Metadata keys used for the sentiment annotation on raw records.
// Annotation lives inside the metadata JSON so the raw_data row itself
// stays immutable after ingestion.
const (
	MetaSentimentScore      = "ai_sentiment_score"
	MetaSentimentConfidence = "ai_sentiment_confidence"
	MetaSentimentAt         = "ai_processed_at"
)

// RawRecord is a collected news article or social post.
type RawRecord struct {
	ID         int64          `json:"id"`
	Source     string         `json:"source"`
	SourceType string         `json:"source_type"` // "news" or "social"
	URL        *string        `json:"url,omitempty"`
	Title      string         `json:"title"`
	Snippet    *string        `json:"snippet,omitempty"`
	Published  *string        `json:"published,omitempty"`
	FetchedAt  string         `json:"fetched_at"`
	Language   *string        `json:"language,omitempty"`
	Collector  string         `json:"collector"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  *string        `json:"created_at,omitempty"`

	// Sentiment annotation, extracted from metadata. Nil until scored.
	SentimentScore      *float64 `json:"sentiment_score,omitempty"`
	SentimentConfidence *float64 `json:"sentiment_confidence,omitempty"`
}

// SocialPost holds the social-specific attributes of a raw record.
type SocialPost struct {
	ID            int64
	RawDataID     int64
	Topic         string
	Sentiment     *string // collector-reported label, e.g. "concern"
	Urgency       string  // low, medium, high, critical
	Location      *string
	Username      *string
	UserFollowers int64
	RetweetCount  int64
	LikeCount     int64
	IsSimulated   bool
	CreatedAt     *string
}

// WindowPost is the joined view the feature aggregator scans: one social
// post plus the sentiment annotation of its raw record.
type WindowPost struct {
	Topic               string
	Urgency             string
	Location            *string
	UserFollowers       int64
	RetweetCount        int64
	LikeCount           int64
	IsSimulated         bool
	SentimentScore      *float64
	SentimentConfidence *float64
	FetchedAt           string
}

// FeatureVector is the per-(topic, window) aggregate. Recomputed each
// cycle; the stored rows double as the anomaly detector's training corpus.
type FeatureVector struct {
	Topic       string
	WindowStart string
	WindowEnd   string

	MentionCount      float64
	UrgencyScore      float64
	MeanSentiment     float64
	SentimentVariance float64
	MeanRetweets      float64
	MaxRetweets       float64
	MeanLikes         float64
	MeanFollowers     float64
	LocationSpread    float64
	DaysActive        float64
	Velocity          float64
	EngagementRate    float64
}

// FeatureDim is the fixed dimensionality of a feature vector.
const FeatureDim = 12

// Values returns the vector's numeric dimensions in canonical order.
func (fv *FeatureVector) Values() []float64 {
	return []float64{
		fv.MentionCount,
		fv.UrgencyScore,
		fv.MeanSentiment,
		fv.SentimentVariance,
		fv.MeanRetweets,
		fv.MaxRetweets,
		fv.MeanLikes,
		fv.MeanFollowers,
		fv.LocationSpread,
		fv.DaysActive,
		fv.Velocity,
		fv.EngagementRate,
	}
}

// FeatureNames lists the dimensions in the same order as Values.
var FeatureNames = []string{
	"mention_count",
	"urgency_score",
	"mean_sentiment",
	"sentiment_variance",
	"mean_retweets",
	"max_retweets",
	"mean_likes",
	"mean_followers",
	"location_spread",
	"days_active",
	"velocity",
	"engagement_rate",
}

// Signal is a topic-scoped detection of noteworthy activity.
type Signal struct {
	ID              int64          `json:"id"`
	SignalType      string         `json:"signal_type"`
	Topic           string         `json:"topic"`
	Description     string         `json:"description"`
	Urgency         string         `json:"urgency"`
	ConfidenceScore float64        `json:"confidence_score"`
	SourceCount     int64          `json:"source_count"`
	FirstSeen       string         `json:"first_seen"`
	LastSeen        string         `json:"last_seen"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       *string        `json:"created_at,omitempty"`
}

// Insight is a business-facing recommendation derived from signals.
type Insight struct {
	ID             int64          `json:"id"`
	InsightType    string         `json:"insight_type"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Severity       string         `json:"severity"`
	AffectedAreas  []string       `json:"affected_areas"`
	Recommendation string         `json:"recommendation"`
	SupportingData map[string]any `json:"supporting_data"`
	CreatedAt      *string        `json:"created_at,omitempty"`
	ValidUntil     string         `json:"valid_until"`
}

// ProcessingBatch records per-cycle processing statistics.
type ProcessingBatch struct {
	ID               int64            `json:"id"`
	BatchID          string           `json:"batch_id"`
	RecordsProcessed int64            `json:"records_processed"`
	RecordsFailed    int64            `json:"records_failed"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	SourceBreakdown  map[string]int64 `json:"source_breakdown"`
	CreatedAt        *string          `json:"created_at,omitempty"`
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalRecords   int `json:"total_records"`
	SocialPosts    int `json:"social_posts"`
	ScoredRecords  int `json:"scored_records"`
	Signals        int `json:"signals"`
	Insights       int `json:"insights"`
	ActiveInsights int `json:"active_insights"`
	Batches        int `json:"batches"`
	FeatureVectors int `json:"feature_vectors"`
}

// HourlyCount is one bucket of the per-hour dashboard read contract.
type HourlyCount struct {
	Hour       string `json:"hour"` // "2026-08-28T14"
	SourceType string `json:"source_type"`
	Count      int64  `json:"count"`
}

// TopicSummary is one row of the 24h topic/urgency dashboard read contract.
type TopicSummary struct {
	Topic          string  `json:"topic"`
	Urgency        string  `json:"urgency"`
	Mentions       int64   `json:"mentions"`
	MeanEngagement float64 `json:"mean_engagement"`
}

// SourceStat is one row of the per-source reliability read contract.
type SourceStat struct {
	Source      string `json:"source"`
	Records     int64  `json:"records"`
	Scored      int64  `json:"scored"`
	Simulated   int64  `json:"simulated"`
	LastFetched string `json:"last_fetched"`
}
