package database

import "database/sql"

// UpsertFeatureVector stores a feature vector, replacing any previous value
// for the same (topic, window). The accumulated rows form the anomaly
// detector's training corpus.
func (db *DB) UpsertFeatureVector(fv *FeatureVector) error {
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO feature_vectors
		(topic, window_start, window_end, mention_count, urgency_score, mean_sentiment, sentiment_variance,
		 mean_retweets, max_retweets, mean_likes, mean_followers, location_spread, days_active, velocity, engagement_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fv.Topic, fv.WindowStart, fv.WindowEnd,
		fv.MentionCount, fv.UrgencyScore, fv.MeanSentiment, fv.SentimentVariance,
		fv.MeanRetweets, fv.MaxRetweets, fv.MeanLikes, fv.MeanFollowers,
		fv.LocationSpread, fv.DaysActive, fv.Velocity, fv.EngagementRate,
	)
	return err
}

// GetFeatureHistory returns all stored feature vectors, oldest first.
func (db *DB) GetFeatureHistory() ([]FeatureVector, error) {
	rows, err := db.conn.Query(
		`SELECT topic, window_start, window_end, mention_count, urgency_score, mean_sentiment, sentiment_variance,
			mean_retweets, max_retweets, mean_likes, mean_followers, location_spread, days_active, velocity, engagement_rate
		FROM feature_vectors ORDER BY window_end, topic`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFeatureVectors(rows)
}

// CountFeatureVectors returns the size of the feature-vector corpus.
func (db *DB) CountFeatureVectors() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM feature_vectors").Scan(&n)
	return n, err
}

func scanFeatureVectors(rows *sql.Rows) ([]FeatureVector, error) {
	var vectors []FeatureVector
	for rows.Next() {
		var fv FeatureVector
		if err := rows.Scan(&fv.Topic, &fv.WindowStart, &fv.WindowEnd,
			&fv.MentionCount, &fv.UrgencyScore, &fv.MeanSentiment, &fv.SentimentVariance,
			&fv.MeanRetweets, &fv.MaxRetweets, &fv.MeanLikes, &fv.MeanFollowers,
			&fv.LocationSpread, &fv.DaysActive, &fv.Velocity, &fv.EngagementRate); err != nil {
			return nil, err
		}
		vectors = append(vectors, fv)
	}
	return vectors, rows.Err()
}
