package database

import (
	"encoding/json"
	"time"
)

// InsertBatch records one processing batch. Write-once per cycle.
func (db *DB) InsertBatch(batch *ProcessingBatch) (int64, error) {
	breakdownJSON, err := json.Marshal(batch.SourceBreakdown)
	if err != nil {
		return 0, err
	}

	result, err := db.conn.Exec(
		`INSERT INTO processing_stats (batch_id, records_processed, records_failed, processing_time_ms, source_breakdown)
		VALUES (?, ?, ?, ?, ?)`,
		batch.BatchID, batch.RecordsProcessed, batch.RecordsFailed,
		batch.ProcessingTimeMs, string(breakdownJSON),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetRecentBatches returns the most recent processing batches.
func (db *DB) GetRecentBatches(limit int) ([]ProcessingBatch, error) {
	rows, err := db.conn.Query(
		`SELECT id, batch_id, records_processed, records_failed, processing_time_ms, source_breakdown, created_at
		FROM processing_stats ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []ProcessingBatch
	for rows.Next() {
		var b ProcessingBatch
		var breakdownJSON *string
		if err := rows.Scan(&b.ID, &b.BatchID, &b.RecordsProcessed, &b.RecordsFailed,
			&b.ProcessingTimeMs, &breakdownJSON, &b.CreatedAt); err != nil {
			return nil, err
		}
		if breakdownJSON != nil {
			if err := json.Unmarshal([]byte(*breakdownJSON), &b.SourceBreakdown); err != nil {
				b.SourceBreakdown = nil
			}
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM raw_data", &s.TotalRecords},
		{"SELECT COUNT(*) FROM social_posts", &s.SocialPosts},
		{"SELECT COUNT(*) FROM raw_data WHERE json_extract(COALESCE(metadata, '{}'), '$." + MetaSentimentScore + "') IS NOT NULL", &s.ScoredRecords},
		{"SELECT COUNT(*) FROM signals", &s.Signals},
		{"SELECT COUNT(*) FROM insights", &s.Insights},
		{"SELECT COUNT(*) FROM processing_stats", &s.Batches},
		{"SELECT COUNT(*) FROM feature_vectors", &s.FeatureVectors},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	if err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM insights WHERE valid_until > ?", FormatTime(time.Now()),
	).Scan(&s.ActiveInsights); err != nil {
		return nil, err
	}

	return s, nil
}

// GetHourlyCounts returns per-hour record counts by source type for the
// trailing window. Hours are UTC buckets in "2006-01-02T15" form.
func (db *DB) GetHourlyCounts(since time.Time) ([]HourlyCount, error) {
	rows, err := db.conn.Query(
		`SELECT substr(fetched_at, 1, 13) AS hour, source_type, COUNT(*)
		FROM raw_data WHERE fetched_at >= ?
		GROUP BY hour, source_type ORDER BY hour`,
		FormatTime(since),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []HourlyCount
	for rows.Next() {
		var c HourlyCount
		if err := rows.Scan(&c.Hour, &c.SourceType, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// GetTopicSummary returns the topic/urgency rollup with mean engagement
// for posts fetched since the cutoff.
func (db *DB) GetTopicSummary(since time.Time) ([]TopicSummary, error) {
	rows, err := db.conn.Query(
		`SELECT sp.topic, sp.urgency, COUNT(*), AVG(sp.like_count + sp.retweet_count)
		FROM social_posts sp
		JOIN raw_data rd ON rd.id = sp.raw_data_id
		WHERE rd.fetched_at >= ?
		GROUP BY sp.topic, sp.urgency
		ORDER BY COUNT(*) DESC`,
		FormatTime(since),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []TopicSummary
	for rows.Next() {
		var t TopicSummary
		if err := rows.Scan(&t.Topic, &t.Urgency, &t.Mentions, &t.MeanEngagement); err != nil {
			return nil, err
		}
		summaries = append(summaries, t)
	}
	return summaries, rows.Err()
}

// GetSourceStats returns per-source reliability statistics.
func (db *DB) GetSourceStats() ([]SourceStat, error) {
	rows, err := db.conn.Query(
		`SELECT rd.source,
			COUNT(*),
			SUM(CASE WHEN json_extract(COALESCE(rd.metadata, '{}'), '$.` + MetaSentimentScore + `') IS NOT NULL THEN 1 ELSE 0 END),
			SUM(CASE WHEN sp.is_simulated = 1 THEN 1 ELSE 0 END),
			MAX(rd.fetched_at)
		FROM raw_data rd
		LEFT JOIN social_posts sp ON sp.raw_data_id = rd.id
		GROUP BY rd.source ORDER BY COUNT(*) DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []SourceStat
	for rows.Next() {
		var s SourceStat
		var scored, simulated *int64
		if err := rows.Scan(&s.Source, &s.Records, &scored, &simulated, &s.LastFetched); err != nil {
			return nil, err
		}
		if scored != nil {
			s.Scored = *scored
		}
		if simulated != nil {
			s.Simulated = *simulated
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
