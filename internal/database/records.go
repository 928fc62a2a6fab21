package database

import (
	"database/sql"
	"encoding/json"
	"time"
)

// InsertRawRecord inserts a raw record. Returns the ID on success, 0 if the
// URL is already present (duplicate).
func (db *DB) InsertRawRecord(rec *RawRecord) (int64, error) {
	metaJSON, err := marshalMeta(rec.Metadata)
	if err != nil {
		return 0, err
	}

	result, err := db.conn.Exec(
		`INSERT INTO raw_data (source, source_type, url, title, snippet, published, fetched_at, language, collector, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Source, rec.SourceType, rec.URL, rec.Title, rec.Snippet,
		rec.Published, rec.FetchedAt, rec.Language, rec.Collector, metaJSON,
	)
	if err != nil {
		// Duplicate URL constraint
		return 0, nil //nolint: nilerr
	}
	return result.LastInsertId()
}

// InsertSocialPost attaches social attributes to a raw record.
func (db *DB) InsertSocialPost(post *SocialPost) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO social_posts (raw_data_id, topic, sentiment, urgency, location, username, user_followers, retweet_count, like_count, is_simulated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.RawDataID, post.Topic, post.Sentiment, post.Urgency, post.Location,
		post.Username, post.UserFollowers, post.RetweetCount, post.LikeCount,
		boolToInt(post.IsSimulated),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// AnnotateSentiment writes the sentiment annotation exactly once. Returns
// false if the record was already annotated (the write is a no-op then).
func (db *DB) AnnotateSentiment(recordID int64, score, confidence float64, at time.Time) (bool, error) {
	result, err := db.conn.Exec(
		`UPDATE raw_data
		SET metadata = json_set(COALESCE(metadata, '{}'), '$.`+MetaSentimentScore+`', ?, '$.`+MetaSentimentConfidence+`', ?, '$.`+MetaSentimentAt+`', ?)
		WHERE id = ? AND json_extract(COALESCE(metadata, '{}'), '$.`+MetaSentimentScore+`') IS NULL`,
		score, confidence, FormatTime(at), recordID,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetUnscoredRecords returns records without a sentiment annotation,
// newest first.
func (db *DB) GetUnscoredRecords(limit int) ([]RawRecord, error) {
	rows, err := db.conn.Query(
		`SELECT id, source, source_type, url, title, snippet, published, fetched_at, language, collector, metadata, created_at
		FROM raw_data
		WHERE json_extract(COALESCE(metadata, '{}'), '$.`+MetaSentimentScore+`') IS NULL
		ORDER BY fetched_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// GetRecordByID returns a single raw record by ID.
func (db *DB) GetRecordByID(id int64) (*RawRecord, error) {
	rows, err := db.conn.Query(
		`SELECT id, source, source_type, url, title, snippet, published, fetched_at, language, collector, metadata, created_at
		FROM raw_data WHERE id = ?`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// GetRecentRecords returns the most recent records ordered by fetched_at.
func (db *DB) GetRecentRecords(limit int) ([]RawRecord, error) {
	rows, err := db.conn.Query(
		`SELECT id, source, source_type, url, title, snippet, published, fetched_at, language, collector, metadata, created_at
		FROM raw_data ORDER BY fetched_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// GetWindowPosts returns all social posts whose raw record was fetched in
// [start, end), joined with the record's sentiment annotation.
func (db *DB) GetWindowPosts(start, end time.Time) ([]WindowPost, error) {
	rows, err := db.conn.Query(
		`SELECT sp.topic, sp.urgency, sp.location, sp.user_followers, sp.retweet_count, sp.like_count, sp.is_simulated,
			json_extract(COALESCE(rd.metadata, '{}'), '$.`+MetaSentimentScore+`'),
			json_extract(COALESCE(rd.metadata, '{}'), '$.`+MetaSentimentConfidence+`'),
			rd.fetched_at
		FROM social_posts sp
		JOIN raw_data rd ON rd.id = sp.raw_data_id
		WHERE rd.fetched_at >= ? AND rd.fetched_at < ?
		ORDER BY rd.fetched_at`,
		FormatTime(start), FormatTime(end),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []WindowPost
	for rows.Next() {
		var p WindowPost
		var simulated int
		if err := rows.Scan(&p.Topic, &p.Urgency, &p.Location, &p.UserFollowers,
			&p.RetweetCount, &p.LikeCount, &simulated,
			&p.SentimentScore, &p.SentimentConfidence, &p.FetchedAt); err != nil {
			return nil, err
		}
		p.IsSimulated = simulated != 0
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetWindowTopics returns the distinct topics seen in [start, end).
func (db *DB) GetWindowTopics(start, end time.Time) ([]string, error) {
	rows, err := db.conn.Query(
		`SELECT DISTINCT sp.topic
		FROM social_posts sp
		JOIN raw_data rd ON rd.id = sp.raw_data_id
		WHERE rd.fetched_at >= ? AND rd.fetched_at < ?
		ORDER BY sp.topic`,
		FormatTime(start), FormatTime(end),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// GetSourceBreakdown counts records fetched in [start, end) per source.
func (db *DB) GetSourceBreakdown(start, end time.Time) (map[string]int64, error) {
	rows, err := db.conn.Query(
		`SELECT source, COUNT(*) FROM raw_data
		WHERE fetched_at >= ? AND fetched_at < ?
		GROUP BY source`,
		FormatTime(start), FormatTime(end),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	breakdown := map[string]int64{}
	for rows.Next() {
		var source string
		var count int64
		if err := rows.Scan(&source, &count); err != nil {
			return nil, err
		}
		breakdown[source] = count
	}
	return breakdown, rows.Err()
}

func scanRecords(rows *sql.Rows) ([]RawRecord, error) {
	var records []RawRecord
	for rows.Next() {
		var r RawRecord
		var metaJSON *string
		if err := rows.Scan(&r.ID, &r.Source, &r.SourceType, &r.URL, &r.Title,
			&r.Snippet, &r.Published, &r.FetchedAt, &r.Language, &r.Collector,
			&metaJSON, &r.CreatedAt); err != nil {
			return nil, err
		}
		if metaJSON != nil {
			if err := json.Unmarshal([]byte(*metaJSON), &r.Metadata); err != nil {
				r.Metadata = nil
			}
		}
		r.SentimentScore = metaFloat(r.Metadata, MetaSentimentScore)
		r.SentimentConfidence = metaFloat(r.Metadata, MetaSentimentConfidence)
		records = append(records, r)
	}
	return records, rows.Err()
}

func metaFloat(meta map[string]any, key string) *float64 {
	if meta == nil {
		return nil
	}
	if v, ok := meta[key]; ok {
		if f, ok := v.(float64); ok {
			return &f
		}
	}
	return nil
}

func marshalMeta(meta map[string]any) (*string, error) {
	if meta == nil {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
