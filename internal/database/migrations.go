package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS raw_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,
    source_type TEXT NOT NULL CHECK(source_type IN ('news', 'social')),
    url TEXT,
    title TEXT NOT NULL,
    snippet TEXT,
    published TEXT,
    fetched_at TEXT NOT NULL,
    language TEXT,
    collector TEXT NOT NULL,
    metadata TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS social_posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    raw_data_id INTEGER UNIQUE NOT NULL REFERENCES raw_data(id),
    topic TEXT NOT NULL,
    sentiment TEXT,
    urgency TEXT NOT NULL CHECK(urgency IN ('low', 'medium', 'high', 'critical')),
    location TEXT,
    username TEXT,
    user_followers INTEGER DEFAULT 0,
    retweet_count INTEGER DEFAULT 0,
    like_count INTEGER DEFAULT 0,
    is_simulated INTEGER DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS signals (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    signal_type TEXT NOT NULL,
    topic TEXT NOT NULL,
    description TEXT NOT NULL,
    urgency TEXT NOT NULL CHECK(urgency IN ('low', 'medium', 'high', 'critical')),
    confidence_score REAL NOT NULL,
    source_count INTEGER DEFAULT 0,
    first_seen TEXT NOT NULL,
    last_seen TEXT NOT NULL,
    metadata TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS insights (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    insight_type TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    severity TEXT NOT NULL CHECK(severity IN ('low', 'medium', 'high', 'critical')),
    affected_areas TEXT,
    recommendation TEXT NOT NULL,
    supporting_data TEXT NOT NULL,
    created_at TEXT DEFAULT (datetime('now')),
    valid_until TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS processing_stats (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    batch_id TEXT UNIQUE NOT NULL,
    records_processed INTEGER DEFAULT 0,
    records_failed INTEGER DEFAULT 0,
    processing_time_ms INTEGER DEFAULT 0,
    source_breakdown TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS feature_vectors (
    topic TEXT NOT NULL,
    window_start TEXT NOT NULL,
    window_end TEXT NOT NULL,
    mention_count REAL NOT NULL,
    urgency_score REAL NOT NULL,
    mean_sentiment REAL NOT NULL,
    sentiment_variance REAL NOT NULL,
    mean_retweets REAL NOT NULL,
    max_retweets REAL NOT NULL,
    mean_likes REAL NOT NULL,
    mean_followers REAL NOT NULL,
    location_spread REAL NOT NULL,
    days_active REAL NOT NULL,
    velocity REAL NOT NULL,
    engagement_rate REAL NOT NULL,
    created_at TEXT DEFAULT (datetime('now')),
    PRIMARY KEY (topic, window_start, window_end)
);

CREATE TABLE IF NOT EXISTS cycle_claims (
    window_key TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    claimed_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_raw_data_fetched ON raw_data(fetched_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_raw_data_url ON raw_data(url);
CREATE INDEX IF NOT EXISTS idx_social_posts_topic ON social_posts(topic);
CREATE INDEX IF NOT EXISTS idx_social_posts_raw ON social_posts(raw_data_id);
CREATE INDEX IF NOT EXISTS idx_signals_topic ON signals(topic, last_seen);
CREATE INDEX IF NOT EXISTS idx_insights_valid ON insights(valid_until);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
