package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// InsertSignal stores a new signal and returns its ID.
func (db *DB) InsertSignal(sig *Signal) (int64, error) {
	metaJSON, err := marshalMeta(sig.Metadata)
	if err != nil {
		return 0, err
	}

	result, err := db.conn.Exec(
		`INSERT INTO signals (signal_type, topic, description, urgency, confidence_score, source_count, first_seen, last_seen, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.SignalType, sig.Topic, sig.Description, sig.Urgency,
		sig.ConfidenceScore, sig.SourceCount, sig.FirstSeen, sig.LastSeen, metaJSON,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetOpenSignal returns the most recent signal for a topic whose last_seen
// is at or after openSince. Returns nil when no signal is open.
func (db *DB) GetOpenSignal(topic string, openSince time.Time) (*Signal, error) {
	rows, err := db.conn.Query(
		`SELECT id, signal_type, topic, description, urgency, confidence_score, source_count, first_seen, last_seen, metadata, created_at
		FROM signals WHERE topic = ? AND last_seen >= ?
		ORDER BY last_seen DESC LIMIT 1`,
		topic, FormatTime(openSince),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	signals, err := scanSignals(rows)
	if err != nil {
		return nil, err
	}
	if len(signals) == 0 {
		return nil, nil
	}
	return &signals[0], nil
}

// MergeSignal extends an open signal: last_seen advances, source_count
// grows, and description/confidence reflect the latest evaluation.
func (db *DB) MergeSignal(id int64, lastSeen time.Time, addSources int64, confidence float64, description string) error {
	_, err := db.conn.Exec(
		`UPDATE signals
		SET last_seen = ?, source_count = source_count + ?, confidence_score = ?, description = ?
		WHERE id = ?`,
		FormatTime(lastSeen), addSources, confidence, description, id,
	)
	return err
}

// GetSignalByID returns a single signal by ID.
func (db *DB) GetSignalByID(id int64) (*Signal, error) {
	rows, err := db.conn.Query(
		`SELECT id, signal_type, topic, description, urgency, confidence_score, source_count, first_seen, last_seen, metadata, created_at
		FROM signals WHERE id = ?`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	signals, err := scanSignals(rows)
	if err != nil {
		return nil, err
	}
	if len(signals) == 0 {
		return nil, nil
	}
	return &signals[0], nil
}

// GetSignalsByIDs returns the signals matching the given IDs.
func (db *DB) GetSignalsByIDs(ids []int64) ([]Signal, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.conn.Query(
		fmt.Sprintf(`SELECT id, signal_type, topic, description, urgency, confidence_score, source_count, first_seen, last_seen, metadata, created_at
		FROM signals WHERE id IN (%s) ORDER BY id`, placeholders), args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSignals(rows)
}

// GetSignalsSince returns all signals with last_seen at or after the cutoff,
// most recent first.
func (db *DB) GetSignalsSince(cutoff time.Time) ([]Signal, error) {
	rows, err := db.conn.Query(
		`SELECT id, signal_type, topic, description, urgency, confidence_score, source_count, first_seen, last_seen, metadata, created_at
		FROM signals WHERE last_seen >= ? ORDER BY last_seen DESC`,
		FormatTime(cutoff),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSignals(rows)
}

func scanSignals(rows *sql.Rows) ([]Signal, error) {
	var signals []Signal
	for rows.Next() {
		var s Signal
		var metaJSON *string
		if err := rows.Scan(&s.ID, &s.SignalType, &s.Topic, &s.Description,
			&s.Urgency, &s.ConfidenceScore, &s.SourceCount, &s.FirstSeen,
			&s.LastSeen, &metaJSON, &s.CreatedAt); err != nil {
			return nil, err
		}
		if metaJSON != nil {
			if err := json.Unmarshal([]byte(*metaJSON), &s.Metadata); err != nil {
				s.Metadata = nil
			}
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}
