package database

import (
	"database/sql"
	"encoding/json"
	"time"
)

// InsertInsight stores a generated insight and returns its ID.
func (db *DB) InsertInsight(ins *Insight) (int64, error) {
	areasJSON, err := json.Marshal(ins.AffectedAreas)
	if err != nil {
		return 0, err
	}
	supportJSON, err := json.Marshal(ins.SupportingData)
	if err != nil {
		return 0, err
	}

	result, err := db.conn.Exec(
		`INSERT INTO insights (insight_type, title, description, severity, affected_areas, recommendation, supporting_data, valid_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ins.InsightType, ins.Title, ins.Description, ins.Severity,
		string(areasJSON), ins.Recommendation, string(supportJSON), ins.ValidUntil,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetActiveInsights returns insights whose validity window has not passed,
// most severe first. Expiry is a read-time filter, never a deletion.
func (db *DB) GetActiveInsights(now time.Time) ([]Insight, error) {
	rows, err := db.conn.Query(
		`SELECT id, insight_type, title, description, severity, affected_areas, recommendation, supporting_data, created_at, valid_until
		FROM insights WHERE valid_until > ?
		ORDER BY CASE severity
			WHEN 'critical' THEN 0
			WHEN 'high' THEN 1
			WHEN 'medium' THEN 2
			ELSE 3
		END, created_at DESC`,
		FormatTime(now),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInsights(rows)
}

// GetAllInsights returns every insight, newest first.
func (db *DB) GetAllInsights() ([]Insight, error) {
	rows, err := db.conn.Query(
		`SELECT id, insight_type, title, description, severity, affected_areas, recommendation, supporting_data, created_at, valid_until
		FROM insights ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInsights(rows)
}

func scanInsights(rows *sql.Rows) ([]Insight, error) {
	var insights []Insight
	for rows.Next() {
		var ins Insight
		var areasJSON, supportJSON *string
		if err := rows.Scan(&ins.ID, &ins.InsightType, &ins.Title, &ins.Description,
			&ins.Severity, &areasJSON, &ins.Recommendation, &supportJSON,
			&ins.CreatedAt, &ins.ValidUntil); err != nil {
			return nil, err
		}
		if areasJSON != nil {
			if err := json.Unmarshal([]byte(*areasJSON), &ins.AffectedAreas); err != nil {
				ins.AffectedAreas = nil
			}
		}
		if supportJSON != nil {
			if err := json.Unmarshal([]byte(*supportJSON), &ins.SupportingData); err != nil {
				ins.SupportingData = nil
			}
		}
		insights = append(insights, ins)
	}
	return insights, rows.Err()
}
