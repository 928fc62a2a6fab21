package database

// ClaimCycle attempts to claim an aggregation cycle for a window key.
// The insert-if-absent acts as a compare-and-set: exactly one owner wins a
// given window, so concurrent aggregators never double-produce signals.
// Returns true if this owner holds the claim.
func (db *DB) ClaimCycle(windowKey, owner string) (bool, error) {
	if _, err := db.conn.Exec(
		"INSERT OR IGNORE INTO cycle_claims (window_key, owner) VALUES (?, ?)",
		windowKey, owner,
	); err != nil {
		return false, err
	}

	var holder string
	if err := db.conn.QueryRow(
		"SELECT owner FROM cycle_claims WHERE window_key = ?", windowKey,
	).Scan(&holder); err != nil {
		return false, err
	}
	return holder == owner, nil
}

// ReleaseCycle drops a claim, normally after the owning cycle completes a
// window so a later re-run can reprocess it.
func (db *DB) ReleaseCycle(windowKey string) error {
	_, err := db.conn.Exec("DELETE FROM cycle_claims WHERE window_key = ?", windowKey)
	return err
}
