package database

import "database/sql"

// PutBlob stores a named JSON blob, replacing any previous value.
func (db *DB) PutBlob(key, value string) error {
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO state_blobs (key, value) VALUES (?, ?)`,
		key, value,
	)
	return err
}

// GetBlob returns a named JSON blob. The second return reports whether the
// key exists.
func (db *DB) GetBlob(key string) (string, bool, error) {
	row := db.conn.QueryRow(`SELECT value FROM state_blobs WHERE key = ?`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

// DeleteBlob removes a named blob. Deleting an absent key is a no-op.
func (db *DB) DeleteBlob(key string) error {
	_, err := db.conn.Exec(`DELETE FROM state_blobs WHERE key = ?`, key)
	return err
}
