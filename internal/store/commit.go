package store

import "fmt"

// CommitBatch writes all buffered rows in a single transaction. A result
// replaces any stored result for the same (file, field path, mode), and the
// diagnostics stored for that key are replaced with the batch's.
func (s *Store) CommitBatch(batch *Batch) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	for _, r := range batch.Results {
		if _, err := tx.Exec(
			"DELETE FROM diagnostics WHERE file_id = ? AND field_path = ? AND mode = ?",
			r.FileID, r.FieldPath, r.Mode,
		); err != nil {
			return fmt.Errorf("commit batch: clear diagnostics: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO results (file_id, field_path, mode, matched, line, marker)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (file_id, field_path, mode) DO UPDATE SET
			   matched = excluded.matched, line = excluded.line, marker = excluded.marker`,
			r.FileID, r.FieldPath, r.Mode, r.Matched, r.Line, r.Marker,
		); err != nil {
			return fmt.Errorf("commit batch: result for file %d: %w", r.FileID, err)
		}
	}

	for _, d := range batch.Diagnostics {
		if _, err := tx.Exec(
			"INSERT INTO diagnostics (file_id, field_path, mode, line, message) VALUES (?, ?, ?, ?, ?)",
			d.FileID, d.FieldPath, d.Mode, d.Line, d.Message,
		); err != nil {
			return fmt.Errorf("commit batch: diagnostic: %w", err)
		}
	}

	return tx.Commit()
}
