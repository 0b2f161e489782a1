package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, hash, last_scanned) VALUES (?, ?, ?)",
		f.Path, f.Hash, f.LastScanned,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	err := s.db.QueryRow(
		"SELECT id, path, hash, last_scanned FROM files WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &f.Hash, &f.LastScanned)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// UpdateFile rewrites a file's hash and scan time.
func (s *Store) UpdateFile(f *File) error {
	_, err := s.db.Exec(
		"UPDATE files SET hash = ?, last_scanned = ? WHERE id = ?",
		f.Hash, f.LastScanned, f.ID,
	)
	if err != nil {
		return fmt.Errorf("update file: %w", err)
	}
	return nil
}

// --- Result operations ---

// ResultFor returns the cached result for a file, field path and mode, or
// nil if none is stored.
func (s *Store) ResultFor(fileID int64, fieldPath, mode string) (*Result, error) {
	r := &Result{}
	var marker sql.NullString
	var line sql.NullInt64
	err := s.db.QueryRow(
		`SELECT file_id, field_path, mode, matched, line, marker
		 FROM results WHERE file_id = ? AND field_path = ? AND mode = ?`,
		fileID, fieldPath, mode,
	).Scan(&r.FileID, &r.FieldPath, &r.Mode, &r.Matched, &line, &marker)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("result for file: %w", err)
	}
	r.Line = int(line.Int64)
	r.Marker = marker.String
	return r, nil
}

// DiagnosticsFor returns the diagnostics stored alongside a result, in line
// order.
func (s *Store) DiagnosticsFor(fileID int64, fieldPath, mode string) ([]*Diagnostic, error) {
	rows, err := s.db.Query(
		`SELECT file_id, field_path, mode, line, message FROM diagnostics
		 WHERE file_id = ? AND field_path = ? AND mode = ? ORDER BY line, id`,
		fileID, fieldPath, mode,
	)
	if err != nil {
		return nil, fmt.Errorf("diagnostics for file: %w", err)
	}
	defer rows.Close()
	var diags []*Diagnostic
	for rows.Next() {
		d := &Diagnostic{}
		if err := rows.Scan(&d.FileID, &d.FieldPath, &d.Mode, &d.Line, &d.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}
