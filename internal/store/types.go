package store

import "time"

type File struct {
	ID          int64
	Path        string
	Hash        string
	LastScanned time.Time
}

// Result is the cached outcome of searching one file for one field path.
type Result struct {
	FileID    int64
	FieldPath string
	Mode      string
	Matched   bool
	Line      int
	Marker    string
}

// Diagnostic records an unparsable snippet seen while producing a Result.
type Diagnostic struct {
	FileID    int64
	FieldPath string
	Mode      string
	Line      int
	Message   string
}
