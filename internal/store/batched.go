package store

import "sync"

// Batch buffers the rows a search worker produces for one file so that the
// single writer can commit them later with CommitBatch. Workers never touch
// SQLite directly.
type Batch struct {
	mu sync.Mutex

	Results     []Result
	Diagnostics []Diagnostic
}

// NewBatch creates an empty Batch.
func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) AddResult(r Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Results = append(b.Results, r)
}

func (b *Batch) AddDiagnostic(d Diagnostic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Diagnostics = append(b.Diagnostics, d)
}
