package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestFile is a helper that inserts a file and returns it with ID set.
func insertTestFile(t *testing.T, s *Store, path string) *File {
	t.Helper()
	f := &File{Path: path, Hash: "abc123", LastScanned: time.Now().Truncate(time.Second)}
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)
	return f
}

func TestNewStore_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := NewStore("/nonexistent/dir/cache.db")
	require.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
	require.NoError(t, s.Migrate())
}

func TestFileByPath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	got, err := s.FileByPath("/missing.js")
	require.NoError(t, err)
	assert.Nil(t, got)

	f := insertTestFile(t, s, "/src/app.js")
	got, err = s.FileByPath("/src/app.js")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, "abc123", got.Hash)
	assert.True(t, f.LastScanned.Equal(got.LastScanned))
}

func TestInsertFile_DuplicatePath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "/a.js")
	_, err := s.InsertFile(&File{Path: "/a.js", Hash: "other"})
	require.Error(t, err)
}

func TestUpdateFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/a.js")

	f.Hash = "def456"
	require.NoError(t, s.UpdateFile(f))

	got, err := s.FileByPath("/a.js")
	require.NoError(t, err)
	assert.Equal(t, "def456", got.Hash)
}

func TestCommitBatch_StoresResultAndDiagnostics(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/a.js")

	b := NewBatch()
	b.AddResult(Result{FileID: f.ID, FieldPath: "user.email", Mode: "markers", Matched: true, Line: 12, Marker: "gql"})
	b.AddDiagnostic(Diagnostic{FileID: f.ID, FieldPath: "user.email", Mode: "markers", Line: 4, Message: "input:1: Expected Name"})
	require.NoError(t, s.CommitBatch(b))

	r, err := s.ResultFor(f.ID, "user.email", "markers")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.Matched)
	assert.Equal(t, 12, r.Line)
	assert.Equal(t, "gql", r.Marker)

	diags, err := s.DiagnosticsFor(f.ID, "user.email", "markers")
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, 4, diags[0].Line)
	assert.Equal(t, "input:1: Expected Name", diags[0].Message)
}

func TestResultFor_KeyedByPathAndMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/a.js")

	b := NewBatch()
	b.AddResult(Result{FileID: f.ID, FieldPath: "user.email", Mode: "markers", Matched: true, Line: 1, Marker: "gql"})
	require.NoError(t, s.CommitBatch(b))

	for _, key := range [][2]string{{"user.name", "markers"}, {"user.email", "syntax"}} {
		r, err := s.ResultFor(f.ID, key[0], key[1])
		require.NoError(t, err)
		assert.Nil(t, r, "key %v", key)
	}
}

func TestCommitBatch_ReplacesPreviousResult(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/a.js")

	first := NewBatch()
	first.AddResult(Result{FileID: f.ID, FieldPath: "user", Mode: "markers", Matched: false})
	first.AddDiagnostic(Diagnostic{FileID: f.ID, FieldPath: "user", Mode: "markers", Line: 1, Message: "old"})
	require.NoError(t, s.CommitBatch(first))

	second := NewBatch()
	second.AddResult(Result{FileID: f.ID, FieldPath: "user", Mode: "markers", Matched: true, Line: 9, Marker: "graphql"})
	require.NoError(t, s.CommitBatch(second))

	r, err := s.ResultFor(f.ID, "user", "markers")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.True(t, r.Matched)
	assert.Equal(t, 9, r.Line)

	diags, err := s.DiagnosticsFor(f.ID, "user", "markers")
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestDeleteFileData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	a := insertTestFile(t, s, "/a.js")
	other := insertTestFile(t, s, "/b.js")

	b := NewBatch()
	b.AddResult(Result{FileID: a.ID, FieldPath: "user", Mode: "markers", Matched: true})
	b.AddDiagnostic(Diagnostic{FileID: a.ID, FieldPath: "user", Mode: "markers", Message: "bad"})
	b.AddResult(Result{FileID: other.ID, FieldPath: "user", Mode: "markers", Matched: true})
	require.NoError(t, s.CommitBatch(b))

	require.NoError(t, s.DeleteFileData(a.ID))

	r, err := s.ResultFor(a.ID, "user", "markers")
	require.NoError(t, err)
	assert.Nil(t, r)
	diags, err := s.DiagnosticsFor(a.ID, "user", "markers")
	require.NoError(t, err)
	assert.Empty(t, diags)

	r, err = s.ResultFor(other.ID, "user", "markers")
	require.NoError(t, err)
	assert.NotNil(t, r, "other files keep their results")

	f, err := s.FileByPath("/a.js")
	require.NoError(t, err)
	assert.NotNil(t, f, "file row is kept")
}

func TestContentHash(t *testing.T) {
	t.Parallel()
	a := ContentHash([]byte("gql`{ a }`"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, ContentHash([]byte("gql`{ a }`")))
	assert.NotEqual(t, a, ContentHash([]byte("gql`{ b }`")))
}
