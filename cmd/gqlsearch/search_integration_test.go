package main_test

import (
	"database/sql"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles the gqlsearch binary and returns the path.
// The binary is placed in t.TempDir() so it's cleaned up automatically.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "gqlsearch"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "gqlsearch")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot returns the root of the project by walking up from the test
// file's directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

// createFixture creates a small frontend tree: two files select
// user.profile.email, one selects a sibling field, one has a broken query.
func createFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"src/Profile.tsx": "export const Q = gql`\n  query { user { profile { email } } }\n`;\n",
		"src/admin.js":    "const A = graphql(`{ user { ... on Admin { profile { email } } } }`);\n",
		"src/Settings.ts": "export const S = gql`{ user { profile { name } } }`;\n",
		"src/broken.js":   "const B = gql`{ user { `;\n",
		"README.md":       "Uses GraphQL.\n",
	}
	for name, src := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	return dir
}

func runCLI(t *testing.T, bin, dir string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	var out, errOut strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err = cmd.Run()
	return out.String(), errOut.String(), err
}

func TestSearch_TextOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)

	stdout, stderr, err := runCLI(t, bin, fixture, "user.profile.email")
	require.NoError(t, err, "search failed: %s", stderr)
	assert.Equal(t, "src/Profile.tsx\nsrc/admin.js\n", stdout)
	assert.Empty(t, stderr, "parse failures are only reported with -v")
}

func TestSearch_VerboseReportsDiagnostics(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)

	stdout, stderr, err := runCLI(t, bin, fixture, "-v", "user.profile.email", ".")
	require.NoError(t, err, "search failed: %s", stderr)
	assert.Equal(t, "src/Profile.tsx\nsrc/admin.js\n", stdout, "verbose does not change match output")
	assert.Contains(t, stderr, "failed to parse query")
	assert.Contains(t, stderr, "src/broken.js")
}

func TestSearch_JSONOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)

	stdout, stderr, err := runCLI(t, bin, fixture, "--format", "json", "--no-parallel", "user.profile.email")
	require.NoError(t, err, "search failed: %s", stderr)

	var result struct {
		Command   string `json:"command"`
		FieldPath string `json:"field_path"`
		Results   []struct {
			File   string `json:"file"`
			Line   int    `json:"line"`
			Marker string `json:"marker"`
		} `json:"results"`
		Diagnostics []struct {
			File string `json:"file"`
		} `json:"diagnostics"`
		FilesScanned int `json:"files_scanned"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, "search", result.Command)
	assert.Equal(t, "user.profile.email", result.FieldPath)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "src/Profile.tsx", result.Results[0].File)
	assert.Equal(t, 1, result.Results[0].Line)
	assert.Equal(t, "graphql", result.Results[1].Marker)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "src/broken.js", result.Diagnostics[0].File)
	assert.Equal(t, 5, result.FilesScanned)
}

func TestSearch_InvalidPath(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)

	for _, path := range []string{"", "user..email", ".user"} {
		stdout, stderr, err := runCLI(t, bin, fixture, path)
		require.Error(t, err, "path %q", path)
		assert.Empty(t, stdout)
		assert.Contains(t, stderr, "invalid field path")
	}
}

func TestSearch_MissingArgument(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)

	_, stderr, err := runCLI(t, bin, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, stderr, "Error:")
}

func TestSearch_ConfigFileAndIgnoreFlag(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(fixture, ".gqlsearch.yml"),
		[]byte("include:\n  - \"**/*.js\"\n"), 0o644))

	stdout, stderr, err := runCLI(t, bin, fixture, "user.profile.email")
	require.NoError(t, err, "search failed: %s", stderr)
	assert.Equal(t, "src/admin.js\n", stdout)

	stdout, stderr, err = runCLI(t, bin, fixture, "--ignore", "src/admin.js", "user.profile.email")
	require.NoError(t, err, "search failed: %s", stderr)
	assert.Empty(t, stdout)
}

func TestSearch_CacheReused(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bin := buildBinary(t)
	fixture := createFixture(t)
	require.NoError(t, os.Mkdir(filepath.Join(fixture, ".git"), 0o755))

	args := []string{"--format", "json", "--cache", ".gqlsearch/cache.db", "user.profile.email"}
	_, stderr, err := runCLI(t, bin, fixture, args...)
	require.NoError(t, err, "first search failed: %s", stderr)

	dbPath := filepath.Join(fixture, ".gqlsearch", "cache.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()
	var files int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM files").Scan(&files))
	assert.Equal(t, 5, files, "the cache database itself is not searched")

	stdout, stderr, err := runCLI(t, bin, fixture, args...)
	require.NoError(t, err, "second search failed: %s", stderr)
	var result struct {
		CacheHits int `json:"cache_hits"`
		Results   []struct {
			File string `json:"file"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, 5, result.CacheHits)
	assert.Len(t, result.Results, 2)
}
