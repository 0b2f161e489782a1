package main

import "github.com/wrhall/graphql-search"

// CLIResult is the top-level JSON envelope for a search.
type CLIResult struct {
	Command      string          `json:"command"`
	FieldPath    string          `json:"field_path,omitempty"`
	Results      []CLIMatch      `json:"results"`
	Diagnostics  []CLIDiagnostic `json:"diagnostics"`
	FilesScanned int             `json:"files_scanned"`
	CacheHits    int             `json:"cache_hits"`
	Error        string          `json:"error,omitempty"`
}

// CLIMatch is a JSON-friendly match: the file and the first snippet in it
// that selects the field path.
type CLIMatch struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Marker string `json:"marker"`
}

// CLIDiagnostic is a JSON-friendly parse failure.
type CLIDiagnostic struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func reportToCLI(r *gqlsearch.Report) CLIResult {
	result := CLIResult{
		Command:      commandName,
		FieldPath:    r.FieldPath,
		Results:      make([]CLIMatch, 0, len(r.Matches)),
		Diagnostics:  make([]CLIDiagnostic, 0, len(r.Diagnostics)),
		FilesScanned: r.FilesScanned,
		CacheHits:    r.CacheHits,
	}
	for _, m := range r.Matches {
		result.Results = append(result.Results, CLIMatch{File: m.File, Line: m.Line, Marker: m.Marker})
	}
	for _, d := range r.Diagnostics {
		result.Diagnostics = append(result.Diagnostics, CLIDiagnostic{File: d.File, Line: d.Line, Message: d.Message})
	}
	return result
}
