package scanner

import "fmt"

// Statement is a single SQL statement read from a source file.
type Statement struct {
	Source string `json:"file"`
	Line   int    `json:"line"`
	Text   string `json:"query"`
}

// SourceReadError is a file that could not be read. Its statements are
// omitted from the scan.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// ScanResult holds all statements found under a root directory.
type ScanResult struct {
	Root         string             `json:"root"`
	Statements   []Statement        `json:"statements"`
	FilesScanned int                `json:"filesScanned"`
	FilesSkipped int                `json:"filesSkipped,omitempty"`
	FilesFailed  int                `json:"filesFailed,omitempty"`
	Errors       []*SourceReadError `json:"-"`
}

// Options controls which files are scanned.
type Options struct {
	// Exclude holds glob patterns matched against the slash-separated
	// relative path and the base name of every file and directory.
	Exclude []string
}
