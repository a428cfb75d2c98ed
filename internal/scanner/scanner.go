package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const sqlExtension = ".sql"

// skipDirs holds VCS metadata and third-party dependency trees. Build
// output directories are scanned like any other.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
}

// Scan walks root and splits every .sql file into statements.
// Unreadable files are recorded in ScanResult.Errors and skipped.
// Only an unreadable root aborts the scan.
func Scan(root string, opts Options) (ScanResult, error) {
	files, result, err := collectFiles(root, opts)
	if err != nil {
		return result, err
	}

	for _, f := range files {
		stmts, err := scanFile(f.abs, f.rel)
		if err != nil {
			result.addError(f.rel, err)
			continue
		}
		result.Statements = append(result.Statements, stmts...)
		result.FilesScanned++
	}

	return result, nil
}

type sqlFile struct {
	abs string
	rel string
}

// collectFiles lists .sql files under root in lexical order.
func collectFiles(root string, opts Options) ([]sqlFile, ScanResult, error) {
	result := ScanResult{Root: root}

	info, err := os.Stat(root)
	if err != nil {
		return nil, result, fmt.Errorf("walk %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, result, fmt.Errorf("walk %s: not a directory", root)
	}

	var files []sqlFile
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		relPath := relative(root, p)
		if walkErr != nil {
			if p == root {
				return walkErr
			}
			result.addError(relPath, walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if p != root && (skipDirs[d.Name()] || excluded(opts.Exclude, relPath)) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.EqualFold(filepath.Ext(p), sqlExtension) || excluded(opts.Exclude, relPath) {
			result.FilesSkipped++
			return nil
		}

		files = append(files, sqlFile{abs: p, rel: relPath})
		return nil
	})
	if err != nil {
		return nil, result, fmt.Errorf("walk %s: %w", root, err)
	}

	return files, result, nil
}

func scanFile(absPath, relPath string) ([]Statement, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	return SplitStatements(relPath, string(data)), nil
}

func (r *ScanResult) addError(relPath string, err error) {
	r.Errors = append(r.Errors, &SourceReadError{Path: relPath, Err: err})
	r.FilesFailed++
}

func relative(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

// excluded reports whether relPath or its base name matches any pattern.
func excluded(patterns []string, relPath string) bool {
	base := path.Base(relPath)
	for _, pat := range patterns {
		if ok, _ := path.Match(pat, relPath); ok {
			return true
		}
		if ok, _ := path.Match(pat, base); ok {
			return true
		}
	}
	return false
}
