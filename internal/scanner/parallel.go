package scanner

import (
	"runtime"
	"sync"
)

// fileResult holds the scan result for a single file.
type fileResult struct {
	stmts []Statement
	err   error
}

// ScanParallel walks root and reads files using N goroutines.
// workers=0 means runtime.NumCPU(). workers=1 is sequential.
// Statements keep the same order Scan would produce.
func ScanParallel(root string, opts Options, workers int) (ScanResult, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers == 1 {
		return Scan(root, opts)
	}

	// Phase 1: collect file paths
	files, result, err := collectFiles(root, opts)
	if err != nil {
		return result, err
	}

	// Phase 2: fan out to workers
	idxCh := make(chan int, len(files))
	for i := range files {
		idxCh <- i
	}
	close(idxCh)

	results := make([]fileResult, len(files))
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				stmts, err := scanFile(files[i].abs, files[i].rel)
				results[i] = fileResult{stmts: stmts, err: err}
			}
		}()
	}

	wg.Wait()

	// Phase 3: merge results in walk order
	for i, fr := range results {
		if fr.err != nil {
			result.addError(files[i].rel, fr.err)
			continue
		}
		result.Statements = append(result.Statements, fr.stmts...)
		result.FilesScanned++
	}

	return result, nil
}
