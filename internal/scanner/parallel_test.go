package scanner

import (
	"fmt"
	"reflect"
	"testing"
)

func TestScanParallel_SameAsSequential(t *testing.T) {
	dir := t.TempDir()
	for i := range 20 {
		writeFile(t, dir, fmt.Sprintf("dir%d/q%02d.sql", i%3, i),
			fmt.Sprintf("SELECT %d;\nDELETE FROM t%d;", i, i))
	}

	seq, err := Scan(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}

	par, err := ScanParallel(dir, Options{}, 4)
	if err != nil {
		t.Fatal(err)
	}

	if seq.FilesScanned != par.FilesScanned {
		t.Fatalf("files: seq=%d par=%d", seq.FilesScanned, par.FilesScanned)
	}
	if !reflect.DeepEqual(seq.Statements, par.Statements) {
		t.Fatal("parallel scan must preserve sequential statement order")
	}
	if len(par.Statements) != 40 {
		t.Errorf("statements = %d, want 40", len(par.Statements))
	}
}

func TestScanParallel_DefaultWorkers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.sql", "SELECT 1;")

	result, err := ScanParallel(dir, Options{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Statements) != 1 {
		t.Errorf("statements = %d, want 1", len(result.Statements))
	}
}

func TestScanParallel_Sequential(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.sql", "SELECT 1; SELECT 2;")

	result, err := ScanParallel(dir, Options{}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Statements) != 2 {
		t.Errorf("statements = %d, want 2", len(result.Statements))
	}
}

func TestScanParallel_MissingRoot(t *testing.T) {
	if _, err := ScanParallel(t.TempDir()+"/missing", Options{}, 4); err == nil {
		t.Fatal("expected error")
	}
}
