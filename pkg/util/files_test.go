package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTempFile(t *testing.T) {
	f, err := TempFile(t.TempDir(), "clip-", ".wav")
	if err != nil {
		t.Fatalf("TempFile: %v", err)
	}
	defer f.Close()

	name := filepath.Base(f.Name())
	if !strings.HasPrefix(name, "clip-") || !strings.HasSuffix(name, ".wav") {
		t.Errorf("unexpected temp file name %q", name)
	}
}

func TestFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	if err := os.WriteFile(path, make([]byte, 42), 0644); err != nil {
		t.Fatal(err)
	}
	if got := FileSize(path); got != 42 {
		t.Errorf("FileSize = %d, want 42", got)
	}
	if got := FileSize(filepath.Join(t.TempDir(), "missing")); got != 0 {
		t.Errorf("FileSize(missing) = %d, want 0", got)
	}
}
