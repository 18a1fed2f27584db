package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "Adele - Hello.lrc")

	if Exists(path) {
		t.Fatal("file should not exist yet")
	}
	if err := WriteFileAtomic(path, []byte("[00:01.00]first"), 0644); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("[00:01.00]second"), 0644); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "[00:01.00]second" {
		t.Errorf("unexpected content %q", data)
	}

	info, err := os.Stat(path)
	if err != nil || info.Mode().Perm() != 0644 {
		t.Errorf("unexpected mode %v %v", info, err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestWriteFileAtomicBadDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(filepath.Join(blocker, "out.lrc"), []byte("x"), 0644); err == nil {
		t.Error("expected error when parent is a file")
	}
}
