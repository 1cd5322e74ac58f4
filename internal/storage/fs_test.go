package storage

import (
	"io"
	"strings"
	"testing"
)

func TestArchiveReport(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key, err := ArchiveReport(fs, "../c1", "grade_report_2024-03-01.csv", []byte("a,b\n"))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if key != "reports/c1/grade_report_2024-03-01.csv" {
		t.Fatalf("key %q", key)
	}
	rc, err := fs.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "a,b\n" {
		t.Fatalf("content %q", b)
	}
	u, err := fs.SignedURL(key)
	if err != nil || !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, key) {
		t.Fatalf("url %q %v", u, err)
	}
}

func TestFSStoreKeepsKeysInsideBase(t *testing.T) {
	fs, _ := NewFSStore(t.TempDir())
	if _, err := fs.Put("../../escape.txt", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	rc, err := fs.Get("escape.txt")
	if err != nil {
		t.Fatalf("expected file under base: %v", err)
	}
	rc.Close()
	if _, err := fs.Put("", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for empty key")
	}
}
