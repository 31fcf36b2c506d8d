package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomicCreatesParents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "index.json")
	if err := WriteFileAtomic(path, []byte(`{"ok":true}`), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Fatalf("unexpected content: %s", data)
	}
	// no leftover temp files
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 entry, got %d", len(entries))
	}
}

func TestAppendAtomicAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "migrations", "1", "migrationLog.jsonl")
	if err := AppendAtomic(path, []byte("line1\n")); err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	if err := AppendAtomic(path, []byte("line2\n")); err != nil {
		t.Fatalf("second append failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "line1\nline2\n" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "index.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "sub", "nested.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(t.TempDir(), "copy")
	if err := CopyTree(src, dst); err != nil {
		t.Fatalf("CopyTree failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dst, "sub", "nested.txt"))
	if err != nil {
		t.Fatalf("expected nested file to be copied: %v", err)
	}
	if string(data) != "hi" {
		t.Fatalf("unexpected nested content: %q", data)
	}
}

func TestStripExtension(t *testing.T) {
	cases := map[string]string{
		"index.adoc":      "index",
		"report.lp.hbs":    "report.lp",
		"noext":            "noext",
		"calculation.lp":   "calculation",
	}
	for in, want := range cases {
		if got := StripExtension(in); got != want {
			t.Errorf("StripExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	got, err := ExpandTilde("~/foo")
	if err != nil {
		t.Fatalf("ExpandTilde failed: %v", err)
	}
	if got != filepath.Join(home, "foo") {
		t.Fatalf("got %q, want %q", got, filepath.Join(home, "foo"))
	}
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("12"), 0o644); err != nil {
		t.Fatal(err)
	}
	size, err := DirSize(dir)
	if err != nil {
		t.Fatalf("DirSize failed: %v", err)
	}
	if size != 7 {
		t.Fatalf("got %d, want 7", size)
	}
}
