package importexport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CyberismoCom/cyberismo-engine/internal/project"
)

func TestExportADocWritesNestedTree(t *testing.T) {
	proj := newFixture(t)
	writeCard(t, proj.Root, "dec_bbb1", "dec_aaa1", "dec/cardTypes/decision", "0|m")
	proj2, err := project.Open(proj.Root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	destDir := t.TempDir()
	count, err := ExportADoc(proj2, destDir, "")
	if err != nil {
		t.Fatalf("ExportADoc: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 exported cards, got %d", count)
	}

	root := filepath.Join(destDir, "dec_aaa1", "index.adoc")
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("expected root card export: %v", err)
	}
	child := filepath.Join(destDir, "dec_aaa1", "dec_bbb1", "index.adoc")
	body, err := os.ReadFile(child)
	if err != nil {
		t.Fatalf("expected child card export nested under parent: %v", err)
	}
	if !strings.Contains(string(body), "Card dec_bbb1") {
		t.Fatalf("expected exported body to contain card title, got %q", body)
	}
}

func TestExportADocFiltersByPattern(t *testing.T) {
	proj := newFixture(t)
	writeCard(t, proj.Root, "dec_bbb1", "dec_aaa1", "dec/cardTypes/decision", "0|m")
	proj2, err := project.Open(proj.Root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	destDir := t.TempDir()
	count, err := ExportADoc(proj2, destDir, "dec_aaa1/*")
	if err != nil {
		t.Fatalf("ExportADoc: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected pattern to match only the child card, got %d", count)
	}
	if _, err := os.Stat(filepath.Join(destDir, "dec_aaa1", "dec_bbb1", "index.adoc")); err != nil {
		t.Fatalf("expected matched child export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(destDir, "dec_aaa1", "index.adoc")); !os.IsNotExist(err) {
		t.Fatalf("expected root card to be excluded by the pattern")
	}
}

func TestEscapeHTMLFallbackEscapesMarkup(t *testing.T) {
	out := escapeHTMLFallback("<Title>", "body & <script>alert(1)</script>")
	if strings.Contains(out, "<script>") {
		t.Fatalf("expected script tag to be escaped, got %q", out)
	}
	if !strings.Contains(out, "&lt;Title&gt;") {
		t.Fatalf("expected title to be escaped, got %q", out)
	}
}
