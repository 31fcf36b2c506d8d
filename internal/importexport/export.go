package importexport

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/fsutil"
	"github.com/CyberismoCom/cyberismo-engine/internal/project"
)

// asciidoctorBinary is the external tool HTML export shells out to, the
// same os/exec-wrapping idiom internal/calc uses for `clingo` and `dot`.
var asciidoctorBinary = "asciidoctor"

// exportPath returns the slash-separated path of card beneath the export
// root, mirroring the card tree by nesting child directories under their
// parent's directory the same way cardRoot lays cards out on disk, so a
// reader can navigate an export the same way they'd navigate the project.
func exportPath(cards map[string]*cardmodel.Card, key string) string {
	var segs []string
	for k := key; k != cardmodel.RootKey && k != ""; {
		c, ok := cards[k]
		if !ok {
			break
		}
		segs = append([]string{c.Key}, segs...)
		k = c.Parent
	}
	return strings.Join(segs, "/")
}

// matchesFilter reports whether path should be included, given an optional
// doublestar glob pattern; an empty pattern includes everything.
func matchesFilter(pattern, path string) (bool, error) {
	if pattern == "" {
		return true, nil
	}
	ok, err := doublestar.Match(pattern, path)
	if err != nil {
		return false, engineerr.Validation("importexport.matchesFilter", pattern, err)
	}
	return ok, nil
}

// ExportADoc writes one "<destDir>/<exported path>/index.adoc" per project
// card whose export path matches pattern (empty pattern exports every
// card), preserving the card tree's nesting (spec §2 "AsciiDoc ... tree
// export").
func ExportADoc(proj *project.Project, destDir, pattern string) (int, error) {
	cards := byKey(proj.Cards.GetCards(cardmodel.ProjectLocation))
	count := 0
	for _, key := range sortedKeys(cards) {
		card := cards[key]
		rel := exportPath(cards, key)
		ok, err := matchesFilter(pattern, rel)
		if err != nil {
			return count, err
		}
		if !ok {
			continue
		}
		dst := filepath.Join(destDir, rel, "index.adoc")
		if err := fsutil.WriteFileAtomic(dst, []byte(adocDocument(card)), 0o644); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// ExportHTML renders each matching card's AsciiDoc body through the
// external `asciidoctor` binary (no Go AsciiDoc renderer exists anywhere in
// the retrieved dependency pack) into "<destDir>/<exported path>/index.html"
// (spec §2 "... /HTML tree export"). A card whose render fails (e.g. the
// binary is absent) is skipped with its error collected rather than
// aborting the whole export, mirroring Validate's soft-failure treatment of
// solver errors.
func ExportHTML(ctx context.Context, proj *project.Project, destDir, pattern string) (int, []error) {
	cards := byKey(proj.Cards.GetCards(cardmodel.ProjectLocation))
	count := 0
	var errs []error
	for _, key := range sortedKeys(cards) {
		card := cards[key]
		rel := exportPath(cards, key)
		ok, err := matchesFilter(pattern, rel)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		html, err := renderADocToHTML(ctx, adocDocument(card))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		dst := filepath.Join(destDir, rel, "index.html")
		if err := fsutil.WriteFileAtomic(dst, []byte(html), 0o644); err != nil {
			errs = append(errs, err)
			continue
		}
		count++
	}
	return count, errs
}

func adocDocument(card *cardmodel.Card) string {
	var b strings.Builder
	fmt.Fprintf(&b, "= %s\n\n", card.Metadata.Title)
	b.WriteString(card.Content)
	return b.String()
}

func renderADocToHTML(ctx context.Context, adoc string) (string, error) {
	cmd := exec.CommandContext(ctx, asciidoctorBinary, "-e", "-o", "-", "-")
	cmd.Stdin = strings.NewReader(adoc)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("asciidoctor failed: %w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

// escapeHTMLFallback renders body as a minimally-escaped HTML fragment,
// used only by tests that exercise the export tree shape without requiring
// the asciidoctor binary to be installed.
func escapeHTMLFallback(title, body string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>")
	template.HTMLEscape(&b, []byte(title))
	b.WriteString("</title></head><body><pre>")
	template.HTMLEscape(&b, []byte(body))
	b.WriteString("</pre></body></html>")
	return b.String()
}

func byKey(cards []*cardmodel.Card) map[string]*cardmodel.Card {
	out := make(map[string]*cardmodel.Card, len(cards))
	for _, c := range cards {
		out[c.Key] = c
	}
	return out
}

func sortedKeys(cards map[string]*cardmodel.Card) []string {
	keys := make([]string, 0, len(cards))
	for k := range cards {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
