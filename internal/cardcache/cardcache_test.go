package cardcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
)

func writeCard(t *testing.T, root, key string, rank string) {
	t.Helper()
	dir := filepath.Join(root, key)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	meta := `{"title":"t","cardType":"dec/cardTypes/decision","workflowState":"Draft","rank":"` + rank + `","labels":[],"links":[],"lastUpdated":"2025-01-01T00:00:00Z"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte(meta), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.adoc"), []byte("body"), 0o644))
}

func TestPopulateFromPathAndChildren(t *testing.T) {
	root := t.TempDir()
	writeCard(t, root, "dec_a", "0|a")
	writeCard(t, root, "dec_b", "0|b")
	writeCard(t, filepath.Join(root, "dec_a"), "dec_c", "0|m")

	c := New()
	require.NoError(t, c.PopulateFromPath(root, cardmodel.ProjectLocation), "populate failed")

	a, err := c.GetCard("dec_a")
	require.NoError(t, err, "expected dec_a to exist")
	require.Equal(t, []string{"dec_c"}, a.Children)

	child, err := c.GetCard("dec_c")
	require.NoError(t, err, "expected dec_c to exist")
	require.Equal(t, "dec_a", child.Parent)
}

func TestPopulateDuplicateKeyFails(t *testing.T) {
	root := t.TempDir()
	writeCard(t, root, "dec_a", "0|a")
	writeCard(t, filepath.Join(root, "dec_a"), "dec_a", "0|b")

	c := New()
	err := c.PopulateFromPath(root, cardmodel.ProjectLocation)
	require.Equal(t, engineerr.KindConflict, engineerr.Classify(err), "expected conflict error for duplicate key")
}

func TestDeleteCardUpdatesParent(t *testing.T) {
	root := t.TempDir()
	writeCard(t, root, "dec_a", "0|a")
	writeCard(t, filepath.Join(root, "dec_a"), "dec_c", "0|m")

	c := New()
	require.NoError(t, c.PopulateFromPath(root, cardmodel.ProjectLocation))
	require.NoError(t, c.DeleteCard("dec_c"), "delete failed")

	a, _ := c.GetCard("dec_a")
	require.Empty(t, a.Children, "expected dec_a to have no children after delete")
}

func TestIsDescendant(t *testing.T) {
	root := t.TempDir()
	writeCard(t, root, "dec_a", "0|a")
	writeCard(t, filepath.Join(root, "dec_a"), "dec_b", "0|m")
	writeCard(t, filepath.Join(root, "dec_a", "dec_b"), "dec_c", "0|m")

	c := New()
	require.NoError(t, c.PopulateFromPath(root, cardmodel.ProjectLocation))

	require.True(t, c.IsDescendant("dec_a", "dec_c"), "expected dec_c to be a descendant of dec_a")
	require.False(t, c.IsDescendant("dec_c", "dec_a"), "did not expect dec_a to be a descendant of dec_c")
}

func TestAttachmentDedup(t *testing.T) {
	root := t.TempDir()
	writeCard(t, root, "dec_a", "0|a")
	c := New()
	require.NoError(t, c.PopulateFromPath(root, cardmodel.ProjectLocation))

	att := cardmodel.Attachment{Card: "dec_a", Path: "a/x.png", FileName: "x.png"}
	require.NoError(t, c.AddAttachment("dec_a", att), "first add failed")
	err := c.AddAttachment("dec_a", att)
	require.Equal(t, engineerr.KindConflict, engineerr.Classify(err), "expected conflict on duplicate attachment")
}

func TestUpdateCardContent(t *testing.T) {
	root := t.TempDir()
	writeCard(t, root, "dec_a", "0|a")
	c := New()
	require.NoError(t, c.PopulateFromPath(root, cardmodel.ProjectLocation))

	require.NoError(t, c.UpdateCardContent("dec_a", "new body"), "update failed")
	card, _ := c.GetCard("dec_a")
	require.Equal(t, "new body", card.Content)
}
