package importexport

import (
	"testing"
	"time"

	"github.com/CyberismoCom/cyberismo-engine/internal/cardcache"
	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/lexorank"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
	"github.com/CyberismoCom/cyberismo-engine/internal/project"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// newFixture scaffolds a project with one workflow-backed card type
// carrying an integer custom field, and one existing root card.
func newFixture(t *testing.T) *project.Project {
	t.Helper()
	root := t.TempDir()

	proj, err := project.Create(root, "Fixture Project", "dec")
	if err != nil {
		t.Fatalf("project.Create: %v", err)
	}
	env := proj.Env()

	workflow := &resource.Workflow{
		States: []resource.WorkflowState{
			{Name: "Draft", Category: resource.CategoryInitial},
			{Name: "Done", Category: resource.CategoryClosed},
		},
	}
	wfName := resource.Name{Prefix: "dec", Kind: resource.KindWorkflow, Identifier: "basic"}
	if _, err := resource.Create(env, wfName, workflow); err != nil {
		t.Fatalf("create workflow: %v", err)
	}

	cardType := &resource.CardType{
		Workflow: wfName.String(),
		CustomFields: []resource.FieldRef{
			{Name: "priority", DataType: "integer", DisplayName: "Priority"},
		},
	}
	ctName := resource.Name{Prefix: "dec", Kind: resource.KindCardType, Identifier: "decision"}
	if _, err := resource.Create(env, ctName, cardType); err != nil {
		t.Fatalf("create cardType: %v", err)
	}

	writeCard(t, root, "dec_aaa1", cardmodel.RootKey, ctName.String(), "0|m")

	proj, err = project.Open(root)
	if err != nil {
		t.Fatalf("project.Open after fixture setup: %v", err)
	}
	return proj
}

func writeCard(t *testing.T, root, key, parent, cardType, rank string) {
	t.Helper()
	dir := paths.CardDir(root, key)
	if parent != cardmodel.RootKey {
		dir = paths.CardChildDir(paths.CardDir(root, parent), key)
	}
	card := &cardmodel.Card{
		Key:      key,
		Path:     dir,
		Parent:   parent,
		Location: cardmodel.ProjectLocation,
		Metadata: cardmodel.Metadata{
			Title:         "Card " + key,
			CardType:      cardType,
			WorkflowState: "Draft",
			Rank:          lexorank.Rank(rank),
			LastUpdated:   time.Now(),
		},
		Content: "original content",
	}
	if err := cardcache.PersistCard(card); err != nil {
		t.Fatalf("persist fixture card %s: %v", key, err)
	}
}
