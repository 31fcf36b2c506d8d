package importexport

import (
	"strings"
	"testing"

	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

func TestRenameRewritesCardKeysAndResourceRefs(t *testing.T) {
	proj := newFixture(t)

	if err := Rename(proj, "neo"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if proj.Config.CardKeyPrefix != "neo" {
		t.Fatalf("expected configuration prefix to be updated, got %q", proj.Config.CardKeyPrefix)
	}
	if proj.Cards.HasCard("dec_aaa1") {
		t.Fatalf("expected old-prefixed key to no longer exist")
	}
	cards := proj.Cards.GetCards(cardmodel.ProjectLocation)
	if len(cards) != 1 {
		t.Fatalf("expected exactly 1 card after rename, got %d", len(cards))
	}
	renamed := cards[0]
	if !strings.HasPrefix(renamed.Key, "neo_") {
		t.Fatalf("expected renamed key to carry new prefix, got %q", renamed.Key)
	}
	if renamed.Metadata.CardType != "neo/cardTypes/decision" {
		t.Fatalf("expected cardType reference rewritten, got %q", renamed.Metadata.CardType)
	}

	ctName := resource.Name{Prefix: "neo", Kind: resource.KindCardType, Identifier: "decision"}
	ct, err := proj.Resources.ByName(ctName)
	if err != nil {
		t.Fatalf("expected renamed cardType resource to be found: %v", err)
	}
	content, ok := ct.Content.(*resource.CardType)
	if !ok {
		t.Fatalf("expected *resource.CardType content")
	}
	if content.Workflow != "neo/workflows/basic" {
		t.Fatalf("expected workflow reference rewritten, got %q", content.Workflow)
	}
}
