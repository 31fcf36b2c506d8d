package calc

import (
	"strings"
	"testing"

	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
)

func TestFactQuotesStringArgsAndPassesRawTerms(t *testing.T) {
	b := NewProgramBuilder()
	b.Fact("card", cardIdent("dec_1"))
	b.Fact("title", cardIdent("dec_1"), `has "quotes"`)
	got := b.String()
	if !strings.Contains(got, "card(dec_1).") {
		t.Fatalf("expected unquoted card ident, got %q", got)
	}
	if !strings.Contains(got, `title(dec_1, "has \"quotes\"").`) {
		t.Fatalf("expected escaped quoted string, got %q", got)
	}
}

func TestBuildCardFactsEmitsParentAndLabelFacts(t *testing.T) {
	cards := []*cardmodel.Card{
		{Key: "dec_1", Parent: cardmodel.RootKey, Metadata: cardmodel.Metadata{
			CardType: "dec/cardTypes/decision", WorkflowState: "Draft", Title: "First", Rank: "0|m",
			Labels: []string{"urgent"},
		}},
	}
	b := NewProgramBuilder()
	BuildCardFacts(b, cards)
	got := b.String()
	for _, want := range []string{
		"card(dec_1).",
		`parent(dec_1, ROOT).`,
		`cardType(dec_1, "dec/cardTypes/decision").`,
		`label(dec_1, "urgent").`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in program:\n%s", want, got)
		}
	}
}

func TestBuildModuleFacts(t *testing.T) {
	b := NewProgramBuilder()
	BuildModuleFacts(b, []string{"base"})
	if !strings.Contains(b.String(), `module("base").`) {
		t.Fatalf("expected module fact, got %q", b.String())
	}
}
