package guard

import (
	"testing"

	"github.com/CyberismoCom/cyberismo-engine/internal/calc"
)

func TestParseVerdictNoAtomsPermits(t *testing.T) {
	v := parseVerdict(calc.QueryResult{})
	if v.Denied() {
		t.Fatalf("expected no deny for empty result")
	}
	if len(v.Updates) != 0 {
		t.Fatalf("expected no updates, got %+v", v.Updates)
	}
}

func TestParseVerdictDeny(t *testing.T) {
	v := parseVerdict(calc.QueryResult{Atoms: []calc.Atom{
		{Name: "deny", Args: []string{"dec_1", "workflow state is Closed"}},
	}})
	if !v.Denied() {
		t.Fatalf("expected denied verdict")
	}
	if v.Deny != "workflow state is Closed" {
		t.Fatalf("unexpected deny reason: %q", v.Deny)
	}
}

func TestParseVerdictFirstDenyWins(t *testing.T) {
	v := parseVerdict(calc.QueryResult{Atoms: []calc.Atom{
		{Name: "deny", Args: []string{"dec_1", "first reason"}},
		{Name: "deny", Args: []string{"dec_1", "second reason"}},
	}})
	if v.Deny != "first reason" {
		t.Fatalf("expected first deny reason to win, got %q", v.Deny)
	}
}

func TestParseVerdictCollectsUpdateFields(t *testing.T) {
	v := parseVerdict(calc.QueryResult{Atoms: []calc.Atom{
		{Name: "updateField", Args: []string{"dec_1", "owner", "alice@example.com"}},
		{Name: "updateField", Args: []string{"dec_1", "priority", "5"}},
	}})
	if v.Denied() {
		t.Fatalf("expected no deny")
	}
	if len(v.Updates) != 2 {
		t.Fatalf("expected 2 updates, got %+v", v.Updates)
	}
	if v.Updates[0].FieldKey != "owner" || v.Updates[0].Value != "alice@example.com" {
		t.Fatalf("unexpected first update: %+v", v.Updates[0])
	}
}

func TestActionGuardNameFormat(t *testing.T) {
	n := ActionGuardName("dec", "decision", "onTransition")
	if n.String() != "dec/calculations/decision.onTransition" {
		t.Fatalf("unexpected guard name: %s", n.String())
	}
}
