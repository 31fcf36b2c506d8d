package resource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
)

func testEnv(t *testing.T) Env {
	t.Helper()
	root := t.TempDir()
	return Env{ProjectRoot: root, Version: 1}
}

func TestParseName(t *testing.T) {
	n, err := ParseName("dec/cardTypes/decision")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Prefix != "dec" || n.Kind != KindCardType || n.Identifier != "decision" {
		t.Fatalf("unexpected parse result: %+v", n)
	}

	if _, err := ParseName("bad"); err == nil {
		t.Fatalf("expected error for malformed name")
	}
	if _, err := ParseName("dec/bogusKind/x"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestCreateRefusesDuplicate(t *testing.T) {
	env := testEnv(t)
	n := Name{Prefix: "dec", Kind: KindWorkflow, Identifier: "decision"}
	wf := &Workflow{
		States: []WorkflowState{
			{Name: "Draft", Category: CategoryInitial},
			{Name: "Approved", Category: CategoryClosed},
		},
		Transitions: []WorkflowTransition{
			{Name: "Approve", FromState: []string{"Draft"}, ToState: "Approved"},
		},
	}
	if _, err := Create(env, n, wf); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := Create(env, n, wf); engineerr.Classify(err) != engineerr.KindConflict {
		t.Fatalf("expected conflict on duplicate create, got %v", err)
	}
}

func TestReadRoundTrip(t *testing.T) {
	env := testEnv(t)
	n := Name{Prefix: "dec", Kind: KindLinkType, Identifier: "blocks"}
	lt := &LinkType{OutboundDisplayName: "blocks", InboundDisplayName: "blocked by"}
	if _, err := Create(env, n, lt); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	r, err := Read(env, n, SourceLocal)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	got := r.Content.(*LinkType)
	if got.OutboundDisplayName != "blocks" {
		t.Fatalf("unexpected content: %+v", got)
	}
}

func TestFolderResourceScaffolding(t *testing.T) {
	env := testEnv(t)
	n := Name{Prefix: "dec", Kind: KindCalculation, Identifier: "score"}
	calc := &Calculation{DisplayName: "Score"}
	if _, err := Create(env, n, calc); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	r, err := Read(env, n, SourceLocal)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	got := r.Content.(*Calculation)
	if _, ok := got.ContentFiles["calculation.lp"]; !ok {
		t.Fatalf("expected calculation.lp to be scaffolded, got %+v", got.ContentFiles)
	}
}

func TestDeleteRefusesModuleResource(t *testing.T) {
	env := testEnv(t)
	r := &Resource{Name: Name{Prefix: "mod", Kind: KindWorkflow, Identifier: "x"}, Source: SourceModule, Content: &Workflow{}}
	err := Delete(env, r)
	if engineerr.Classify(err) != engineerr.KindPermission {
		t.Fatalf("expected permission denied for module resource delete, got %v", err)
	}
}

func TestRenameUpdatesName(t *testing.T) {
	env := testEnv(t)
	n := Name{Prefix: "dec", Kind: KindFieldType, Identifier: "owner"}
	ft := &FieldType{DataType: DataTypePerson}
	r, err := Create(env, n, ft)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	newName, err := Rename(env, r, "assignee")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if newName.Identifier != "assignee" {
		t.Fatalf("unexpected new name: %+v", newName)
	}
	if !fileExists(filepath.Join(env.ProjectRoot, ".cards", "local", "1", "fieldTypes", "assignee.json")) {
		t.Fatalf("expected renamed file to exist on disk")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestWorkflowValidateRequiresSingleInitial(t *testing.T) {
	w := &Workflow{States: []WorkflowState{{Name: "Draft", Category: CategoryActive}}}
	if err := w.Validate(); err == nil {
		t.Fatalf("expected validation error: no initial state")
	}
}

func TestStringOpAddChangeRankRemove(t *testing.T) {
	list := []string{"a", "b", "c"}

	added, err := StringOp(list, OpAdd, "d", "", 0, nil)
	if err != nil || len(added) != 4 {
		t.Fatalf("add failed: %v %v", added, err)
	}

	changed, err := StringOp(list, OpChange, "b", "bb", 0, nil)
	if err != nil || changed[1] != "bb" {
		t.Fatalf("change failed: %v %v", changed, err)
	}

	ranked, err := StringOp(list, OpRank, "c", "", 0, nil)
	if err != nil || ranked[0] != "c" {
		t.Fatalf("rank failed: %v %v", ranked, err)
	}

	removed, err := StringOp(list, OpRemove, "b", "", 0, nil)
	if err != nil || len(removed) != 2 {
		t.Fatalf("remove failed: %v %v", removed, err)
	}
}
