package importexport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
	"github.com/CyberismoCom/cyberismo-engine/internal/project"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

func newSourceProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	proj, err := project.Create(root, "Source Project", "src")
	if err != nil {
		t.Fatalf("project.Create source: %v", err)
	}
	env := proj.Env()
	wfName := resource.Name{Prefix: "src", Kind: resource.KindWorkflow, Identifier: "basic"}
	if _, err := resource.Create(env, wfName, &resource.Workflow{
		States: []resource.WorkflowState{{Name: "Draft", Category: resource.CategoryInitial}},
	}); err != nil {
		t.Fatalf("create source workflow: %v", err)
	}
	return root
}

func TestImportModuleCopiesResourcesAndRegistersPrefix(t *testing.T) {
	proj := newFixture(t)
	sourceRoot := newSourceProject(t)

	prefix, err := ImportModule(proj, sourceRoot)
	if err != nil {
		t.Fatalf("ImportModule: %v", err)
	}
	if prefix != "src" {
		t.Fatalf("expected prefix %q, got %q", "src", prefix)
	}
	if !proj.Config.HasModule("src") {
		t.Fatalf("expected module to be registered in configuration")
	}
	wfFile := filepath.Join(paths.ModuleResourceKindDir(proj.Root, "src", paths.KindWorkflows), "basic.json")
	if _, err := os.Stat(wfFile); err != nil {
		t.Fatalf("expected copied workflow file to exist: %v", err)
	}
}

func TestImportModuleRefusesPrefixCollision(t *testing.T) {
	proj := newFixture(t)
	sourceRoot := newSourceProject(t)
	if _, err := ImportModule(proj, sourceRoot); err != nil {
		t.Fatalf("first import: %v", err)
	}
	if _, err := ImportModule(proj, sourceRoot); err == nil {
		t.Fatalf("expected second import of the same prefix to be refused")
	}
}

func TestRemoveModuleDeletesFolderAndEntry(t *testing.T) {
	proj := newFixture(t)
	sourceRoot := newSourceProject(t)
	if _, err := ImportModule(proj, sourceRoot); err != nil {
		t.Fatalf("ImportModule: %v", err)
	}
	if err := RemoveModule(proj, "src"); err != nil {
		t.Fatalf("RemoveModule: %v", err)
	}
	if proj.Config.HasModule("src") {
		t.Fatalf("expected module entry to be removed")
	}
	if _, err := os.Stat(paths.ModuleDir(proj.Root, "src")); !os.IsNotExist(err) {
		t.Fatalf("expected module folder to be removed, stat err: %v", err)
	}
}
