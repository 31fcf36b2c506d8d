package resourcecache

import (
	"testing"

	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

func TestPopulateAndByName(t *testing.T) {
	root := t.TempDir()
	env := resource.Env{ProjectRoot: root, Version: 1}
	c := New(env)
	// Use the cache's own env (with Invalidate wired) to create a resource
	// so population later finds it on disk.
	n := resource.Name{Prefix: "dec", Kind: resource.KindFieldType, Identifier: "owner"}
	if _, err := resource.Create(c.Env(), n, &resource.FieldType{DataType: resource.DataTypePerson}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := c.Populate(root, 1, "dec", nil); err != nil {
		t.Fatalf("populate failed: %v", err)
	}

	r, err := c.ByName(n)
	if err != nil {
		t.Fatalf("ByName failed: %v", err)
	}
	ft := r.Content.(*resource.FieldType)
	if ft.DataType != resource.DataTypePerson {
		t.Fatalf("unexpected content: %+v", ft)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	root := t.TempDir()
	env := resource.Env{ProjectRoot: root, Version: 1}
	c := New(env)
	n := resource.Name{Prefix: "dec", Kind: resource.KindLinkType, Identifier: "blocks"}
	if _, err := resource.Create(c.Env(), n, &resource.LinkType{OutboundDisplayName: "blocks", InboundDisplayName: "blocked by"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := c.Populate(root, 1, "dec", nil); err != nil {
		t.Fatalf("populate failed: %v", err)
	}
	if _, err := c.ByName(n); err != nil {
		t.Fatalf("first ByName failed: %v", err)
	}

	c.InvalidateResource(n)

	// Registry entry must survive invalidation (spec: drops instance, keeps
	// registry entry).
	if _, err := c.ByName(n); err != nil {
		t.Fatalf("expected reload to succeed after invalidate, got: %v", err)
	}
}

func TestResourcesFiltersBySourceAndKind(t *testing.T) {
	root := t.TempDir()
	env := resource.Env{ProjectRoot: root, Version: 1}
	c := New(env)
	n1 := resource.Name{Prefix: "dec", Kind: resource.KindWorkflow, Identifier: "a"}
	n2 := resource.Name{Prefix: "dec", Kind: resource.KindWorkflow, Identifier: "b"}
	wf := &resource.Workflow{States: []resource.WorkflowState{{Name: "Draft", Category: resource.CategoryInitial}}}
	if _, err := resource.Create(c.Env(), n1, wf); err != nil {
		t.Fatal(err)
	}
	if _, err := resource.Create(c.Env(), n2, wf); err != nil {
		t.Fatal(err)
	}
	if err := c.Populate(root, 1, "dec", nil); err != nil {
		t.Fatalf("populate failed: %v", err)
	}
	entries := c.Resources(resource.KindWorkflow, "local")
	if len(entries) != 2 {
		t.Fatalf("expected 2 local workflows, got %d", len(entries))
	}
	if len(c.Resources(resource.KindWorkflow, "module")) != 0 {
		t.Fatalf("expected 0 module workflows")
	}
}
