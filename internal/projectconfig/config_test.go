package projectconfig

import (
	"testing"

	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
)

func TestNewSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := New("Decision Records", "dec")

	if err := Save(root, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := Load(root)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Name != cfg.Name || got.CardKeyPrefix != cfg.CardKeyPrefix {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, cfg)
	}
	if got.SchemaVersion != 1 || got.LatestVersion != 1 || got.Version != 0 {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestAddModuleRefusesPrefixCollision(t *testing.T) {
	cfg := New("Decision Records", "dec")

	if err := cfg.AddModule(Module{Name: "Base", CardKeyPrefix: "dec"}); err == nil {
		t.Fatalf("expected error for project-prefix collision")
	}

	if err := cfg.AddModule(Module{Name: "Base", CardKeyPrefix: "base"}); err != nil {
		t.Fatalf("unexpected error adding module: %v", err)
	}
	if err := cfg.AddModule(Module{Name: "Base2", CardKeyPrefix: "base"}); err == nil {
		t.Fatalf("expected error for duplicate module prefix")
	}
	if !cfg.HasModule("base") {
		t.Fatalf("expected module 'base' to be registered")
	}
}

func TestRemoveModule(t *testing.T) {
	cfg := New("Decision Records", "dec")
	_ = cfg.AddModule(Module{Name: "Base", CardKeyPrefix: "base"})

	if err := cfg.RemoveModule("base"); err != nil {
		t.Fatalf("unexpected error removing module: %v", err)
	}
	if cfg.HasModule("base") {
		t.Fatalf("expected module to be gone")
	}
	if err := cfg.RemoveModule("base"); err == nil {
		t.Fatalf("expected error removing already-absent module")
	}
}

func TestCanPublish(t *testing.T) {
	cfg := New("Decision Records", "dec")
	if !cfg.CanPublish() {
		t.Fatalf("fresh project with version 0 and latestVersion 1 should be publishable")
	}
	cfg.Version = cfg.LatestVersion
	if cfg.CanPublish() {
		t.Fatalf("expected no draft ahead of published version")
	}
}

func TestLoadMissingFileIsFilesystemError(t *testing.T) {
	root := t.TempDir()
	_, err := Load(root)
	if engineerr.Classify(err) != engineerr.KindFilesystem {
		t.Fatalf("expected filesystem error, got %v", err)
	}
}
