// Package project is the project container (spec §4, "Project container"):
// it aggregates the card cache, resource cache, configuration, and resource
// environment for one on-disk project, and owns the single write lock that
// serialises every mutating command.
package project

import (
	"context"
	"log/slog"
	"sync"

	"github.com/CyberismoCom/cyberismo-engine/internal/calc"
	"github.com/CyberismoCom/cyberismo-engine/internal/cardcache"
	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/logging"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
	"github.com/CyberismoCom/cyberismo-engine/internal/projectconfig"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
	"github.com/CyberismoCom/cyberismo-engine/internal/resourcecache"
)

// Project owns every in-memory structure for one on-disk project directory.
// Readers bypass writeMu entirely and see only committed cache state (spec
// §5); mutating commands must call Lock/Unlock for their entire duration.
type Project struct {
	Root string

	Config *projectconfig.Config

	Cards     *cardcache.Cache
	Resources *resourcecache.Cache
	Engine    *calc.Engine

	writeMu sync.Mutex
	watcher *Watcher
	log     *slog.Logger
}

// Open discovers, loads, and populates a project rooted at root. It does not
// start the file-system watcher; call Watch for that once the caller is
// ready to receive change notifications.
func Open(root string) (*Project, error) {
	cfg, err := projectconfig.Load(root)
	if err != nil {
		return nil, err
	}

	p := &Project{
		Root:   root,
		Config: cfg,
		Cards:  cardcache.New(),
		log:    logging.NewDefault(),
	}
	p.Resources = resourcecache.New(resource.Env{ProjectRoot: root, Version: cfg.LatestVersion})

	if err := p.reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Create scaffolds a brand-new project on disk: cardsConfig.json, nine
// empty resource kind folders, one .schema stamp in the draft version
// folder, an empty migration log for draft version 1, and the cardRoot
// directory (spec S1).
func Create(root, name, prefix string) (*Project, error) {
	if cfgExists(root) {
		return nil, engineerr.Conflict("project.Create", root)
	}

	cfg := projectconfig.New(name, prefix)
	draftVersion := cfg.LatestVersion

	for _, kind := range paths.AllResourceKinds {
		dir := paths.ResourceKindDir(root, draftVersion, kind)
		if err := mkdirAll(dir); err != nil {
			return nil, err
		}
	}
	if err := writeSchemaStamp(root, draftVersion); err != nil {
		return nil, err
	}
	if err := projectconfig.Save(root, cfg); err != nil {
		return nil, err
	}
	if err := mkdirAll(paths.CardRoot(root)); err != nil {
		return nil, err
	}
	// Touch an empty migration log so S1's "empty migrationLog.jsonl" holds
	// even before the first mutating command runs.
	if err := truncateLog(root, draftVersion); err != nil {
		return nil, err
	}

	return Open(root)
}

// reload repopulates both caches from disk at the project's current draft
// version and module list.
func (p *Project) reload() error {
	if err := p.Cards.PopulateFromPath(paths.CardRoot(p.Root), cardmodel.ProjectLocation); err != nil {
		return err
	}
	if err := p.Resources.Populate(p.Root, p.Config.LatestVersion, p.Config.CardKeyPrefix, p.Config.ModulePrefixes()); err != nil {
		return err
	}
	p.Engine = calc.New(p.Cards, p.Resources, p.Config.CardKeyPrefix, p.Config.ModulePrefixes())
	return p.Engine.Generate("")
}

// Lock acquires the project-wide write lock for the duration of a mutating
// command (spec §5 "All mutating commands acquire the project-wide lock for
// their entire duration").
func (p *Project) Lock() { p.writeMu.Lock() }

// Unlock releases the write lock.
func (p *Project) Unlock() { p.writeMu.Unlock() }

// Env returns the resource environment commands use to create/read/rename
// resources, pre-wired to invalidate this project's resource cache.
func (p *Project) Env() resource.Env { return p.Resources.Env() }

// AppendLog appends entry for the project's current draft version (spec §5
// step 4, "appends the migration log"). Callers build entry with
// projectconfig.NewLogEntry.
func (p *Project) AppendLog(entry projectconfig.LogEntry) error {
	return projectconfig.AppendLog(p.Root, p.Config.LatestVersion, entry)
}

// Watch starts the file-system watcher, which invalidates the resource
// cache and reclassifies card-tree changes made by a process other than
// this one (spec §4.4 "file-system watcher"). ctx cancellation stops it.
func (p *Project) Watch(ctx context.Context) error {
	w, err := NewWatcher(p)
	if err != nil {
		return err
	}
	p.watcher = w
	return w.Start(ctx)
}

// StopWatch stops a running watcher; a no-op if Watch was never called.
func (p *Project) StopWatch() error {
	if p.watcher == nil {
		return nil
	}
	return p.watcher.Stop()
}

// handleCardFileChange responds to a file-system event beneath cardRoot
// made by a process other than this one by reloading the whole card cache.
// The spec's card cache has no single-card invalidation entry point (unlike
// the resource cache's invalidateResource), so an external edit is handled
// by the same populate pass used at startup.
func (p *Project) handleCardFileChange(path string) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.Cards.Clear()
	if err := p.Cards.PopulateFromPath(paths.CardRoot(p.Root), cardmodel.ProjectLocation); err != nil {
		p.log.Warn("card cache reload after external change failed", "path", path, "error", err)
		return
	}
	if err := p.Engine.Generate(""); err != nil {
		p.log.Warn("calculation engine regenerate after external change failed", "path", path, "error", err)
	}
}

func cfgExists(root string) bool {
	_, err := projectconfig.Load(root)
	return err == nil
}
