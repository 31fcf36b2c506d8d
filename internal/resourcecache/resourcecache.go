// Package resourcecache implements the two-layer registry+instance cache
// for typed resources (spec §4.2): a lightweight registry collected from
// disk, and a hydrated-instance layer created lazily and invalidated on
// write.
package resourcecache

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// RegistryEntry is the lightweight, disk-scanned metadata for one resource,
// collected without hydrating its content (spec §4.2 "Layer 1").
type RegistryEntry struct {
	Name       resource.Name
	Kind       resource.Kind
	Path       string
	Source     resource.Source
	ModuleName string
}

// Cache holds both layers: the registry (always populated) and the
// hydrated-instance cache (populated lazily).
type Cache struct {
	mu        sync.RWMutex
	registry  map[string]RegistryEntry
	instances map[string]*resource.Resource
	env       resource.Env
}

// New returns an empty cache bound to env, which it also threads through
// to every Resource it hydrates so resource objects can write themselves
// back without holding a reference to the cache (spec §9).
func New(env resource.Env) *Cache {
	c := &Cache{
		registry:  make(map[string]RegistryEntry),
		instances: make(map[string]*resource.Resource),
	}
	c.env = env
	c.env.Invalidate = c.invalidateByName
	return c
}

// Populate walks the local versioned folder and every module folder under
// .cards/modules, registering every resource found (spec §4.2 "populate").
func (c *Cache) Populate(projectRoot string, version int, prefix string, modulePrefixes []string) error {
	c.mu.Lock()
	c.registry = make(map[string]RegistryEntry)
	c.instances = make(map[string]*resource.Resource)
	c.mu.Unlock()

	if err := c.populateSource(projectRoot, version, prefix, resource.SourceLocal, ""); err != nil {
		return err
	}
	for _, modPrefix := range modulePrefixes {
		if err := c.populateSource(projectRoot, version, modPrefix, resource.SourceModule, modPrefix); err != nil {
			return err
		}
	}
	return nil
}

// populateSource scans every resource kind's directory under prefix,
// fanning the per-kind scans out across a bounded goroutine pool since
// they touch disjoint directories and share nothing but the registry map
// (spec §4.2 "populate").
func (c *Cache) populateSource(projectRoot string, version int, prefix string, source resource.Source, moduleName string) error {
	g := new(errgroup.Group)
	g.SetLimit(4)
	for _, kind := range resource.AllKinds {
		kind := kind
		g.Go(func() error {
			return c.populateKind(projectRoot, version, prefix, kind, source, moduleName)
		})
	}
	return g.Wait()
}

func (c *Cache) populateKind(projectRoot string, version int, prefix string, kind resource.Kind, source resource.Source, moduleName string) error {
	var kindDir string
	if source == resource.SourceModule {
		kindDir = paths.ModuleResourceKindDir(projectRoot, prefix, paths.ResourceKind(kind))
	} else {
		kindDir = paths.ResourceKindDir(projectRoot, version, paths.ResourceKind(kind))
	}
	entries, err := os.ReadDir(kindDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return engineerr.Filesystem("resourcecache.populateKind", kindDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		identifier := strings.TrimSuffix(e.Name(), ".json")
		name := resource.Name{Prefix: prefix, Kind: kind, Identifier: identifier}
		entry := RegistryEntry{
			Name:       name,
			Kind:       kind,
			Path:       filepath.Join(kindDir, e.Name()),
			Source:     source,
			ModuleName: moduleName,
		}
		c.mu.Lock()
		c.registry[name.String()] = entry
		c.mu.Unlock()
	}
	return nil
}

// ByName returns the hydrated resource for name, instantiating it lazily
// from the registry entry on first access (spec §4.2 "byName").
func (c *Cache) ByName(name resource.Name) (*resource.Resource, error) {
	key := name.String()

	c.mu.RLock()
	if inst, ok := c.instances[key]; ok {
		c.mu.RUnlock()
		return inst, nil
	}
	entry, ok := c.registry[key]
	c.mu.RUnlock()
	if !ok {
		return nil, engineerr.NotFound("resourcecache.ByName", key)
	}

	r, err := resource.Read(c.env, entry.Name, entry.Source)
	if err != nil {
		return nil, err
	}
	r.ModuleName = entry.ModuleName

	c.mu.Lock()
	c.instances[key] = r
	c.mu.Unlock()
	return r, nil
}

// ByType returns the hydrated resource named name, failing if its kind is
// not kind (kept for parity with the spec's "byType(name, kind)" accessor,
// which is really just ByName scoped to an expected kind).
func (c *Cache) ByType(name string, kind resource.Kind) (*resource.Resource, error) {
	n, err := resource.ParseName(name)
	if err != nil {
		return nil, err
	}
	if n.Kind != kind {
		return nil, engineerr.Validation("resourcecache.ByType", name, nil)
	}
	return c.ByName(n)
}

// Resources returns every registry entry of the given kind, filtered by
// "local", "module", or "" for all (spec §4.2 "resources(kind, from)").
func (c *Cache) Resources(kind resource.Kind, from string) []RegistryEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []RegistryEntry
	for _, entry := range c.registry {
		if entry.Kind != kind {
			continue
		}
		switch from {
		case "local":
			if entry.Source != resource.SourceLocal {
				continue
			}
		case "module":
			if entry.Source != resource.SourceModule {
				continue
			}
		}
		out = append(out, entry)
	}
	return out
}

// InvalidateResource drops name's hydrated instance but keeps its registry
// entry, forcing a reload on next access (spec §4.2 "invalidateResource").
func (c *Cache) InvalidateResource(name resource.Name) {
	c.invalidateByName(name)
}

func (c *Cache) invalidateByName(name resource.Name) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.instances, name.String())
}

// AddResource registers a freshly created resource in both layers.
func (c *Cache) AddResource(r *resource.Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry[r.Name.String()] = RegistryEntry{Name: r.Name, Kind: r.Name.Kind, Source: r.Source, ModuleName: r.ModuleName}
	c.instances[r.Name.String()] = r
}

// RemoveResource drops both layers for name.
func (c *Cache) RemoveResource(name resource.Name) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.registry, name.String())
	delete(c.instances, name.String())
}

// ChangeResourceName moves both layers' entries from oldName to newName,
// used after resource.Rename succeeds.
func (c *Cache) ChangeResourceName(oldName, newName resource.Name) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.registry[oldName.String()]; ok {
		entry.Name = newName
		delete(c.registry, oldName.String())
		c.registry[newName.String()] = entry
	}
	if inst, ok := c.instances[oldName.String()]; ok {
		delete(c.instances, oldName.String())
		c.instances[newName.String()] = inst
	}
}

// HandleFileSystemChange reclassifies a changed file (by path) and
// invalidates its instance, called from the project container's fsnotify
// watcher (spec §4.2 "handleFileSystemChange").
func (c *Cache) HandleFileSystemChange(path string) {
	c.mu.RLock()
	var match resource.Name
	found := false
	for _, entry := range c.registry {
		if entry.Path == "" {
			continue
		}
		folder := strings.TrimSuffix(entry.Path, ".json") + string(filepath.Separator)
		if entry.Path == path || strings.HasPrefix(path, folder) {
			match = entry.Name
			found = true
			break
		}
	}
	c.mu.RUnlock()
	if found {
		c.invalidateByName(match)
	}
}

// Env returns the cache's resource environment, for call sites (commands)
// that need to pass it to resource.Create directly.
func (c *Cache) Env() resource.Env { return c.env }

// SetVersion repoints the cache's environment at a new draft version, used
// by publishDraft after it promotes the draft and opens the next one.
func (c *Cache) SetVersion(v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.env.Version = v
}
