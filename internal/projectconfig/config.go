// Package projectconfig holds the project-level configuration (spec §3
// "Project configuration", §6 "cardsConfig.json") and the append-only
// migration log (spec §3 "Migration log").
package projectconfig

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/fsutil"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
	"github.com/CyberismoCom/cyberismo-engine/internal/version"
)

// Module is one imported module's configuration entry (spec §3).
type Module struct {
	Name          string `json:"name"`
	Location      string `json:"location"`
	Branch        string `json:"branch,omitempty"`
	Private       bool   `json:"private,omitempty"`
	CardKeyPrefix string `json:"cardKeyPrefix"`
}

// Hub is an external registry/hub the project is configured to publish to
// or consume resources from; the shape is opaque to the engine core (spec
// treats hubs as configuration data only).
type Hub struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Config is the persisted shape of cardsConfig.json (spec §6).
type Config struct {
	Name          string   `json:"name"`
	CardKeyPrefix string   `json:"cardKeyPrefix"`
	SchemaVersion int      `json:"schemaVersion"`
	Version       int      `json:"version"` // published version
	LatestVersion int      `json:"latestVersion"`
	Modules       []Module `json:"modules"`
	Hubs          []Hub    `json:"hubs"`
}

// New returns the configuration for a freshly created project (spec S1):
// published version 0, a single draft folder "1", current schema version.
func New(name, prefix string) *Config {
	return &Config{
		Name:          name,
		CardKeyPrefix: prefix,
		SchemaVersion: version.SchemaVersion,
		Version:       0,
		LatestVersion: 1,
		Modules:       []Module{},
		Hubs:          []Hub{},
	}
}

// Load reads and parses cardsConfig.json from projectRoot.
func Load(projectRoot string) (*Config, error) {
	path := paths.ConfigFile(projectRoot)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, engineerr.Filesystem("projectconfig.Load", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, engineerr.Schema("projectconfig.Load", path, err)
	}
	return &cfg, nil
}

// Save writes cfg to cardsConfig.json.
func Save(projectRoot string, cfg *Config) error {
	path := paths.ConfigFile(projectRoot)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return engineerr.Schema("projectconfig.Save", path, err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return engineerr.Filesystem("projectconfig.Save", path, err)
	}
	return nil
}

// HasModule reports whether a module of the given prefix is already
// configured.
func (c *Config) HasModule(prefix string) bool {
	for _, m := range c.Modules {
		if m.CardKeyPrefix == prefix {
			return true
		}
	}
	return false
}

// AddModule appends a module entry, refusing a prefix collision with the
// project itself or an existing module (spec §4.4 "importModule refuses
// prefix collisions").
func (c *Config) AddModule(m Module) error {
	if m.CardKeyPrefix == c.CardKeyPrefix {
		return fmt.Errorf("projectconfig: module prefix %q collides with project prefix", m.CardKeyPrefix)
	}
	if c.HasModule(m.CardKeyPrefix) {
		return fmt.Errorf("projectconfig: module prefix %q already imported", m.CardKeyPrefix)
	}
	c.Modules = append(c.Modules, m)
	return nil
}

// RemoveModule removes the module with the given prefix.
func (c *Config) RemoveModule(prefix string) error {
	for i, m := range c.Modules {
		if m.CardKeyPrefix == prefix {
			c.Modules = append(c.Modules[:i], c.Modules[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("projectconfig: module %q not found", prefix)
}

// ModulePrefixes returns every configured module's card key prefix.
func (c *Config) ModulePrefixes() []string {
	out := make([]string, len(c.Modules))
	for i, m := range c.Modules {
		out[i] = m.CardKeyPrefix
	}
	return out
}

// CanPublish reports whether publishDraft's precondition holds: the draft
// is ahead of the published version (spec §4.4 "publishDraft").
func (c *Config) CanPublish() bool {
	return c.LatestVersion > c.Version
}
