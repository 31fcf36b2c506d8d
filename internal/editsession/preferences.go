package editsession

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
)

// MergeStrategy selects how PublishSession folds a session's branch back
// into the main worktree's current branch.
const (
	MergeStrategyMerge  = "merge"
	MergeStrategySquash = "squash"
)

// Preferences is the edit-session manager's operator-facing configuration
// (spec §4.7 domain notes: "default merge strategy, worktree root
// override"), stored at "~/.config/cyberismo/sessions.toml" separately from
// the project's own JSON configuration since it reflects this operator's
// machine, not the project.
type Preferences struct {
	DefaultMergeStrategy string `toml:"default_merge_strategy"`
	WorktreeRoot         string `toml:"worktree_root"`
}

// preferencesPath returns the operator preferences file path, honouring
// $XDG_CONFIG_HOME the same way os.UserConfigDir does.
func preferencesPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", engineerr.Filesystem("editsession.preferencesPath", "", err)
	}
	return filepath.Join(dir, "cyberismo", "sessions.toml"), nil
}

// LoadPreferences reads the operator preferences file, returning the zero
// value (merge strategy defaults to MergeStrategyMerge, no worktree root
// override) when the file does not exist.
func LoadPreferences() (Preferences, error) {
	var prefs Preferences
	path, err := preferencesPath()
	if err != nil {
		return prefs, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			prefs.DefaultMergeStrategy = MergeStrategyMerge
			return prefs, nil
		}
		return prefs, engineerr.Filesystem("editsession.LoadPreferences", path, err)
	}
	if err := toml.Unmarshal(raw, &prefs); err != nil {
		return prefs, engineerr.Schema("editsession.LoadPreferences", path, err)
	}
	if prefs.DefaultMergeStrategy == "" {
		prefs.DefaultMergeStrategy = MergeStrategyMerge
	}
	return prefs, nil
}

// SavePreferences writes prefs to the operator preferences file, creating
// its parent directory if necessary.
func SavePreferences(prefs Preferences) error {
	path, err := preferencesPath()
	if err != nil {
		return err
	}
	raw, err := toml.Marshal(prefs)
	if err != nil {
		return engineerr.Schema("editsession.SavePreferences", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return engineerr.Filesystem("editsession.SavePreferences", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return engineerr.Filesystem("editsession.SavePreferences", path, err)
	}
	return nil
}
