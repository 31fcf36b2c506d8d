package command

import (
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/fsutil"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
	"github.com/CyberismoCom/cyberismo-engine/internal/projectconfig"
)

// PublishDraft promotes the current draft version to published, requiring
// latestVersion > publishedVersion and a non-empty migration log for
// latestVersion; it then opens a fresh draft folder one version ahead with
// an empty migration log (spec §4.4 "publishDraft()").
func (c *Commands) PublishDraft() error {
	c.proj.Lock()
	defer c.proj.Unlock()

	cfg := c.proj.Config
	if !cfg.CanPublish() {
		return engineerr.Invariant("command.PublishDraft", cfg.Name, "latestVersion is not ahead of the published version")
	}
	entries, err := projectconfig.ReadLog(c.proj.Root, cfg.LatestVersion)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return engineerr.Invariant("command.PublishDraft", cfg.Name, "migration log for the draft version is empty")
	}

	nextVersion := cfg.LatestVersion + 1
	srcDir := paths.VersionDir(c.proj.Root, cfg.LatestVersion)
	dstDir := paths.VersionDir(c.proj.Root, nextVersion)
	if err := fsutil.CopyTree(srcDir, dstDir); err != nil {
		return engineerr.Filesystem("command.PublishDraft", dstDir, err)
	}
	logPath := paths.MigrationLogFile(c.proj.Root, nextVersion)
	if err := fsutil.WriteFileAtomic(logPath, []byte{}, 0o644); err != nil {
		return engineerr.Filesystem("command.PublishDraft", logPath, err)
	}

	cfg.Version = cfg.LatestVersion
	cfg.LatestVersion = nextVersion
	if err := projectconfig.Save(c.proj.Root, cfg); err != nil {
		return err
	}

	c.proj.Resources.SetVersion(cfg.LatestVersion)
	if err := c.proj.Resources.Populate(c.proj.Root, cfg.LatestVersion, cfg.CardKeyPrefix, cfg.ModulePrefixes()); err != nil {
		return err
	}
	return c.proj.Engine.Generate("")
}
