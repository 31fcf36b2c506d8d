package importexport

import (
	"fmt"

	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/fsutil"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
	"github.com/CyberismoCom/cyberismo-engine/internal/project"
	"github.com/CyberismoCom/cyberismo-engine/internal/projectconfig"
)

// ImportModule copies sourcePath's resource folder into
// ".cards/modules/<prefix>" and registers it in the importing project's
// configuration, refusing a prefix collision with the project itself or an
// already-imported module (spec §4.4 "importModule(sourcePath)"). The
// source's published version is copied when it has one; otherwise its
// current draft, so a module can be imported from a project that has never
// published. Returns the imported prefix.
func ImportModule(proj *project.Project, sourcePath string) (string, error) {
	srcCfg, err := projectconfig.Load(sourcePath)
	if err != nil {
		return "", engineerr.Filesystem("importexport.ImportModule", sourcePath, err)
	}
	prefix := srcCfg.CardKeyPrefix

	if prefix == proj.Config.CardKeyPrefix {
		return "", engineerr.Conflict("importexport.ImportModule", prefix)
	}
	if proj.Config.HasModule(prefix) {
		return "", engineerr.Conflict("importexport.ImportModule", prefix)
	}

	srcVersion := srcCfg.Version
	if srcVersion == 0 {
		srcVersion = srcCfg.LatestVersion
	}

	dstDir := paths.ModuleDir(proj.Root, prefix)
	if fsutil.Exists(dstDir) {
		return "", engineerr.Conflict("importexport.ImportModule", prefix)
	}
	for _, kind := range paths.AllResourceKinds {
		srcKindDir := paths.ResourceKindDir(sourcePath, srcVersion, kind)
		if !fsutil.Exists(srcKindDir) {
			continue
		}
		dstKindDir := paths.ModuleResourceKindDir(proj.Root, prefix, kind)
		if err := fsutil.CopyTree(srcKindDir, dstKindDir); err != nil {
			return "", engineerr.Filesystem("importexport.ImportModule", dstKindDir, err)
		}
	}

	if err := proj.Config.AddModule(projectconfig.Module{
		Name:          prefix,
		Location:      sourcePath,
		CardKeyPrefix: prefix,
	}); err != nil {
		return "", engineerr.Conflict("importexport.ImportModule", fmt.Sprint(err))
	}
	if err := projectconfig.Save(proj.Root, proj.Config); err != nil {
		return "", err
	}

	if err := proj.Resources.Populate(proj.Root, proj.Config.LatestVersion, proj.Config.CardKeyPrefix, proj.Config.ModulePrefixes()); err != nil {
		return "", err
	}
	return prefix, nil
}

// RemoveModule deletes a previously imported module's folder and its
// configuration entry, the inverse of ImportModule.
func RemoveModule(proj *project.Project, prefix string) error {
	if !proj.Config.HasModule(prefix) {
		return engineerr.NotFound("importexport.RemoveModule", prefix)
	}
	if err := fsutil.RemoveTree(paths.ModuleDir(proj.Root, prefix)); err != nil {
		return err
	}
	if err := proj.Config.RemoveModule(prefix); err != nil {
		return engineerr.NotFound("importexport.RemoveModule", prefix)
	}
	if err := projectconfig.Save(proj.Root, proj.Config); err != nil {
		return err
	}
	return proj.Resources.Populate(proj.Root, proj.Config.LatestVersion, proj.Config.CardKeyPrefix, proj.Config.ModulePrefixes())
}
