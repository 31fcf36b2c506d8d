package importexport

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/CyberismoCom/cyberismo-engine/internal/cardcache"
	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
	"github.com/CyberismoCom/cyberismo-engine/internal/project"
	"github.com/CyberismoCom/cyberismo-engine/internal/projectconfig"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// Rename rewrites the project's card key prefix: every card key and its
// on-disk folder, every local resource's fully-qualified name references
// (card types' workflow, graph views' model, and any other "<oldPrefix>/…"
// occurrence textually embedded in a resource's JSON or content files), and
// the configuration itself (spec §4.4 "rename(newPrefix) ... rewrites every
// card key, every resource name, every calculation file, every Handlebars
// template"). Refuses a prefix already used by an imported module.
func Rename(proj *project.Project, newPrefix string) error {
	oldPrefix := proj.Config.CardKeyPrefix
	if newPrefix == "" || newPrefix == oldPrefix {
		return engineerr.Invariant("importexport.Rename", newPrefix, "new prefix must be non-empty and different from the current prefix")
	}
	if proj.Config.HasModule(newPrefix) {
		return engineerr.Conflict("importexport.Rename", newPrefix)
	}

	if err := renameCardTree(proj, oldPrefix, newPrefix); err != nil {
		return err
	}
	if err := rewriteLocalResources(proj, oldPrefix, newPrefix); err != nil {
		return err
	}

	proj.Config.CardKeyPrefix = newPrefix
	if err := projectconfig.Save(proj.Root, proj.Config); err != nil {
		return err
	}

	proj.Cards.Clear()
	if err := proj.Cards.PopulateFromPath(paths.CardRoot(proj.Root), cardmodel.ProjectLocation); err != nil {
		return err
	}
	return proj.Resources.Populate(proj.Root, proj.Config.LatestVersion, newPrefix, proj.Config.ModulePrefixes())
}

// renameCardTree renames every project card's on-disk folder and rewrites
// its key, parent reference, link targets, and cardType reference, walking
// parents before children so a child's current physical path can be
// derived from its already-renamed parent.
func renameCardTree(proj *project.Project, oldPrefix, newPrefix string) error {
	cards := proj.Cards.GetCards(cardmodel.ProjectLocation)
	byParent := map[string][]*cardmodel.Card{}
	for _, c := range cards {
		byParent[c.Parent] = append(byParent[c.Parent], c)
	}

	currentPath := map[string]string{} // old key -> current on-disk path
	newKeyOf := map[string]string{}    // old key -> new key

	var walk func(parentKey, parentCurrentDir string) error
	walk = func(parentKey, parentCurrentDir string) error {
		for _, card := range byParent[parentKey] {
			oldDir := filepath.Join(parentCurrentDir, card.Key)
			newKey := renameKey(card.Key, oldPrefix, newPrefix)
			newDir := filepath.Join(parentCurrentDir, newKey)
			if oldDir != newDir {
				if err := os.Rename(oldDir, newDir); err != nil {
					return engineerr.Filesystem("importexport.renameCardTree", oldDir, err)
				}
			}
			currentPath[card.Key] = newDir
			newKeyOf[card.Key] = newKey
			if err := walk(card.Key, newDir); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(cardmodel.RootKey, paths.CardRoot(proj.Root)); err != nil {
		return err
	}

	for _, card := range cards {
		newDir := currentPath[card.Key]
		meta := card.Metadata
		meta.CardType = renameResourceRef(meta.CardType, oldPrefix, newPrefix)
		links := make([]cardmodel.Link, len(meta.Links))
		for i, l := range meta.Links {
			l.LinkType = renameResourceRef(l.LinkType, oldPrefix, newPrefix)
			if renamed, ok := newKeyOf[l.CardKey]; ok {
				l.CardKey = renamed
			}
			links[i] = l
		}
		meta.Links = links

		renamed := *card
		renamed.Key = newKeyOf[card.Key]
		renamed.Path = newDir
		if card.Parent != cardmodel.RootKey {
			renamed.Parent = newKeyOf[card.Parent]
		}
		renamed.Metadata = meta
		renamed.Content = strings.ReplaceAll(card.Content, oldPrefix+"/", newPrefix+"/")

		if err := cardcache.PersistCard(&renamed); err != nil {
			return err
		}
	}
	return nil
}

// renameKey rewrites a card key's prefix component; keys that don't carry
// oldPrefix (defensively, should never happen for a project card) are left
// untouched.
func renameKey(key, oldPrefix, newPrefix string) string {
	if suffix, ok := strings.CutPrefix(key, oldPrefix+"_"); ok {
		return newPrefix + "_" + suffix
	}
	return key
}

// renameResourceRef rewrites a fully-qualified resource name's leading
// "<oldPrefix>/" segment; names from other prefixes (module references) are
// left untouched.
func renameResourceRef(name, oldPrefix, newPrefix string) string {
	if name == "" {
		return name
	}
	if suffix, ok := strings.CutPrefix(name, oldPrefix+"/"); ok {
		return newPrefix + "/" + suffix
	}
	return name
}

// rewriteLocalResources string-replaces every "<oldPrefix>/" occurrence in
// each local resource's JSON metadata and content files, covering
// cardType.workflow, graphView.model, linkType allowlists, and any
// calculation.lp / *.hbs file that references another resource by name
// (spec §4.4 "rewrites ... every calculation file, every Handlebars
// template"); the same textual-substitution idiom resource.Usage already
// uses for cross-resource reference scanning.
func rewriteLocalResources(proj *project.Project, oldPrefix, newPrefix string) error {
	for _, kind := range resource.AllKinds {
		for _, entry := range proj.Resources.Resources(kind, "local") {
			if err := rewriteFile(entry.Path, oldPrefix, newPrefix); err != nil {
				return err
			}
			if !kind.IsFolderKind() {
				continue
			}
			r, err := proj.Resources.ByName(entry.Name)
			if err != nil {
				continue
			}
			folder := strings.TrimSuffix(entry.Path, ".json")
			for fileName := range contentFilesOf(r.Content) {
				if err := rewriteFile(filepath.Join(folder, fileName), oldPrefix, newPrefix); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func rewriteFile(path, oldPrefix, newPrefix string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return engineerr.Filesystem("importexport.rewriteFile", path, err)
	}
	rewritten := strings.ReplaceAll(string(data), oldPrefix+"/", newPrefix+"/")
	if rewritten == string(data) {
		return nil
	}
	if err := os.WriteFile(path, []byte(rewritten), 0o644); err != nil {
		return engineerr.Filesystem("importexport.rewriteFile", path, err)
	}
	return nil
}

func contentFilesOf(content resource.Content) map[string]string {
	switch c := content.(type) {
	case *resource.Report:
		return c.ContentFiles
	case *resource.GraphModel:
		return c.ContentFiles
	case *resource.GraphView:
		return c.ContentFiles
	case *resource.Calculation:
		return c.ContentFiles
	default:
		return nil
	}
}
