package resource

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/fsutil"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
)

// Source tags where a resource's files live.
type Source string

const (
	SourceLocal  Source = "local"
	SourceModule Source = "module"
)

// Env is the minimal environment a Resource needs to read and write
// itself: project root, draft version, and an invalidation callback into
// the resource cache. Resource objects never hold a pointer back to the
// cache or project container (spec §9 "break cyclic references").
type Env struct {
	ProjectRoot string
	Version     int
	Invalidate  func(Name)
}

// metadataPath returns the on-disk path to a resource's JSON metadata
// file, given its source.
func metadataPath(env Env, n Name, source Source) string {
	if source == SourceModule {
		return paths.ModuleResourceKindDir(env.ProjectRoot, n.Prefix, paths.ResourceKind(n.Kind)) + "/" + n.Identifier + ".json"
	}
	return paths.ResourceFile(env.ProjectRoot, env.Version, paths.ResourceKind(n.Kind), n.Identifier)
}

func folderPath(env Env, n Name, source Source) string {
	if source == SourceModule {
		return paths.ModuleResourceKindDir(env.ProjectRoot, n.Prefix, paths.ResourceKind(n.Kind)) + "/" + n.Identifier
	}
	return paths.ResourceFolder(env.ProjectRoot, env.Version, paths.ResourceKind(n.Kind), n.Identifier)
}

// Resource is a resource object: a name, its storage source, and its
// hydrated content (spec §4.3).
type Resource struct {
	Name       Name
	Source     Source
	ModuleName string
	Content    Content
}

// Create writes content's JSON metadata file (and, for folder kinds, its
// scaffolded content files) and refuses if the resource already exists
// (spec §4.3 "create(content?)").
func Create(env Env, n Name, content Content) (*Resource, error) {
	metaPath := metadataPath(env, n, SourceLocal)
	if fsutil.Exists(metaPath) {
		return nil, engineerr.Conflict("resource.Create", n.String())
	}
	if err := ValidateSchema(n, content); err != nil {
		return nil, err
	}
	if err := content.Validate(); err != nil {
		return nil, engineerr.Validation("resource.Create", n.String(), err)
	}

	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, engineerr.Schema("resource.Create", n.String(), err)
	}
	if err := fsutil.WriteFileAtomic(metaPath, data, 0o644); err != nil {
		return nil, engineerr.Filesystem("resource.Create", metaPath, err)
	}

	if n.Kind.IsFolderKind() {
		folder := folderPath(env, n, SourceLocal)
		for name, body := range DefaultContentFiles(n.Kind) {
			if err := fsutil.WriteFileAtomic(folder+"/"+name, []byte(body), 0o644); err != nil {
				return nil, engineerr.Filesystem("resource.Create", folder, err)
			}
		}
	}

	r := &Resource{Name: n, Source: SourceLocal, Content: content}
	if env.Invalidate != nil {
		env.Invalidate(n)
	}
	return r, nil
}

// Read reloads a resource's content from disk.
func Read(env Env, n Name, source Source) (*Resource, error) {
	metaPath := metadataPath(env, n, source)
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, engineerr.NotFound("resource.Read", n.String())
		}
		return nil, engineerr.Filesystem("resource.Read", metaPath, err)
	}

	content, err := New(n.Kind)
	if err != nil {
		return nil, engineerr.Validation("resource.Read", n.String(), err)
	}
	if err := json.Unmarshal(raw, content); err != nil {
		return nil, engineerr.Schema("resource.Read", n.String(), err)
	}

	if n.Kind.IsFolderKind() {
		folder := folderPath(env, n, source)
		files, err := readContentFiles(folder)
		if err != nil {
			return nil, err
		}
		setContentFiles(content, files)
	}

	return &Resource{Name: n, Source: source, Content: content}, nil
}

func readContentFiles(folder string) (map[string]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, engineerr.Filesystem("resource.readContentFiles", folder, err)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(folder + "/" + e.Name())
		if err != nil {
			return nil, engineerr.Filesystem("resource.readContentFiles", folder, err)
		}
		out[e.Name()] = string(data)
	}
	return out, nil
}

func setContentFiles(content Content, files map[string]string) {
	switch c := content.(type) {
	case *Report:
		c.ContentFiles = files
	case *GraphModel:
		c.ContentFiles = files
	case *GraphView:
		c.ContentFiles = files
	case *Calculation:
		c.ContentFiles = files
	}
}

// Delete removes a resource's metadata file and (for folder kinds) its
// content folder. Callers must check Usage() is empty first (spec §4.3
// "delete refuses when usage() is non-empty"); Delete itself does not
// re-check usage so that --force callers can still remove.
func Delete(env Env, r *Resource) error {
	if r.Source == SourceModule {
		return engineerr.PermissionDenied("resource.Delete", r.Name.String(), "module resources are read-only")
	}
	metaPath := metadataPath(env, r.Name, r.Source)
	if err := fsutil.RemoveTree(metaPath); err != nil {
		return engineerr.Filesystem("resource.Delete", metaPath, err)
	}
	if r.Name.Kind.IsFolderKind() {
		if err := fsutil.RemoveTree(folderPath(env, r.Name, r.Source)); err != nil {
			return engineerr.Filesystem("resource.Delete", r.Name.String(), err)
		}
	}
	if env.Invalidate != nil {
		env.Invalidate(r.Name)
	}
	return nil
}

// Rename renames a resource's identifier, rewriting its on-disk file name.
// Refuses for module resources and refuses a change of kind (the new name
// must keep r.Name.Prefix and r.Name.Kind, spec §4.3 "refuses type
// change"). Propagating the rename into calculations/handlebars templates
// that reference the old name is the caller's responsibility
// (importexport.Rename, behind Commands.Rename, does that for the
// whole-project rename; a single resource rename only touches its own file).
func Rename(env Env, r *Resource, newIdentifier string) (Name, error) {
	if r.Source == SourceModule {
		return Name{}, engineerr.PermissionDenied("resource.Rename", r.Name.String(), "module resources are read-only")
	}
	newName := Name{Prefix: r.Name.Prefix, Kind: r.Name.Kind, Identifier: newIdentifier}
	if _, err := ParseName(newName.String()); err != nil {
		return Name{}, err
	}
	oldMeta := metadataPath(env, r.Name, r.Source)
	newMeta := metadataPath(env, newName, r.Source)
	if fsutil.Exists(newMeta) {
		return Name{}, engineerr.Conflict("resource.Rename", newName.String())
	}
	if err := os.Rename(oldMeta, newMeta); err != nil {
		return Name{}, engineerr.Filesystem("resource.Rename", oldMeta, err)
	}
	if r.Name.Kind.IsFolderKind() {
		oldFolder := folderPath(env, r.Name, r.Source)
		newFolder := folderPath(env, newName, r.Source)
		if fsutil.Exists(oldFolder) {
			if err := os.Rename(oldFolder, newFolder); err != nil {
				return Name{}, engineerr.Filesystem("resource.Rename", oldFolder, err)
			}
		}
	}
	if env.Invalidate != nil {
		env.Invalidate(r.Name)
		env.Invalidate(newName)
	}
	r.Name = newName
	return newName, nil
}

// Save persists r.Content's current in-memory state back to its metadata
// file, used after an Update operation mutates Content in place.
func Save(env Env, r *Resource) error {
	if r.Source == SourceModule {
		return engineerr.PermissionDenied("resource.Save", r.Name.String(), "module resources are read-only")
	}
	data, err := json.MarshalIndent(r.Content, "", "  ")
	if err != nil {
		return engineerr.Schema("resource.Save", r.Name.String(), err)
	}
	metaPath := metadataPath(env, r.Name, r.Source)
	if err := fsutil.WriteFileAtomic(metaPath, data, 0o644); err != nil {
		return engineerr.Filesystem("resource.Save", metaPath, err)
	}
	if env.Invalidate != nil {
		env.Invalidate(r.Name)
	}
	return nil
}

// Show returns the resource's current metadata as a generic map, folding
// in content files for folder kinds (spec §4.3 "show").
func Show(r *Resource) (map[string]any, error) {
	data, err := json.Marshal(r.Content)
	if err != nil {
		return nil, engineerr.Schema("resource.Show", r.Name.String(), err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, engineerr.Schema("resource.Show", r.Name.String(), err)
	}
	out["name"] = r.Name.String()
	out["source"] = string(r.Source)
	if files := contentFilesOf(r.Content); files != nil {
		out["contentFiles"] = files
	}
	return out, nil
}

func contentFilesOf(content Content) map[string]string {
	switch c := content.(type) {
	case *Report:
		return c.ContentFiles
	case *GraphModel:
		return c.ContentFiles
	case *GraphView:
		return c.ContentFiles
	case *Calculation:
		return c.ContentFiles
	default:
		return nil
	}
}

// Usage scans the given card content bodies (AsciiDoc text) and resource
// bodies for a textual reference to r.Name, returning every card key or
// resource name that mentions it (spec §4.3 "usage(cards?)"). Matching is
// a literal substring search on the fully-qualified name, the same
// approach the teacher's usage-style searches take when no structured
// index exists for a concern (cf. git history frequency analysis scanning
// diff text rather than an AST).
func Usage(r *Resource, cardContents map[string]string, resourceBodies map[string]string) []string {
	needle := r.Name.String()
	var out []string
	for key, content := range cardContents {
		if strings.Contains(content, needle) {
			out = append(out, key)
		}
	}
	for name, body := range resourceBodies {
		if name == needle {
			continue
		}
		if strings.Contains(body, needle) {
			out = append(out, name)
		}
	}
	return out
}

// ParseOrFail wraps ParseName for call sites that want an engineerr kind.
func ParseOrFail(op, s string) (Name, error) {
	return ParseName(s)
}
