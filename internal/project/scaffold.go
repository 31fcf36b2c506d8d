package project

import (
	"encoding/json"
	"os"

	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/fsutil"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
	"github.com/CyberismoCom/cyberismo-engine/internal/version"
)

func mkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return engineerr.Filesystem("project.Create", dir, err)
	}
	return nil
}

// schemaStampEntry is one element of a version directory's .schema file
// (spec §6 ".schema // [{id, version}]").
type schemaStampEntry struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
}

// writeSchemaStamp writes "<root>/.cards/local/<v>/.schema" recording the
// current engine schema version, consulted by validate() to detect a
// resource folder written by an older/newer engine.
func writeSchemaStamp(root string, draftVersion int) error {
	stamp := []schemaStampEntry{{ID: "cyberismo-engine", Version: version.SchemaVersion}}
	data, err := json.MarshalIndent(stamp, "", "  ")
	if err != nil {
		return engineerr.Schema("project.Create", root, err)
	}
	path := paths.SchemaFile(root, draftVersion)
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return engineerr.Filesystem("project.Create", path, err)
	}
	return nil
}

// truncateLog writes the draft version's migration log as an empty file,
// so S1's expectation of an empty migrationLog.jsonl holds for a freshly
// created project.
func truncateLog(root string, draftVersion int) error {
	path := paths.MigrationLogFile(root, draftVersion)
	if err := fsutil.WriteFileAtomic(path, []byte{}, 0o644); err != nil {
		return engineerr.Filesystem("project.Create", path, err)
	}
	return nil
}
