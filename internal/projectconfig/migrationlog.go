package projectconfig

import (
	"encoding/json"
	"os"
	"time"

	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/fsutil"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
	"github.com/google/uuid"
)

// Operation enumerates the kinds of change the migration log records (spec
// §3 "Migration log"): a closed set of seven values. Card mutations are not
// a separate category — a card is itself a resource for logging purposes,
// so card creation logs resource_create with the new card key as target,
// a card edit/move/rank/transition logs resource_update, and card removal
// logs resource_delete.
type Operation string

const (
	OpModuleAdd      Operation = "module_add"
	OpModuleRemove   Operation = "module_remove"
	OpProjectRename  Operation = "project_rename"
	OpResourceCreate Operation = "resource_create"
	OpResourceDelete Operation = "resource_delete"
	OpResourceRename Operation = "resource_rename"
	OpResourceUpdate Operation = "resource_update"
)

// LogEntry is one append-only record in migrationLog.jsonl. Every write to
// the project's draft version appends exactly one entry (spec §5), in the
// on-disk line format `{"id",...,"operation","target","parameters"?}`
// (spec §6 "Migration log line format").
type LogEntry struct {
	ID         string          `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Operation  Operation       `json:"operation"`
	Target     string          `json:"target"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// NewLogEntry builds a log entry stamped with a fresh UUID and the given
// timestamp (callers pass time.Now() so the package stays free of direct
// wall-clock reads, keeping it trivially testable).
func NewLogEntry(now time.Time, op Operation, target string, detail any) (LogEntry, error) {
	entry := LogEntry{
		ID:        uuid.NewString(),
		Timestamp: now.UTC(),
		Operation: op,
		Target:    target,
	}
	if detail != nil {
		raw, err := json.Marshal(detail)
		if err != nil {
			return LogEntry{}, engineerr.Schema("projectconfig.NewLogEntry", target, err)
		}
		entry.Parameters = raw
	}
	return entry, nil
}

// AppendLog serializes entry as one JSON line and appends it atomically to
// the draft version's migrationLog.jsonl (spec §3, §5: "every append is a
// single atomic write(O_APPEND)").
func AppendLog(projectRoot string, version int, entry LogEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return engineerr.Schema("projectconfig.AppendLog", entry.Target, err)
	}
	line = append(line, '\n')
	path := paths.MigrationLogFile(projectRoot, version)
	if err := fsutil.AppendAtomic(path, line); err != nil {
		return engineerr.Filesystem("projectconfig.AppendLog", path, err)
	}
	return nil
}

// ReadLog reads and parses every entry in the draft version's migration
// log, in append order.
func ReadLog(projectRoot string, version int) ([]LogEntry, error) {
	path := paths.MigrationLogFile(projectRoot, version)
	if !fsutil.Exists(path) {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, engineerr.Filesystem("projectconfig.ReadLog", path, err)
	}

	var entries []LogEntry
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == '\n' {
			line := raw[start:i]
			start = i + 1
			if len(line) == 0 {
				continue
			}
			var e LogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return nil, engineerr.Schema("projectconfig.ReadLog", path, err)
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}
