// Package editsession is the edit session manager (spec §4.7, "optional
// subsystem"): when the project root is a Git repository, a caller may open
// a draft session on a card, edit that card's files in an isolated Git
// worktree, and either publish (merge + clean up) or discard (clean up
// without merging) the session.
//
// Every mutating method shells out to the system `git` binary via
// os/exec.CommandContext, the same idiom the teacher repo's
// internal/git.Provider uses to drive `git diff`/`git show`/`git rev-parse`
// rather than linking a Go git implementation.
package editsession

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/fsutil"
	"github.com/CyberismoCom/cyberismo-engine/internal/paths"
)

// Session describes one open or recently-closed edit session.
type Session struct {
	ID           string    `json:"id"`
	CardKey      string    `json:"cardKey"`
	Branch       string    `json:"branch"`
	WorktreePath string    `json:"worktreePath"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Manager opens, saves, publishes, and discards edit sessions for one
// project root. It keeps no in-memory session list: every method reads and
// writes the on-disk metadata file directly, so a Manager is safe to
// construct fresh per call and safe to share across goroutines.
type Manager struct {
	root  string
	prefs Preferences
}

// New builds a Manager for the project rooted at root, loading operator
// preferences from the local sessions.toml (empty Preferences if none
// exists).
func New(root string) (*Manager, error) {
	prefs, err := LoadPreferences()
	if err != nil {
		return nil, err
	}
	return &Manager{root: root, prefs: prefs}, nil
}

func (m *Manager) worktreeRoot() string {
	if m.prefs.WorktreeRoot != "" {
		return m.prefs.WorktreeRoot
	}
	return paths.EditSessionsDir(m.root)
}

func (m *Manager) worktreeDir(id string) string {
	return filepath.Join(m.worktreeRoot(), id)
}

func (m *Manager) metaFile(id string) string {
	return filepath.Join(paths.EditSessionsDir(m.root), id+".meta.json")
}

// StartSession creates a worktree at "<project>/.cards/edit-sessions/<uuid>"
// (or the operator's configured worktree root) on a fresh branch
// "edit/<cardKey>/<uuid>", refusing to start when the main worktree carries
// uncommitted changes (a session must begin from a clean base so publish can
// later fast-forward-merge without surprise conflicts from unrelated work).
func (m *Manager) StartSession(ctx context.Context, cardKey string) (*Session, error) {
	if err := m.requireGitRepo(ctx); err != nil {
		return nil, err
	}
	dirty, err := m.isDirty(ctx)
	if err != nil {
		return nil, err
	}
	if dirty {
		return nil, engineerr.Conflict("editsession.StartSession", "main worktree has uncommitted changes")
	}

	id := uuid.NewString()
	branch := fmt.Sprintf("edit/%s/%s", cardKey, id)
	worktree := m.worktreeDir(id)

	if err := os.MkdirAll(filepath.Dir(worktree), 0o755); err != nil {
		return nil, engineerr.Filesystem("editsession.StartSession", worktree, err)
	}
	if _, err := m.git(ctx, m.root, "worktree", "add", "-b", branch, worktree); err != nil {
		return nil, err
	}

	session := &Session{
		ID:           id,
		CardKey:      cardKey,
		Branch:       branch,
		WorktreePath: worktree,
		CreatedAt:    time.Now().UTC(),
	}
	if err := m.writeMeta(session); err != nil {
		return nil, err
	}
	return session, nil
}

// SaveSession stages and commits any pending changes in session id's
// worktree. A worktree with nothing staged is left untouched rather than
// producing an empty commit.
func (m *Manager) SaveSession(ctx context.Context, id string) error {
	session, err := m.readMeta(id)
	if err != nil {
		return err
	}
	return m.save(ctx, session)
}

func (m *Manager) save(ctx context.Context, session *Session) error {
	if _, err := m.git(ctx, session.WorktreePath, "add", "-A"); err != nil {
		return err
	}
	_, diffErr := m.git(ctx, session.WorktreePath, "diff", "--cached", "--quiet")
	if diffErr == nil {
		return nil
	}
	_, err := m.git(ctx, session.WorktreePath, "commit", "-m", "edit session save: "+session.CardKey)
	return err
}

// PublishSession auto-saves session id, merges its branch into the main
// worktree's current branch, then removes the worktree and deletes the
// branch.
func (m *Manager) PublishSession(ctx context.Context, id string) error {
	session, err := m.readMeta(id)
	if err != nil {
		return err
	}
	if err := m.save(ctx, session); err != nil {
		return err
	}

	mergeArgs := []string{"merge", "--no-edit"}
	if m.prefs.DefaultMergeStrategy == MergeStrategySquash {
		mergeArgs = append(mergeArgs, "--squash")
	}
	mergeArgs = append(mergeArgs, session.Branch)
	if _, err := m.git(ctx, m.root, mergeArgs...); err != nil {
		return err
	}
	if m.prefs.DefaultMergeStrategy == MergeStrategySquash {
		if _, err := m.git(ctx, m.root, "commit", "-m", "edit session publish: "+session.CardKey); err != nil {
			return err
		}
	}

	return m.teardown(ctx, session)
}

// DiscardSession removes session id's worktree and branch without merging.
func (m *Manager) DiscardSession(ctx context.Context, id string) error {
	session, err := m.readMeta(id)
	if err != nil {
		return err
	}
	return m.teardown(ctx, session)
}

func (m *Manager) teardown(ctx context.Context, session *Session) error {
	if _, err := m.git(ctx, m.root, "worktree", "remove", "--force", session.WorktreePath); err != nil {
		return err
	}
	if _, err := m.git(ctx, m.root, "branch", "-D", session.Branch); err != nil {
		return err
	}
	if err := os.Remove(m.metaFile(session.ID)); err != nil && !os.IsNotExist(err) {
		return engineerr.Filesystem("editsession.teardown", m.metaFile(session.ID), err)
	}
	return nil
}

// List returns every session with surviving metadata, oldest first.
func (m *Manager) List() ([]*Session, error) {
	dir := paths.EditSessionsDir(m.root)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, engineerr.Filesystem("editsession.List", dir, err)
	}
	var sessions []*Session
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".meta.json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".meta.json")
		session, err := m.readMeta(id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CreatedAt.Before(sessions[j].CreatedAt) })
	return sessions, nil
}

// CleanupOrphans removes metadata for sessions whose worktree directory no
// longer exists on disk (e.g. deleted manually outside the manager) and
// prunes git's stale worktree registrations, returning the count removed.
func (m *Manager) CleanupOrphans(ctx context.Context) (int, error) {
	sessions, err := m.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, session := range sessions {
		if fsutil.Exists(session.WorktreePath) {
			continue
		}
		if err := os.Remove(m.metaFile(session.ID)); err != nil && !os.IsNotExist(err) {
			return removed, engineerr.Filesystem("editsession.CleanupOrphans", m.metaFile(session.ID), err)
		}
		// The branch may still exist even though the worktree is gone; best
		// effort, ignore failure (branch may already be gone too).
		_, _ = m.git(ctx, m.root, "branch", "-D", session.Branch)
		removed++
	}
	if _, err := m.git(ctx, m.root, "worktree", "prune"); err != nil {
		return removed, err
	}
	return removed, nil
}

func (m *Manager) writeMeta(session *Session) error {
	raw, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return engineerr.Schema("editsession.writeMeta", session.ID, err)
	}
	if err := fsutil.WriteFileAtomic(m.metaFile(session.ID), raw, 0o644); err != nil {
		return engineerr.Filesystem("editsession.writeMeta", m.metaFile(session.ID), err)
	}
	return nil
}

func (m *Manager) readMeta(id string) (*Session, error) {
	raw, err := os.ReadFile(m.metaFile(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, engineerr.NotFound("editsession.readMeta", id)
		}
		return nil, engineerr.Filesystem("editsession.readMeta", m.metaFile(id), err)
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, engineerr.Schema("editsession.readMeta", id, err)
	}
	return &session, nil
}
