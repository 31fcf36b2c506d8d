package command

import (
	"context"

	"github.com/CyberismoCom/cyberismo-engine/internal/editsession"
	"github.com/CyberismoCom/cyberismo-engine/internal/projectconfig"
)

// StartEditSession opens a Git-worktree-backed draft session on cardKey
// (spec §4.7). Unlike the other command methods it does not hold the
// project write lock for its duration: a session's edits happen in an
// isolated worktree the project's own cache never observes until publish.
func (c *Commands) StartEditSession(ctx context.Context, cardKey string) (*editsession.Session, error) {
	mgr, err := editsession.New(c.proj.Root)
	if err != nil {
		return nil, err
	}
	return mgr.StartSession(ctx, cardKey)
}

// SaveEditSession commits pending changes in session id's worktree.
func (c *Commands) SaveEditSession(ctx context.Context, id string) error {
	mgr, err := editsession.New(c.proj.Root)
	if err != nil {
		return err
	}
	return mgr.SaveSession(ctx, id)
}

// PublishEditSession auto-saves, merges, and tears down session id, then
// notifies the calculation engine of the cards the merge may have changed.
func (c *Commands) PublishEditSession(ctx context.Context, id string) error {
	mgr, err := editsession.New(c.proj.Root)
	if err != nil {
		return err
	}
	session, err := mgr.List()
	if err != nil {
		return err
	}
	target := id
	for _, s := range session {
		if s.ID == id {
			target = s.CardKey
			break
		}
	}

	c.proj.Lock()
	defer c.proj.Unlock()

	if err := mgr.PublishSession(ctx, id); err != nil {
		return err
	}
	if err := c.log(projectconfig.OpResourceUpdate, target, map[string]string{"sessionId": id}); err != nil {
		return err
	}
	return c.proj.Engine.Generate("")
}

// DiscardEditSession tears down session id without merging its branch. It
// appends no migration-log entry: discarding throws away the session's
// worktree without ever writing to the project's draft version.
func (c *Commands) DiscardEditSession(ctx context.Context, id string) error {
	mgr, err := editsession.New(c.proj.Root)
	if err != nil {
		return err
	}

	c.proj.Lock()
	defer c.proj.Unlock()

	return mgr.DiscardSession(ctx, id)
}

// CleanupOrphanEditSessions removes metadata for sessions whose worktree no
// longer exists on disk. The CLI harness calls it before each command runs
// (spec §4.7 "Orphan cleanup on startup removes sessions whose worktree is
// gone"); project.Open does not call it.
func (c *Commands) CleanupOrphanEditSessions(ctx context.Context) (int, error) {
	mgr, err := editsession.New(c.proj.Root)
	if err != nil {
		return 0, err
	}
	return mgr.CleanupOrphans(ctx)
}
