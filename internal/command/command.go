// Package command implements the project data engine's mutating and
// read-only command surface (spec §4.4): each mutating card, resource, and
// module method acquires the project's write lock for its entire duration
// (read-only methods and the edit-session start/save/cleanup wrappers take
// no lock), validates, writes files,
// flips the affected in-memory cache, appends a migration-log entry, and
// finally notifies the calculation engine, in that order (spec §5).
package command

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/CyberismoCom/cyberismo-engine/internal/cardmodel"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/project"
	"github.com/CyberismoCom/cyberismo-engine/internal/projectconfig"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// Commands bundles every mutating and read-only operation for one open
// project. It holds no state of its own beyond the project it wraps.
type Commands struct {
	proj *project.Project
	now  func() time.Time
}

// New returns a Commands bound to proj, using time.Now for migration-log
// timestamps.
func New(proj *project.Project) *Commands {
	return &Commands{proj: proj, now: time.Now}
}

// log appends a migration-log entry for the project's current draft
// version. Called after a command's file writes and cache flips succeed,
// per spec §5's five-step ordering.
func (c *Commands) log(op projectconfig.Operation, target string, detail any) error {
	entry, err := projectconfig.NewLogEntry(c.now(), op, target, detail)
	if err != nil {
		return err
	}
	return c.proj.AppendLog(entry)
}

// nextCardKey synthesises a new card key "<prefix>_<base36 suffix>",
// retrying on the astronomically unlikely collision with an existing key
// (spec §4.4 "createCard ... synthesise a new key").
func nextCardKey(prefix string, exists func(string) bool) (string, error) {
	for attempt := 0; attempt < 8; attempt++ {
		suffix, err := randomBase36(8)
		if err != nil {
			return "", engineerr.Filesystem("command.nextCardKey", prefix, err)
		}
		key := fmt.Sprintf("%s_%s", prefix, suffix)
		if !exists(key) {
			return key, nil
		}
	}
	return "", engineerr.Invariant("command.nextCardKey", prefix, "exhausted retries generating a unique card key")
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomBase36(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(base36Alphabet))))
		if err != nil {
			return "", err
		}
		out[i] = base36Alphabet[idx.Int64()]
	}
	return string(out), nil
}

// resolveCardType looks up key's card type resource, used by commands that
// need the workflow or field definitions it carries.
func (c *Commands) resolveCardType(card *cardmodel.Card) (*resource.CardType, resource.Name, error) {
	name, err := resource.ParseName(card.Metadata.CardType)
	if err != nil {
		return nil, resource.Name{}, err
	}
	r, err := c.proj.Resources.ByName(name)
	if err != nil {
		return nil, name, err
	}
	ct, ok := r.Content.(*resource.CardType)
	if !ok {
		return nil, name, engineerr.Validation("command.resolveCardType", name.String(), fmt.Errorf("not a cardType resource"))
	}
	return ct, name, nil
}

func (c *Commands) resolveWorkflow(workflowName string) (*resource.Workflow, error) {
	name, err := resource.ParseName(workflowName)
	if err != nil {
		return nil, err
	}
	r, err := c.proj.Resources.ByName(name)
	if err != nil {
		return nil, err
	}
	wf, ok := r.Content.(*resource.Workflow)
	if !ok {
		return nil, engineerr.Validation("command.resolveWorkflow", name.String(), fmt.Errorf("not a workflow resource"))
	}
	return wf, nil
}

// ctxOrBackground is a small convenience so commands that don't need a
// cancellable context (most of them; only action-guard / query execution
// shells out to clingo) can be called without plumbing one through.
func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
