// cyberismo-engine is a thin urfave/cli harness over internal/command, used
// for manual exercising and smoke tests (spec §1 keeps the real CLI out of
// this module's product surface; this binary is ambient dev tooling the
// teacher itself ships this way under cmd/lci).
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/CyberismoCom/cyberismo-engine/internal/command"
	"github.com/CyberismoCom/cyberismo-engine/internal/engineerr"
	"github.com/CyberismoCom/cyberismo-engine/internal/project"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
	"github.com/CyberismoCom/cyberismo-engine/internal/version"
)

func main() {
	app := &cli.App{
		Name:    "cyberismo-engine",
		Usage:   "exercise the project data engine from the command line",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "project root directory",
				Value:   ".",
			},
		},
		Before: cleanupOrphanSessionsOnStartup,
		Commands: []*cli.Command{
			createProjectCommand,
			createResourceCommand,
			validateCommand,
			publishDraftCommand,
			sessionCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// cleanupOrphanSessionsOnStartup removes metadata for edit sessions whose
// worktree is gone before any command runs (spec §4.7 "orphan cleanup on
// startup"). A project that doesn't open here (wrong root, not yet a
// project) is left for the command itself to report; this hook only cleans
// up on a root that does open.
func cleanupOrphanSessionsOnStartup(c *cli.Context) error {
	proj, err := project.Open(c.String("root"))
	if err != nil {
		return nil
	}
	_, err = command.New(proj).CleanupOrphanEditSessions(c.Context)
	return err
}

// exitCode maps err to the engine's exit codes (spec §6: 0 success, 1 user
// error, 2 internal error), preferring a cli.Exit-supplied code for
// argument-usage errors that never reach internal/command.
func exitCode(err error) int {
	if coder, ok := err.(cli.ExitCoder); ok {
		return coder.ExitCode()
	}
	return engineerr.ExitCode(err)
}

var createProjectCommand = &cli.Command{
	Name:      "create-project",
	Usage:     "scaffold a new project at --root",
	ArgsUsage: "<name> <cardKeyPrefix>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 2 {
			return cli.Exit("create-project requires <name> <cardKeyPrefix>", 1)
		}
		_, err := project.Create(c.String("root"), c.Args().Get(0), c.Args().Get(1))
		return err
	},
}

var createResourceCommand = &cli.Command{
	Name:      "create-resource",
	Usage:     "create a resource from a JSON content file",
	ArgsUsage: "<fullyQualifiedName> <contentFile.json>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 2 {
			return cli.Exit("create-resource requires <fullyQualifiedName> <contentFile.json>", 1)
		}
		name, err := resource.ParseName(c.Args().Get(0))
		if err != nil {
			return err
		}
		content, err := resource.New(name.Kind)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(c.Args().Get(1))
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, content); err != nil {
			return cli.Exit(fmt.Sprintf("invalid content JSON: %v", err), 1)
		}

		proj, err := project.Open(c.String("root"))
		if err != nil {
			return err
		}
		_, err = command.New(proj).CreateResource(name, content)
		return err
	},
}

var validateCommand = &cli.Command{
	Name:  "validate",
	Usage: "validate every resource and card against the current model",
	Action: func(c *cli.Context) error {
		proj, err := project.Open(c.String("root"))
		if err != nil {
			return err
		}
		findings, err := command.New(proj).Validate(c.Context)
		if err != nil {
			return err
		}
		for _, f := range findings {
			fmt.Printf("%s: %s\n", f.Target, f.Reason)
		}
		if len(findings) > 0 {
			return cli.Exit(fmt.Sprintf("%d finding(s)", len(findings)), 1)
		}
		return nil
	},
}

var publishDraftCommand = &cli.Command{
	Name:  "publish-draft",
	Usage: "promote the current draft to a published version and open the next draft",
	Action: func(c *cli.Context) error {
		proj, err := project.Open(c.String("root"))
		if err != nil {
			return err
		}
		return command.New(proj).PublishDraft()
	},
}

var sessionCommand = &cli.Command{
	Name:  "session",
	Usage: "manage Git-worktree-backed edit sessions",
	Subcommands: []*cli.Command{
		{
			Name:      "start",
			ArgsUsage: "<cardKey>",
			Action: func(c *cli.Context) error {
				if c.Args().Len() != 1 {
					return cli.Exit("session start requires <cardKey>", 1)
				}
				proj, err := project.Open(c.String("root"))
				if err != nil {
					return err
				}
				session, err := command.New(proj).StartEditSession(c.Context, c.Args().Get(0))
				if err != nil {
					return err
				}
				fmt.Println(session.ID)
				return nil
			},
		},
		{
			Name:      "save",
			ArgsUsage: "<sessionId>",
			Action: func(c *cli.Context) error {
				if c.Args().Len() != 1 {
					return cli.Exit("session save requires <sessionId>", 1)
				}
				proj, err := project.Open(c.String("root"))
				if err != nil {
					return err
				}
				return command.New(proj).SaveEditSession(c.Context, c.Args().Get(0))
			},
		},
		{
			Name:      "publish",
			ArgsUsage: "<sessionId>",
			Action: func(c *cli.Context) error {
				if c.Args().Len() != 1 {
					return cli.Exit("session publish requires <sessionId>", 1)
				}
				proj, err := project.Open(c.String("root"))
				if err != nil {
					return err
				}
				return command.New(proj).PublishEditSession(c.Context, c.Args().Get(0))
			},
		},
		{
			Name:      "discard",
			ArgsUsage: "<sessionId>",
			Action: func(c *cli.Context) error {
				if c.Args().Len() != 1 {
					return cli.Exit("session discard requires <sessionId>", 1)
				}
				proj, err := project.Open(c.String("root"))
				if err != nil {
					return err
				}
				return command.New(proj).DiscardEditSession(c.Context, c.Args().Get(0))
			},
		},
		{
			Name:  "cleanup",
			Usage: "remove metadata for sessions whose worktree no longer exists",
			Action: func(c *cli.Context) error {
				proj, err := project.Open(c.String("root"))
				if err != nil {
					return err
				}
				removed, err := command.New(proj).CleanupOrphanEditSessions(c.Context)
				if err != nil {
					return err
				}
				fmt.Printf("removed %d orphaned session(s)\n", removed)
				return nil
			},
		},
	},
}
