// Package cli provides command definitions for agentcall.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/imagray/agentcontrol/internal/bridge"
	"github.com/imagray/agentcontrol/internal/docs"
	"github.com/imagray/agentcontrol/internal/region"
)

func docsCommand() *cli.Command {
	return &cli.Command{
		Name:  "docs",
		Usage: "Inspect and synchronize managed documentation sections",
		Commands: []*cli.Command{
			docsDiagnoseCommand(),
			docsInfoCommand(),
			docsListCommand(),
			docsDiffCommand(),
			docsRepairCommand(),
			docsAdoptCommand(),
			docsRollbackCommand(),
			docsSyncCommand(),
			docsHistoryCommand(),
		},
	}
}

func projectFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "project",
		Aliases: []string{"C"},
		Value:   ".",
		Usage:   "Project root directory",
	}
}

func jsonFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    "json",
		Aliases: []string{"j"},
		Usage:   "Output in JSON format for scripting",
	}
}

func sectionFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:    "section",
		Aliases: []string{"s"},
		Usage:   "Limit the operation to the named section (repeatable)",
	}
}

func entryFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:    "entry",
		Aliases: []string{"e"},
		Usage:   "Limit templated sections to the given entry id (repeatable)",
	}
}

// newAggregate builds the read side for the project named on the
// command line.
func newAggregate(cmd *cli.Command) (*docs.Aggregate, error) {
	root, err := filepath.Abs(cmd.String("project"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	cfg, configPath, err := bridge.NewLoader().Load(root)
	if err != nil {
		return nil, err
	}
	ctx := docs.Context{ProjectRoot: root, Config: cfg, ConfigPath: configPath}
	return docs.NewAggregate(ctx, region.NewEngine()), nil
}

// newService builds the write side, replaying the adopted baseline as
// the expected content.
func newService(cmd *cli.Command) (*docs.Service, error) {
	aggregate, err := newAggregate(cmd)
	if err != nil {
		return nil, err
	}
	return docs.NewService(aggregate, docs.BaselineProvider{})
}

func outputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// exitStatus converts a non-ok outcome into an error so scripts can
// branch on the exit code without parsing output.
func exitStatus(ok bool, message string) error {
	if ok {
		return nil
	}
	return errors.New(message)
}

func docsDiagnoseCommand() *cli.Command {
	return &cli.Command{
		Name:  "diagnose",
		Usage: "Scan every section and report inconsistencies",
		Flags: []cli.Flag{projectFlag(), jsonFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			aggregate, err := newAggregate(cmd)
			if err != nil {
				return err
			}
			diagnosis, err := aggregate.Diagnose()
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				if err := outputJSON(diagnosis); err != nil {
					return err
				}
				return exitStatus(diagnosis.Status != "error", "documentation diagnostics reported errors")
			}
			renderDiagnosis(diagnosis)
			return exitStatus(diagnosis.Status != "error", "documentation diagnostics reported errors")
		},
	}
}

func docsInfoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show the section inventory with current on-disk status",
		Flags: []cli.Flag{projectFlag(), jsonFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			aggregate, err := newAggregate(cmd)
			if err != nil {
				return err
			}
			summary, err := aggregate.Inspect(true)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return outputJSON(summary)
			}
			renderSummary(summary, true)
			return nil
		},
	}
}

func docsListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List configured sections without probing the disk",
		Flags: []cli.Flag{projectFlag(), jsonFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			aggregate, err := newAggregate(cmd)
			if err != nil {
				return err
			}
			summary, err := aggregate.Inspect(false)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return outputJSON(summary)
			}
			renderSummary(summary, false)
			return nil
		},
	}
}

func docsDiffCommand() *cli.Command {
	return &cli.Command{
		Name:  "diff",
		Usage: "Compare the adopted baseline against the working tree",
		Flags: []cli.Flag{projectFlag(), jsonFlag(), sectionFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			service, err := newService(cmd)
			if err != nil {
				return err
			}
			report, err := service.Diff(cmd.StringSlice("section"))
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				if err := outputJSON(report); err != nil {
					return err
				}
				return exitStatus(report.Clean(), "documentation drift detected")
			}
			renderDiff(report)
			return exitStatus(report.Clean(), "documentation drift detected")
		},
	}
}

func docsRepairCommand() *cli.Command {
	return &cli.Command{
		Name:  "repair",
		Usage: "Rewrite drifted sections back to the adopted baseline",
		Flags: []cli.Flag{projectFlag(), jsonFlag(), sectionFlag(), entryFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			service, err := newService(cmd)
			if err != nil {
				return err
			}
			report, err := service.Repair(cmd.StringSlice("section"), cmd.StringSlice("entry"))
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return outputJSON(report)
			}
			renderRepair(report)
			return nil
		},
	}
}

func docsAdoptCommand() *cli.Command {
	return &cli.Command{
		Name:  "adopt",
		Usage: "Capture the current on-disk content as the new baseline",
		Flags: []cli.Flag{projectFlag(), jsonFlag(), sectionFlag(), entryFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			service, err := newService(cmd)
			if err != nil {
				return err
			}
			report, err := service.Adopt(cmd.StringSlice("section"), cmd.StringSlice("entry"))
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return outputJSON(report)
			}
			renderAdopt(report)
			return nil
		},
	}
}

func docsRollbackCommand() *cli.Command {
	return &cli.Command{
		Name:  "rollback",
		Usage: "Restore files from a backup snapshot",
		Flags: []cli.Flag{
			projectFlag(), jsonFlag(), sectionFlag(), entryFlag(),
			&cli.StringFlag{
				Name:    "timestamp",
				Aliases: []string{"t"},
				Usage:   "Backup snapshot timestamp (see agentcall docs history)",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			timestamp := cmd.String("timestamp")
			if timestamp == "" {
				return errors.New("rollback requires --timestamp (see agentcall docs history)")
			}
			service, err := newService(cmd)
			if err != nil {
				return err
			}
			report, err := service.Rollback(timestamp,
				cmd.StringSlice("section"), cmd.StringSlice("entry"))
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return outputJSON(report)
			}
			renderRollback(report)
			return nil
		},
	}
}

func docsSyncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Diff, converge flagged sections, then verify",
		Flags: []cli.Flag{
			projectFlag(), jsonFlag(), sectionFlag(), entryFlag(),
			&cli.StringFlag{
				Name:  "mode",
				Value: docs.SyncModeRepair,
				Usage: "Convergence direction: repair (rewrite disk) or adopt (rewrite baseline)",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			service, err := newService(cmd)
			if err != nil {
				return err
			}
			report, err := service.Sync(cmd.String("mode"),
				cmd.StringSlice("section"), cmd.StringSlice("entry"))
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				if err := outputJSON(report); err != nil {
					return err
				}
				return exitStatus(report.Status == docs.StatusOK, "documentation sections still diverge")
			}
			renderSync(report)
			return exitStatus(report.Status == docs.StatusOK, "documentation sections still diverge")
		},
	}
}

func docsHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List backup snapshots, oldest first",
		Flags: []cli.Flag{projectFlag(), jsonFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			service, err := newService(cmd)
			if err != nil {
				return err
			}
			timestamps, err := service.Store().List()
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return outputJSON(map[string]any{"backups": timestamps})
			}
			renderHistory(timestamps)
			return nil
		},
	}
}
