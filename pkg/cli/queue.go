package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/hearthlist/relay/pkg/cli/config"
	"github.com/hearthlist/relay/pkg/domain/model"
	"github.com/hearthlist/relay/pkg/domain/types"
	"github.com/hearthlist/relay/pkg/engine"
	"github.com/hearthlist/relay/pkg/service/connectivity"
	"github.com/hearthlist/relay/pkg/utils/logging"
)

func cmdQueue() *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Inspect and drain the local action queue",
		Commands: []*cli.Command{
			cmdQueueList(),
			cmdQueueDrain(),
		},
	}
}

func cmdQueueList() *cli.Command {
	var repoCfg config.Repository

	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "Print queued actions in delivery order",
		Flags:   repoCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to open repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			queued, err := repo.Queue().ListAll(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list queued actions")
			}

			if len(queued) == 0 {
				fmt.Println("queue is empty")
				return nil
			}

			for _, action := range queued {
				fmt.Printf("%4d  %s  %s  %s/%s  retries=%d/%d  %s %s\n",
					action.Seq,
					action.ID,
					colorizeState(action.State),
					action.EntityType, action.EntityID,
					action.RetryCount, action.MaxRetries,
					colorizeKind(action.Kind),
					action.Target.Path,
				)
			}
			return nil
		},
	}
}

func cmdQueueDrain() *cli.Command {
	var repoCfg config.Repository
	var remoteCfg config.Remote

	flags := repoCfg.Flags()
	flags = append(flags, remoteCfg.Flags()...)

	return &cli.Command{
		Name:  "drain",
		Usage: "Deliver queued actions to the remote API until the queue is empty or budgets exhaust",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to open repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			client, err := remoteCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure remote client")
			}

			lost := 0
			eng, err := engine.New(ctx, repo, client, connectivity.NewSignal(true),
				engine.WithTerminalHandler(func(ctx context.Context, failure *model.TerminalFailure) {
					lost++
				}))
			if err != nil {
				return goerr.Wrap(err, "failed to build engine")
			}
			defer eng.Close()

			total := eng.PendingCount()
			if total == 0 {
				fmt.Println("queue is empty")
				return nil
			}

			// Each pass burns one retry per failing record, so this loop
			// terminates once every record is resolved or exhausted.
			for eng.PendingCount() > 0 {
				if err := eng.Sync(ctx); err != nil {
					return goerr.Wrap(err, "sync pass failed")
				}
			}

			fmt.Printf("drained %d action(s), %d permanently failed\n", total, lost)
			return nil
		},
	}
}

func colorizeState(state types.ActionState) string {
	switch state {
	case types.ActionStatePending:
		return color.YellowString("%s", state)
	case types.ActionStateInFlight:
		return color.CyanString("%s", state)
	case types.ActionStateResolved:
		return color.GreenString("%s", state)
	case types.ActionStateExhausted:
		return color.RedString("%s", state)
	default:
		return state.String()
	}
}

func colorizeKind(kind types.ActionKind) string {
	switch kind {
	case types.ActionKindCreate:
		return color.GreenString("%-6s", kind)
	case types.ActionKindUpdate:
		return color.BlueString("%-6s", kind)
	case types.ActionKindDelete:
		return color.RedString("%-6s", kind)
	default:
		return kind.String()
	}
}
