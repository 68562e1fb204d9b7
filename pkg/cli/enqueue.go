package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/hearthlist/relay/pkg/cli/config"
	"github.com/hearthlist/relay/pkg/domain/model"
	"github.com/hearthlist/relay/pkg/domain/types"
	"github.com/hearthlist/relay/pkg/engine"
	"github.com/hearthlist/relay/pkg/service/connectivity"
	"github.com/hearthlist/relay/pkg/utils/logging"
)

func cmdEnqueue() *cli.Command {
	var kind string
	var entityType string
	var entityID string
	var payload string
	var maxRetries int64
	var repoCfg config.Repository
	var routes config.RouteTable

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "kind",
			Usage:       "Action kind (CREATE, UPDATE or DELETE)",
			Required:    true,
			Destination: &kind,
		},
		&cli.StringFlag{
			Name:        "entity-type",
			Usage:       "Entity type the action targets (must exist in the route table)",
			Required:    true,
			Destination: &entityType,
		},
		&cli.StringFlag{
			Name:        "entity-id",
			Usage:       "Entity ID (optional for CREATE; a temporary ID is assigned)",
			Destination: &entityID,
		},
		&cli.StringFlag{
			Name:        "payload",
			Usage:       "Action payload as a JSON object",
			Destination: &payload,
		},
		&cli.IntFlag{
			Name:        "max-retries",
			Usage:       "Delivery attempts before the action is dropped (0 uses the default)",
			Destination: &maxRetries,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, routes.Flags()...)

	return &cli.Command{
		Name:  "enqueue",
		Usage: "Capture one action into the local queue",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			actionKind, err := types.ParseActionKind(kind)
			if err != nil {
				return err
			}

			var data model.Payload
			if payload != "" {
				if err := json.Unmarshal([]byte(payload), &data); err != nil {
					return goerr.Wrap(err, "payload must be a JSON object")
				}
			}

			if err := routes.Configure(); err != nil {
				return err
			}

			target, err := routes.TargetFor(actionKind, types.EntityType(entityType), types.EntityID(entityID))
			if err != nil {
				return err
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to open repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			// Capture only: delivery happens in `queue drain` or in an
			// embedding application.
			eng, err := engine.New(ctx, repo, noRemote{}, connectivity.NewSignal(false))
			if err != nil {
				return goerr.Wrap(err, "failed to build engine")
			}
			defer eng.Close()

			action, err := eng.Enqueue(ctx, engine.Input{
				Kind:       actionKind,
				EntityType: types.EntityType(entityType),
				EntityID:   types.EntityID(entityID),
				Payload:    data,
				Target:     target,
				MaxRetries: int(maxRetries),
			})
			if err != nil {
				return goerr.Wrap(err, "failed to enqueue action")
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(action); err != nil {
				return goerr.Wrap(err, "failed to print action")
			}
			fmt.Printf("queued (%d pending)\n", eng.PendingCount())
			return nil
		},
	}
}

// noRemote backs capture-only commands that never deliver
type noRemote struct{}

func (noRemote) Execute(ctx context.Context, action *model.ActionRecord) (model.Payload, error) {
	return nil, goerr.Wrap(model.ErrTransientDelivery, "no remote configured")
}
