package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/hearthlist/relay/pkg/cli/config"
	"github.com/hearthlist/relay/pkg/domain/types"
	"github.com/hearthlist/relay/pkg/engine"
	"github.com/hearthlist/relay/pkg/service/connectivity"
	"github.com/hearthlist/relay/pkg/utils/logging"
)

func cmdOverlay() *cli.Command {
	var entityType string
	var entityID string
	var repoCfg config.Repository

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "entity-type",
			Usage:       "Entity type to read",
			Required:    true,
			Destination: &entityType,
		},
		&cli.StringFlag{
			Name:        "entity-id",
			Usage:       "Entity ID to read",
			Required:    true,
			Destination: &entityID,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:  "overlay",
		Usage: "Print the optimistic view of an entity as JSON",
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

			eng, err := engine.New(ctx, repo, noRemote{}, connectivity.NewSignal(false))
			if err != nil {
				return goerr.Wrap(err, "failed to build engine")
			}
			defer eng.Close()

			view, err := eng.Overlay(ctx, types.EntityType(entityType), types.EntityID(entityID))
			if err != nil {
				return goerr.Wrap(err, "failed to read overlay")
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(view)
		},
	}
}
