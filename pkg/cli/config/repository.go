package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/hearthlist/relay/pkg/domain/interfaces"
	"github.com/hearthlist/relay/pkg/repository/memory"
	"github.com/hearthlist/relay/pkg/repository/sqlite"
	"github.com/hearthlist/relay/pkg/utils/logging"
)

// Repository holds CLI flags for the local store backend
type Repository struct {
	backend string
	dbPath  string
}

func (x *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Local store backend (sqlite or memory)",
			Category:    "Store",
			Value:       "sqlite",
			Sources:     cli.EnvVars("RELAY_REPOSITORY_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "Path to the SQLite database file (required for the sqlite backend)",
			Category:    "Store",
			Sources:     cli.EnvVars("RELAY_SQLITE_PATH"),
			Destination: &x.dbPath,
		},
	}
}

func (x Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.String("sqlite-path", x.dbPath),
	)
}

// Configure initializes and returns a repository based on the configured
// backend. The caller is responsible for calling Close() on it.
func (x *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch x.backend {
	case "sqlite":
		if x.dbPath == "" {
			return nil, goerr.New("sqlite-path is required when using the sqlite backend")
		}
		repo, err := sqlite.New(ctx, x.dbPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open sqlite repository")
		}
		logging.Default().Info("Using SQLite repository", "path", x.dbPath)
		return repo, nil

	case "memory":
		logging.Default().Info("Using in-memory repository (state is lost on exit)")
		return memory.New(), nil

	default:
		return nil, goerr.New("invalid repository backend", goerr.V("backend", x.backend))
	}
}
