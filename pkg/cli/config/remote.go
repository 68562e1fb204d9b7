package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/hearthlist/relay/pkg/service/remote"
)

// Remote holds CLI flags for the upstream Hearthlist API
type Remote struct {
	baseURL   string
	authToken string
}

func (x *Remote) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Base URL of the remote API (e.g. https://api.hearthlist.example)",
			Category:    "Remote",
			Sources:     cli.EnvVars("RELAY_BASE_URL"),
			Destination: &x.baseURL,
		},
		&cli.StringFlag{
			Name:        "auth-token",
			Usage:       "Bearer token sent with every delivery",
			Category:    "Remote",
			Sources:     cli.EnvVars("RELAY_AUTH_TOKEN"),
			Destination: &x.authToken,
		},
	}
}

func (x Remote) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("base-url", x.baseURL),
		slog.Int("auth-token.len", len(x.authToken)),
	)
}

// BaseURL returns the configured remote base URL
func (x *Remote) BaseURL() string {
	return x.baseURL
}

// Configure builds the remote API client
func (x *Remote) Configure() (*remote.Client, error) {
	if x.baseURL == "" {
		return nil, goerr.New("base-url is required")
	}

	opts := []remote.Option{}
	if x.authToken != "" {
		opts = append(opts, remote.WithHeader("Authorization", "Bearer "+x.authToken))
	}
	return remote.New(x.baseURL, opts...)
}
