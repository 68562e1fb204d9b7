package config

import (
	"net/http"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/hearthlist/relay/pkg/domain/model"
	"github.com/hearthlist/relay/pkg/domain/types"
)

const idPlaceholder = "{id}"

// RouteTable maps entity types to the remote API endpoints their actions
// target. It is loaded from a TOML file:
//
//	[[route]]
//	entity_type = "task"
//	collection  = "/api/v1/tasks"
//	item        = "/api/v1/tasks/{id}"
type RouteTable struct {
	path   string
	Routes []Route `toml:"route"`
}

// Route describes the endpoints of one entity type. Collection is the
// create target; Item, with the {id} placeholder, is the update and delete
// target.
type Route struct {
	EntityType string `toml:"entity_type"`
	Collection string `toml:"collection"`
	Item       string `toml:"item"`
}

// Validate checks if the Route is valid
func (r *Route) Validate() error {
	if r.EntityType == "" {
		return goerr.New("route entity_type is required")
	}
	if r.Collection == "" {
		return goerr.New("route collection path is required", goerr.V("entity_type", r.EntityType))
	}
	if r.Item == "" {
		return goerr.New("route item path is required", goerr.V("entity_type", r.EntityType))
	}
	if !strings.Contains(r.Item, idPlaceholder) {
		return goerr.New("route item path must contain the {id} placeholder",
			goerr.V("entity_type", r.EntityType), goerr.V("item", r.Item))
	}
	return nil
}

// Validate checks if the RouteTable is valid
func (t *RouteTable) Validate() error {
	if len(t.Routes) == 0 {
		return goerr.New("route table has no routes")
	}

	seen := make(map[string]bool)
	for _, route := range t.Routes {
		if err := route.Validate(); err != nil {
			return goerr.Wrap(err, "invalid route")
		}
		if seen[route.EntityType] {
			return goerr.New("duplicate route entity_type", goerr.V("entity_type", route.EntityType))
		}
		seen[route.EntityType] = true
	}
	return nil
}

func (t *RouteTable) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "routes",
			Usage:       "Path to the TOML route table",
			Category:    "Remote",
			Value:       "routes.toml",
			Sources:     cli.EnvVars("RELAY_ROUTES"),
			Destination: &t.path,
		},
	}
}

// Configure loads and validates the route table from the configured path
func (t *RouteTable) Configure() error {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return goerr.Wrap(err, "failed to read route table", goerr.V("path", t.path))
	}

	if err := toml.Unmarshal(data, t); err != nil {
		return goerr.Wrap(err, "failed to parse route table", goerr.V("path", t.path))
	}

	if err := t.Validate(); err != nil {
		return goerr.Wrap(err, "route table validation failed", goerr.V("path", t.path))
	}
	return nil
}

// TargetFor derives the delivery target for an action from the route table
func (t *RouteTable) TargetFor(kind types.ActionKind, entityType types.EntityType, entityID types.EntityID) (model.Target, error) {
	var route *Route
	for i := range t.Routes {
		if t.Routes[i].EntityType == entityType.String() {
			route = &t.Routes[i]
			break
		}
	}
	if route == nil {
		return model.Target{}, goerr.New("no route for entity type", goerr.V("entity_type", entityType))
	}

	switch kind {
	case types.ActionKindCreate:
		return model.Target{Method: http.MethodPost, Path: route.Collection}, nil
	case types.ActionKindUpdate:
		return model.Target{
			Method: http.MethodPatch,
			Path:   strings.ReplaceAll(route.Item, idPlaceholder, entityID.String()),
		}, nil
	case types.ActionKindDelete:
		return model.Target{
			Method: http.MethodDelete,
			Path:   strings.ReplaceAll(route.Item, idPlaceholder, entityID.String()),
		}, nil
	default:
		return model.Target{}, goerr.New("invalid action kind", goerr.V("kind", kind))
	}
}
