package config_test

import (
	"net/http"
	"os"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/hearthlist/relay/pkg/cli/config"
	"github.com/hearthlist/relay/pkg/domain/types"
)

func writeFile(t *testing.T, path, content string) error {
	t.Helper()
	return os.WriteFile(path, []byte(content), 0600)
}

func tableAt(t *testing.T, path string) *config.RouteTable {
	t.Helper()
	return config.NewRouteTableForTest(path)
}

func validTable() *config.RouteTable {
	return &config.RouteTable{
		Routes: []config.Route{
			{
				EntityType: "task",
				Collection: "/api/v1/tasks",
				Item:       "/api/v1/tasks/{id}",
			},
			{
				EntityType: "list",
				Collection: "/api/v1/lists",
				Item:       "/api/v1/lists/{id}",
			},
		},
	}
}

func TestRouteTableValidate(t *testing.T) {
	t.Run("valid table", func(t *testing.T) {
		gt.NoError(t, validTable().Validate())
	})

	t.Run("empty table", func(t *testing.T) {
		table := &config.RouteTable{}
		gt.Error(t, table.Validate())
	})

	t.Run("missing entity type", func(t *testing.T) {
		table := validTable()
		table.Routes[0].EntityType = ""
		gt.Error(t, table.Validate())
	})

	t.Run("missing collection path", func(t *testing.T) {
		table := validTable()
		table.Routes[0].Collection = ""
		gt.Error(t, table.Validate())
	})

	t.Run("item path without placeholder", func(t *testing.T) {
		table := validTable()
		table.Routes[0].Item = "/api/v1/tasks/fixed"
		gt.Error(t, table.Validate())
	})

	t.Run("duplicate entity type", func(t *testing.T) {
		table := validTable()
		table.Routes[1].EntityType = "task"
		gt.Error(t, table.Validate())
	})
}

func TestRouteTableTargetFor(t *testing.T) {
	table := validTable()

	t.Run("create targets the collection", func(t *testing.T) {
		target, err := table.TargetFor(types.ActionKindCreate, "task", "")
		gt.NoError(t, err).Required()
		gt.Value(t, target.Method).Equal(http.MethodPost)
		gt.Value(t, target.Path).Equal("/api/v1/tasks")
	})

	t.Run("update targets the item with the ID substituted", func(t *testing.T) {
		target, err := table.TargetFor(types.ActionKindUpdate, "task", "srv-42")
		gt.NoError(t, err).Required()
		gt.Value(t, target.Method).Equal(http.MethodPatch)
		gt.Value(t, target.Path).Equal("/api/v1/tasks/srv-42")
	})

	t.Run("delete targets the item", func(t *testing.T) {
		target, err := table.TargetFor(types.ActionKindDelete, "list", "srv-9")
		gt.NoError(t, err).Required()
		gt.Value(t, target.Method).Equal(http.MethodDelete)
		gt.Value(t, target.Path).Equal("/api/v1/lists/srv-9")
	})

	t.Run("unknown entity type", func(t *testing.T) {
		_, err := table.TargetFor(types.ActionKindUpdate, "unknown", "srv-1")
		gt.Error(t, err)
	})
}

func TestRouteTableLoad(t *testing.T) {
	t.Run("loads a TOML file", func(t *testing.T) {
		path := t.TempDir() + "/routes.toml"
		raw := `
[[route]]
entity_type = "task"
collection  = "/api/v1/tasks"
item        = "/api/v1/tasks/{id}"
`
		gt.NoError(t, writeFile(t, path, raw)).Required()

		table := tableAt(t, path)
		gt.NoError(t, table.Configure()).Required()
		gt.Array(t, table.Routes).Length(1)
		gt.Value(t, table.Routes[0].EntityType).Equal("task")
	})

	t.Run("rejects an invalid file", func(t *testing.T) {
		path := t.TempDir() + "/routes.toml"
		raw := `
[[route]]
entity_type = "task"
collection  = "/api/v1/tasks"
item        = "/api/v1/tasks"
`
		gt.NoError(t, writeFile(t, path, raw)).Required()

		gt.Error(t, tableAt(t, path).Configure())
	})

	t.Run("missing file", func(t *testing.T) {
		gt.Error(t, tableAt(t, t.TempDir()+"/nope.toml").Configure())
	})
}
