package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/hearthlist/relay/pkg/domain/model"
	"github.com/hearthlist/relay/pkg/domain/types"
	"github.com/hearthlist/relay/pkg/engine"
	"github.com/hearthlist/relay/pkg/repository/memory"
	"github.com/hearthlist/relay/pkg/service/connectivity"
	"github.com/hearthlist/relay/pkg/service/remote"
)

func postJSON(t *testing.T, url string, body map[string]any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	gt.NoError(t, err).Required()
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	gt.NoError(t, err).Required()
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&body)).Required()
	return body
}

func TestDevServerHandler(t *testing.T) {
	t.Run("create assigns a server ID", func(t *testing.T) {
		server := httptest.NewServer(newDevServerHandler(0))
		defer server.Close()

		resp := postJSON(t, server.URL+"/api/v1/tasks", map[string]any{"title": "Buy milk"})
		gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)

		body := decodeBody(t, resp)
		gt.Value(t, body["title"]).Equal("Buy milk")
		gt.Value(t, body["id"]).NotEqual("")
	})

	t.Run("update merges into the stored entity", func(t *testing.T) {
		server := httptest.NewServer(newDevServerHandler(0))
		defer server.Close()

		created := decodeBody(t, postJSON(t, server.URL+"/api/v1/tasks", map[string]any{"title": "Buy milk"}))
		id, ok := created["id"].(string)
		gt.Bool(t, ok).True()

		raw, err := json.Marshal(map[string]any{"done": true})
		gt.NoError(t, err).Required()
		req, err := http.NewRequest(http.MethodPatch, server.URL+"/api/v1/tasks/"+id, bytes.NewReader(raw))
		gt.NoError(t, err).Required()
		resp, err := http.DefaultClient.Do(req)
		gt.NoError(t, err).Required()
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

		body := decodeBody(t, resp)
		gt.Value(t, body["title"]).Equal("Buy milk")
		gt.Value(t, body["done"]).Equal(true)
	})

	t.Run("delete removes the entity and repeats as 404", func(t *testing.T) {
		server := httptest.NewServer(newDevServerHandler(0))
		defer server.Close()

		created := decodeBody(t, postJSON(t, server.URL+"/api/v1/tasks", map[string]any{"title": "Buy milk"}))
		id := created["id"].(string)

		req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/v1/tasks/"+id, nil)
		gt.NoError(t, err).Required()
		resp, err := http.DefaultClient.Do(req)
		gt.NoError(t, err).Required()
		gt.Value(t, resp.StatusCode).Equal(http.StatusNoContent)
		resp.Body.Close()

		resp, err = http.DefaultClient.Do(req)
		gt.NoError(t, err).Required()
		gt.Value(t, resp.StatusCode).Equal(http.StatusNotFound)
		resp.Body.Close()
	})

	t.Run("failure injection answers every Nth write with 503", func(t *testing.T) {
		server := httptest.NewServer(newDevServerHandler(2))
		defer server.Close()

		first := postJSON(t, server.URL+"/api/v1/tasks", map[string]any{"n": 1})
		gt.Value(t, first.StatusCode).Equal(http.StatusCreated)
		first.Body.Close()

		second := postJSON(t, server.URL+"/api/v1/tasks", map[string]any{"n": 2})
		gt.Value(t, second.StatusCode).Equal(http.StatusServiceUnavailable)
		second.Body.Close()

		third := postJSON(t, server.URL+"/api/v1/tasks", map[string]any{"n": 3})
		gt.Value(t, third.StatusCode).Equal(http.StatusCreated)
		third.Body.Close()
	})
}

// End-to-end: engine + HTTP client against the stub API
func TestDevServerWithEngine(t *testing.T) {
	server := httptest.NewServer(newDevServerHandler(0))
	defer server.Close()

	ctx := context.Background()
	client, err := remote.New(server.URL)
	gt.NoError(t, err).Required()

	signal := connectivity.NewSignal(false)
	repo := memory.New()
	eng, err := engine.New(ctx, repo, client, signal)
	gt.NoError(t, err).Required()
	defer eng.Close()

	created, err := eng.Enqueue(ctx, engine.Input{
		Kind:       types.ActionKindCreate,
		EntityType: "task",
		Payload:    model.Payload{"title": "Buy milk"},
		Target:     model.Target{Method: http.MethodPost, Path: "/api/v1/tasks"},
	})
	gt.NoError(t, err).Required()
	tempID := created.EntityID

	_, err = eng.Enqueue(ctx, engine.Input{
		Kind:       types.ActionKindUpdate,
		EntityType: "task",
		EntityID:   tempID,
		Payload:    model.Payload{"done": true},
		Target:     model.Target{Method: http.MethodPatch, Path: "/api/v1/tasks/" + tempID.String()},
	})
	gt.NoError(t, err).Required()

	signal.Set(true)

	deadline := time.Now().Add(2 * time.Second)
	for eng.PendingCount() > 0 && time.Now().Before(deadline) {
		gt.NoError(t, eng.Sync(ctx)).Required()
		time.Sleep(5 * time.Millisecond)
	}
	gt.Value(t, eng.PendingCount()).Equal(0)

	// The entity is cached under the server-assigned ID only
	_, err = repo.Cache().Get(ctx, "task", tempID)
	gt.Error(t, err)
}
