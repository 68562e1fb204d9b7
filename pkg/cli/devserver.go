package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/hearthlist/relay/pkg/utils/errutil"
	"github.com/hearthlist/relay/pkg/utils/logging"
)

func cmdDevServer() *cli.Command {
	var addr string
	var failEvery int64

	return &cli.Command{
		Name:  "devserver",
		Usage: "Run an in-memory stub of the remote Hearthlist API for development",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "HTTP server address",
				Value:       ":8080",
				Sources:     cli.EnvVars("RELAY_DEVSERVER_ADDR"),
				Destination: &addr,
			},
			&cli.IntFlag{
				Name:        "fail-every",
				Usage:       "Answer every Nth write with 503 to exercise retry handling (0 disables)",
				Sources:     cli.EnvVars("RELAY_DEVSERVER_FAIL_EVERY"),
				Destination: &failEvery,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := &http.Server{
				Addr:              addr,
				Handler:           newDevServerHandler(int(failEvery)),
				ReadHeaderTimeout: 30 * time.Second,
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logging.Default().Info("Starting dev server", "addr", addr, "fail_every", failEvery)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return goerr.Wrap(err, "failed to start dev server")
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown dev server gracefully")
				}
				logging.Default().Info("Dev server shutdown completed")
				return nil
			})

			return g.Wait()
		},
	}
}

// devStore is the in-memory entity store behind the stub API
type devStore struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any
	writes      atomic.Int64
	failEvery   int64
}

func newDevServerHandler(failEvery int) http.Handler {
	store := &devStore{
		collections: make(map[string]map[string]map[string]any),
		failEvery:   int64(failEvery),
	}

	r := chi.NewRouter()
	r.Head("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api/v1/{collection}", func(r chi.Router) {
		r.Post("/", store.create)
		r.Get("/{id}", store.get)
		r.Patch("/{id}", store.update)
		r.Delete("/{id}", store.remove)
	})

	return r
}

// injectFailure answers every Nth write with 503 when enabled
func (s *devStore) injectFailure(w http.ResponseWriter) bool {
	if s.failEvery <= 0 {
		return false
	}
	if s.writes.Add(1)%s.failEvery == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		return true
	}
	return false
}

func (s *devStore) create(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w) {
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}

	collection := chi.URLParam(r, "collection")
	id := uuid.NewString()
	body["id"] = id

	s.mu.Lock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]any)
	}
	s.collections[collection][id] = body
	s.mu.Unlock()

	logging.From(r.Context()).Info("entity created", "collection", collection, "id", id)
	writeJSON(w, http.StatusCreated, body)
}

func (s *devStore) get(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	entity, ok := s.collections[collection][id]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (s *devStore) update(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w) {
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}

	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	entity, ok := s.collections[collection][id]
	if ok {
		for k, v := range body {
			entity[k] = v
		}
		entity["id"] = id
	}
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	logging.From(r.Context()).Info("entity updated", "collection", collection, "id", id)
	writeJSON(w, http.StatusOK, entity)
}

func (s *devStore) remove(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w) {
		return
	}

	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	_, ok := s.collections[collection][id]
	delete(s.collections[collection], id)
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	logging.From(r.Context()).Info("entity deleted", "collection", collection, "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Default().Error("failed to encode response", "error", err.Error())
	}
}
