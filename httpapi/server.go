/*
Package httpapi exposes a read-mostly HTTP introspection surface over
a database connection: health, stats, transact, query, and pull. It is
operational tooling, not a fluent query-builder or a generated client
-- the wire format is plain JSON DTOs translated into query.Query and
pull.Spec values; queries sent over the wire are flat conjunctions of
patterns only.

SEE ALSO:
  - db: Connection, the read surface this package wraps.
  - journal: PersistentConnection, which also satisfies Store.
  - query, pull: request/response payloads.
*/
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/faktum-db/faktum/db"
	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/txn"
)

// Store is the connection surface a Handler needs. Both db.Connection
// and journal.PersistentConnection satisfy it.
type Store interface {
	Current() *db.Db
	Transact(ops []txn.Op) (*db.Db, map[string]fact.EntityID, error)
	Stats() db.Stats
}

var _ Store = (*db.Connection)(nil)

// Handler holds the dependencies HTTP handlers need.
type Handler struct {
	Store Store
}

// NewHandler returns a Handler over store.
func NewHandler(store Store) *Handler {
	return &Handler{Store: store}
}

// NewRouter builds the chi router: request logging, panic recovery,
// request ids, and permissive CORS for a local introspection UI.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/stats", h.Stats)

		r.Route("/db", func(r chi.Router) {
			r.Post("/transact", h.Transact)
			r.Post("/query", h.Query)
			r.Post("/pull", h.Pull)

			r.Get("/entity/{id}", h.GetEntity)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no such route", nil)
	})

	return r
}
