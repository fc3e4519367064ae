package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/faktum-db/faktum/fact"
	"github.com/faktum-db/faktum/pull"
	"github.com/faktum-db/faktum/query"
)

// Health reports liveness and the current basis transaction.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", BasisT: h.Store.Current().BasisT()})
}

// Stats reports datom/entity/history counts for the current database.
// GET /api/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	s := h.Store.Stats()
	writeJSON(w, http.StatusOK, StatsResponse{
		BasisT:      s.BasisT,
		DatomCount:  s.DatomCount,
		EntityCount: s.EntityCount,
		HistorySize: s.HistorySize,
	})
}

// Transact applies a batch of operations as one new transaction.
// POST /api/db/transact
func (h *Handler) Transact(w http.ResponseWriter, r *http.Request) {
	var req TransactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ops, err := toOps(req.Ops)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction operations", err)
		return
	}
	next, ids, err := h.Store.Transact(ops)
	if err != nil {
		writeError(w, http.StatusBadRequest, "transaction failed", err)
		return
	}
	writeJSON(w, http.StatusOK, TransactResponse{BasisT: next.BasisT(), TempIDs: ids})
}

// Query runs a conjunctive pattern query against the current
// database.
// POST /api/db/query
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rel, err := query.Execute(h.Store.Current().Indexes(), req.toQuery())
	if err != nil {
		writeError(w, http.StatusBadRequest, "query failed", err)
		return
	}
	rows := make([][]fact.Value, len(rel.Tuples))
	for i, t := range rel.Tuples {
		row := make([]fact.Value, len(rel.Vars))
		for j, v := range rel.Vars {
			row[j] = t[v]
		}
		rows[i] = row
	}
	writeJSON(w, http.StatusOK, QueryResponse{Vars: rel.Vars, Rows: rows})
}

// Pull runs a pull request against a single entity.
// POST /api/db/pull
func (h *Handler) Pull(w http.ResponseWriter, r *http.Request) {
	var req PullRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	specs, err := toSpecs(req.Specs)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pull specs", err)
		return
	}
	entries := pull.One(h.Store.Current(), req.Entity, specs)
	writeJSON(w, http.StatusOK, toPullEntryDTOs(entries))
}

// GetEntity returns every current datom for an entity.
// GET /api/db/entity/{id}
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entity id", err)
		return
	}
	datoms := h.Store.Current().Entity(fact.EntityID(id))
	writeJSON(w, http.StatusOK, datoms)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}
