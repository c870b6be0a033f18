package runtime

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/hookgate/internal/contextbuilder"
	"github.com/tjfontaine/hookgate/internal/core/ports"
	"github.com/tjfontaine/hookgate/internal/server"
)

// AdminPrefix is the path prefix of the gateway's own endpoints. Requests
// under it are not gated.
const AdminPrefix = "/_hookgate"

func (g *Gateway) mountRoutes(r chi.Router) {
	r.Route(AdminPrefix, func(r chi.Router) {
		r.Get("/health", g.handleHealth)
		r.Get("/events", g.handleEvents)
	})

	gate := server.GateMiddleware(g, contextbuilder.New(), g.logger)
	r.With(gate).HandleFunc("/*", g.forward)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	hooks := g.Engine().Hooks()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"hooks": map[string]int{
			"before":  hooks.Before.Len(),
			"after":   hooks.After.Len(),
			"blocked": hooks.Blocked.Len(),
			"failed":  hooks.Failed.Len(),
		},
	})
}

func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	if g.store == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event storage disabled"})
		return
	}

	q := r.URL.Query()
	opts := ports.ListOptions{
		OperationID: q.Get("operation_id"),
		Kind:        q.Get("kind"),
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		opts.Limit = n
	}

	events, err := g.store.ListEvents(r.Context(), opts)
	if err != nil {
		server.AddError(r.Context(), err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list events failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
