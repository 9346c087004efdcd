package api

import (
	"bytes"
	"net/http"

	"fleetworks/depot/pkg/api/httpx"
	"fleetworks/depot/pkg/audit"
	"fleetworks/depot/pkg/storage"
)

func (h *handlers) auditFilter(r *http.Request) (audit.Filter, error) {
	page, err := httpx.Page(r, storage.DefaultPageLimit, h.Audit.MaxLimit())
	if err != nil {
		return audit.Filter{}, err
	}
	from, err := httpx.Time(r, "from")
	if err != nil {
		return audit.Filter{}, err
	}
	to, err := httpx.Time(r, "to")
	if err != nil {
		return audit.Filter{}, err
	}
	q := r.URL.Query()
	return audit.Filter{
		ActorID:    q.Get("actor_id"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		Action:     q.Get("action"),
		From:       from,
		To:         to,
		Page:       page,
	}, nil
}

func (h *handlers) queryAudit(w http.ResponseWriter, r *http.Request) {
	f, err := h.auditFilter(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	entries, err := h.Audit.Query(r.Context(), f)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(entries, f.Page))
}

func (h *handlers) exportAudit(w http.ResponseWriter, r *http.Request) {
	f, err := h.auditFilter(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if r.URL.Query().Get("limit") == "" {
		f.Page.Limit = h.Audit.MaxLimit()
	}
	entries, err := h.Audit.Query(r.Context(), f)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := audit.WriteCSV(r.Context(), &buf, entries); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeCSV(w, "audit.csv", &buf)
}
