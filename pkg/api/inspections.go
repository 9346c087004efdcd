package api

import (
	"net/http"

	"fleetworks/depot/pkg/api/httpx"
	"fleetworks/depot/pkg/fleet/inspections"

	"github.com/go-chi/chi/v5"
)

func (h *handlers) listInspections(w http.ResponseWriter, r *http.Request) {
	page, err := h.page(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	q := r.URL.Query()
	items, err := h.Inspections.List(r.Context(), inspections.Filter{
		AssetID: q.Get("asset_id"),
		Kind:    inspections.Kind(q.Get("kind")),
		Result:  inspections.Result(q.Get("result")),
		Page:    page,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(items, page))
}

func (h *handlers) createInspection(w http.ResponseWriter, r *http.Request) {
	var in inspections.CreateInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	insp, err := h.Inspections.Create(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, insp)
}

func (h *handlers) getInspection(w http.ResponseWriter, r *http.Request) {
	insp, err := h.Inspections.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, insp)
}
