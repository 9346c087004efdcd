package api

import (
	"net/http"

	"fleetworks/depot/pkg/api/httpx"
	"fleetworks/depot/pkg/fleet/fuel"

	"github.com/go-chi/chi/v5"
)

func (h *handlers) listFuel(w http.ResponseWriter, r *http.Request) {
	page, err := h.page(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	from, err := httpx.Time(r, "from")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	to, err := httpx.Time(r, "to")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	items, err := h.Fuel.List(r.Context(), fuel.Filter{
		AssetID: r.URL.Query().Get("asset_id"),
		From:    from,
		To:      to,
		Page:    page,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(items, page))
}

func (h *handlers) createFuel(w http.ResponseWriter, r *http.Request) {
	var in fuel.CreateInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	e, err := h.Fuel.Create(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, e)
}

func (h *handlers) getFuel(w http.ResponseWriter, r *http.Request) {
	e, err := h.Fuel.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, e)
}

func (h *handlers) deleteFuel(w http.ResponseWriter, r *http.Request) {
	if err := h.Fuel.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
