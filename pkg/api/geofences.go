package api

import (
	"net/http"

	"fleetworks/depot/pkg/api/httpx"
	"fleetworks/depot/pkg/fleet/geofence"

	"github.com/go-chi/chi/v5"
)

func (h *handlers) listGeofences(w http.ResponseWriter, r *http.Request) {
	page, err := h.page(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	activeOnly, err := httpx.Bool(r, "active", false)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	items, err := h.Geofences.List(r.Context(), activeOnly, page)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(items, page))
}

func (h *handlers) createGeofence(w http.ResponseWriter, r *http.Request) {
	var in geofence.CreateInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	g, err := h.Geofences.Create(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, g)
}

func (h *handlers) getGeofence(w http.ResponseWriter, r *http.Request) {
	g, err := h.Geofences.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, g)
}

func (h *handlers) updateGeofence(w http.ResponseWriter, r *http.Request) {
	var in geofence.UpdateInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	g, err := h.Geofences.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, g)
}

func (h *handlers) updateGeofenceAlerts(w http.ResponseWriter, r *http.Request) {
	var in geofence.AlertInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	g, err := h.Geofences.UpdateAlertSettings(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, g)
}

func (h *handlers) deleteGeofence(w http.ResponseWriter, r *http.Request) {
	if err := h.Geofences.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// listGeofenceEvents serves both /geofences/events and
// /geofences/{id}/events; the path parameter wins over the query.
func (h *handlers) listGeofenceEvents(w http.ResponseWriter, r *http.Request) {
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
	q := r.URL.Query()
	f := geofence.EventFilter{
		GeofenceID: q.Get("geofence_id"),
		AssetID:    q.Get("asset_id"),
		From:       from,
		To:         to,
		Page:       page,
	}
	if id := chi.URLParam(r, "id"); id != "" {
		if _, err := h.Geofences.Get(r.Context(), id); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		f.GeofenceID = id
	}
	items, err := h.Geofences.Events(r.Context(), f)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(items, page))
}
