package api

import (
	"net/http"

	"fleetworks/depot/pkg/api/httpx"
	"fleetworks/depot/pkg/fleet/maintenance"
	"fleetworks/depot/pkg/storage"

	"github.com/go-chi/chi/v5"
)

func (h *handlers) listSchedules(w http.ResponseWriter, r *http.Request) {
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
	items, err := h.Maintenance.List(r.Context(), maintenance.Filter{
		AssetID:    r.URL.Query().Get("asset_id"),
		ActiveOnly: activeOnly,
		Page:       page,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(items, page))
}

func (h *handlers) createSchedule(w http.ResponseWriter, r *http.Request) {
	var in maintenance.CreateInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	sc, err := h.Maintenance.Create(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sc)
}

func (h *handlers) getSchedule(w http.ResponseWriter, r *http.Request) {
	sc, err := h.Maintenance.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sc)
}

func (h *handlers) updateSchedule(w http.ResponseWriter, r *http.Request) {
	var in maintenance.UpdateInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	sc, err := h.Maintenance.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sc)
}

func (h *handlers) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.Maintenance.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *handlers) checkSchedule(w http.ResponseWriter, r *http.Request) {
	c, err := h.Maintenance.Check(r.Context(), chi.URLParam(r, "id"), storage.Now())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

type runResponse struct {
	Generated []maintenance.Generated `json:"generated"`
}

// runMaintenance triggers the generator outside its cron schedule.
func (h *handlers) runMaintenance(w http.ResponseWriter, r *http.Request) {
	generated, err := h.Maintenance.Run(r.Context(), storage.Now())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if generated == nil {
		generated = []maintenance.Generated{}
	}
	httpx.WriteJSON(w, http.StatusOK, runResponse{Generated: generated})
}
