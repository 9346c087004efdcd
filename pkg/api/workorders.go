package api

import (
	"net/http"

	"fleetworks/depot/pkg/api/httpx"
	"fleetworks/depot/pkg/fleet/workorders"

	"github.com/go-chi/chi/v5"
)

func (h *handlers) listWorkOrders(w http.ResponseWriter, r *http.Request) {
	page, err := h.page(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	q := r.URL.Query()
	items, err := h.WorkOrders.List(r.Context(), workorders.Filter{
		AssetID:    q.Get("asset_id"),
		Status:     workorders.Status(q.Get("status")),
		Priority:   workorders.Priority(q.Get("priority")),
		Source:     workorders.Source(q.Get("source")),
		AssignedTo: q.Get("assigned_to"),
		Page:       page,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(items, page))
}

func (h *handlers) createWorkOrder(w http.ResponseWriter, r *http.Request) {
	var in workorders.CreateInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	wo, err := h.WorkOrders.Create(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, wo)
}

func (h *handlers) getWorkOrder(w http.ResponseWriter, r *http.Request) {
	wo, err := h.WorkOrders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, wo)
}

func (h *handlers) updateWorkOrder(w http.ResponseWriter, r *http.Request) {
	var in workorders.UpdateInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	wo, err := h.WorkOrders.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, wo)
}

func (h *handlers) deleteWorkOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.WorkOrders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *handlers) transitionWorkOrder(w http.ResponseWriter, r *http.Request) {
	var in workorders.TransitionInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	wo, err := h.WorkOrders.Transition(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, wo)
}

func (h *handlers) listWorkOrderParts(w http.ResponseWriter, r *http.Request) {
	items, err := h.WorkOrders.ListParts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if items == nil {
		items = []workorders.PartUsage{}
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.List[workorders.PartUsage]{Items: items})
}

func (h *handlers) addWorkOrderPart(w http.ResponseWriter, r *http.Request) {
	var in workorders.AddPartInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	usage, err := h.WorkOrders.AddPart(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, usage)
}
