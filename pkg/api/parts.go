package api

import (
	"net/http"

	"fleetworks/depot/pkg/api/httpx"
	"fleetworks/depot/pkg/fleet/parts"

	"github.com/go-chi/chi/v5"
)

func (h *handlers) listParts(w http.ResponseWriter, r *http.Request) {
	page, err := h.page(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	q := r.URL.Query()
	items, err := h.Parts.List(r.Context(), parts.Filter{
		Category: q.Get("category"),
		Search:   q.Get("q"),
		Page:     page,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(items, page))
}

func (h *handlers) lowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.Parts.ListLowStock(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if items == nil {
		items = []parts.Part{}
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.List[parts.Part]{Items: items})
}

func (h *handlers) createPart(w http.ResponseWriter, r *http.Request) {
	var in parts.CreateInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	p, err := h.Parts.Create(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *handlers) getPart(w http.ResponseWriter, r *http.Request) {
	p, err := h.Parts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *handlers) updatePart(w http.ResponseWriter, r *http.Request) {
	var in parts.UpdateInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	p, err := h.Parts.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *handlers) deletePart(w http.ResponseWriter, r *http.Request) {
	if err := h.Parts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *handlers) adjustStock(w http.ResponseWriter, r *http.Request) {
	var in parts.AdjustInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	p, err := h.Parts.AdjustStock(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *handlers) partTransactions(w http.ResponseWriter, r *http.Request) {
	page, err := h.page(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	items, err := h.Parts.Transactions(r.Context(), chi.URLParam(r, "id"), page)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(items, page))
}
