package api

import (
	"net/http"
	"strconv"

	"fleetworks/depot/pkg/api/httpx"
	"fleetworks/depot/pkg/forms"

	"github.com/go-chi/chi/v5"
)

func (h *handlers) listForms(w http.ResponseWriter, r *http.Request) {
	page, err := h.page(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	q := r.URL.Query()
	items, err := h.Forms.List(r.Context(), forms.Filter{
		Status: forms.Status(q.Get("status")),
		Search: q.Get("q"),
		Page:   page,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(items, page))
}

func (h *handlers) createForm(w http.ResponseWriter, r *http.Request) {
	var in forms.CreateInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	f, err := h.Forms.Create(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, f)
}

func (h *handlers) getForm(w http.ResponseWriter, r *http.Request) {
	f, err := h.Forms.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, f)
}

func (h *handlers) updateForm(w http.ResponseWriter, r *http.Request) {
	var in forms.UpdateInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	f, err := h.Forms.UpdateDraft(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, f)
}

func (h *handlers) deleteForm(w http.ResponseWriter, r *http.Request) {
	if err := h.Forms.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

type publishRequest struct {
	ExpectedRevision int `json:"expected_revision" validate:"gte=0"`
}

func (h *handlers) publishForm(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if r.ContentLength != 0 {
		if err := h.decode(w, r, &req); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
	}
	v, err := h.Forms.Publish(r.Context(), chi.URLParam(r, "id"), req.ExpectedRevision)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, v)
}

func (h *handlers) archiveForm(w http.ResponseWriter, r *http.Request) {
	f, err := h.Forms.Archive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, f)
}

func (h *handlers) listFormVersions(w http.ResponseWriter, r *http.Request) {
	items, err := h.Forms.Versions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if items == nil {
		items = []forms.Version{}
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.List[forms.Version]{Items: items})
}

func versionParam(r *http.Request) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || n < 1 {
		return 0, &httpx.RequestError{
			Status:  http.StatusBadRequest,
			Code:    httpx.CodeInvalidParameter,
			Message: "version must be a positive integer",
		}
	}
	return n, nil
}

func (h *handlers) getFormVersion(w http.ResponseWriter, r *http.Request) {
	n, err := versionParam(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	v, err := h.Forms.Version(r.Context(), chi.URLParam(r, "id"), n)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, v)
}

type evaluateRequest struct {
	// Version 0 evaluates the current draft.
	Version int            `json:"version" validate:"gte=0"`
	Values  map[string]any `json:"values"`
}

type evaluateResponse struct {
	States map[string]forms.FieldState `json:"states"`
}

func (h *handlers) evaluateForm(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := h.decode(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	states, err := h.Forms.Evaluate(r.Context(), chi.URLParam(r, "id"), req.Version, req.Values)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, evaluateResponse{States: states})
}

func (h *handlers) listSubmissions(w http.ResponseWriter, r *http.Request) {
	page, err := h.page(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	version, err := httpx.Int(r, "version", 0)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	items, err := h.Forms.ListSubmissions(r.Context(), forms.SubmissionFilter{
		FormID:  chi.URLParam(r, "id"),
		Version: version,
		AssetID: r.URL.Query().Get("asset_id"),
		Page:    page,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(items, page))
}

func (h *handlers) submitForm(w http.ResponseWriter, r *http.Request) {
	var in forms.SubmitInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	sub, err := h.Forms.Submit(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sub)
}

func (h *handlers) getSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.Forms.GetSubmission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sub)
}
