package api

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"fleetworks/depot/pkg/api/httpx"
	"fleetworks/depot/pkg/fleet/documents"

	"github.com/go-chi/chi/v5"
)

const (
	// multipartOverhead is allowed on top of the upload limit for the
	// other form fields and part headers.
	multipartOverhead = 1 << 20

	multipartMemory = 8 << 20
)

func tooLarge(limit int64) error {
	return &httpx.RequestError{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    httpx.CodeRequestTooLarge,
		Message: "document exceeds the maximum upload size of " + strconv.FormatInt(limit, 10) + " bytes",
	}
}

func (h *handlers) uploadDocument(w http.ResponseWriter, r *http.Request) {
	limit := h.Documents.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httpx.WriteError(w, r, tooLarge(limit))
			return
		}
		httpx.WriteError(w, r, &httpx.RequestError{
			Status:  http.StatusBadRequest,
			Code:    httpx.CodeInvalidParameter,
			Message: "request must be multipart/form-data with a file part",
		})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, r, &httpx.RequestError{
			Status:  http.StatusBadRequest,
			Code:    httpx.CodeInvalidParameter,
			Message: "file part is required",
		})
		return
	}
	defer file.Close()

	in := documents.UploadInput{
		EntityType:  documents.EntityType(r.FormValue("entity_type")),
		EntityID:    r.FormValue("entity_id"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}
	if s := r.FormValue("expires_at"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			httpx.WriteError(w, r, &httpx.RequestError{
				Status:  http.StatusBadRequest,
				Code:    httpx.CodeInvalidParameter,
				Message: "expires_at must be an RFC 3339 timestamp or YYYY-MM-DD date",
			})
			return
		}
		in.ExpiresAt = &t
	}

	d, err := h.Documents.Upload(r.Context(), in, file)
	if err != nil {
		if errors.Is(err, documents.ErrTooLarge) {
			err = tooLarge(limit)
		}
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, d)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func (h *handlers) listDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.Documents.ListByEntity(r.Context(), documents.EntityType(q.Get("entity_type")), q.Get("entity_id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if items == nil {
		items = []documents.Document{}
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.List[documents.Document]{Items: items})
}

func (h *handlers) expiringDocuments(w http.ResponseWriter, r *http.Request) {
	days, err := httpx.Int(r, "days", 0)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	items, err := h.Documents.ListExpiring(r.Context(), days)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if items == nil {
		items = []documents.Document{}
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.List[documents.Document]{Items: items})
}

func (h *handlers) getDocument(w http.ResponseWriter, r *http.Request) {
	d, err := h.Documents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

func (h *handlers) downloadDocument(w http.ResponseWriter, r *http.Request) {
	d, rc, err := h.Documents.Download(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	defer rc.Close()

	etag := `"` + d.SHA256 + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", d.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(d.SizeBytes, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.WarnContext(r.Context(), "document download interrupted", "document_id", d.ID, "error", err)
	}
}

func (h *handlers) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.Documents.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
