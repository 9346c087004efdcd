package api

import (
	"bytes"
	"net/http"

	"fleetworks/depot/pkg/api/httpx"
	"fleetworks/depot/pkg/fleet/assets"
	"fleetworks/depot/pkg/fleet/fuel"
	"fleetworks/depot/pkg/fleet/geofence"
	"fleetworks/depot/pkg/fleet/obd"

	"github.com/go-chi/chi/v5"
)

func assetFilter(r *http.Request) assets.Filter {
	q := r.URL.Query()
	return assets.Filter{
		Status: assets.Status(q.Get("status")),
		Type:   assets.Type(q.Get("type")),
		Search: q.Get("q"),
	}
}

func (h *handlers) listAssets(w http.ResponseWriter, r *http.Request) {
	page, err := h.page(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	f := assetFilter(r)
	f.Page = page
	items, err := h.Assets.List(r.Context(), f)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(items, page))
}

func (h *handlers) createAsset(w http.ResponseWriter, r *http.Request) {
	var in assets.CreateInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	a, err := h.Assets.Create(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, a)
}

func (h *handlers) exportAssets(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := h.Assets.Export(r.Context(), &buf, assetFilter(r)); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeCSV(w, "assets.csv", &buf)
}

func (h *handlers) getAsset(w http.ResponseWriter, r *http.Request) {
	a, err := h.Assets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *handlers) updateAsset(w http.ResponseWriter, r *http.Request) {
	var in assets.UpdateInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	a, err := h.Assets.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *handlers) deleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.Assets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *handlers) recordMeter(w http.ResponseWriter, r *http.Request) {
	var in assets.MeterInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	a, err := h.Assets.RecordMeter(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *handlers) listLocations(w http.ResponseWriter, r *http.Request) {
	page, err := h.page(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.Assets.Get(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	items, err := h.Assets.ListLocations(r.Context(), id, page)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list(items, page))
}

// recordLocation stores a position report and runs geofence detection.
func (h *handlers) recordLocation(w http.ResponseWriter, r *http.Request) {
	var in geofence.LocationInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	res, err := h.Geofences.RecordLocation(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *handlers) listDTCs(w http.ResponseWriter, r *http.Request) {
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
	items, err := h.OBD.List(r.Context(), obd.Filter{
		AssetID: chi.URLParam(r, "id"),
		Code:    r.URL.Query().Get("code"),
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

func (h *handlers) ingestDTCs(w http.ResponseWriter, r *http.Request) {
	var in obd.IngestInput
	if err := h.decode(w, r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	res, err := h.OBD.Ingest(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *handlers) lookupDTC(w http.ResponseWriter, r *http.Request) {
	dtc, err := obd.ParseDTC(chi.URLParam(r, "code"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dtc)
}

func (h *handlers) fuelStats(w http.ResponseWriter, r *http.Request) {
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
	stats, err := h.Fuel.Stats(r.Context(), fuel.Filter{
		AssetID: chi.URLParam(r, "id"),
		From:    from,
		To:      to,
	}, fuel.Unit(r.URL.Query().Get("unit")))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}
