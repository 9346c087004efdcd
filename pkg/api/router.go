package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"fleetworks/depot/pkg/api/httpx"
	"fleetworks/depot/pkg/api/middleware"
	"fleetworks/depot/pkg/audit"
	"fleetworks/depot/pkg/auth"
	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/fleet/assets"
	"fleetworks/depot/pkg/fleet/documents"
	"fleetworks/depot/pkg/fleet/fuel"
	"fleetworks/depot/pkg/fleet/geofence"
	"fleetworks/depot/pkg/fleet/inspections"
	"fleetworks/depot/pkg/fleet/maintenance"
	"fleetworks/depot/pkg/fleet/obd"
	"fleetworks/depot/pkg/fleet/parts"
	"fleetworks/depot/pkg/fleet/workorders"
	"fleetworks/depot/pkg/forms"
	"fleetworks/depot/pkg/identity"
	"fleetworks/depot/pkg/storage"
	"fleetworks/depot/pkg/telemetry/metrics"
	"fleetworks/depot/pkg/telemetry/tracing"

	"github.com/go-chi/chi/v5"
)

// BasePath is where the API is mounted.
const BasePath = "/api/v1"

// Deps are the services behind the API. Metrics, Tracer and RateLimiter
// may be nil.
type Deps struct {
	Config      *config.Config
	Auth        *auth.Service
	Assets      *assets.Service
	Parts       *parts.Service
	WorkOrders  *workorders.Service
	Inspections *inspections.Service
	Forms       *forms.Service
	Geofences   *geofence.Service
	Fuel        *fuel.Service
	Documents   *documents.Service
	Maintenance *maintenance.Service
	OBD         *obd.Service
	Audit       *audit.Store
	Metrics     *metrics.Collector
	Tracer      *tracing.Tracer
	RateLimiter *middleware.RateLimiter
}

type handlers struct {
	Deps
}

// NewRouter builds the API handler with its middleware chain.
func NewRouter(d Deps) http.Handler {
	h := &handlers{Deps: d}

	viewer := middleware.RequireRole(identity.RoleViewer)
	technician := middleware.RequireRole(identity.RoleTechnician)
	manager := middleware.RequireRole(identity.RoleManager)
	admin := middleware.RequireRole(identity.RoleAdmin)

	r := chi.NewRouter()
	r.Use(
		middleware.Recovery,
		middleware.Logging,
		middleware.RequestID,
		middleware.CORS(d.Config.Server.CORS),
		middleware.Tracing(d.Tracer),
		middleware.Metrics(d.Metrics),
		middleware.Timeout(d.Config.Server.WriteTimeout),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteErrorResponse(w, http.StatusNotFound, httpx.NewErrorResponse(
			httpx.ErrorTypeNotFound, "no route for "+r.Method+" "+r.URL.Path, httpx.CodeRouteNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteErrorResponse(w, http.StatusMethodNotAllowed, httpx.NewErrorResponse(
			httpx.ErrorTypeInvalidRequest, r.Method+" is not allowed on "+r.URL.Path, httpx.CodeMethodNotAllowed))
	})

	r.Route(BasePath, func(r chi.Router) {
		r.With(middleware.RateLimit(d.RateLimiter)).Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(d.Auth), middleware.RateLimit(d.RateLimiter), viewer)

			r.Get("/auth/me", h.me)

			r.Route("/users", func(r chi.Router) {
				r.Use(admin)
				r.Get("/", h.listUsers)
				r.Post("/", h.createUser)
				r.Get("/{id}", h.getUser)
				r.Patch("/{id}", h.updateUser)
			})

			r.Route("/assets", func(r chi.Router) {
				r.Get("/", h.listAssets)
				r.With(manager).Post("/", h.createAsset)
				r.Get("/export.csv", h.exportAssets)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.getAsset)
					r.With(manager).Patch("/", h.updateAsset)
					r.With(manager).Delete("/", h.deleteAsset)
					r.With(technician).Post("/meter", h.recordMeter)
					r.Get("/locations", h.listLocations)
					r.With(technician).Post("/locations", h.recordLocation)
					r.Get("/dtcs", h.listDTCs)
					r.With(technician).Post("/dtcs", h.ingestDTCs)
					r.Get("/fuel-stats", h.fuelStats)
				})
			})

			r.Get("/dtcs/{code}", h.lookupDTC)

			r.Route("/parts", func(r chi.Router) {
				r.Get("/", h.listParts)
				r.With(manager).Post("/", h.createPart)
				r.Get("/low-stock", h.lowStock)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.getPart)
					r.With(manager).Patch("/", h.updatePart)
					r.With(manager).Delete("/", h.deletePart)
					r.With(manager).Post("/adjust", h.adjustStock)
					r.Get("/transactions", h.partTransactions)
				})
			})

			r.Route("/work-orders", func(r chi.Router) {
				r.Get("/", h.listWorkOrders)
				r.With(technician).Post("/", h.createWorkOrder)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.getWorkOrder)
					r.With(technician).Patch("/", h.updateWorkOrder)
					r.With(manager).Delete("/", h.deleteWorkOrder)
					r.With(technician).Post("/status", h.transitionWorkOrder)
					r.Get("/parts", h.listWorkOrderParts)
					r.With(technician).Post("/parts", h.addWorkOrderPart)
				})
			})

			r.Route("/inspections", func(r chi.Router) {
				r.Get("/", h.listInspections)
				r.With(technician).Post("/", h.createInspection)
				r.Get("/{id}", h.getInspection)
			})

			r.Route("/forms", func(r chi.Router) {
				r.Get("/", h.listForms)
				r.With(manager).Post("/", h.createForm)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.getForm)
					r.With(manager).Patch("/", h.updateForm)
					r.With(manager).Delete("/", h.deleteForm)
					r.With(manager).Post("/publish", h.publishForm)
					r.With(manager).Post("/archive", h.archiveForm)
					r.Get("/versions", h.listFormVersions)
					r.Get("/versions/{version}", h.getFormVersion)
					r.Post("/evaluate", h.evaluateForm)
					r.Get("/submissions", h.listSubmissions)
					r.With(technician).Post("/submissions", h.submitForm)
				})
			})
			r.Get("/form-submissions/{id}", h.getSubmission)

			r.Route("/geofences", func(r chi.Router) {
				r.Get("/", h.listGeofences)
				r.With(manager).Post("/", h.createGeofence)
				r.Get("/events", h.listGeofenceEvents)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.getGeofence)
					r.With(manager).Patch("/", h.updateGeofence)
					r.With(manager).Delete("/", h.deleteGeofence)
					r.With(manager).Put("/alerts", h.updateGeofenceAlerts)
					r.Get("/events", h.listGeofenceEvents)
				})
			})

			r.Route("/fuel-entries", func(r chi.Router) {
				r.Get("/", h.listFuel)
				r.With(technician).Post("/", h.createFuel)
				r.Get("/{id}", h.getFuel)
				r.With(manager).Delete("/{id}", h.deleteFuel)
			})

			r.Route("/documents", func(r chi.Router) {
				r.Get("/", h.listDocuments)
				r.With(technician).Post("/", h.uploadDocument)
				r.Get("/expiring", h.expiringDocuments)
				r.Get("/{id}", h.getDocument)
				r.Get("/{id}/content", h.downloadDocument)
				r.With(manager).Delete("/{id}", h.deleteDocument)
			})

			r.Route("/maintenance", func(r chi.Router) {
				r.Get("/schedules", h.listSchedules)
				r.With(manager).Post("/schedules", h.createSchedule)
				r.Get("/schedules/{id}", h.getSchedule)
				r.With(manager).Patch("/schedules/{id}", h.updateSchedule)
				r.With(manager).Delete("/schedules/{id}", h.deleteSchedule)
				r.Get("/schedules/{id}/check", h.checkSchedule)
				r.With(manager).Post("/run", h.runMaintenance)
			})

			r.Route("/audit", func(r chi.Router) {
				r.Use(admin)
				r.Get("/", h.queryAudit)
				r.Get("/export.csv", h.exportAudit)
			})
		})
	})

	return r
}

func (h *handlers) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	return httpx.Decode(w, r, dst, h.Config.Server.MaxBodyBytes)
}

func (h *handlers) page(r *http.Request) (storage.Page, error) {
	return httpx.Page(r, storage.DefaultPageLimit, storage.MaxPageLimit)
}

func list[T any](items []T, p storage.Page) httpx.List[T] {
	if items == nil {
		items = []T{}
	}
	return httpx.List[T]{Items: items, Limit: p.Limit, Offset: p.Offset}
}

func writeCSV(w http.ResponseWriter, filename string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("csv response not fully written", "file", filename, "error", err)
	}
}
