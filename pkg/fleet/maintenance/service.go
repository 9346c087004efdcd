package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/audit"
	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/fleet/assets"
	"fleetworks/depot/pkg/fleet/workorders"
	"fleetworks/depot/pkg/storage"
	"fleetworks/depot/pkg/telemetry/metrics"

	"github.com/jmoiron/sqlx"
)

var errAlreadyClaimed = errors.New("schedule already has an open work order")

// Service manages maintenance schedules and materializes work orders for
// the ones that fall due.
type Service struct {
	db         *sqlx.DB
	store      *Store
	workOrders *workorders.Service
	auditor    audit.Auditor
	metrics    *metrics.Collector
	lead       Lead
	logger     *slog.Logger
}

// NewService creates a maintenance service and registers it to reset
// schedules when their work orders close. collector may be nil.
func NewService(db *sqlx.DB, wo *workorders.Service, auditor audit.Auditor, collector *metrics.Collector, cfg config.MaintenanceConfig) *Service {
	s := &Service{
		db:         db,
		store:      NewStore(db),
		workOrders: wo,
		auditor:    auditor,
		metrics:    collector,
		lead:       Lead{Days: cfg.LeadDays, Miles: cfg.LeadMiles, Hours: cfg.LeadHours},
		logger:     slog.Default().With("component", "maintenance"),
	}
	wo.OnClose(s)
	return s
}

// Create stores a schedule for an existing asset.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Schedule, error) {
	verr := apperr.NewValidationError()
	if in.AssetID == "" {
		verr.Add("asset_id", "is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "is required")
	}
	if in.Priority == "" {
		in.Priority = workorders.PriorityMedium
	}
	if !in.Priority.Valid() {
		verr.Add("priority", "must be one of low, medium, high, critical")
	}
	validateIntervals(verr, in.IntervalDays, in.IntervalMiles, in.IntervalHours)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	a, err := assets.NewStore(s.db).Get(ctx, in.AssetID)
	if err != nil {
		return nil, err
	}

	now := storage.Now()
	sc := &Schedule{
		ID:              storage.NewID(),
		AssetID:         a.ID,
		Name:            strings.TrimSpace(in.Name),
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Priority:        in.Priority,
		IntervalDays:    in.IntervalDays,
		IntervalMiles:   in.IntervalMiles,
		IntervalHours:   in.IntervalHours,
		LastCompletedAt: now,
		LastOdometer:    a.Odometer,
		LastEngineHours: a.EngineHours,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if sc.Title == "" {
		sc.Title = sc.Name
	}
	if in.LastCompletedAt != nil {
		sc.LastCompletedAt = in.LastCompletedAt.UTC().Truncate(time.Microsecond)
	}
	if in.LastOdometer != nil {
		sc.LastOdometer = *in.LastOdometer
	}
	if in.LastEngineHours != nil {
		sc.LastEngineHours = *in.LastEngineHours
	}

	if err := s.store.Insert(ctx, sc); err != nil {
		return nil, err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionCreate, "maintenance_schedule", sc.ID, map[string]any{
		"asset_id":       sc.AssetID,
		"name":           sc.Name,
		"interval_days":  sc.IntervalDays,
		"interval_miles": sc.IntervalMiles,
		"interval_hours": sc.IntervalHours,
	}))
	return sc, nil
}

func validateIntervals(verr *apperr.ValidationError, days int, miles, hours float64) {
	if days < 0 {
		verr.Add("interval_days", "must not be negative")
	}
	if miles < 0 {
		verr.Add("interval_miles", "must not be negative")
	}
	if hours < 0 {
		verr.Add("interval_hours", "must not be negative")
	}
	if days <= 0 && miles <= 0 && hours <= 0 {
		verr.Add("interval", "at least one of interval_days, interval_miles, interval_hours is required")
	}
}

// Get returns a schedule by id.
func (s *Service) Get(ctx context.Context, id string) (*Schedule, error) {
	return s.store.Get(ctx, id)
}

// List returns schedules matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]Schedule, error) {
	return s.store.List(ctx, f)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Schedule, error) {
	sc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if in.Name != nil && strings.TrimSpace(*in.Name) != sc.Name {
		sc.Name = strings.TrimSpace(*in.Name)
		changes["name"] = sc.Name
	}
	if in.Title != nil && *in.Title != sc.Title {
		sc.Title = strings.TrimSpace(*in.Title)
		changes["title"] = sc.Title
	}
	if in.Description != nil && *in.Description != sc.Description {
		sc.Description = *in.Description
		changes["description"] = sc.Description
	}
	if in.Priority != nil && *in.Priority != sc.Priority {
		sc.Priority = *in.Priority
		changes["priority"] = sc.Priority
	}
	if in.IntervalDays != nil && *in.IntervalDays != sc.IntervalDays {
		sc.IntervalDays = *in.IntervalDays
		changes["interval_days"] = sc.IntervalDays
	}
	if in.IntervalMiles != nil && *in.IntervalMiles != sc.IntervalMiles {
		sc.IntervalMiles = *in.IntervalMiles
		changes["interval_miles"] = sc.IntervalMiles
	}
	if in.IntervalHours != nil && *in.IntervalHours != sc.IntervalHours {
		sc.IntervalHours = *in.IntervalHours
		changes["interval_hours"] = sc.IntervalHours
	}
	if in.Active != nil && *in.Active != sc.Active {
		sc.Active = *in.Active
		changes["active"] = sc.Active
	}

	verr := apperr.NewValidationError()
	if sc.Name == "" {
		verr.Add("name", "must not be empty")
	}
	if sc.Title == "" {
		sc.Title = sc.Name
	}
	if !sc.Priority.Valid() {
		verr.Add("priority", "must be one of low, medium, high, critical")
	}
	validateIntervals(verr, sc.IntervalDays, sc.IntervalMiles, sc.IntervalHours)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return sc, nil
	}

	sc.UpdatedAt = storage.Now()
	if err := s.store.Update(ctx, sc); err != nil {
		return nil, err
	}
	_ = s.auditor.Record(ctx, audit.New(audit.ActionUpdate, "maintenance_schedule", sc.ID, changes))
	return sc, nil
}

// Delete removes a schedule. A work order it generated stays as it is.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.auditor.Record(ctx, audit.New(audit.ActionDelete, "maintenance_schedule", id, nil))
	return nil
}

// Check evaluates a schedule against its asset's current meters.
func (s *Service) Check(ctx context.Context, id string, now time.Time) (*Check, error) {
	sc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a, err := assets.NewStore(s.db).Get(ctx, sc.AssetID)
	if err != nil {
		return nil, err
	}
	c := sc.Evaluate(a, now.UTC(), s.lead)
	return &c, nil
}

// Run creates one work order for every active schedule that is due at now
// and has no open work order. A schedule that fails does not stop the
// others; the failures are joined into the returned error.
func (s *Service) Run(ctx context.Context, now time.Time) ([]Generated, error) {
	start := time.Now()
	generated, err := s.run(ctx, now.UTC())
	s.metrics.RecordMaintenanceRun(len(generated), time.Since(start), err)
	if err != nil {
		s.logger.ErrorContext(ctx, "maintenance run finished with errors", "generated", len(generated), "error", err)
	} else {
		s.logger.InfoContext(ctx, "maintenance run finished", "generated", len(generated))
	}
	return generated, err
}

func (s *Service) run(ctx context.Context, now time.Time) ([]Generated, error) {
	candidates, err := s.store.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}

	out := []Generated{}
	var errs []error
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		g, err := s.generate(ctx, &candidates[i], now)
		if err != nil {
			errs = append(errs, fmt.Errorf("schedule %s: %w", candidates[i].ID, err))
			continue
		}
		if g != nil {
			out = append(out, *g)
		}
	}
	return out, errors.Join(errs...)
}

func (s *Service) generate(ctx context.Context, sc *Schedule, now time.Time) (*Generated, error) {
	var g *Generated
	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		a, err := assets.NewStore(tx).Get(ctx, sc.AssetID)
		if err != nil {
			return err
		}
		if a.Status == assets.StatusRetired {
			return nil
		}
		check := sc.Evaluate(a, now, s.lead)
		if !check.Due {
			return nil
		}

		wo, err := s.workOrders.CreateTx(ctx, tx, workorders.CreateInput{
			AssetID:     sc.AssetID,
			Title:       sc.Title,
			Description: describe(sc, check),
			Priority:    sc.Priority,
			DueDate:     check.NextDueAt,
			Source:      workorders.SourceSchedule,
			SourceRef:   sc.ID,
		})
		if err != nil {
			return err
		}
		claimed, err := s.store.WithTx(tx).ClaimOpenWorkOrder(ctx, sc.ID, wo.ID)
		if err != nil {
			return err
		}
		if !claimed {
			return errAlreadyClaimed
		}
		g = &Generated{ScheduleID: sc.ID, Reasons: check.Reasons, WorkOrder: wo}
		return nil
	})
	if errors.Is(err, errAlreadyClaimed) {
		return nil, nil
	}
	if err != nil || g == nil {
		return nil, err
	}

	s.workOrders.Created(ctx, g.WorkOrder)
	_ = s.auditor.Record(ctx, audit.New(audit.ActionGenerate, "maintenance_schedule", sc.ID, map[string]any{
		"work_order": g.WorkOrder.Number,
		"reasons":    g.Reasons,
	}))
	return g, nil
}

func describe(sc *Schedule, c Check) string {
	var b strings.Builder
	if sc.Description != "" {
		b.WriteString(sc.Description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Scheduled maintenance %q is due: %s.", sc.Name, strings.Join(c.Reasons, "; "))
	return b.String()
}

// WorkOrderClosed resets the schedule that generated wo. A completed work
// order records the service at the asset's current meters; a cancelled
// one only frees the schedule to generate again.
func (s *Service) WorkOrderClosed(ctx context.Context, tx *sqlx.Tx, wo *workorders.WorkOrder) error {
	if wo.Source != workorders.SourceSchedule {
		return nil
	}
	store := s.store.WithTx(tx)

	if wo.Status != workorders.StatusCompleted {
		_, err := store.Release(ctx, wo.ID)
		return err
	}

	a, err := assets.NewStore(tx).Get(ctx, wo.AssetID)
	if err != nil {
		return err
	}
	at := storage.Now()
	if wo.CompletedAt != nil {
		at = *wo.CompletedAt
	}
	n, err := store.Reset(ctx, wo.ID, at, a.Odometer, a.EngineHours)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "maintenance schedule reset",
			"work_order", wo.Number, "odometer", a.Odometer, "engine_hours", a.EngineHours)
	}
	return nil
}
