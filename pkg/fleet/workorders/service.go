package workorders

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/audit"
	"fleetworks/depot/pkg/fleet/assets"
	"fleetworks/depot/pkg/fleet/parts"
	"fleetworks/depot/pkg/identity"
	"fleetworks/depot/pkg/storage"
	"fleetworks/depot/pkg/telemetry/metrics"

	"github.com/jmoiron/sqlx"
)

// CloseHook is notified inside the closing transaction when a work order
// is completed, cancelled or deleted. Returning an error aborts the change.
type CloseHook interface {
	WorkOrderClosed(ctx context.Context, tx *sqlx.Tx, wo *WorkOrder) error
}

// CloseHookFunc adapts a function to CloseHook.
type CloseHookFunc func(ctx context.Context, tx *sqlx.Tx, wo *WorkOrder) error

// WorkOrderClosed calls f.
func (f CloseHookFunc) WorkOrderClosed(ctx context.Context, tx *sqlx.Tx, wo *WorkOrder) error {
	return f(ctx, tx, wo)
}

// Service implements work order operations.
type Service struct {
	db      *sqlx.DB
	store   *Store
	auditor audit.Auditor
	metrics *metrics.Collector
	logger  *slog.Logger

	mu    sync.RWMutex
	hooks []CloseHook
}

// NewService creates a work order service. collector may be nil.
func NewService(db *sqlx.DB, auditor audit.Auditor, collector *metrics.Collector) *Service {
	return &Service{
		db:      db,
		store:   NewStore(db),
		auditor: auditor,
		metrics: collector,
		logger:  slog.Default().With("component", "workorders"),
	}
}

// OnClose registers a hook run when work orders close.
func (s *Service) OnClose(h CloseHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Store returns the underlying store for use by other services.
func (s *Service) Store() *Store {
	return s.store
}

// Create validates and stores a manual work order.
func (s *Service) Create(ctx context.Context, in CreateInput) (*WorkOrder, error) {
	in.Source = SourceManual
	in.SourceRef = ""

	var wo *WorkOrder
	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		wo, err = s.CreateTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Created(ctx, wo)
	return wo, nil
}

// CreateTx creates a work order inside tx. Services that generate work
// orders call it within their own transaction and call Created after
// commit. A critical work order puts an active asset in the shop.
func (s *Service) CreateTx(ctx context.Context, tx *sqlx.Tx, in CreateInput) (*WorkOrder, error) {
	verr := apperr.NewValidationError()
	if strings.TrimSpace(in.AssetID) == "" {
		verr.Add("asset_id", "is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		verr.Add("title", "is required")
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !in.Priority.Valid() {
		verr.Add("priority", "must be one of low, medium, high, critical")
	}
	if in.Source == "" {
		in.Source = SourceManual
	}
	if !in.Source.Valid() {
		verr.Add("source", "is not a known work order source")
	}
	if in.LaborRate < 0 {
		verr.Add("labor_rate", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	assetStore := assets.NewStore(tx)
	asset, err := assetStore.Get(ctx, in.AssetID)
	if err != nil {
		return nil, err
	}
	if asset.Status == assets.StatusRetired {
		return nil, apperr.Conflict("asset %s is retired", asset.AssetTag)
	}

	store := s.store.WithTx(tx)
	number, err := store.NextNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := storage.Now()
	wo := &WorkOrder{
		ID:          storage.NewID(),
		Number:      number,
		AssetID:     asset.ID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Priority:    in.Priority,
		Status:      StatusOpen,
		AssignedTo:  in.AssignedTo,
		DueDate:     utcPtr(in.DueDate),
		Source:      in.Source,
		SourceRef:   in.SourceRef,
		LaborRate:   in.LaborRate,
		CreatedBy:   identity.ActorOrSystem(ctx).ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := store.Insert(ctx, wo); err != nil {
		return nil, err
	}

	if wo.Priority == PriorityCritical && asset.Status == assets.StatusActive {
		if err := assetStore.SetStatus(ctx, asset.ID, assets.StatusInShop); err != nil {
			return nil, err
		}
	}
	return wo, nil
}

// Created records the audit entry and metrics for a committed work order.
func (s *Service) Created(ctx context.Context, wo *WorkOrder) {
	s.metrics.RecordWorkOrderCreated(string(wo.Source))
	_ = s.auditor.Record(ctx, audit.New(audit.ActionCreate, "work_order", wo.ID, map[string]any{
		"number":   wo.Number,
		"asset_id": wo.AssetID,
		"priority": wo.Priority,
		"source":   wo.Source,
	}))
	s.logger.InfoContext(ctx, "work order created",
		"work_order", wo.Number, "asset_id", wo.AssetID, "source", wo.Source, "priority", wo.Priority)
}

// Get returns a work order by id.
func (s *Service) Get(ctx context.Context, id string) (*WorkOrder, error) {
	return s.store.Get(ctx, id)
}

// List returns a page of work orders matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]WorkOrder, error) {
	return s.store.List(ctx, f)
}

// Update applies the non-nil fields of in. Completed and cancelled work
// orders cannot be edited.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*WorkOrder, error) {
	var (
		wo      *WorkOrder
		changes = map[string]any{}
	)
	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		store := s.store.WithTx(tx)
		var err error
		if wo, err = store.Get(ctx, id); err != nil {
			return err
		}
		if wo.Status.Terminal() {
			return apperr.Conflict("work order %s is %s", wo.Number, wo.Status)
		}

		verr := apperr.NewValidationError()
		if in.Title != nil {
			wo.Title = strings.TrimSpace(*in.Title)
			if wo.Title == "" {
				verr.Add("title", "is required")
			}
			changes["title"] = wo.Title
		}
		if in.Description != nil {
			wo.Description = *in.Description
			changes["description"] = wo.Description
		}
		if in.Priority != nil {
			if !in.Priority.Valid() {
				verr.Add("priority", "must be one of low, medium, high, critical")
			}
			wo.Priority = *in.Priority
			changes["priority"] = wo.Priority
		}
		if in.AssignedTo != nil {
			wo.AssignedTo = *in.AssignedTo
			changes["assigned_to"] = wo.AssignedTo
		}
		if in.DueDate != nil {
			wo.DueDate = utcPtr(in.DueDate)
			changes["due_date"] = wo.DueDate
		}
		if in.LaborHours != nil {
			if *in.LaborHours < 0 {
				verr.Add("labor_hours", "must not be negative")
			}
			wo.LaborHours = *in.LaborHours
			changes["labor_hours"] = wo.LaborHours
		}
		if in.LaborRate != nil {
			if *in.LaborRate < 0 {
				verr.Add("labor_rate", "must not be negative")
			}
			wo.LaborRate = *in.LaborRate
			changes["labor_rate"] = wo.LaborRate
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		wo.UpdatedAt = storage.Now()
		ok, err := store.Update(ctx, wo)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("work order %s was changed concurrently", wo.Number)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionUpdate, "work_order", wo.ID, changes))
	return wo, nil
}

// Transition moves a work order through its status machine. Completing
// computes total_cost and stamps completed_at; completing or cancelling
// runs the close hooks in the same transaction.
func (s *Service) Transition(ctx context.Context, id string, in TransitionInput) (*WorkOrder, error) {
	if !in.Status.Valid() {
		return nil, apperr.Invalid("unknown status %q", in.Status)
	}

	var (
		wo   *WorkOrder
		from Status
	)
	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		store := s.store.WithTx(tx)
		var err error
		if wo, err = store.Get(ctx, id); err != nil {
			return err
		}
		from = wo.Status
		if !from.CanTransition(in.Status) {
			return apperr.Conflict("work order %s cannot move from %s to %s", wo.Number, from, in.Status)
		}

		if in.LaborHours != nil && *in.LaborHours < 0 {
			return apperr.Invalid("labor_hours must not be negative")
		}

		ok, err := store.UpdateStatusFrom(ctx, wo.ID, from, in.Status, in.LaborHours, storage.Now())
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("work order %s was changed concurrently", wo.Number)
		}
		if wo, err = store.Get(ctx, id); err != nil {
			return err
		}

		if wo.Status.Terminal() {
			return s.closed(ctx, tx, wo)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionStatus, "work_order", wo.ID, map[string]any{
		"from":       from,
		"to":         wo.Status,
		"total_cost": wo.TotalCost,
	}))
	s.logger.InfoContext(ctx, "work order status changed", "work_order", wo.Number, "from", from, "to", wo.Status)
	return wo, nil
}

// Delete removes an open work order that has not consumed any parts.
// Anything further along must be cancelled instead.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		store := s.store.WithTx(tx)
		wo, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		if wo.Status != StatusOpen {
			return apperr.Conflict("work order %s is %s; cancel it instead", wo.Number, wo.Status)
		}
		used, err := store.ListParts(ctx, id)
		if err != nil {
			return err
		}
		if len(used) > 0 {
			return apperr.Conflict("work order %s has consumed parts; cancel it instead", wo.Number)
		}

		wo.Status = StatusCancelled
		if err := s.closed(ctx, tx, wo); err != nil {
			return err
		}
		return store.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionDelete, "work_order", id, nil))
	return nil
}

// closed returns the asset to service when nothing critical is left open
// and runs the close hooks.
func (s *Service) closed(ctx context.Context, tx *sqlx.Tx, wo *WorkOrder) error {
	if wo.Priority == PriorityCritical {
		assetStore := assets.NewStore(tx)
		asset, err := assetStore.Get(ctx, wo.AssetID)
		if err != nil {
			return err
		}
		remaining, err := s.store.WithTx(tx).CountOpen(ctx, wo.AssetID, PriorityCritical, "", wo.ID)
		if err != nil {
			return err
		}
		if asset.Status == assets.StatusInShop && remaining == 0 {
			if err := assetStore.SetStatus(ctx, asset.ID, assets.StatusActive); err != nil {
				return err
			}
		}
	}

	s.mu.RLock()
	hooks := append([]CloseHook(nil), s.hooks...)
	s.mu.RUnlock()

	for _, h := range hooks {
		if err := h.WorkOrderClosed(ctx, tx, wo); err != nil {
			return err
		}
	}
	return nil
}

// AddPart consumes parts from stock for a work order. Stock is decremented
// in the same transaction and the unit cost at the time of use is kept.
func (s *Service) AddPart(ctx context.Context, id string, in AddPartInput) (*PartUsage, error) {
	if in.Quantity <= 0 {
		return nil, apperr.Invalid("quantity must be positive")
	}

	var (
		wo    *WorkOrder
		usage *PartUsage
	)
	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		store := s.store.WithTx(tx)
		var err error
		if wo, err = store.Get(ctx, id); err != nil {
			return err
		}
		if wo.Status.Terminal() {
			return apperr.Conflict("work order %s is %s", wo.Number, wo.Status)
		}

		part, err := parts.Move(ctx, tx, in.PartID, -in.Quantity, parts.ReasonWorkOrder, wo.ID)
		if err != nil {
			return err
		}

		usage = &PartUsage{
			ID:          storage.NewID(),
			WorkOrderID: wo.ID,
			PartID:      part.ID,
			Quantity:    in.Quantity,
			UnitCost:    part.UnitCost,
			CreatedAt:   storage.Now(),
		}
		if err := store.InsertPart(ctx, usage); err != nil {
			return err
		}
		ok, err := store.AddPartsCost(ctx, wo.ID, roundCents(float64(in.Quantity)*part.UnitCost))
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("work order %s was closed concurrently", wo.Number)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionUpdate, "work_order", id, map[string]any{
		"part_id":   usage.PartID,
		"quantity":  usage.Quantity,
		"unit_cost": usage.UnitCost,
	}))
	return usage, nil
}

// ListParts returns the parts consumed by a work order.
func (s *Service) ListParts(ctx context.Context, id string) ([]PartUsage, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListParts(ctx, id)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
