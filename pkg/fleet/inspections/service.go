package inspections

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/audit"
	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/fleet/assets"
	"fleetworks/depot/pkg/fleet/workorders"
	"fleetworks/depot/pkg/identity"
	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

// Service records inspections and raises follow-up work orders.
type Service struct {
	db         *sqlx.DB
	store      *Store
	workOrders *workorders.Service
	auditor    audit.Auditor
	cfg        config.InspectionsConfig
	logger     *slog.Logger
}

// NewService creates an inspection service.
func NewService(db *sqlx.DB, wo *workorders.Service, auditor audit.Auditor, cfg config.InspectionsConfig) *Service {
	return &Service{
		db:         db,
		store:      NewStore(db),
		workOrders: wo,
		auditor:    auditor,
		cfg:        cfg,
		logger:     slog.Default().With("component", "inspections"),
	}
}

// Create records an inspection. The overall result is pass unless an item
// failed. With auto work orders enabled a failed inspection opens a work
// order in the same transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Inspection, error) {
	verr := apperr.NewValidationError()
	if strings.TrimSpace(in.AssetID) == "" {
		verr.Add("asset_id", "is required")
	}
	if !in.Kind.Valid() {
		verr.Add("kind", "must be one of pre_trip, post_trip, annual, custom")
	}
	if len(in.Items) == 0 {
		verr.Add("items", "at least one item is required")
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.Name) == "" {
			verr.Add(fmt.Sprintf("items[%d].name", i), "is required")
		}
		switch it.Result {
		case ResultPass, ResultFail, ResultNA:
		default:
			verr.Add(fmt.Sprintf("items[%d].result", i), "must be one of pass, fail, na")
		}
	}
	if in.Odometer < 0 {
		verr.Add("odometer", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	insp := &Inspection{
		ID:               storage.NewID(),
		AssetID:          in.AssetID,
		InspectorID:      identity.ActorOrSystem(ctx).ID,
		Kind:             in.Kind,
		Odometer:         in.Odometer,
		Items:            storage.NewJSON(in.Items),
		Result:           ResultPass,
		Notes:            in.Notes,
		FormSubmissionID: in.FormSubmissionID,
		CreatedAt:        storage.Now(),
	}
	failed := insp.Failed()
	if len(failed) > 0 {
		insp.Result = ResultFail
	}

	var wo *workorders.WorkOrder
	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		store := s.store.WithTx(tx)
		assetStore := assets.NewStore(tx)
		if _, err := assetStore.Get(ctx, in.AssetID); err != nil {
			return err
		}
		if insp.FormSubmissionID != "" {
			ok, err := store.SubmissionExists(ctx, insp.FormSubmissionID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.NotFound("form_submission", insp.FormSubmissionID)
			}
		}
		if err := store.Insert(ctx, insp); err != nil {
			return err
		}
		if insp.Odometer > 0 {
			if _, err := assetStore.RaiseOdometer(ctx, insp.AssetID, insp.Odometer); err != nil {
				return err
			}
		}

		if len(failed) == 0 || !s.cfg.AutoWorkOrder {
			return nil
		}
		var err error
		wo, err = s.workOrders.CreateTx(ctx, tx, workorders.CreateInput{
			AssetID:     insp.AssetID,
			Title:       followUpTitle(insp.Kind, failed),
			Description: followUpDescription(failed),
			Priority:    workorders.Priority(s.cfg.FailedPriority),
			Source:      workorders.SourceInspection,
			SourceRef:   insp.ID,
		})
		if err != nil {
			return fmt.Errorf("create follow-up work order: %w", err)
		}
		insp.WorkOrderID = wo.ID
		return store.SetWorkOrder(ctx, insp.ID, wo.ID)
	})
	if err != nil {
		return nil, err
	}

	if wo != nil {
		s.workOrders.Created(ctx, wo)
	}
	_ = s.auditor.Record(ctx, audit.New(audit.ActionCreate, "inspection", insp.ID, map[string]any{
		"asset_id":      insp.AssetID,
		"result":        insp.Result,
		"failed_items":  len(failed),
		"work_order_id": insp.WorkOrderID,
	}))
	return insp, nil
}

func followUpTitle(kind Kind, failed []Item) string {
	names := make([]string, len(failed))
	for i, it := range failed {
		names[i] = it.Name
	}
	title := fmt.Sprintf("Failed %s inspection: %s", strings.ReplaceAll(string(kind), "_", "-"), strings.Join(names, ", "))
	if len(title) > 200 {
		title = title[:197] + "..."
	}
	return title
}

func followUpDescription(failed []Item) string {
	var b strings.Builder
	for _, it := range failed {
		b.WriteString("- ")
		b.WriteString(it.Name)
		if it.Notes != "" {
			b.WriteString(": ")
			b.WriteString(it.Notes)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Get returns an inspection by id.
func (s *Service) Get(ctx context.Context, id string) (*Inspection, error) {
	return s.store.Get(ctx, id)
}

// List returns a page of inspections matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]Inspection, error) {
	return s.store.List(ctx, f)
}
