package parts

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/audit"
	"fleetworks/depot/pkg/identity"
	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

// ErrInsufficientStock is returned when a movement would make stock
// negative. It matches apperr.ErrConflict.
var ErrInsufficientStock = apperr.Conflict("insufficient stock")

// Service implements parts inventory operations.
type Service struct {
	db      *sqlx.DB
	store   *Store
	auditor audit.Auditor
	logger  *slog.Logger
}

// NewService creates a parts service.
func NewService(db *sqlx.DB, auditor audit.Auditor) *Service {
	return &Service{
		db:      db,
		store:   NewStore(db),
		auditor: auditor,
		logger:  slog.Default().With("component", "parts"),
	}
}

// Create stores a new part. Opening stock is recorded as an inventory
// transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Part, error) {
	verr := apperr.NewValidationError()
	if strings.TrimSpace(in.PartNumber) == "" {
		verr.Add("part_number", "is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "is required")
	}
	if in.UnitCost < 0 {
		verr.Add("unit_cost", "must not be negative")
	}
	if in.QuantityOnHand < 0 {
		verr.Add("quantity_on_hand", "must not be negative")
	}
	if in.ReorderPoint < 0 {
		verr.Add("reorder_point", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := storage.Now()
	p := &Part{
		ID:             storage.NewID(),
		PartNumber:     strings.TrimSpace(in.PartNumber),
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		Category:       in.Category,
		UnitCost:       in.UnitCost,
		QuantityOnHand: in.QuantityOnHand,
		ReorderPoint:   in.ReorderPoint,
		BinLocation:    in.BinLocation,
		Vendor:         in.Vendor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		store := s.store.WithTx(tx)
		if err := store.Insert(ctx, p); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				return apperr.Conflict("part number %q is already in use", p.PartNumber)
			}
			return err
		}
		if p.QuantityOnHand == 0 {
			return nil
		}
		return store.InsertTransaction(ctx, &Transaction{
			ID:        storage.NewID(),
			PartID:    p.ID,
			Delta:     p.QuantityOnHand,
			Reason:    ReasonInitial,
			ActorID:   identity.ActorOrSystem(ctx).ID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionCreate, "part", p.ID, map[string]any{
		"part_number": p.PartNumber,
		"quantity":    p.QuantityOnHand,
	}))
	return p, nil
}

// Get returns a part by id.
func (s *Service) Get(ctx context.Context, id string) (*Part, error) {
	return s.store.Get(ctx, id)
}

// List returns a page of parts matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]Part, error) {
	return s.store.List(ctx, f)
}

// ListLowStock returns parts at or below their reorder point.
func (s *Service) ListLowStock(ctx context.Context) ([]Part, error) {
	return s.store.ListLowStock(ctx)
}

// Transactions returns the stock movements of a part.
func (s *Service) Transactions(ctx context.Context, id string, page storage.Page) ([]Transaction, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, id, page)
}

// Update applies the non-nil fields of in.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Part, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	verr := apperr.NewValidationError()
	if in.PartNumber != nil {
		p.PartNumber = strings.TrimSpace(*in.PartNumber)
		if p.PartNumber == "" {
			verr.Add("part_number", "is required")
		}
		changes["part_number"] = p.PartNumber
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
		if p.Name == "" {
			verr.Add("name", "is required")
		}
		changes["name"] = p.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
		changes["description"] = p.Description
	}
	if in.Category != nil {
		p.Category = *in.Category
		changes["category"] = p.Category
	}
	if in.UnitCost != nil {
		if *in.UnitCost < 0 {
			verr.Add("unit_cost", "must not be negative")
		}
		p.UnitCost = *in.UnitCost
		changes["unit_cost"] = p.UnitCost
	}
	if in.ReorderPoint != nil {
		if *in.ReorderPoint < 0 {
			verr.Add("reorder_point", "must not be negative")
		}
		p.ReorderPoint = *in.ReorderPoint
		changes["reorder_point"] = p.ReorderPoint
	}
	if in.BinLocation != nil {
		p.BinLocation = *in.BinLocation
		changes["bin_location"] = p.BinLocation
	}
	if in.Vendor != nil {
		p.Vendor = *in.Vendor
		changes["vendor"] = p.Vendor
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	p.UpdatedAt = storage.Now()
	if err := s.store.Update(ctx, p); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("part number %q is already in use", p.PartNumber)
		}
		return nil, err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionUpdate, "part", p.ID, changes))
	return p, nil
}

// Delete removes a part. Parts referenced by work orders or stock history
// are rejected with ErrConflict.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		store := s.store.WithTx(tx)
		if _, err := storage.Exec(ctx, tx, "delete_part_transactions",
			`DELETE FROM inventory_transactions WHERE part_id = ? AND work_order_id = ''`, id); err != nil {
			return err
		}
		if err := store.Delete(ctx, id); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				return apperr.Conflict("part is used by work orders")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionDelete, "part", id, nil))
	return nil
}

// AdjustStock changes the stock level of a part by in.Delta and records the
// movement.
func (s *Service) AdjustStock(ctx context.Context, id string, in AdjustInput) (*Part, error) {
	if in.Delta == 0 {
		return nil, apperr.Invalid("delta must not be zero")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, apperr.Invalid("reason is required")
	}

	var p *Part
	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		p, err = Move(ctx, tx, id, in.Delta, strings.TrimSpace(in.Reason), "")
		return err
	})
	if err != nil {
		return nil, err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionAdjust, "part", id, map[string]any{
		"delta":    in.Delta,
		"reason":   in.Reason,
		"quantity": p.QuantityOnHand,
	}))
	if p.LowStock() {
		s.logger.InfoContext(ctx, "part at reorder point",
			"part_id", p.ID, "part_number", p.PartNumber, "quantity", p.QuantityOnHand)
	}
	return p, nil
}

// Move applies a stock movement inside tx and records it. It is used by
// AdjustStock and by work orders consuming parts. A movement that would
// make stock negative fails with ErrInsufficientStock.
func Move(ctx context.Context, tx *sqlx.Tx, partID string, delta int, reason, workOrderID string) (*Part, error) {
	store := NewStore(tx)
	if _, err := store.Get(ctx, partID); err != nil {
		return nil, err
	}

	ok, err := store.ApplyDelta(ctx, partID, delta)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInsufficientStock
	}

	err = store.InsertTransaction(ctx, &Transaction{
		ID:          storage.NewID(),
		PartID:      partID,
		Delta:       delta,
		Reason:      reason,
		WorkOrderID: workOrderID,
		ActorID:     identity.ActorOrSystem(ctx).ID,
		CreatedAt:   storage.Now(),
	})
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, partID)
}
