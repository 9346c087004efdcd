package obd

import (
	"context"
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

	"github.com/jmoiron/sqlx"
)

// Service ingests trouble codes reported by assets.
type Service struct {
	db         *sqlx.DB
	store      *Store
	workOrders *workorders.Service
	auditor    audit.Auditor
	cfg        config.OBDConfig
	logger     *slog.Logger
}

// NewService creates an OBD service.
func NewService(db *sqlx.DB, wo *workorders.Service, auditor audit.Auditor, cfg config.OBDConfig) *Service {
	return &Service{
		db:         db,
		store:      NewStore(db),
		workOrders: wo,
		auditor:    auditor,
		cfg:        cfg,
		logger:     slog.Default().With("component", "obd"),
	}
}

// Critical reports whether code starts with one of the configured
// critical prefixes.
func (s *Service) Critical(code string) bool {
	for _, p := range s.cfg.CriticalPrefixes {
		if p != "" && strings.HasPrefix(code, strings.ToUpper(p)) {
			return true
		}
	}
	return false
}

// Ingest stores the codes reported by an asset. When auto work orders are
// on and a critical code arrives while the asset has no open DTC work
// order, one is created; otherwise critical codes are linked to the open
// one.
func (s *Service) Ingest(ctx context.Context, assetID string, in IngestInput) (*IngestResult, error) {
	codes, err := collect(in)
	if err != nil {
		return nil, err
	}
	if in.Odometer < 0 {
		return nil, apperr.Invalid("odometer must not be negative")
	}

	recorded := storage.Now()
	if in.RecordedAt != nil {
		recorded = in.RecordedAt.UTC().Truncate(time.Microsecond)
	}

	res := &IngestResult{Events: make([]Event, 0, len(codes))}
	var critical []DTC
	for _, d := range codes {
		if s.Critical(d.Code) {
			critical = append(critical, d)
			res.Critical = append(res.Critical, d.Code)
		}
	}

	err = storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		assetStore := assets.NewStore(tx)
		if _, err := assetStore.Get(ctx, assetID); err != nil {
			return err
		}

		var linkTo string
		if len(critical) > 0 && s.cfg.AutoWorkOrder {
			open, err := s.workOrders.Store().WithTx(tx).FindOpen(ctx, assetID, workorders.SourceDTC)
			if err != nil {
				return err
			}
			if open != nil {
				linkTo = open.ID
			} else {
				wo, err := s.workOrders.CreateTx(ctx, tx, workorders.CreateInput{
					AssetID:     assetID,
					Title:       "Diagnostic trouble codes: " + strings.Join(res.Critical, ", "),
					Description: describe(critical),
					Priority:    workorders.PriorityHigh,
					Source:      workorders.SourceDTC,
					SourceRef:   strings.Join(res.Critical, ","),
				})
				if err != nil {
					return fmt.Errorf("create diagnostic work order: %w", err)
				}
				res.WorkOrder = wo
				linkTo = wo.ID
			}
		}

		store := s.store.WithTx(tx)
		for _, d := range codes {
			e := Event{
				ID:          storage.NewID(),
				AssetID:     assetID,
				Code:        d.Code,
				System:      d.System,
				Description: d.Description,
				Odometer:    in.Odometer,
				RecordedAt:  recorded,
			}
			if s.Critical(d.Code) {
				e.WorkOrderID = linkTo
			}
			if err := store.Insert(ctx, &e); err != nil {
				return err
			}
			res.Events = append(res.Events, e)
		}

		if in.Odometer > 0 {
			if _, err := assetStore.RaiseOdometer(ctx, assetID, in.Odometer); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.WorkOrder != nil {
		s.workOrders.Created(ctx, res.WorkOrder)
	}
	if len(res.Critical) > 0 {
		s.logger.WarnContext(ctx, "critical trouble codes reported", "asset_id", assetID, "codes", res.Critical)
	}
	_ = s.auditor.Record(ctx, audit.New(audit.ActionIngest, "asset", assetID, map[string]any{
		"codes":    eventCodes(res.Events),
		"critical": res.Critical,
	}))
	return res, nil
}

// List returns stored trouble code events.
func (s *Service) List(ctx context.Context, f Filter) ([]Event, error) {
	return s.store.List(ctx, f)
}

func collect(in IngestInput) ([]DTC, error) {
	var out []DTC
	seen := map[string]bool{}
	add := func(ds []DTC) {
		for _, d := range ds {
			if !seen[d.Code] {
				seen[d.Code] = true
				out = append(out, d)
			}
		}
	}

	if len(in.Codes) > 0 {
		ds, err := ParseDTCs(strings.Join(in.Codes, ","))
		if err != nil {
			return nil, err
		}
		add(ds)
	}
	if strings.TrimSpace(in.Raw) != "" {
		ds, err := DecodeMode03(in.Raw)
		if err != nil {
			return nil, err
		}
		add(ds)
	}
	if len(in.Codes) == 0 && strings.TrimSpace(in.Raw) == "" {
		return nil, apperr.Invalid("codes or raw is required")
	}
	return out, nil
}

func describe(ds []DTC) string {
	var b strings.Builder
	b.WriteString("Reported trouble codes:\n")
	for _, d := range ds {
		desc := d.Description
		if desc == "" {
			desc = d.Subsystem
		}
		if desc == "" {
			desc = string(d.System)
		}
		fmt.Fprintf(&b, "- %s: %s\n", d.Code, desc)
	}
	return strings.TrimRight(b.String(), "\n")
}

func eventCodes(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Code
	}
	return out
}
