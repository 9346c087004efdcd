package inspections

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fleetworks/depot/internal/audittest"
	"fleetworks/depot/internal/testutil"
	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/fleet/assets"
	"fleetworks/depot/pkg/fleet/workorders"
	"fleetworks/depot/pkg/identity"
)

func setup(t *testing.T, auto bool) (*Service, *workorders.Service, *assets.Asset) {
	t.Helper()
	db := testutil.NewDB(t)
	rec := &audittest.Recorder{}
	assetSvc := assets.NewService(db, rec)
	wo := workorders.NewService(db, rec, nil)
	svc := NewService(db, wo, rec, config.InspectionsConfig{AutoWorkOrder: auto, FailedPriority: "high"})

	a, err := assetSvc.Create(context.Background(), assets.CreateInput{AssetTag: "TRK-1", Name: "Truck", Type: assets.TypeVehicle, Odometer: 100})
	if err != nil {
		t.Fatal(err)
	}
	return svc, wo, a
}

func inspectorCtx() context.Context {
	return identity.WithActor(context.Background(), identity.Actor{ID: "tech-1", Type: identity.ActorUser, Role: identity.RoleTechnician})
}

func TestService_CreatePassing(t *testing.T) {
	svc, wo, a := setup(t, true)

	insp, err := svc.Create(inspectorCtx(), CreateInput{
		AssetID: a.ID, Kind: KindPreTrip, Odometer: 150,
		Items: []Item{{Name: "Lights", Result: ResultPass}, {Name: "Horn", Result: ResultNA}},
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if insp.Result != ResultPass || insp.WorkOrderID != "" {
		t.Errorf("inspection = %s wo=%q, want pass without work order", insp.Result, insp.WorkOrderID)
	}
	if insp.InspectorID != "tech-1" {
		t.Errorf("inspector = %q, want tech-1", insp.InspectorID)
	}

	list, err := wo.List(context.Background(), workorders.Filter{AssetID: a.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("passing inspection created %d work orders", len(list))
	}

	got, err := svc.Get(context.Background(), insp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items.V) != 2 || got.Items.V[0].Name != "Lights" {
		t.Errorf("stored items = %+v", got.Items.V)
	}
}

func TestService_CreateFailingOpensWorkOrder(t *testing.T) {
	svc, wo, a := setup(t, true)
	ctx := inspectorCtx()

	insp, err := svc.Create(ctx, CreateInput{
		AssetID: a.ID, Kind: KindPostTrip,
		Items: []Item{
			{Name: "Brakes", Result: ResultFail, Notes: "soft pedal"},
			{Name: "Tires", Result: ResultPass},
			{Name: "Wipers", Result: ResultFail},
		},
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if insp.Result != ResultFail || insp.WorkOrderID == "" {
		t.Fatalf("inspection = %s wo=%q, want fail with work order", insp.Result, insp.WorkOrderID)
	}

	order, err := wo.Get(ctx, insp.WorkOrderID)
	if err != nil {
		t.Fatal(err)
	}
	if order.Source != workorders.SourceInspection || order.SourceRef != insp.ID {
		t.Errorf("work order source = %s/%s", order.Source, order.SourceRef)
	}
	if order.Priority != workorders.PriorityHigh {
		t.Errorf("priority = %s, want high", order.Priority)
	}
	if !strings.Contains(order.Title, "Brakes, Wipers") || !strings.Contains(order.Description, "soft pedal") {
		t.Errorf("work order text = %q / %q", order.Title, order.Description)
	}

	stored, err := svc.Get(ctx, insp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.WorkOrderID != order.ID {
		t.Errorf("stored work_order_id = %q, want %q", stored.WorkOrderID, order.ID)
	}
}

func TestService_CreateFailingWithoutAutoWorkOrder(t *testing.T) {
	svc, _, a := setup(t, false)

	insp, err := svc.Create(inspectorCtx(), CreateInput{
		AssetID: a.ID, Kind: KindAnnual, Items: []Item{{Name: "Frame", Result: ResultFail}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if insp.Result != ResultFail || insp.WorkOrderID != "" {
		t.Errorf("inspection = %s wo=%q, want fail without work order", insp.Result, insp.WorkOrderID)
	}
}

func TestService_CreateRejects(t *testing.T) {
	svc, _, a := setup(t, true)
	ctx := inspectorCtx()

	tests := []struct {
		name    string
		in      CreateInput
		wantErr error
	}{
		{"no items", CreateInput{AssetID: a.ID, Kind: KindPreTrip}, apperr.ErrInvalid},
		{"bad kind", CreateInput{AssetID: a.ID, Kind: "weekly", Items: []Item{{Name: "x", Result: ResultPass}}}, apperr.ErrInvalid},
		{"bad item result", CreateInput{AssetID: a.ID, Kind: KindPreTrip, Items: []Item{{Name: "x", Result: "ok"}}}, apperr.ErrInvalid},
		{"unknown asset", CreateInput{AssetID: "missing", Kind: KindPreTrip, Items: []Item{{Name: "x", Result: ResultPass}}}, apperr.ErrNotFound},
		{"unknown submission", CreateInput{AssetID: a.ID, Kind: KindCustom, FormSubmissionID: "nope", Items: []Item{{Name: "x", Result: ResultPass}}}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.in); !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	list, err := svc.List(ctx, Filter{AssetID: a.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("rejected inspections were stored: %d", len(list))
	}
}
