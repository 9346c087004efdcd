package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetworks/depot/internal/audittest"
	"fleetworks/depot/internal/testutil"
	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/fleet/assets"
	"fleetworks/depot/pkg/fleet/workorders"
	"fleetworks/depot/pkg/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
)

var testLead = Lead{Days: 7, Miles: 250, Hours: 10}

func TestSchedule_Evaluate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	daysAgo := func(n int) time.Time { return now.AddDate(0, 0, -n) }

	tests := []struct {
		name     string
		schedule Schedule
		asset    assets.Asset
		lead     Lead
		wantDue  bool
	}{
		{"calendar inside lead window", Schedule{IntervalDays: 90, LastCompletedAt: daysAgo(85)}, assets.Asset{}, testLead, true},
		{"calendar before lead window", Schedule{IntervalDays: 90, LastCompletedAt: daysAgo(80)}, assets.Asset{}, testLead, false},
		{"calendar overdue without lead", Schedule{IntervalDays: 90, LastCompletedAt: daysAgo(95)}, assets.Asset{}, Lead{}, true},
		{"lead not smaller than interval is ignored", Schedule{IntervalDays: 5, LastCompletedAt: daysAgo(3)}, assets.Asset{}, testLead, false},
		{"miles inside lead window", Schedule{IntervalMiles: 5000, LastOdometer: 1000, LastCompletedAt: now}, assets.Asset{Odometer: 5750}, testLead, true},
		{"miles short of lead window", Schedule{IntervalMiles: 5000, LastOdometer: 1000, LastCompletedAt: now}, assets.Asset{Odometer: 5700}, testLead, false},
		{"engine hours due", Schedule{IntervalHours: 250, LastEngineHours: 100, LastCompletedAt: now}, assets.Asset{EngineHours: 345}, testLead, true},
		{"any interval is enough", Schedule{IntervalDays: 365, IntervalMiles: 3000, LastCompletedAt: daysAgo(10)}, assets.Asset{Odometer: 3100}, Lead{}, true},
		{"no intervals", Schedule{LastCompletedAt: daysAgo(1000)}, assets.Asset{Odometer: 1e6}, testLead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.schedule.Evaluate(&tt.asset, now, tt.lead)
			if c.Due != tt.wantDue {
				t.Errorf("Evaluate().Due = %v, want %v (reasons %v)", c.Due, tt.wantDue, c.Reasons)
			}
			if c.Due && len(c.Reasons) == 0 {
				t.Error("due schedule has no reasons")
			}
		})
	}
}

func TestSchedule_EvaluateNextDue(t *testing.T) {
	last := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Schedule{IntervalDays: 30, IntervalMiles: 1000, LastCompletedAt: last, LastOdometer: 500}
	c := s.Evaluate(&assets.Asset{Odometer: 600}, last, Lead{})

	if c.NextDueAt == nil || !c.NextDueAt.Equal(last.AddDate(0, 0, 30)) {
		t.Errorf("NextDueAt = %v", c.NextDueAt)
	}
	if c.NextDueOdometer == nil || *c.NextDueOdometer != 1500 {
		t.Errorf("NextDueOdometer = %v", c.NextDueOdometer)
	}
	if c.NextDueHours != nil {
		t.Errorf("NextDueHours = %v, want nil", *c.NextDueHours)
	}
}

type fixture struct {
	svc    *Service
	wo     *workorders.Service
	assets *assets.Service
	rec    *audittest.Recorder
	reg    *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	rec := &audittest.Recorder{}
	reg := prometheus.NewRegistry()
	coll := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "depot"}, reg)
	wo := workorders.NewService(db, rec, coll)
	cfg := config.MaintenanceConfig{LeadDays: testLead.Days, LeadMiles: testLead.Miles, LeadHours: testLead.Hours}
	return &fixture{
		svc:    NewService(db, wo, rec, coll, cfg),
		wo:     wo,
		assets: assets.NewService(db, rec),
		rec:    rec,
		reg:    reg,
	}
}

func (f *fixture) asset(t *testing.T, tag string) *assets.Asset {
	t.Helper()
	a, err := f.assets.Create(context.Background(), assets.CreateInput{AssetTag: tag, Name: tag, Type: assets.TypeVehicle})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func (f *fixture) meter(t *testing.T, id string, odometer float64) {
	t.Helper()
	if _, err := f.assets.RecordMeter(context.Background(), id, assets.MeterInput{Odometer: &odometer}); err != nil {
		t.Fatal(err)
	}
}

func TestService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	a := f.asset(t, "TRK-1")
	ctx := context.Background()

	tests := []struct {
		name    string
		in      CreateInput
		wantErr error
	}{
		{"no interval", CreateInput{AssetID: a.ID, Name: "Oil change"}, apperr.ErrInvalid},
		{"negative interval", CreateInput{AssetID: a.ID, Name: "Oil change", IntervalMiles: -1, IntervalDays: 30}, apperr.ErrInvalid},
		{"bad priority", CreateInput{AssetID: a.ID, Name: "Oil change", IntervalDays: 30, Priority: "urgent"}, apperr.ErrInvalid},
		{"missing asset", CreateInput{AssetID: "nope", Name: "Oil change", IntervalDays: 30}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Create(ctx, tt.in); !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	sc, err := f.svc.Create(ctx, CreateInput{AssetID: a.ID, Name: "Oil change", IntervalMiles: 5000})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if sc.Title != "Oil change" || sc.Priority != workorders.PriorityMedium || !sc.Active {
		t.Errorf("defaults not applied: %+v", sc)
	}
}

func TestService_RunGeneratesOncePerDueSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	truck := f.asset(t, "TRK-1")
	trailer := f.asset(t, "TRL-1")

	longAgo := time.Now().AddDate(0, 0, -100)
	due, err := f.svc.Create(ctx, CreateInput{AssetID: truck.ID, Name: "Annual DOT", IntervalDays: 90, LastCompletedAt: &longAgo, Priority: workorders.PriorityHigh})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Create(ctx, CreateInput{AssetID: trailer.ID, Name: "Grease", IntervalDays: 90}); err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.Run(ctx, time.Now())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if len(got) != 1 || got[0].ScheduleID != due.ID {
		t.Fatalf("Run() generated %+v, want only %s", got, due.ID)
	}
	wo := got[0].WorkOrder
	if wo.Source != workorders.SourceSchedule || wo.SourceRef != due.ID || wo.Priority != workorders.PriorityHigh {
		t.Errorf("generated work order = %+v", wo)
	}

	sc, _ := f.svc.Get(ctx, due.ID)
	if sc.OpenWorkOrderID != wo.ID {
		t.Errorf("OpenWorkOrderID = %q, want %q", sc.OpenWorkOrderID, wo.ID)
	}

	again, err := f.svc.Run(ctx, time.Now())
	if err != nil || len(again) != 0 {
		t.Errorf("second Run() = %v, %v; want nothing", again, err)
	}

	if got, err := promtestutil.GatherAndCount(f.reg, "depot_maintenance_runs_total"); err != nil || got != 1 {
		t.Errorf("runs_total series = %d, want 1", got)
	}
}

func TestService_CompletionResetsSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "TRK-1")

	sc, err := f.svc.Create(ctx, CreateInput{AssetID: a.ID, Name: "Oil change", IntervalMiles: 5000})
	if err != nil {
		t.Fatal(err)
	}
	f.meter(t, a.ID, 4800)

	got, err := f.svc.Run(ctx, time.Now())
	if err != nil || len(got) != 1 {
		t.Fatalf("Run() = %v, %v", got, err)
	}
	woID := got[0].WorkOrder.ID

	f.meter(t, a.ID, 4820)
	for _, st := range []workorders.Status{workorders.StatusInProgress, workorders.StatusCompleted} {
		if _, err := f.wo.Transition(ctx, woID, workorders.TransitionInput{Status: st}); err != nil {
			t.Fatalf("Transition(%s) failed: %v", st, err)
		}
	}

	sc, _ = f.svc.Get(ctx, sc.ID)
	if sc.OpenWorkOrderID != "" || sc.LastOdometer != 4820 {
		t.Errorf("after completion: open=%q last_odometer=%v", sc.OpenWorkOrderID, sc.LastOdometer)
	}
	if since := time.Since(sc.LastCompletedAt); since < 0 || since > time.Minute {
		t.Errorf("LastCompletedAt = %v, want about now", sc.LastCompletedAt)
	}

	if got, _ := f.svc.Run(ctx, time.Now()); len(got) != 0 {
		t.Errorf("Run() after reset generated %d work orders", len(got))
	}
}

func TestService_CancellationReleasesSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "TRK-1")

	sc, err := f.svc.Create(ctx, CreateInput{AssetID: a.ID, Name: "Oil change", IntervalMiles: 5000})
	if err != nil {
		t.Fatal(err)
	}
	f.meter(t, a.ID, 6000)

	first, _ := f.svc.Run(ctx, time.Now())
	if len(first) != 1 {
		t.Fatalf("Run() generated %d", len(first))
	}
	if _, err := f.wo.Transition(ctx, first[0].WorkOrder.ID, workorders.TransitionInput{Status: workorders.StatusCancelled}); err != nil {
		t.Fatal(err)
	}

	sc, _ = f.svc.Get(ctx, sc.ID)
	if sc.OpenWorkOrderID != "" || sc.LastOdometer != 0 {
		t.Errorf("after cancel: open=%q last_odometer=%v", sc.OpenWorkOrderID, sc.LastOdometer)
	}

	second, _ := f.svc.Run(ctx, time.Now())
	if len(second) != 1 || second[0].WorkOrder.ID == first[0].WorkOrder.ID {
		t.Errorf("Run() after cancel = %+v, want a new work order", second)
	}
}

func TestService_RunSkipsRetiredAndInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	retired := f.asset(t, "OLD-1")
	parked := f.asset(t, "PRK-1")
	longAgo := time.Now().AddDate(-1, 0, 0)

	if _, err := f.svc.Create(ctx, CreateInput{AssetID: retired.ID, Name: "Inspect", IntervalDays: 30, LastCompletedAt: &longAgo}); err != nil {
		t.Fatal(err)
	}
	status := assets.StatusRetired
	if _, err := f.assets.Update(ctx, retired.ID, assets.UpdateInput{Status: &status}); err != nil {
		t.Fatal(err)
	}

	sc, err := f.svc.Create(ctx, CreateInput{AssetID: parked.ID, Name: "Inspect", IntervalDays: 30, LastCompletedAt: &longAgo})
	if err != nil {
		t.Fatal(err)
	}
	off := false
	if _, err := f.svc.Update(ctx, sc.ID, UpdateInput{Active: &off}); err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.Run(ctx, time.Now())
	if err != nil || len(got) != 0 {
		t.Errorf("Run() = %v, %v; want nothing", got, err)
	}
}

func TestService_Check(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.asset(t, "TRK-1")

	sc, err := f.svc.Create(ctx, CreateInput{AssetID: a.ID, Name: "Tires", IntervalMiles: 40000})
	if err != nil {
		t.Fatal(err)
	}
	c, err := f.svc.Check(ctx, sc.ID, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if c.Due || c.NextDueOdometer == nil || *c.NextDueOdometer != 40000 {
		t.Errorf("Check() = %+v", c)
	}
}
