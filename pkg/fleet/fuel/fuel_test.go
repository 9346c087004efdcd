package fuel

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"fleetworks/depot/internal/audittest"
	"fleetworks/depot/internal/testutil"
	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/fleet/assets"
)

func TestUnit_Convert(t *testing.T) {
	if got := Liters.Convert(37.85411784, Gallons); math.Abs(got-10) > 1e-9 {
		t.Errorf("37.85 l = %v gal, want 10", got)
	}
	if got := Gallons.Convert(1, Liters); got != litersPerGallon {
		t.Errorf("1 gal = %v l", got)
	}
	if got := Gallons.Convert(5, Gallons); got != 5 {
		t.Errorf("identity conversion = %v", got)
	}
}

func TestSummarize(t *testing.T) {
	day := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	entry := func(d int, qty, cost, odo float64, full bool) Entry {
		return Entry{FilledAt: day.AddDate(0, 0, d), Quantity: qty, Unit: Gallons, TotalCost: cost, Odometer: odo, FullTank: full}
	}

	tests := []struct {
		name           string
		entries        []Entry
		wantQuantity   float64
		wantCost       float64
		wantEfficiency float64 // 0 means nil
	}{
		{
			name:         "empty",
			entries:      nil,
			wantQuantity: 0,
		},
		{
			name:         "single full tank",
			entries:      []Entry{entry(0, 20, 70, 1000, true)},
			wantQuantity: 20, wantCost: 70,
		},
		{
			name: "two full tanks",
			entries: []Entry{
				entry(0, 20, 70, 1000, true),
				entry(3, 25, 87.5, 1300, true),
			},
			wantQuantity: 45, wantCost: 157.5, wantEfficiency: 12,
		},
		{
			name: "partial fill between full tanks",
			entries: []Entry{
				entry(0, 15, 50, 1000, true),
				entry(1, 10, 35, 1150, false),
				entry(2, 20, 70, 1450, true),
			},
			wantQuantity: 45, wantCost: 155, wantEfficiency: 15,
		},
		{
			name: "partial fill before first full tank ignored for efficiency",
			entries: []Entry{
				entry(0, 8, 30, 900, false),
				entry(1, 20, 70, 1000, true),
				entry(2, 20, 70, 1200, true),
			},
			wantQuantity: 48, wantCost: 170, wantEfficiency: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := Summarize(tt.entries, Gallons)
			if st.TotalQuantity != tt.wantQuantity || st.TotalCost != tt.wantCost {
				t.Errorf("totals = %v/%v, want %v/%v", st.TotalQuantity, st.TotalCost, tt.wantQuantity, tt.wantCost)
			}
			switch {
			case tt.wantEfficiency == 0 && st.Efficiency != nil:
				t.Errorf("efficiency = %v, want nil", *st.Efficiency)
			case tt.wantEfficiency != 0 && (st.Efficiency == nil || *st.Efficiency != tt.wantEfficiency):
				t.Errorf("efficiency = %v, want %v", st.Efficiency, tt.wantEfficiency)
			}
		})
	}
}

func TestSummarize_MixedUnits(t *testing.T) {
	entries := []Entry{
		{Quantity: 10, Unit: Gallons, TotalCost: 35},
		{Quantity: 37.85411784, Unit: Liters, TotalCost: 35},
	}
	st := Summarize(entries, Gallons)
	if st.TotalQuantity != 20 {
		t.Errorf("total = %v gal, want 20", st.TotalQuantity)
	}
	if st.AvgUnitPrice != 3.5 {
		t.Errorf("avg price = %v, want 3.5", st.AvgUnitPrice)
	}
}

func TestService_CreateRaisesOdometer(t *testing.T) {
	db := testutil.NewDB(t)
	rec := &audittest.Recorder{}
	assetSvc := assets.NewService(db, rec)
	svc := NewService(db, rec)
	ctx := context.Background()

	a, err := assetSvc.Create(ctx, assets.CreateInput{AssetTag: "TRK-1", Name: "Truck", Type: assets.TypeVehicle, Odometer: 5000})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Create(ctx, CreateInput{AssetID: a.ID, Quantity: 20, TotalCost: 70, Odometer: 4800, FullTank: true}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	got, _ := assetSvc.Get(ctx, a.ID)
	if got.Odometer != 5000 {
		t.Errorf("lower reading changed odometer to %v", got.Odometer)
	}

	e, err := svc.Create(ctx, CreateInput{AssetID: a.ID, Quantity: 18, Unit: Gallons, TotalCost: 63, Odometer: 5240, FullTank: true})
	if err != nil {
		t.Fatal(err)
	}
	if e.Unit != Gallons || e.FilledAt.IsZero() {
		t.Errorf("entry defaults = %s %v", e.Unit, e.FilledAt)
	}
	got, _ = assetSvc.Get(ctx, a.ID)
	if got.Odometer != 5240 {
		t.Errorf("odometer = %v, want 5240", got.Odometer)
	}

	st, err := svc.Stats(ctx, Filter{AssetID: a.ID}, "")
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if st.Entries != 2 || st.TotalQuantity != 38 {
		t.Errorf("stats = %+v", st)
	}
	if st.Efficiency == nil || *st.Efficiency != 24.44 {
		t.Errorf("efficiency = %v, want 24.44", st.Efficiency)
	}

	if _, err := svc.Create(ctx, CreateInput{AssetID: "missing", Quantity: 1}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown asset error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Create(ctx, CreateInput{AssetID: a.ID, Quantity: 0, Unit: "barrel"}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("invalid entry error = %v, want ErrInvalid", err)
	}
	if _, err := svc.Stats(ctx, Filter{AssetID: a.ID}, "barrel"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("invalid unit error = %v, want ErrInvalid", err)
	}
}
