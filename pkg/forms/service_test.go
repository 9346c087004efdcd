package forms

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"fleetworks/depot/internal/audittest"
	"fleetworks/depot/internal/testutil"
	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/fleet/assets"
	"fleetworks/depot/pkg/telemetry/metrics"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
)

type fixture struct {
	svc    *Service
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
	return &fixture{
		svc:    NewService(db, rec, coll, config.FormsConfig{MaxFields: 50, MaxConditionsPerField: 10}),
		assets: assets.NewService(db, rec),
		rec:    rec,
		reg:    reg,
	}
}

func (f *fixture) submissions(t *testing.T, result string) float64 {
	t.Helper()
	families, err := f.reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() != "depot_forms_submissions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func preTripFields() []Field {
	return []Field{
		{ID: "defects", Label: "Defects found", Type: TypeCheckbox},
		{ID: "notes", Label: "Defect notes", Type: TypeTextarea, Required: true,
			Logic: logic(ActionShow, And, group(And, cond("defects", OpEquals, true)))},
		{ID: "fuel", Label: "Fuel level", Type: TypeNumber, Min: ptr(0), Max: ptr(100)},
	}
}

func TestService_CreateAndUpdateDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, CreateInput{Name: "  "}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("Create(blank name) error = %v, want ErrInvalid", err)
	}
	bad := []Field{{ID: "x", Label: "X", Type: "slider"}}
	if _, err := f.svc.Create(ctx, CreateInput{Name: "Bad", Fields: bad}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("Create(bad field) error = %v, want ErrInvalid", err)
	}

	form, err := f.svc.Create(ctx, CreateInput{Name: "Pre-trip"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if form.Status != StatusDraft || form.Revision != 1 || form.Fields.V == nil {
		t.Errorf("Create() = %+v", form)
	}

	fields := preTripFields()
	updated, err := f.svc.UpdateDraft(ctx, form.ID, UpdateInput{Fields: &fields, ExpectedRevision: 1})
	if err != nil {
		t.Fatalf("UpdateDraft() failed: %v", err)
	}
	if updated.Revision != 2 {
		t.Errorf("Revision = %d, want 2", updated.Revision)
	}

	if _, err := f.svc.UpdateDraft(ctx, form.ID, UpdateInput{Fields: &fields, ExpectedRevision: 1}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("UpdateDraft(stale) error = %v, want ErrConflict", err)
	}

	name := "Pre-trip inspection"
	updated, err = f.svc.UpdateDraft(ctx, form.ID, UpdateInput{Name: &name})
	if err != nil {
		t.Fatalf("UpdateDraft(name) failed: %v", err)
	}
	got, err := f.svc.Get(ctx, form.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != name || got.Revision != 3 || len(got.Fields.V) != 3 {
		t.Errorf("Get() = %+v", got)
	}
	if diff := cmp.Diff(preTripFields(), got.Fields.V); diff != "" {
		t.Errorf("stored fields mismatch (-want +got):\n%s", diff)
	}

	same, err := f.svc.UpdateDraft(ctx, form.ID, UpdateInput{Name: &name})
	if err != nil || same.Revision != 3 {
		t.Errorf("no-op UpdateDraft() = %v, %v; want revision unchanged", same.Revision, err)
	}

	if diff := cmp.Diff([]string{"create", "update", "update"}, f.rec.Actions("form")); diff != "" {
		t.Errorf("audit actions mismatch (-want +got):\n%s", diff)
	}
}

func TestService_Publish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form, err := f.svc.Create(ctx, CreateInput{Name: "Empty"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Publish(ctx, form.ID, 1); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("Publish(no fields) error = %v, want ErrInvalid", err)
	}

	form, err = f.svc.Create(ctx, CreateInput{Name: "Pre-trip", Fields: preTripFields()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Publish(ctx, form.ID, 2); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Publish(stale revision) error = %v, want ErrConflict", err)
	}

	v1, err := f.svc.Publish(ctx, form.ID, 1)
	if err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	if v1.Version != 1 || len(v1.Checksum) != 64 {
		t.Errorf("Publish() = %+v", v1)
	}
	if _, err := f.svc.Publish(ctx, form.ID, 1); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Publish(unchanged) error = %v, want ErrConflict", err)
	}

	fields := append(preTripFields(), Field{ID: "tires", Label: "Tires", Type: TypeRadio, Options: []string{"Good", "Worn"}})
	if _, err := f.svc.UpdateDraft(ctx, form.ID, UpdateInput{Fields: &fields, ExpectedRevision: 1}); err != nil {
		t.Fatal(err)
	}
	v2, err := f.svc.Publish(ctx, form.ID, 2)
	if err != nil {
		t.Fatalf("Publish(v2) failed: %v", err)
	}
	if v2.Version != 2 || v2.Checksum == v1.Checksum {
		t.Errorf("Publish(v2) = %+v", v2)
	}

	got, err := f.svc.Get(ctx, form.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusPublished || got.CurrentVersion != 2 {
		t.Errorf("form after publish = %+v", got)
	}

	versions, err := f.svc.Versions(ctx, form.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 {
		t.Fatalf("Versions() len = %d, want 2", len(versions))
	}
	old, err := f.svc.Version(ctx, form.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(preTripFields(), old.Fields.V); diff != "" {
		t.Errorf("version 1 changed after republish (-want +got):\n%s", diff)
	}
	if _, err := f.svc.Version(ctx, form.ID, 9); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Version(9) error = %v, want ErrNotFound", err)
	}

	if err := f.svc.Delete(ctx, form.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Delete(published) error = %v, want ErrConflict", err)
	}
}

func TestService_ConcurrentPublishSameRevision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form, err := f.svc.Create(ctx, CreateInput{Name: "Pre-trip", Fields: preTripFields()})
	if err != nil {
		t.Fatal(err)
	}

	const workers = 6
	var (
		wg        sync.WaitGroup
		published atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Publish(ctx, form.ID, form.Revision)
			switch {
			case err == nil:
				published.Add(1)
			case errors.Is(err, apperr.ErrConflict):
				conflicts.Add(1)
			default:
				t.Errorf("Publish() unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if published.Load() != 1 || conflicts.Load() != workers-1 {
		t.Errorf("published %d, conflicts %d; want 1 and %d", published.Load(), conflicts.Load(), workers-1)
	}
	versions, err := f.svc.Versions(ctx, form.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 1 || versions[0].Version != 1 {
		t.Errorf("versions = %+v, want only version 1", versions)
	}
}

func TestService_PublishRacingDraftEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form, err := f.svc.Create(ctx, CreateInput{Name: "Pre-trip", Fields: preTripFields()})
	if err != nil {
		t.Fatal(err)
	}

	const rounds = 8
	revision := form.Revision
	snapshots := map[int]string{}
	for round := 0; round < rounds; round++ {
		fields := append(preTripFields(), Field{ID: fmt.Sprintf("check_%d", round), Label: "Check", Type: TypeText})

		var (
			wg         sync.WaitGroup
			v          *Version
			publishErr error
			editErr    error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			v, publishErr = f.svc.Publish(ctx, form.ID, revision)
		}()
		go func() {
			defer wg.Done()
			_, editErr = f.svc.UpdateDraft(ctx, form.ID, UpdateInput{Fields: &fields, ExpectedRevision: revision})
		}()
		wg.Wait()

		if editErr != nil {
			t.Fatalf("round %d: UpdateDraft() failed: %v", round, editErr)
		}
		revision++
		switch {
		case publishErr == nil:
			snapshots[v.Version] = v.Checksum
		case errors.Is(publishErr, apperr.ErrConflict):
		default:
			t.Fatalf("round %d: Publish() unexpected error: %v", round, publishErr)
		}
	}

	versions, err := f.svc.Versions(ctx, form.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != len(snapshots) {
		t.Fatalf("stored %d versions, %d publishes succeeded", len(versions), len(snapshots))
	}
	seen := map[int]bool{}
	for _, v := range versions {
		seen[v.Version] = true
		if want, ok := snapshots[v.Version]; !ok || v.Checksum != want {
			t.Errorf("version %d checksum = %s, want %s", v.Version, v.Checksum, want)
		}
		sum, err := checksum(v.Fields.V)
		if err != nil {
			t.Fatal(err)
		}
		if sum != v.Checksum {
			t.Errorf("version %d fields no longer match their checksum", v.Version)
		}
	}
	for n := 1; n <= len(versions); n++ {
		if !seen[n] {
			t.Errorf("version numbers have a gap at %d", n)
		}
	}

	got, err := f.svc.Get(ctx, form.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Revision != revision || got.CurrentVersion != len(versions) {
		t.Errorf("form revision %d current_version %d, want %d and %d", got.Revision, got.CurrentVersion, revision, len(versions))
	}
}

func TestService_Submit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.assets.Create(ctx, assets.CreateInput{AssetTag: "TRK-7", Name: "Truck 7", Type: assets.TypeVehicle})
	if err != nil {
		t.Fatal(err)
	}
	form, err := f.svc.Create(ctx, CreateInput{Name: "Pre-trip", Fields: preTripFields()})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Submit(ctx, form.ID, SubmitInput{Values: map[string]any{}}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Submit(unpublished) error = %v, want ErrConflict", err)
	}
	if _, err := f.svc.Publish(ctx, form.ID, 1); err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.Submit(ctx, form.ID, SubmitInput{AssetID: a.ID, Values: map[string]any{"defects": true}})
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("Submit(missing notes) error = %v, want ErrInvalid", err)
	}
	if _, err := f.svc.Submit(ctx, form.ID, SubmitInput{AssetID: "missing", Values: map[string]any{}}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Submit(unknown asset) error = %v, want ErrNotFound", err)
	}

	view, err := f.svc.Submit(ctx, form.ID, SubmitInput{AssetID: a.ID, Values: map[string]any{
		"defects": "true",
		"notes":   "Cracked mirror",
		"fuel":    "80",
	}})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if view.FormVersion != 1 || view.AssetID != a.ID {
		t.Errorf("Submit() = %+v", view.Submission)
	}
	want := map[string]any{"defects": true, "notes": "Cracked mirror", "fuel": 80.0}
	if diff := cmp.Diff(want, view.Answers.V); diff != "" {
		t.Errorf("answers mismatch (-want +got):\n%s", diff)
	}

	if got := f.submissions(t, "accepted"); got != 1 {
		t.Errorf("accepted submissions = %v, want 1", got)
	}
	if got := f.submissions(t, "rejected"); got != 3 {
		t.Errorf("rejected submissions = %v, want 3", got)
	}
	if n, err := promtestutil.GatherAndCount(f.reg, "depot_forms_submissions_total"); err != nil || n != 2 {
		t.Errorf("submission series = %d (%v), want 2", n, err)
	}
	if diff := cmp.Diff([]string{"submit"}, f.rec.Actions("form_submission")); diff != "" {
		t.Errorf("audit actions mismatch (-want +got):\n%s", diff)
	}
}

func TestService_SubmissionsStayPinnedToTheirVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form, err := f.svc.Create(ctx, CreateInput{Name: "Pre-trip", Fields: preTripFields()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Publish(ctx, form.ID, 1); err != nil {
		t.Fatal(err)
	}
	first, err := f.svc.Submit(ctx, form.ID, SubmitInput{Values: map[string]any{"defects": true, "notes": "Low tire"}})
	if err != nil {
		t.Fatal(err)
	}

	// Version 2 drops the notes field and requires fuel.
	fields := []Field{
		{ID: "defects", Label: "Defects found", Type: TypeCheckbox},
		{ID: "fuel", Label: "Fuel level", Type: TypeNumber, Required: true},
	}
	if _, err := f.svc.UpdateDraft(ctx, form.ID, UpdateInput{Fields: &fields}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Publish(ctx, form.ID, 2); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Submit(ctx, form.ID, SubmitInput{Values: map[string]any{"defects": false}}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("Submit(latest without fuel) error = %v, want ErrInvalid", err)
	}
	old, err := f.svc.Submit(ctx, form.ID, SubmitInput{Version: 1, Values: map[string]any{"defects": false}})
	if err != nil {
		t.Fatalf("Submit(version 1) failed: %v", err)
	}
	if old.FormVersion != 1 {
		t.Errorf("FormVersion = %d, want 1", old.FormVersion)
	}

	view, err := f.svc.GetSubmission(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetSubmission() failed: %v", err)
	}
	if len(view.Fields) != 3 || !view.States["notes"].Visible || !view.States["notes"].Required {
		t.Errorf("GetSubmission() fields = %d, states = %+v", len(view.Fields), view.States)
	}

	subs, err := f.svc.ListSubmissions(ctx, SubmissionFilter{FormID: form.ID, Version: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 2 {
		t.Errorf("ListSubmissions(version 1) len = %d, want 2", len(subs))
	}
}

func TestService_EvaluatePreview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form, err := f.svc.Create(ctx, CreateInput{Name: "Pre-trip", Fields: preTripFields()})
	if err != nil {
		t.Fatal(err)
	}
	states, err := f.svc.Evaluate(ctx, form.ID, 0, map[string]any{"defects": true})
	if err != nil {
		t.Fatalf("Evaluate(draft) failed: %v", err)
	}
	if !states["notes"].Visible {
		t.Error("notes hidden in draft preview")
	}
	if _, err := f.svc.Evaluate(ctx, form.ID, 1, nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Evaluate(unpublished version) error = %v, want ErrNotFound", err)
	}
}

func TestService_ArchiveAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form, err := f.svc.Create(ctx, CreateInput{Name: "Pre-trip", Fields: preTripFields()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Publish(ctx, form.ID, 1); err != nil {
		t.Fatal(err)
	}
	archived, err := f.svc.Archive(ctx, form.ID)
	if err != nil || archived.Status != StatusArchived {
		t.Fatalf("Archive() = %v, %v", archived, err)
	}
	if _, err := f.svc.Submit(ctx, form.ID, SubmitInput{Values: map[string]any{}}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Submit(archived) error = %v, want ErrConflict", err)
	}
	name := "Renamed"
	if _, err := f.svc.UpdateDraft(ctx, form.ID, UpdateInput{Name: &name}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("UpdateDraft(archived) error = %v, want ErrConflict", err)
	}
	if _, err := f.svc.Version(ctx, form.ID, 1); err != nil {
		t.Errorf("Version(1) after archive: %v", err)
	}

	draft, err := f.svc.Create(ctx, CreateInput{Name: "Scratch"})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Delete(ctx, draft.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := f.svc.Get(ctx, draft.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrNotFound", err)
	}

	forms, err := f.svc.List(ctx, Filter{Status: StatusArchived})
	if err != nil {
		t.Fatal(err)
	}
	if len(forms) != 1 || forms[0].ID != form.ID {
		t.Errorf("List(archived) = %+v", forms)
	}
}
