package forms

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/audit"
	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/fleet/assets"
	"fleetworks/depot/pkg/identity"
	"fleetworks/depot/pkg/storage"
	"fleetworks/depot/pkg/telemetry/metrics"

	"github.com/jmoiron/sqlx"
)

// Service manages form drafts, published versions and submissions.
type Service struct {
	db      *sqlx.DB
	store   *Store
	auditor audit.Auditor
	metrics *metrics.Collector
	limits  Limits
	logger  *slog.Logger
}

// NewService creates a form service. collector may be nil.
func NewService(db *sqlx.DB, auditor audit.Auditor, collector *metrics.Collector, cfg config.FormsConfig) *Service {
	return &Service{
		db:      db,
		store:   NewStore(db),
		auditor: auditor,
		metrics: collector,
		limits:  Limits{MaxFields: cfg.MaxFields, MaxConditionsPerField: cfg.MaxConditionsPerField},
		logger:  slog.Default().With("component", "forms"),
	}
}

// Create stores a new draft form at revision 1.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Form, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fieldError("name", "is required")
	}
	if err := ValidateDefinition(in.Fields, s.limits); err != nil {
		return nil, err
	}

	now := storage.Now()
	f := &Form{
		ID:          storage.NewID(),
		Name:        name,
		Description: in.Description,
		Status:      StatusDraft,
		Revision:    1,
		Fields:      storage.NewJSON(nonNil(in.Fields)),
		CreatedBy:   identity.ActorOrSystem(ctx).ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, f); err != nil {
		return nil, err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionCreate, "form", f.ID, map[string]any{
		"name":   f.Name,
		"fields": len(f.Fields.V),
	}))
	return f, nil
}

// Get returns a form with its draft fields.
func (s *Service) Get(ctx context.Context, id string) (*Form, error) {
	return s.store.Get(ctx, id)
}

// List returns forms matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]Form, error) {
	return s.store.List(ctx, f)
}

// UpdateDraft edits the draft definition and bumps the revision. Published
// versions are not affected until the next Publish. A stale
// ExpectedRevision is a conflict.
func (s *Service) UpdateDraft(ctx context.Context, id string, in UpdateInput) (*Form, error) {
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status == StatusArchived {
		return nil, apperr.Conflict("form %q is archived", f.Name)
	}
	expected := in.ExpectedRevision
	if expected == 0 {
		expected = f.Revision
	}
	if expected != f.Revision {
		return nil, staleRevision(f, expected)
	}

	changes := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fieldError("name", "must not be empty")
		}
		if name != f.Name {
			f.Name = name
			changes["name"] = name
		}
	}
	if in.Description != nil && *in.Description != f.Description {
		f.Description = *in.Description
		changes["description"] = true
	}
	if in.Fields != nil {
		if err := ValidateDefinition(*in.Fields, s.limits); err != nil {
			return nil, err
		}
		f.Fields = storage.NewJSON(nonNil(*in.Fields))
		changes["fields"] = len(f.Fields.V)
	}
	if len(changes) == 0 {
		return f, nil
	}

	f.UpdatedAt = storage.Now()
	ok, err := s.store.UpdateDraft(ctx, f, expected)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("form %q was modified concurrently", f.Name)
	}
	f.Revision = expected + 1

	changes["revision"] = f.Revision
	_ = s.auditor.Record(ctx, audit.New(audit.ActionUpdate, "form", f.ID, changes))
	return f, nil
}

// Publish freezes the draft into a new immutable version. The form must
// still be at expectedRevision; an edit or publish that happened in
// between makes this a conflict. Publishing a draft identical to the
// current version is also a conflict.
func (s *Service) Publish(ctx context.Context, id string, expectedRevision int) (*Version, error) {
	var v *Version
	err := storage.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		store := s.store.WithTx(tx)
		f, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		if f.Status == StatusArchived {
			return apperr.Conflict("form %q is archived", f.Name)
		}
		if expectedRevision != f.Revision {
			return staleRevision(f, expectedRevision)
		}
		if len(f.Fields.V) == 0 {
			return fieldError("fields", "a form needs at least one field to be published")
		}
		if err := ValidateDefinition(f.Fields.V, s.limits); err != nil {
			return err
		}

		sum, err := checksum(f.Fields.V)
		if err != nil {
			return err
		}
		if f.CurrentVersion > 0 {
			cur, err := store.GetVersion(ctx, f.ID, f.CurrentVersion)
			if err != nil {
				return err
			}
			if cur.Checksum == sum {
				return apperr.Conflict("form %q has no changes since version %d", f.Name, cur.Version)
			}
		}

		v = &Version{
			ID:          storage.NewID(),
			FormID:      f.ID,
			Version:     f.CurrentVersion + 1,
			Fields:      f.Fields,
			Checksum:    sum,
			PublishedBy: identity.ActorOrSystem(ctx).ID,
			PublishedAt: storage.Now(),
		}
		if err := store.InsertVersion(ctx, v); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				return apperr.Conflict("form %q was published concurrently", f.Name)
			}
			return err
		}
		ok, err := store.MarkPublished(ctx, f, v.Version)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("form %q was modified concurrently", f.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionPublish, "form", id, map[string]any{
		"version":  v.Version,
		"checksum": v.Checksum,
	}))
	s.logger.InfoContext(ctx, "form published", "form_id", id, "version", v.Version)
	return v, nil
}

// Archive stops a form from accepting submissions. Its versions and
// submissions stay readable.
func (s *Service) Archive(ctx context.Context, id string) (*Form, error) {
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status == StatusArchived {
		return f, nil
	}
	if err := s.store.SetStatus(ctx, id, StatusArchived); err != nil {
		return nil, err
	}
	f.Status = StatusArchived
	_ = s.auditor.Record(ctx, audit.New(audit.ActionStatus, "form", id, map[string]any{"status": StatusArchived}))
	return f, nil
}

// Delete removes a form that was never published. Published forms are
// archived instead so their versions stay available.
func (s *Service) Delete(ctx context.Context, id string) error {
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if f.CurrentVersion > 0 {
		return apperr.Conflict("form %q has published versions; archive it instead", f.Name)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.auditor.Record(ctx, audit.New(audit.ActionDelete, "form", id, map[string]any{"name": f.Name}))
	return nil
}

// Versions lists the published versions of a form.
func (s *Service) Versions(ctx context.Context, id string) ([]Version, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, id)
}

// Version returns one published version.
func (s *Service) Version(ctx context.Context, id string, version int) (*Version, error) {
	v, err := s.store.GetVersion(ctx, id, version)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("form version", fmt.Sprintf("%s@%d", id, version))
	}
	return v, err
}

// Evaluate previews field states for values. Version 0 evaluates the
// draft.
func (s *Service) Evaluate(ctx context.Context, id string, version int, values map[string]any) (map[string]FieldState, error) {
	var fields []Field
	if version == 0 {
		f, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		fields = f.Fields.V
	} else {
		v, err := s.Version(ctx, id, version)
		if err != nil {
			return nil, err
		}
		fields = v.Fields.V
	}
	states, err := Evaluate(fields, values)
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}
	return states, nil
}

// Submit validates values against a published version and stores the
// cleaned answers pinned to it. Version 0 selects the latest version.
func (s *Service) Submit(ctx context.Context, id string, in SubmitInput) (*SubmissionView, error) {
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case f.Status == StatusArchived:
		return nil, s.reject(apperr.Conflict("form %q is archived", f.Name))
	case f.CurrentVersion == 0:
		return nil, s.reject(apperr.Conflict("form %q has not been published", f.Name))
	}

	version := in.Version
	if version == 0 {
		version = f.CurrentVersion
	}
	v, err := s.Version(ctx, id, version)
	if err != nil {
		return nil, s.reject(err)
	}
	if in.AssetID != "" {
		if _, err := assets.NewStore(s.db).Get(ctx, in.AssetID); err != nil {
			return nil, s.reject(err)
		}
	}

	answers, states, err := ValidateSubmission(v.Fields.V, in.Values)
	if err != nil {
		return nil, s.reject(err)
	}

	sub := Submission{
		ID:          storage.NewID(),
		FormID:      id,
		FormVersion: v.Version,
		AssetID:     in.AssetID,
		Answers:     storage.NewJSON(answers),
		SubmittedBy: identity.ActorOrSystem(ctx).ID,
		SubmittedAt: storage.Now(),
	}
	if err := s.store.InsertSubmission(ctx, &sub); err != nil {
		return nil, err
	}

	s.metrics.RecordFormSubmission("accepted")
	_ = s.auditor.Record(ctx, audit.New(audit.ActionSubmit, "form_submission", sub.ID, map[string]any{
		"form_id":  id,
		"version":  v.Version,
		"asset_id": sub.AssetID,
	}))
	return &SubmissionView{Submission: sub, Fields: v.Fields.V, States: states}, nil
}

func (s *Service) reject(err error) error {
	s.metrics.RecordFormSubmission("rejected")
	return err
}

// GetSubmission returns a submission with the fields of its pinned version
// and the states its answers produce under that version.
func (s *Service) GetSubmission(ctx context.Context, id string) (*SubmissionView, error) {
	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := s.store.GetVersion(ctx, sub.FormID, sub.FormVersion)
	if err != nil {
		return nil, err
	}
	states, err := Evaluate(v.Fields.V, sub.Answers.V)
	if err != nil {
		return nil, err
	}
	return &SubmissionView{Submission: *sub, Fields: v.Fields.V, States: states}, nil
}

// ListSubmissions returns submissions of a form.
func (s *Service) ListSubmissions(ctx context.Context, f SubmissionFilter) ([]Submission, error) {
	if _, err := s.store.Get(ctx, f.FormID); err != nil {
		return nil, err
	}
	return s.store.ListSubmissions(ctx, f)
}

func checksum(fields []Field) (string, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode form fields: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func staleRevision(f *Form, expected int) error {
	return apperr.Conflict("form %q is at revision %d, not %d", f.Name, f.Revision, expected)
}

func fieldError(field, msg string) error {
	verr := apperr.NewValidationError()
	verr.Add(field, msg)
	return verr
}

func nonNil(fields []Field) []Field {
	if fields == nil {
		return []Field{}
	}
	return fields
}
