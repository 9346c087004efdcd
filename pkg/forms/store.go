package forms

import (
	"context"

	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

const (
	formColumns       = `id, name, description, status, revision, current_version, fields, created_by, created_at, updated_at`
	versionColumns    = `id, form_id, version, fields, checksum, published_by, published_at`
	submissionColumns = `id, form_id, form_version, asset_id, answers, submitted_by, submitted_at`
)

// Store persists forms, their published versions and submissions.
// Versions and submissions are insert-only.
type Store struct {
	q sqlx.ExtContext
}

// NewStore creates a Store on db.
func NewStore(db sqlx.ExtContext) *Store {
	return &Store{q: db}
}

// WithTx returns a Store bound to tx.
func (s *Store) WithTx(tx *sqlx.Tx) *Store {
	return &Store{q: tx}
}

// Insert stores a new form.
func (s *Store) Insert(ctx context.Context, f *Form) error {
	_, err := storage.Exec(ctx, s.q, "insert_form",
		`INSERT INTO forms (`+formColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.Description, f.Status, f.Revision, f.CurrentVersion, f.Fields, f.CreatedBy, f.CreatedAt, f.UpdatedAt)
	return err
}

// Get returns the form with id.
func (s *Store) Get(ctx context.Context, id string) (*Form, error) {
	var f Form
	if err := storage.Get(ctx, s.q, "get_form", &f, `SELECT `+formColumns+` FROM forms WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &f, nil
}

// List returns forms matching f ordered by name.
func (s *Store) List(ctx context.Context, f Filter) ([]Form, error) {
	var w storage.Where
	if f.Status != "" {
		w.Add("status = ?", f.Status)
	}
	if f.Search != "" {
		w.Add(`LOWER(name) LIKE ? ESCAPE '\'`, storage.Like(f.Search))
	}
	out := []Form{}
	err := storage.Select(ctx, s.q, "list_forms", &out,
		`SELECT `+formColumns+` FROM forms`+w.SQL()+` ORDER BY name, id`+f.Page.SQL(), w.Args()...)
	return out, err
}

// UpdateDraft writes the draft of f and bumps its revision, provided the
// stored revision is still expectedRevision.
func (s *Store) UpdateDraft(ctx context.Context, f *Form, expectedRevision int) (bool, error) {
	n, err := storage.Exec(ctx, s.q, "update_form",
		`UPDATE forms SET name = ?, description = ?, fields = ?, revision = revision + 1, updated_at = ?
		WHERE id = ? AND revision = ?`,
		f.Name, f.Description, f.Fields, f.UpdatedAt, f.ID, expectedRevision)
	return n == 1, err
}

// MarkPublished records version as the form's current version, provided
// neither the draft nor the current version changed since they were read.
func (s *Store) MarkPublished(ctx context.Context, f *Form, version int) (bool, error) {
	n, err := storage.Exec(ctx, s.q, "publish_form",
		`UPDATE forms SET status = ?, current_version = ?, updated_at = ?
		WHERE id = ? AND revision = ? AND current_version = ?`,
		StatusPublished, version, storage.Now(), f.ID, f.Revision, f.CurrentVersion)
	return n == 1, err
}

// SetStatus changes the lifecycle status of a form.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	return storage.ExecOne(ctx, s.q, "set_form_status", "form", id,
		`UPDATE forms SET status = ?, updated_at = ? WHERE id = ?`, status, storage.Now(), id)
}

// Delete removes a form. Callers ensure it was never published.
func (s *Store) Delete(ctx context.Context, id string) error {
	return storage.ExecOne(ctx, s.q, "delete_form", "form", id, `DELETE FROM forms WHERE id = ? AND current_version = 0`, id)
}

// InsertVersion stores a published version.
func (s *Store) InsertVersion(ctx context.Context, v *Version) error {
	_, err := storage.Exec(ctx, s.q, "insert_form_version",
		`INSERT INTO form_versions (`+versionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.FormID, v.Version, v.Fields, v.Checksum, v.PublishedBy, v.PublishedAt)
	return err
}

// GetVersion returns one published version of a form.
func (s *Store) GetVersion(ctx context.Context, formID string, version int) (*Version, error) {
	var v Version
	err := storage.Get(ctx, s.q, "get_form_version", &v,
		`SELECT `+versionColumns+` FROM form_versions WHERE form_id = ? AND version = ?`, formID, version)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVersions returns the published versions of a form, newest first.
func (s *Store) ListVersions(ctx context.Context, formID string) ([]Version, error) {
	out := []Version{}
	err := storage.Select(ctx, s.q, "list_form_versions", &out,
		`SELECT `+versionColumns+` FROM form_versions WHERE form_id = ? ORDER BY version DESC`, formID)
	return out, err
}

// InsertSubmission stores a submission.
func (s *Store) InsertSubmission(ctx context.Context, sub *Submission) error {
	_, err := storage.Exec(ctx, s.q, "insert_form_submission",
		`INSERT INTO form_submissions (`+submissionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.FormID, sub.FormVersion, sub.AssetID, sub.Answers, sub.SubmittedBy, sub.SubmittedAt)
	return err
}

// GetSubmission returns the submission with id.
func (s *Store) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	var sub Submission
	err := storage.Get(ctx, s.q, "get_form_submission", &sub,
		`SELECT `+submissionColumns+` FROM form_submissions WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubmissions returns submissions matching f, newest first.
func (s *Store) ListSubmissions(ctx context.Context, f SubmissionFilter) ([]Submission, error) {
	var w storage.Where
	w.Add("form_id = ?", f.FormID)
	if f.Version > 0 {
		w.Add("form_version = ?", f.Version)
	}
	if f.AssetID != "" {
		w.Add("asset_id = ?", f.AssetID)
	}
	out := []Submission{}
	err := storage.Select(ctx, s.q, "list_form_submissions", &out,
		`SELECT `+submissionColumns+` FROM form_submissions`+w.SQL()+` ORDER BY submitted_at DESC, id`+f.Page.SQL(),
		w.Args()...)
	return out, err
}
