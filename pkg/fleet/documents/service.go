package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/audit"
	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/identity"
	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

// Service manages document uploads.
type Service struct {
	store   *Store
	blobs   BlobStore
	auditor audit.Auditor
	cfg     config.DocumentsConfig
	logger  *slog.Logger
}

// NewService creates a document service.
func NewService(db *sqlx.DB, blobs BlobStore, auditor audit.Auditor, cfg config.DocumentsConfig) *Service {
	return &Service{
		store:   NewStore(db),
		blobs:   blobs,
		auditor: auditor,
		cfg:     cfg,
		logger:  slog.Default().With("component", "documents"),
	}
}

// MaxUploadBytes returns the configured upload limit.
func (s *Service) MaxUploadBytes() int64 {
	return s.cfg.MaxUploadBytes
}

// Upload stores the content of r and its metadata. The content type is
// sniffed when the client sends none or a generic one.
func (s *Service) Upload(ctx context.Context, in UploadInput, r io.Reader) (*Document, error) {
	verr := apperr.NewValidationError()
	if !in.EntityType.Valid() {
		verr.Add("entity_type", "must be one of asset, work_order, part, inspection")
	}
	if in.EntityID == "" {
		verr.Add("entity_id", "is required")
	}
	name := cleanFilename(in.Filename)
	if name == "" {
		verr.Add("filename", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	ok, err := s.store.EntityExists(ctx, in.EntityType, in.EntityID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound(string(in.EntityType), in.EntityID)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	head = head[:n]
	if n == 0 {
		return nil, apperr.Invalid("document is empty")
	}

	d := &Document{
		ID:          storage.NewID(),
		EntityType:  in.EntityType,
		EntityID:    in.EntityID,
		Filename:    name,
		ContentType: contentType(in.ContentType, name, head),
		UploadedBy:  identity.ActorOrSystem(ctx).ID,
		CreatedAt:   storage.Now(),
	}
	if in.ExpiresAt != nil {
		exp := in.ExpiresAt.UTC().Truncate(time.Microsecond)
		d.ExpiresAt = &exp
	}
	d.StorageKey = path.Join(string(d.EntityType), d.EntityID, d.ID)

	size, sum, err := s.blobs.Put(ctx, d.StorageKey, io.MultiReader(bytes.NewReader(head), r), s.cfg.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	d.SizeBytes, d.SHA256 = size, sum

	if err := s.store.Insert(ctx, d); err != nil {
		if derr := s.blobs.Delete(ctx, d.StorageKey); derr != nil {
			s.logger.WarnContext(ctx, "orphaned document blob", "key", d.StorageKey, "error", derr)
		}
		return nil, err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionUpload, "document", d.ID, map[string]any{
		"entity_type": d.EntityType,
		"entity_id":   d.EntityID,
		"filename":    d.Filename,
		"size_bytes":  d.SizeBytes,
	}))
	return d, nil
}

// Download returns a document with its content. The caller closes the
// reader.
func (s *Service) Download(ctx context.Context, id string) (*Document, io.ReadCloser, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, d.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return d, rc, nil
}

// Get returns document metadata.
func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	return s.store.Get(ctx, id)
}

// ListByEntity returns the documents attached to an entity.
func (s *Service) ListByEntity(ctx context.Context, entityType EntityType, entityID string) ([]Document, error) {
	if !entityType.Valid() {
		return nil, apperr.Invalid("unknown entity type %q", entityType)
	}
	return s.store.ListByEntity(ctx, entityType, entityID)
}

// ListExpiring returns documents expiring within days, including those
// already expired. days <= 0 uses the configured window.
func (s *Service) ListExpiring(ctx context.Context, days int) ([]Document, error) {
	if days <= 0 {
		days = s.cfg.ExpiringWindowDays
	}
	return s.store.ListExpiringBefore(ctx, storage.Now().AddDate(0, 0, days))
}

// Delete removes a document and its content.
func (s *Service) Delete(ctx context.Context, id string) error {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, d.StorageKey); err != nil {
		s.logger.WarnContext(ctx, "failed to delete document blob", "key", d.StorageKey, "error", err)
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionDelete, "document", id, map[string]any{
		"filename": d.Filename,
	}))
	return nil
}

// cleanFilename keeps the base name and drops control characters.
func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == "/" {
		return ""
	}
	if len(name) > 255 {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		cut := 255 - len(ext)
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut] + ext
	}
	return name
}

func contentType(declared, name string, head []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
		return byExt
	}
	return http.DetectContentType(head)
}
