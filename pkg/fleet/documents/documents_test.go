package documents

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"fleetworks/depot/internal/audittest"
	"fleetworks/depot/internal/testutil"
	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/config"
	"fleetworks/depot/pkg/fleet/assets"
)

type fixture struct {
	svc   *Service
	blobs *LocalStore
	asset *assets.Asset
}

func newFixture(t *testing.T, maxBytes int64) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	rec := &audittest.Recorder{}
	a, err := assets.NewService(db, rec).Create(context.Background(), assets.CreateInput{AssetTag: "TRK-1", Name: "Truck", Type: assets.TypeVehicle})
	if err != nil {
		t.Fatal(err)
	}
	blobs, err := NewLocalStore(filepath.Join(t.TempDir(), "docs"))
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(db, blobs, rec, config.DocumentsConfig{Root: blobs.Root(), MaxUploadBytes: maxBytes, ExpiringWindowDays: 30})
	return &fixture{svc: svc, blobs: blobs, asset: a}
}

func TestCleanFilename(t *testing.T) {
	tests := map[string]string{
		"registration.pdf":             "registration.pdf",
		"../../etc/passwd":             "passwd",
		`C:\Users\fleet\insurance.png`: "insurance.png",
		"bad\x00name\n.txt":            "badname.txt",
		"":                             "",
		"  ":                           "",
	}
	for in, want := range tests {
		if got := cleanFilename(in); got != want {
			t.Errorf("cleanFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanFilename_TruncatesOnRuneBoundary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"two-byte runes", strings.Repeat("é", 200) + ".pdf", strings.Repeat("é", 125) + ".pdf"},
		{"four-byte runes", strings.Repeat("🚚", 100) + ".jpg", strings.Repeat("🚚", 62) + ".jpg"},
		{"ascii", strings.Repeat("a", 300) + ".txt", strings.Repeat("a", 251) + ".txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cleanFilename(tt.in)
			if !utf8.ValidString(got) {
				t.Fatalf("cleanFilename() = %q, not valid UTF-8", got)
			}
			if len(got) > 255 {
				t.Errorf("len = %d, want at most 255", len(got))
			}
			if got != tt.want {
				t.Errorf("cleanFilename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	tests := []struct {
		declared, name string
		head           []byte
		want           string
	}{
		{"application/pdf", "x.pdf", []byte("%PDF-1.7"), "application/pdf"},
		{"", "photo.png", png, "image/png"},
		{"application/octet-stream", "scan", png, "image/png"},
		{"", "notes", []byte("plain words"), "text/plain; charset=utf-8"},
	}
	for _, tt := range tests {
		if got := contentType(tt.declared, tt.name, tt.head); got != tt.want {
			t.Errorf("contentType(%q, %q) = %q, want %q", tt.declared, tt.name, got, tt.want)
		}
	}
}

func TestService_UploadDownloadDelete(t *testing.T) {
	f := newFixture(t, 1<<20)
	ctx := context.Background()
	content := []byte("%PDF-1.4 registration document body")

	d, err := f.svc.Upload(ctx, UploadInput{
		EntityType: EntityAsset, EntityID: f.asset.ID, Filename: "../registration.pdf", ContentType: "application/pdf",
	}, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Upload() failed: %v", err)
	}

	sum := sha256.Sum256(content)
	if d.SizeBytes != int64(len(content)) || d.SHA256 != hex.EncodeToString(sum[:]) {
		t.Errorf("size/hash = %d/%s", d.SizeBytes, d.SHA256)
	}
	if d.Filename != "registration.pdf" {
		t.Errorf("filename = %q", d.Filename)
	}

	meta, rc, err := f.svc.Download(ctx, d.ID)
	if err != nil {
		t.Fatalf("Download() failed: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(got, content) || meta.ContentType != "application/pdf" {
		t.Errorf("downloaded %q (%s)", got, meta.ContentType)
	}

	list, err := f.svc.ListByEntity(ctx, EntityAsset, f.asset.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByEntity() = %v, %v", list, err)
	}

	if err := f.svc.Delete(ctx, d.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.blobs.Root(), filepath.FromSlash(d.StorageKey))); !os.IsNotExist(err) {
		t.Errorf("blob still present after delete: %v", err)
	}
	if _, _, err := f.svc.Download(ctx, d.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Download() after delete error = %v, want ErrNotFound", err)
	}
}

func TestService_UploadRejects(t *testing.T) {
	f := newFixture(t, 16)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      UploadInput
		body    string
		wantErr error
	}{
		{"too large", UploadInput{EntityType: EntityAsset, EntityID: f.asset.ID, Filename: "big.txt"}, strings.Repeat("x", 17), ErrTooLarge},
		{"empty", UploadInput{EntityType: EntityAsset, EntityID: f.asset.ID, Filename: "empty.txt"}, "", apperr.ErrInvalid},
		{"unknown entity type", UploadInput{EntityType: "driver", EntityID: "x", Filename: "a.txt"}, "hi", apperr.ErrInvalid},
		{"missing entity", UploadInput{EntityType: EntityPart, EntityID: "missing", Filename: "a.txt"}, "hi", apperr.ErrNotFound},
		{"no filename", UploadInput{EntityType: EntityAsset, EntityID: f.asset.ID}, "hi", apperr.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Upload(ctx, tt.in, strings.NewReader(tt.body))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Upload() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Exactly at the limit is accepted; nothing is left over from the rejects.
	if _, err := f.svc.Upload(ctx, UploadInput{EntityType: EntityAsset, EntityID: f.asset.ID, Filename: "ok.txt"}, strings.NewReader(strings.Repeat("y", 16))); err != nil {
		t.Fatalf("Upload() at limit failed: %v", err)
	}
	var files int
	_ = filepath.WalkDir(f.blobs.Root(), func(_ string, d os.DirEntry, _ error) error {
		if d != nil && !d.IsDir() {
			files++
		}
		return nil
	})
	if files != 1 {
		t.Errorf("found %d blobs, want 1", files)
	}
}

func TestService_ListExpiring(t *testing.T) {
	f := newFixture(t, 1<<10)
	ctx := context.Background()
	now := time.Now().UTC()

	upload := func(name string, expires *time.Time) {
		t.Helper()
		_, err := f.svc.Upload(ctx, UploadInput{EntityType: EntityAsset, EntityID: f.asset.ID, Filename: name, ExpiresAt: expires}, strings.NewReader("content"))
		if err != nil {
			t.Fatal(err)
		}
	}
	at := func(days int) *time.Time {
		v := now.AddDate(0, 0, days)
		return &v
	}

	upload("expired.pdf", at(-3))
	upload("soon.pdf", at(10))
	upload("later.pdf", at(60))
	upload("forever.pdf", nil)

	tests := []struct {
		days int
		want []string
	}{
		{0, []string{"expired.pdf", "soon.pdf"}},
		{5, []string{"expired.pdf"}},
		{90, []string{"expired.pdf", "soon.pdf", "later.pdf"}},
	}
	for _, tt := range tests {
		docs, err := f.svc.ListExpiring(ctx, tt.days)
		if err != nil {
			t.Fatal(err)
		}
		var names []string
		for _, d := range docs {
			names = append(names, d.Filename)
		}
		if strings.Join(names, ",") != strings.Join(tt.want, ",") {
			t.Errorf("ListExpiring(%d) = %v, want %v", tt.days, names, tt.want)
		}
	}
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"", "../outside", "/abs/path"} {
		if _, _, err := s.Put(context.Background(), key, strings.NewReader("x"), 10); err == nil {
			t.Errorf("Put(%q) should fail", key)
		}
	}
}
