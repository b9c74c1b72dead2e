package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("expected shipped migrations to validate, got %v", err)
	}
}

func TestEmbeddedMatchesDirectory(t *testing.T) {
	if err := ValidateFS(Embedded()); err != nil {
		t.Fatalf("expected embedded migrations to validate, got %v", err)
	}
	onDisk, err := os.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	embeddedEntries, err := fs.ReadDir(Source(""), ".")
	if err != nil {
		t.Fatalf("read embedded: %v", err)
	}
	if len(onDisk) != len(embeddedEntries) {
		t.Fatalf("expected %d embedded files, got %d", len(onDisk), len(embeddedEntries))
	}
}

func TestValidateDirRejectsDownBeforeUp(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Down\nDROP TABLE x;\n-- +goose Up\nCREATE TABLE x ();\n"
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_x.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected reversed sections to fail")
	}
}

func TestValidateDirRequiresMigrations(t *testing.T) {
	if err := ValidateDir(t.TempDir()); err == nil {
		t.Fatal("expected empty dir to fail")
	}
	if err := ValidateDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected missing dir to fail")
	}
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "create_users.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to fail")
	}
}

func TestValidateDirRejectsMissingDown(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_create_users.sql"), []byte("-- +goose Up\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected missing down marker to fail")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Buyer Notes!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_buyer_notes.sql") {
		t.Fatalf("unexpected path %q", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"Add Buyer Notes!":      "add_buyer_notes",
		"  index--orders__by  ": "index_orders_by",
		"!!!":                   "",
	}
	for in, want := range cases {
		if got := SanitizeName(in); got != want {
			t.Fatalf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateSQLMigrationRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	path, err := createSQLMigration(dir, "orders index", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260501120000_orders_index.sql" {
		t.Fatalf("unexpected filename %q", filepath.Base(path))
	}
	if _, err := createSQLMigration(dir, "orders index", now); err == nil {
		t.Fatal("expected second create to fail")
	}
}

func TestCreateSQLMigrationRequiresName(t *testing.T) {
	if _, err := CreateSQLMigration(t.TempDir(), "  "); err == nil {
		t.Fatal("expected empty name to fail")
	}
}
