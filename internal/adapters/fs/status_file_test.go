package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bft-labs/telship/internal/ports"
)

func TestStatusFileRepository_LoadMissing(t *testing.T) {
	repo := NewStatusFileRepository(t.TempDir())

	status, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if status != (ports.UploadStatus{}) {
		t.Errorf("Load() = %+v, want zero status", status)
	}
}

func TestStatusFileRepository_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	repo := NewStatusFileRepository(dir)

	want := ports.UploadStatus{
		Feature:        "logs",
		BatchesSent:    3,
		BatchesDropped: 1,
		BytesSent:      1024,
		LastUploadAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		LastError:      "upload rejected (status 400)",
		LastErrorAt:    time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
		CurrentDelayMs: 4500,
	}
	if err := repo.Save(context.Background(), want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	if _, err := os.Stat(repo.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
	info, err := os.Stat(repo.Path())
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestStatusFileRepository_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, StatusFileName), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStatusFileRepository(dir).Load(context.Background()); err == nil {
		t.Error("Load() of corrupt file succeeded")
	}
}
