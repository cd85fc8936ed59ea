package objectstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestUploadMovesFile(t *testing.T) {
	workDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "outputs")

	src := filepath.Join(workDir, "render_abc.mp4")
	if err := os.WriteFile(src, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}

	store := NewLocalStore(zerolog.Nop(), outDir, "http://localhost:8080")
	key, err := store.Upload(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if key != "render_abc.mp4" {
		t.Errorf("key = %q", key)
	}

	data, err := os.ReadFile(filepath.Join(outDir, key))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "video" {
		t.Errorf("stored content = %q", data)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source must be moved, not copied")
	}
}

func TestUploadIdempotentDestination(t *testing.T) {
	outDir := t.TempDir()
	path := filepath.Join(outDir, "already.mp4")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	store := NewLocalStore(zerolog.Nop(), outDir, "http://host")
	key, err := store.Upload(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if key != "already.mp4" {
		t.Errorf("key = %q", key)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("file in place must survive upload")
	}
}

func TestPublicURL(t *testing.T) {
	store := NewLocalStore(zerolog.Nop(), "outputs", "http://host:8080/")
	if got := store.PublicURL("a.mp4"); got != "http://host:8080/outputs/a.mp4" {
		t.Errorf("url = %q", got)
	}
	if !store.Local() {
		t.Error("LocalStore must report local")
	}
}
