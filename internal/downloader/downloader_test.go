package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestFetchLocalPassthrough(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	d := New(zerolog.Nop(), t.TempDir())
	got, err := d.Fetch(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if got != src {
		t.Errorf("local path must pass through unchanged, got %q", got)
	}
}

func TestFetchLocalMissing(t *testing.T) {
	d := New(zerolog.Nop(), t.TempDir())
	if _, err := d.Fetch(context.Background(), "/no/such/file.mp4"); err == nil {
		t.Error("missing local file must error")
	}
}

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("video bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := New(zerolog.Nop(), dir)
	got, err := d.Fetch(context.Background(), srv.URL+"/clip.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, dir) || !strings.HasSuffix(got, ".mp4") {
		t.Errorf("path = %q", got)
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "video bytes" {
		t.Errorf("content = %q", data)
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	d := New(zerolog.Nop(), t.TempDir())
	if _, err := d.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("403 must surface an error")
	}
}

func TestIsYouTube(t *testing.T) {
	yes := []string{
		"https://www.youtube.com/watch?v=abc",
		"https://youtu.be/abc",
		"https://YOUTUBE.com/shorts/abc",
	}
	for _, ref := range yes {
		if !isYouTube(ref) {
			t.Errorf("isYouTube(%q) = false", ref)
		}
	}
	no := []string{
		"https://example.com/youtube.mp4",
		"/videos/clip.mp4",
	}
	for _, ref := range no {
		if isYouTube(ref) {
			t.Errorf("isYouTube(%q) = true", ref)
		}
	}
}
