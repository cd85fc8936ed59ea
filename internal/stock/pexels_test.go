package stock

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSearchPicksPortraitFiles(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{
			"videos": [
				{
					"id": 1,
					"duration": 12,
					"video_files": [
						{"link": "http://cdn/landscape.mp4", "width": 1920, "height": 1080},
						{"link": "http://cdn/portrait.mp4", "width": 1080, "height": 1920}
					]
				},
				{
					"id": 2,
					"duration": 8,
					"video_files": [
						{"link": "http://cdn/wide.mp4", "width": 1920, "height": 1080}
					]
				}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(zerolog.Nop(), "test-key").WithBaseURL(srv.URL)
	videos, err := client.Search(context.Background(), "city night", 3)
	if err != nil {
		t.Fatal(err)
	}

	if gotAuth != "test-key" {
		t.Errorf("auth = %q", gotAuth)
	}
	if !strings.Contains(gotQuery, "orientation=portrait") || !strings.Contains(gotQuery, "query=city+night") {
		t.Errorf("query = %q", gotQuery)
	}

	// The landscape-only hit is dropped; the mixed hit keeps its vertical file.
	if len(videos) != 1 {
		t.Fatalf("videos = %+v", videos)
	}
	if videos[0].ID != 1 || videos[0].URL != "http://cdn/portrait.mp4" {
		t.Errorf("video = %+v", videos[0])
	}
}

func TestSearchNoKey(t *testing.T) {
	client := NewClient(zerolog.Nop(), "")
	if _, err := client.Search(context.Background(), "x", 1); err == nil {
		t.Error("expected error without api key")
	}
}

func TestSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(zerolog.Nop(), "key").WithBaseURL(srv.URL)
	if _, err := client.Search(context.Background(), "x", 1); err == nil {
		t.Error("expected error on 429")
	}
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("clip bytes"))
	}))
	defer srv.Close()

	client := NewClient(zerolog.Nop(), "key")
	dir := t.TempDir()
	path, err := client.Download(context.Background(), Video{ID: 1, URL: srv.URL}, dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(path, dir) || !strings.Contains(path, "broll_") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "clip bytes" {
		t.Errorf("content = %q", data)
	}
}

func TestDownloadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(zerolog.Nop(), "key")
	if _, err := client.Download(context.Background(), Video{URL: srv.URL}, t.TempDir()); err == nil {
		t.Error("expected error on 404")
	}
}
