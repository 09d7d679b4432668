package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUploadNotConfigured(t *testing.T) {
	s := New("", "", "")
	err := s.Upload(context.Background(), "some/path", []byte("x"), "video/mp4")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestUpload(t *testing.T) {
	var gotPath, gotAuth, gotContentType, gotUpsert string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotUpsert = r.Header.Get("x-upsert")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := New(server.URL, "secret-key", "slideshow-exports")
	err := s.Upload(context.Background(), "hera-exports/123-final.mp4", []byte("video-bytes"), "video/mp4")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if gotPath != "/storage/v1/object/slideshow-exports/hera-exports/123-final.mp4" {
		t.Errorf("unexpected object path: %s", gotPath)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("unexpected auth header: %s", gotAuth)
	}
	if gotContentType != "video/mp4" {
		t.Errorf("unexpected content type: %s", gotContentType)
	}
	if gotUpsert != "true" {
		t.Errorf("expected x-upsert: true, got %q", gotUpsert)
	}
	if string(gotBody) != "video-bytes" {
		t.Errorf("unexpected body: %q", gotBody)
	}
}

func TestUploadServerErrorNoRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := New(server.URL, "key", "bucket")
	err := s.Upload(context.Background(), "p", []byte("x"), "video/mp4")
	if err == nil {
		t.Fatal("expected error")
	}

	// Publish failures are non-fatal to the export, so exactly one attempt is made
	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
}

func TestPublishVideo(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	local := filepath.Join(t.TempDir(), "final.mp4")
	if err := os.WriteFile(local, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(server.URL, "key", "bucket")
	url, err := s.PublishVideo(context.Background(), local)
	if err != nil {
		t.Fatalf("PublishVideo failed: %v", err)
	}

	if !strings.Contains(gotPath, "/hera-exports/") || !strings.HasSuffix(gotPath, "-final.mp4") {
		t.Errorf("object key not namespaced/time-stamped: %s", gotPath)
	}
	if !strings.HasPrefix(url, server.URL+"/storage/v1/object/public/bucket/hera-exports/") {
		t.Errorf("unexpected public URL: %s", url)
	}
}

func TestPublishVideoMissingFile(t *testing.T) {
	s := New("http://example.com", "key", "bucket")
	if _, err := s.PublishVideo(context.Background(), "/nonexistent/final.mp4"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestGetPublicURL(t *testing.T) {
	s := New("https://proj.supabase.co", "key", "bucket")
	url := s.GetPublicURL("hera-exports/1-final.mp4")
	want := "https://proj.supabase.co/storage/v1/object/public/bucket/hera-exports/1-final.mp4"
	if url != want {
		t.Errorf("public URL = %q, want %q", url, want)
	}
}
