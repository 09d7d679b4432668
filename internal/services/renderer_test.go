package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// fakeRunner replays canned results and records every invocation.
type fakeRunner struct {
	results []ToolResult
	errs    []error
	calls   [][]string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (ToolResult, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	i := len(f.calls) - 1
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var result ToolResult
	if i < len(f.results) {
		result = f.results[i]
	}
	return result, err
}

func TestExtractClipPath(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   string
		found  bool
	}{
		{"simple", "Download complete: /tmp/out.mp4\n", "/tmp/out.mp4", true},
		{"surrounded", "starting...\nDownload complete: clip.mp4\ndone\n", "clip.mp4", true},
		{"last wins", "Download complete: a.mp4\nDownload complete: b.mp4\n", "b.mp4", true},
		{"trailing spaces", "Download complete:   /out/x.mp4  \n", "/out/x.mp4", true},
		{"no marker", "rendering slide\n", "", false},
		{"empty output", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractClipPath(tt.stdout)
			if found != tt.found {
				t.Fatalf("found = %v, want %v", found, tt.found)
			}
			if got != tt.want {
				t.Errorf("path = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderSlideSuccess(t *testing.T) {
	clipPath := filepath.Join(t.TempDir(), "slide.mp4")
	if err := os.WriteFile(clipPath, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{
		results: []ToolResult{{ExitCode: 0, Stdout: "Download complete: " + clipPath + "\n"}},
	}

	svc, err := NewRendererService(runner, "npx tsx scraper.ts")
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.RenderSlide(context.Background(), "https://template.example", "/tmp/slide-0.jpg", "hello")
	if err != nil {
		t.Fatalf("RenderSlide failed: %v", err)
	}
	if got != clipPath {
		t.Errorf("clip path = %q, want %q", got, clipPath)
	}

	// The configured command line is split and flags appended
	call := runner.calls[0]
	want := []string{"npx", "tsx", "scraper.ts", "--url", "https://template.example", "--image", "/tmp/slide-0.jpg", "--prompt", "hello", "--keep-open=false"}
	if len(call) != len(want) {
		t.Fatalf("invocation = %v, want %v", call, want)
	}
	for i := range want {
		if call[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, call[i], want[i])
		}
	}
}

func TestRenderSlideNonZeroExit(t *testing.T) {
	runner := &fakeRunner{
		results: []ToolResult{{ExitCode: 2, Stderr: "browser crashed"}},
	}

	svc, _ := NewRendererService(runner, "render-tool")
	_, err := svc.RenderSlide(context.Background(), "u", "i", "p")

	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError, got %v", err)
	}
	if renderErr.ExitCode != 2 {
		t.Errorf("exit code = %d, want 2", renderErr.ExitCode)
	}
	if renderErr.Stderr != "browser crashed" {
		t.Errorf("stderr = %q", renderErr.Stderr)
	}
}

func TestRenderSlideMissingMarker(t *testing.T) {
	runner := &fakeRunner{
		results: []ToolResult{{ExitCode: 0, Stdout: "nothing interesting\n"}},
	}

	svc, _ := NewRendererService(runner, "render-tool")
	_, err := svc.RenderSlide(context.Background(), "u", "i", "p")

	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError, got %v", err)
	}
}

func TestRenderSlideClipMissingOnDisk(t *testing.T) {
	runner := &fakeRunner{
		results: []ToolResult{{ExitCode: 0, Stdout: "Download complete: /nonexistent/clip.mp4\n"}},
	}

	svc, _ := NewRendererService(runner, "render-tool")
	_, err := svc.RenderSlide(context.Background(), "u", "i", "p")

	var renderErr *RenderError
	if !errors.As(err, &renderErr) {
		t.Fatalf("expected RenderError, got %v", err)
	}
}

func TestRenderSlideLaunchFailure(t *testing.T) {
	runner := &fakeRunner{
		errs: []error{errors.New("executable not found")},
	}

	svc, _ := NewRendererService(runner, "render-tool")
	_, err := svc.RenderSlide(context.Background(), "u", "i", "p")
	if err == nil {
		t.Fatal("expected error")
	}

	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		t.Fatal("launch failures should not be RenderError")
	}
}

func TestNewRendererServiceEmptyCommand(t *testing.T) {
	if _, err := NewRendererService(&fakeRunner{}, "   "); err == nil {
		t.Fatal("expected error for empty command")
	}
}
