package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// downloadMarker matches the completion line the renderer prints on success.
var downloadMarker = regexp.MustCompile(`Download complete:\s*(.+)`)

// RenderError means a slide's external render step did not succeed: non-zero
// exit, missing completion marker, or the reported clip missing on disk.
// Fatal for the whole export — slides after the failing one are never rendered.
type RenderError struct {
	ExitCode int
	Stderr   string
	Reason   string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("renderer failed (code %d): %s. %s", e.ExitCode, e.Reason, e.Stderr)
}

// RendererService drives the external browser-automation renderer, one
// invocation per slide. Invocations are strictly sequential and never retried.
type RendererService struct {
	runner  Runner
	command []string // program + leading args, e.g. ["npx", "tsx", "lib/hera_scraper/scraper.ts"]
}

// NewRendererService parses the configured renderer command line.
// commandLine is split on whitespace; the first field is the program.
func NewRendererService(runner Runner, commandLine string) (*RendererService, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("renderer command is empty")
	}
	return &RendererService{runner: runner, command: fields}, nil
}

// RenderSlide renders one slide and returns the absolute path of the produced
// clip. Success requires all three: exit code 0, a completion marker on stdout,
// and the marker's path existing on disk.
func (s *RendererService) RenderSlide(ctx context.Context, templateURL, imagePath, text string) (string, error) {
	args := append([]string{}, s.command[1:]...)
	args = append(args,
		"--url", templateURL,
		"--image", imagePath,
		"--prompt", text,
		"--keep-open=false",
	)

	result, err := s.runner.Run(ctx, s.command[0], args...)
	if err != nil {
		return "", fmt.Errorf("failed to launch renderer: %w", err)
	}

	clipPath, found := ExtractClipPath(result.Stdout)

	if result.ExitCode != 0 {
		return "", &RenderError{ExitCode: result.ExitCode, Stderr: result.Stderr, Reason: "non-zero exit"}
	}
	if !found {
		return "", &RenderError{Stderr: result.Stderr, Reason: "no completion marker in output"}
	}

	abs := clipPath
	if !filepath.IsAbs(abs) {
		abs, err = filepath.Abs(abs)
		if err != nil {
			return "", fmt.Errorf("failed to resolve clip path %q: %w", clipPath, err)
		}
	}

	if _, err := os.Stat(abs); err != nil {
		return "", &RenderError{Stderr: result.Stderr, Reason: fmt.Sprintf("reported clip %s does not exist", abs)}
	}

	log.Printf("[Renderer] Slide rendered: %s", abs)
	return abs, nil
}

// ExtractClipPath scans renderer stdout for the completion marker and returns
// the reported output path. When the marker appears more than once the last
// occurrence wins. Pure function over captured output.
func ExtractClipPath(stdout string) (string, bool) {
	matches := downloadMarker.FindAllStringSubmatch(stdout, -1)
	if len(matches) == 0 {
		return "", false
	}
	path := strings.TrimSpace(matches[len(matches)-1][1])
	if path == "" {
		return "", false
	}
	return path, true
}
