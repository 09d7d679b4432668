package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// ImageService materializes slide image references to local files so the
// renderer can pick them up from disk.
type ImageService struct {
	client *http.Client
}

func NewImageService() *ImageService {
	return &ImageService{
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Materialize ensures the slide image is available as a local file.
//
// Remote URLs are fetched once (no retry, no backoff) and written to destPath;
// local paths are returned unchanged without copying. Fetch failures are
// deliberately swallowed and the original reference returned as-is — the
// renderer fails loudly if the path turns out to be unreadable.
func (s *ImageService) Materialize(ctx context.Context, ref, destPath string) string {
	if !isRemote(ref) {
		return ref
	}

	if err := s.fetch(ctx, ref, destPath); err != nil {
		log.Printf("[Images] Fetch failed for %s, passing reference through: %v", ref, err)
		return ref
	}

	return destPath
}

func (s *ImageService) fetch(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image download failed: %d", resp.StatusCode)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}

	return nil
}

func isRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
