package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	// Upload timeout per request — generous for multi-minute slideshow videos
	uploadTimeout = 180 * time.Second

	// Namespace prefix for published slideshow videos
	exportPrefix = "hera-exports"
)

// ErrNotConfigured means no bucket/credentials were provided. The pipeline
// treats this the same as an upload failure and degrades to a local reference.
var ErrNotConfigured = errors.New("storage not configured")

type Storage struct {
	url        string
	serviceKey string
	Bucket     string
	client     *http.Client
}

func New(url, serviceKey, bucket string) *Storage {
	return &Storage{
		url:        url,
		serviceKey: serviceKey,
		Bucket:     bucket,
		client: &http.Client{
			Timeout: uploadTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Configured reports whether the client has enough settings to upload.
func (s *Storage) Configured() bool {
	return s.url != "" && s.serviceKey != "" && s.Bucket != ""
}

// Upload stores data at path in the bucket. One attempt only — publish
// failures are non-fatal to the export, so there is no retry loop here.
// Uses PUT with x-upsert so re-running an export overwrites its object.
func (s *Storage) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.url, s.Bucket, path)

	req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Length", fmt.Sprintf("%d", len(data)))
	req.Header.Set("x-upsert", "true")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, truncate(string(body), 200))
}

// PublishVideo uploads a finished local video under a time-stamped export key
// and returns its public URL. Callers degrade to a file:// reference on error.
func (s *Storage) PublishVideo(ctx context.Context, localPath string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to read video %s: %w", localPath, err)
	}

	objectKey := fmt.Sprintf("%s/%d-%s", exportPrefix, time.Now().UnixMilli(), filepath.Base(localPath))
	if err := s.Upload(ctx, objectKey, data, "video/mp4"); err != nil {
		return "", err
	}

	return s.GetPublicURL(objectKey), nil
}

// GetPublicURL returns the public URL for a file
func (s *Storage) GetPublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.url, s.Bucket, path)
}

// truncate limits a string to maxLen characters for log output
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
