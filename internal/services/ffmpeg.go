package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

// ConcatError means both concatenation strategies failed. Fatal for the export.
type ConcatError struct {
	CopyExitCode     int
	CopyStderr       string
	ReencodeExitCode int
	ReencodeStderr   string
}

func (e *ConcatError) Error() string {
	return fmt.Sprintf("ffmpeg concat failed. stderr=%s\nreencode=%s", e.CopyStderr, e.ReencodeStderr)
}

// FFmpegService concatenates rendered clips into one output video.
type FFmpegService struct {
	runner Runner
}

func NewFFmpegService(runner Runner) *FFmpegService {
	return &FFmpegService{runner: runner}
}

// WriteConcatManifest writes the newline-delimited, single-quoted list of clip
// paths ffmpeg's concat demuxer consumes. Order in the manifest is the order
// clips appear in the output.
func WriteConcatManifest(clipPaths []string, manifestPath string) error {
	var b strings.Builder
	for _, p := range clipPaths {
		// Single quotes inside a path end the quote, emit an escaped quote, and reopen
		escaped := strings.ReplaceAll(p, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}

	if err := os.WriteFile(manifestPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write concat manifest: %w", err)
	}
	return nil
}

// ConcatenateClips joins the listed clips, in order, into outputPath.
//
// Fast path is a stream copy (no re-encode), which only works when all inputs
// share codecs. On any non-zero exit — without inspecting why — it retries once
// with a uniform re-encode (libx264/yuv420p/aac). If that also fails the export
// is fatal and both attempts' stderr are returned for diagnostics.
func (s *FFmpegService) ConcatenateClips(ctx context.Context, clipPaths []string, manifestPath, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	if err := WriteConcatManifest(clipPaths, manifestPath); err != nil {
		return err
	}

	// -safe 0 allows absolute paths in the manifest
	copyArgs := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		outputPath,
	}

	copyResult, err := s.runner.Run(ctx, "ffmpeg", copyArgs...)
	if err != nil {
		return fmt.Errorf("failed to launch ffmpeg: %w", err)
	}
	if copyResult.ExitCode == 0 {
		return nil
	}

	log.Printf("[FFmpeg] Stream-copy concat failed (code %d), retrying with re-encode", copyResult.ExitCode)

	reencodeArgs := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		outputPath,
	}

	reencodeResult, err := s.runner.Run(ctx, "ffmpeg", reencodeArgs...)
	if err != nil {
		return fmt.Errorf("failed to launch ffmpeg re-encode: %w", err)
	}
	if reencodeResult.ExitCode == 0 {
		return nil
	}

	return &ConcatError{
		CopyExitCode:     copyResult.ExitCode,
		CopyStderr:       copyResult.Stderr,
		ReencodeExitCode: reencodeResult.ExitCode,
		ReencodeStderr:   reencodeResult.Stderr,
	}
}
