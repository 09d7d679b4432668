package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/slidecast/slidecast/internal/models"
	"github.com/slidecast/slidecast/internal/queue"
)

// Store is the subset of the database the pipeline needs.
type Store interface {
	GetExport(ctx context.Context, id uuid.UUID) (*models.Export, error)
	MergeExportData(ctx context.Context, id uuid.UUID, partial models.JSONB) error
}

// JobSource supplies export jobs, normally the Redis queue.
type JobSource interface {
	Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*queue.Job, error)
}

// SlideRenderer produces one clip per slide via the external renderer.
type SlideRenderer interface {
	RenderSlide(ctx context.Context, templateURL, imagePath, text string) (string, error)
}

// Concatenator joins rendered clips, in order, into one video.
type Concatenator interface {
	ConcatenateClips(ctx context.Context, clipPaths []string, manifestPath, outputPath string) error
}

// Materializer resolves a slide image reference to a local file path.
type Materializer interface {
	Materialize(ctx context.Context, ref, destPath string) string
}

// Publisher uploads the finished video and returns its public URL. Any error
// (including unconfigured storage) makes the pipeline fall back to a file://
// reference; the export still completes.
type Publisher interface {
	PublishVideo(ctx context.Context, localPath string) (string, error)
}

type Worker struct {
	store       Store
	queue       JobSource
	renderer    SlideRenderer
	ffmpeg      Concatenator
	images      Materializer
	publisher   Publisher
	templateURL string // default motion template when the job doesn't carry one
	exportsDir  string // persistent output dir, so degraded file:// references stay valid
}

func New(
	store Store,
	q JobSource,
	renderer SlideRenderer,
	ffmpeg Concatenator,
	images Materializer,
	publisher Publisher,
	templateURL string,
	exportsDir string,
) *Worker {
	return &Worker{
		store:       store,
		queue:       q,
		renderer:    renderer,
		ffmpeg:      ffmpeg,
		images:      images,
		publisher:   publisher,
		templateURL: templateURL,
		exportsDir:  exportsDir,
	}
}

// Start runs the queue consumers until ctx is cancelled. Concurrency bounds
// how many exports render at once across the process — each export itself is
// strictly sequential, slide by slide.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			w.consume(gctx)
			return nil
		})
	}

	g.Wait()
	log.Println("Worker shutting down...")
}

func (w *Worker) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, queue.QueueExportSlideshow, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("Error dequeuing export job: %v", err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			w.processJob(ctx, job)
		}
	}
}

// processJob is the top-level catch around one export: a detached pipeline has
// no caller to throw to, so any fatal error becomes a best-effort failed-status
// update and the consumer moves on to the next job.
func (w *Worker) processJob(ctx context.Context, job *queue.Job) {
	log.Printf("Processing export %s (job %s)", job.ExportID, job.ID)

	if err := w.handleExport(ctx, job); err != nil {
		log.Printf("Export %s failed: %v", job.ExportID, err)
		newTracker(w.store, job.ExportID).Fail(ctx, err.Error())
		return
	}

	log.Printf("Export %s completed", job.ExportID)
}

// handleExport runs the orchestration pipeline for one export:
// materialize each slide image, render one clip per slide (sequentially,
// aborting on the first failure), concatenate the clips, publish the result,
// and record the terminal status.
func (w *Worker) handleExport(ctx context.Context, job *queue.Job) error {
	export, err := w.store.GetExport(ctx, job.ExportID)
	if err != nil {
		return fmt.Errorf("failed to load export: %w", err)
	}

	data, err := models.ExportDataFromJSONB(export.Data)
	if err != nil {
		return fmt.Errorf("failed to parse export payload: %w", err)
	}

	total := len(data.Images)
	if total == 0 {
		return fmt.Errorf("export has no slides")
	}

	tracker := newTracker(w.store, job.ExportID)

	// Per-job scratch space for slide images and the concat manifest.
	// Removed on every exit path; the final video lives in exportsDir instead
	// so a degraded file:// reference stays readable after cleanup.
	tmpDir, err := os.MkdirTemp("", "slidecast-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	templateURL := job.TemplateURL
	if templateURL == "" {
		templateURL = w.templateURL
	}

	clipPaths := make([]string, 0, total)
	for i, img := range data.Images {
		text := ""
		if i < len(data.Texts) {
			text = data.Texts[i]
		}
		if text == "" {
			text = data.Prompt
		}

		imgPath := w.images.Materialize(ctx, img, filepath.Join(tmpDir, fmt.Sprintf("slide-%d.jpg", i)))

		clipPath, err := w.renderer.RenderSlide(ctx, templateURL, imgPath, text)
		if err != nil {
			return fmt.Errorf("slide %d render failed: %w", i, err)
		}
		clipPaths = append(clipPaths, clipPath)

		tracker.Progress(ctx, i+1, total)
	}

	if err := os.MkdirAll(w.exportsDir, 0755); err != nil {
		return fmt.Errorf("failed to create exports dir: %w", err)
	}

	outputPath := filepath.Join(w.exportsDir, fmt.Sprintf("slideshow-%d.mp4", time.Now().UnixMilli()))
	manifestPath := filepath.Join(tmpDir, "inputs.txt")

	if err := w.ffmpeg.ConcatenateClips(ctx, clipPaths, manifestPath, outputPath); err != nil {
		return fmt.Errorf("failed to concatenate clips: %w", err)
	}

	video, err := w.publisher.PublishVideo(ctx, outputPath)
	if err != nil {
		// Non-fatal: the export still completes with a local reference
		log.Printf("Publish failed for export %s, keeping local reference: %v", job.ExportID, err)
		abs, absErr := filepath.Abs(outputPath)
		if absErr != nil {
			abs = outputPath
		}
		video = "file://" + abs
	}

	tracker.Complete(ctx, video)
	return nil
}
