package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"viralforge/internal/captions"
	"viralforge/internal/compositor"
	"viralforge/internal/jobs"
	"viralforge/internal/media"
	"viralforge/internal/models"
	"viralforge/internal/objectstore"
	"viralforge/internal/publish"
	"viralforge/internal/storage"
)

// Fetcher resolves a job's input reference to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (string, error)
}

// Transcriber extracts timed speech. It never fails; an unusable audio
// track yields a placeholder transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, videoPath string) []models.TranscriptSegment
}

// Strategist produces the editing plan. It never fails; an unavailable
// backend yields the neutral default strategy.
type Strategist interface {
	GenerateVisualStrategy(ctx context.Context, transcript []models.TranscriptSegment, niche, style string) models.Strategy
}

// MediaLoader opens the downloaded source with bounded waits.
type MediaLoader interface {
	Load(ctx context.Context, path string) (*media.Handle, error)
}

// ZoneChooser decides where burned-in captions go.
type ZoneChooser interface {
	ChooseZone(ctx context.Context, videoPath string) captions.Zone
}

// Renderer executes a resolved effect plan against an open source.
type Renderer interface {
	Render(ctx context.Context, h *media.Handle, plan compositor.EffectPlan, outPath string, rng *rand.Rand) error
}

// Publisher pushes a finished file to its destination platform.
type Publisher interface {
	Publish(ctx context.Context, videoFile string, meta publish.Metadata) (string, error)
}

// Orchestrator drives one claimed job through the pipeline stages in
// order. Stages within a job are strictly sequential; concurrency lives in
// the worker pool, never here.
type Orchestrator struct {
	log         zerolog.Logger
	repo        *storage.JobRepository
	hub         *jobs.Hub
	fetcher     Fetcher
	transcriber Transcriber
	strategist  Strategist
	loader      MediaLoader
	analyzer    ZoneChooser
	renderer    Renderer
	store       objectstore.Store
	publisher   Publisher // nil disables platform upload
	workDir     string
}

func New(
	log zerolog.Logger,
	repo *storage.JobRepository,
	hub *jobs.Hub,
	fetcher Fetcher,
	transcriber Transcriber,
	strategist Strategist,
	loader MediaLoader,
	analyzer ZoneChooser,
	renderer Renderer,
	store objectstore.Store,
	publisher Publisher,
	workDir string,
) *Orchestrator {
	return &Orchestrator{
		log:         log,
		repo:        repo,
		hub:         hub,
		fetcher:     fetcher,
		transcriber: transcriber,
		strategist:  strategist,
		loader:      loader,
		analyzer:    analyzer,
		renderer:    renderer,
		store:       store,
		publisher:   publisher,
		workDir:     workDir,
	}
}

// TierFilters maps a job's quality tier to the filters enabled before the
// strategy's recommendations are merged in. "max" turns everything on,
// "fast" leaves selection entirely to the strategy.
func TierFilters(tier string) []models.FilterKind {
	switch strings.ToLower(tier) {
	case "max":
		return []models.FilterKind{
			models.FilterSpeedRamp,
			models.FilterCinematicOverlay,
			models.FilterJitter,
			models.FilterGlow,
			models.FilterGrain,
			models.FilterGrayscale,
			models.FilterGlitch,
		}
	case "fast":
		return nil
	default:
		return []models.FilterKind{
			models.FilterSpeedRamp,
			models.FilterCinematicOverlay,
			models.FilterJitter,
			models.FilterGrain,
		}
	}
}

// Run executes the full pipeline for a job already claimed into the
// Downloading state. It always leaves the job in a terminal state and
// always returns; errors are absorbed into the Failed record.
func (o *Orchestrator) Run(ctx context.Context, job *models.VideoJob) {
	log := o.log.With().Str("job_id", job.ID).Logger()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var scratch []string
	defer o.cleanup(log, &scratch)

	o.announce(job, models.StatusDownloading, "", "")

	localPath, err := o.fetcher.Fetch(ctx, job.InputReference)
	if err != nil {
		o.fail(ctx, log, job, fmt.Errorf("download: %w", err))
		return
	}
	if localPath != job.InputReference {
		// A local input reference is the caller's file, not ours to sweep.
		scratch = append(scratch, localPath)
	}

	if o.checkAbort(ctx, log, job) {
		return
	}
	if !o.advance(ctx, log, job, models.StatusStrategizing) {
		return
	}

	transcript := o.transcriber.Transcribe(ctx, localPath)
	strat := o.strategist.GenerateVisualStrategy(ctx, transcript, job.Niche, job.Style)
	log.Info().
		Str("vibe", strat.Vibe).
		Int("recommended_filters", len(strat.RecommendedFilters)).
		Int("hook_points", len(strat.HookPoints)).
		Msg("strategy ready")

	if o.checkAbort(ctx, log, job) {
		return
	}
	if !o.advance(ctx, log, job, models.StatusRendering) {
		return
	}

	handle, err := o.loader.Load(ctx, localPath)
	if err != nil {
		o.fail(ctx, log, job, fmt.Errorf("open source: %w", err))
		return
	}
	degraded := handle.Mode == media.ModeDegraded

	zone := captions.ZoneBottom
	if !degraded {
		zone = o.analyzer.ChooseZone(ctx, localPath)
	}

	plan := compositor.Resolve(TierFilters(job.QualityTier), strat, transcript, zone, degraded, rng)
	outPath := filepath.Join(o.workDir, fmt.Sprintf("render_%s.mp4", job.ID))
	scratch = append(scratch, outPath)

	if err := o.renderer.Render(ctx, handle, plan, outPath, rng); err != nil {
		o.fail(ctx, log, job, fmt.Errorf("render: %w", err))
		return
	}

	if o.checkAbort(ctx, log, job) {
		return
	}
	if !o.advance(ctx, log, job, models.StatusOptimizing) {
		return
	}

	meta := buildMetadata(job, strat, transcript)

	if o.checkAbort(ctx, log, job) {
		return
	}
	if !o.advance(ctx, log, job, models.StatusUploading) {
		return
	}

	key, err := o.store.Upload(ctx, outPath)
	if err != nil {
		if o.store.Local() {
			// Leave the render on disk so an operator can recover it.
			scratch = scratch[:len(scratch)-1]
		}
		o.fail(ctx, log, job, fmt.Errorf("store output: %w", err))
		return
	}
	if o.store.Local() {
		// The render now lives in the output store; don't sweep it.
		scratch = scratch[:len(scratch)-1]
	}
	output := o.store.PublicURL(key)

	if o.publisher != nil {
		watchURL, err := o.publisher.Publish(ctx, o.localArtifact(key, outPath), meta)
		if err != nil {
			o.fail(ctx, log, job, fmt.Errorf("publish: %w", err))
			return
		}
		output = watchURL
	}

	if err := o.repo.Complete(ctx, job.ID, output); err != nil {
		log.Error().Err(err).Msg("persist completion")
		return
	}
	job.Status = models.StatusCompleted
	job.Progress = models.StatusCompleted.Checkpoint()
	o.announce(job, models.StatusCompleted, output, "")
	log.Info().Str("output", output).Msg("job completed")
}

// localArtifact returns the on-disk path of the stored render when the
// store is local, falling back to the pre-upload path otherwise.
func (o *Orchestrator) localArtifact(key, outPath string) string {
	if local, ok := o.store.(*objectstore.LocalStore); ok {
		return filepath.Join(local.Dir(), key)
	}
	return outPath
}

// advance moves the job to the next stage, persisting the checkpoint and
// notifying observers. A persistence failure marks the job Failed.
func (o *Orchestrator) advance(ctx context.Context, log zerolog.Logger, job *models.VideoJob, next models.JobStatus) bool {
	if !models.ValidTransition(job.Status, next) {
		o.fail(ctx, log, job, fmt.Errorf("invalid transition %s -> %s", job.Status, next))
		return false
	}
	if err := o.repo.UpdateState(ctx, job.ID, next, next.Checkpoint()); err != nil {
		o.fail(ctx, log, job, fmt.Errorf("persist %s: %w", next, err))
		return false
	}
	job.Status = next
	if next.Checkpoint() > job.Progress {
		job.Progress = next.Checkpoint()
	}
	o.announce(job, next, "", "")
	log.Info().Str("stage", string(next)).Int("progress", job.Progress).Msg("stage started")
	return true
}

// checkAbort honors an abort request at a stage boundary. In-flight stage
// work is never interrupted; the request takes effect here.
func (o *Orchestrator) checkAbort(ctx context.Context, log zerolog.Logger, job *models.VideoJob) bool {
	requested, err := o.repo.AbortRequested(ctx, job.ID)
	if err != nil {
		log.Warn().Err(err).Msg("abort check failed, continuing")
		return false
	}
	if !requested {
		return false
	}
	if err := o.repo.Abort(ctx, job.ID); err != nil {
		log.Error().Err(err).Msg("persist abort")
	}
	job.Status = models.StatusAborted
	job.OutputPath = ""
	o.announce(job, models.StatusAborted, "", "")
	log.Info().Msg("job aborted at stage boundary")
	return true
}

func (o *Orchestrator) fail(ctx context.Context, log zerolog.Logger, job *models.VideoJob, cause error) {
	log.Error().Err(cause).Str("stage", string(job.Status)).Msg("job failed")
	if err := o.repo.Fail(ctx, job.ID, cause.Error()); err != nil {
		log.Error().Err(err).Msg("persist failure")
	}
	job.Status = models.StatusFailed
	job.Error = cause.Error()
	o.announce(job, models.StatusFailed, "", cause.Error())
}

// announce publishes the job's current progress, not the status's own
// checkpoint: Failed and Aborted carry the last checkpoint reached, so the
// event stream stays non-decreasing for every observer.
func (o *Orchestrator) announce(job *models.VideoJob, status models.JobStatus, output, errMsg string) {
	o.hub.Publish(jobs.Event{
		JobID:      job.ID,
		Status:     status,
		Progress:   job.Progress,
		OutputPath: output,
		Error:      errMsg,
	})
}

// cleanup removes scratch files best-effort. Failures are logged and
// swallowed; a stale temp file never changes a job's outcome.
func (o *Orchestrator) cleanup(log zerolog.Logger, scratch *[]string) {
	for _, path := range *scratch {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("scratch cleanup failed")
		}
		// Burned-in subtitles leave a sidecar next to the render.
		if sidecar := path + ".ass"; fileExists(sidecar) {
			os.Remove(sidecar)
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// buildMetadata assembles the upload package from what the pipeline
// learned about the video. Falls back to generic fields when the
// transcript is placeholder-thin.
func buildMetadata(job *models.VideoJob, strat models.Strategy, transcript []models.TranscriptSegment) publish.Metadata {
	title := strings.TrimSpace(job.Niche)
	if title == "" {
		title = "Untitled"
	}
	if len(transcript) > 0 {
		hook := strings.TrimSpace(transcript[0].Text)
		if hook != "" {
			if len(hook) > 80 {
				hook = hook[:80]
			}
			title = hook
		}
	}

	var desc strings.Builder
	if strat.Explanation != "" {
		desc.WriteString(strat.Explanation)
		desc.WriteString("\n\n")
	}
	tags := []string{"shorts"}
	if job.Niche != "" {
		tags = append(tags, strings.ToLower(job.Niche))
		desc.WriteString("#" + strings.ReplaceAll(strings.ToLower(job.Niche), " ", ""))
	}
	for _, kw := range strat.BRollKeywords {
		tags = append(tags, strings.ToLower(kw))
	}

	return publish.Metadata{
		Title:       title,
		Description: desc.String(),
		Tags:        tags,
		Platform:    job.Platform,
		Visibility:  "private",
	}
}
