package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"viralforge/internal/models"
)

// JobRepository is the data access layer for video jobs.
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, owner_id, status, progress, input_reference, niche, style,
	platform, quality_tier, output_path, error, abort_requested,
	created_at, started_at, completed_at`

// Create inserts a new queued job. An empty ID is assigned a fresh UUID.
func (r *JobRepository) Create(ctx context.Context, job *models.VideoJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = models.StatusQueued
	}
	job.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO video_jobs (id, owner_id, status, progress, input_reference,
			niche, style, platform, quality_tier, output_path, error,
			abort_requested, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.OwnerID, string(job.Status), job.Progress, job.InputReference,
		job.Niche, job.Style, job.Platform, job.QualityTier, job.OutputPath,
		job.Error, boolToInt(job.AbortRequested), job.CreatedAt)
	return err
}

// GetByID returns the job with the given id, or nil when absent.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.VideoJob, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM video_jobs WHERE id = ?`, id)
	return scanJob(row)
}

// GetNextQueued claims the oldest queued job for the worker and marks it
// downloading in the same statement, so two workers never claim the same
// row. Returns nil when the queue is empty.
func (r *JobRepository) GetNextQueued(ctx context.Context) (*models.VideoJob, error) {
	now := time.Now()
	row := r.db.QueryRowContext(ctx, `
		UPDATE video_jobs
		SET status = ?, progress = ?, started_at = ?
		WHERE id = (
			SELECT id FROM video_jobs WHERE status = ?
			ORDER BY created_at ASC LIMIT 1
		)
		RETURNING `+jobColumns,
		string(models.StatusDownloading), models.StatusDownloading.Checkpoint(),
		now, string(models.StatusQueued))
	job, err := scanJob(row)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateState persists a status/progress transition. Progress only moves
// forward while the job is live; terminal states keep their checkpoint.
func (r *JobRepository) UpdateState(ctx context.Context, id string, status models.JobStatus, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE video_jobs
		SET status = ?, progress = MAX(progress, ?)
		WHERE id = ?`,
		string(status), progress, id)
	return err
}

// Complete marks the job completed with its public output reference.
func (r *JobRepository) Complete(ctx context.Context, id, outputPath string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE video_jobs
		SET status = ?, progress = 100, output_path = ?, completed_at = ?
		WHERE id = ?`,
		string(models.StatusCompleted), outputPath, now, id)
	return err
}

// Fail marks the job failed with a short error string. Progress is left at
// the last checkpoint reached.
func (r *JobRepository) Fail(ctx context.Context, id, errorMsg string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE video_jobs
		SET status = ?, error = ?, completed_at = ?
		WHERE id = ?`,
		string(models.StatusFailed), errorMsg, now, id)
	return err
}

// Abort marks the job aborted. No output is ever recorded for an abort.
func (r *JobRepository) Abort(ctx context.Context, id string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE video_jobs
		SET status = ?, output_path = '', completed_at = ?
		WHERE id = ?`,
		string(models.StatusAborted), now, id)
	return err
}

// RequestAbort raises the abort flag. The owning worker observes it at the
// next stage boundary; queued jobs are aborted immediately by the caller.
func (r *JobRepository) RequestAbort(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE video_jobs SET abort_requested = 1 WHERE id = ?`, id)
	return err
}

// AbortRequested reads the abort flag for a job.
func (r *JobRepository) AbortRequested(ctx context.Context, id string) (bool, error) {
	var flag int
	err := r.db.QueryRowContext(ctx,
		`SELECT abort_requested FROM video_jobs WHERE id = ?`, id).Scan(&flag)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return flag != 0, nil
}

// ListRecent returns the most recently created jobs.
func (r *JobRepository) ListRecent(ctx context.Context, limit int) ([]models.VideoJob, error) {
	if limit == 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM video_jobs
		ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

// ListByStatus returns jobs in the given status.
func (r *JobRepository) ListByStatus(ctx context.Context, status models.JobStatus, limit int) ([]models.VideoJob, error) {
	if limit == 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM video_jobs
		WHERE status = ? ORDER BY created_at DESC LIMIT ?`,
		string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

// CountByStatus returns job counts keyed by status.
func (r *JobRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM video_jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.VideoJob, error) {
	var job models.VideoJob
	var status string
	var abort int
	err := row.Scan(&job.ID, &job.OwnerID, &status, &job.Progress,
		&job.InputReference, &job.Niche, &job.Style, &job.Platform,
		&job.QualityTier, &job.OutputPath, &job.Error, &abort,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	job.Status = models.JobStatus(status)
	job.AbortRequested = abort != 0
	return &job, nil
}

func scanJobs(rows *sql.Rows) ([]models.VideoJob, error) {
	var jobs []models.VideoJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
