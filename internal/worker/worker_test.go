package worker

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"viralforge/internal/models"
	"viralforge/internal/storage"
)

type recordingRunner struct {
	repo *storage.JobRepository
	mu   sync.Mutex
	runs []string
}

func (r *recordingRunner) Run(ctx context.Context, job *models.VideoJob) {
	r.mu.Lock()
	r.runs = append(r.runs, job.ID)
	r.mu.Unlock()
	_ = r.repo.Complete(ctx, job.ID, "done")
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func testRepo(t *testing.T) *storage.JobRepository {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return storage.NewJobRepository(db)
}

func TestPoolProcessesQueue(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		job := &models.VideoJob{InputReference: "in.mp4"}
		if err := repo.Create(ctx, job); err != nil {
			t.Fatal(err)
		}
	}

	runner := &recordingRunner{repo: repo}
	pool := NewPool(zerolog.Nop(), repo, runner, 2, 10*time.Millisecond)
	pool.Start(ctx)
	defer pool.Stop()

	deadline := time.After(3 * time.Second)
	for runner.count() < 5 {
		select {
		case <-deadline:
			t.Fatalf("processed %d of 5 jobs", runner.count())
		case <-time.After(10 * time.Millisecond):
		}
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["completed"] != 5 {
		t.Errorf("counts = %v", counts)
	}
}

func TestPoolNoDuplicateClaims(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		if err := repo.Create(ctx, &models.VideoJob{InputReference: "in.mp4"}); err != nil {
			t.Fatal(err)
		}
	}

	runner := &recordingRunner{repo: repo}
	pool := NewPool(zerolog.Nop(), repo, runner, 4, 5*time.Millisecond)
	pool.Start(ctx)

	deadline := time.After(3 * time.Second)
	for runner.count() < 8 {
		select {
		case <-deadline:
			t.Fatalf("processed %d of 8 jobs", runner.count())
		case <-time.After(10 * time.Millisecond):
		}
	}
	pool.Stop()

	seen := map[string]bool{}
	for _, id := range runner.runs {
		if seen[id] {
			t.Fatalf("job %s claimed twice", id)
		}
		seen[id] = true
	}
}

func TestPoolStopWaitsForInFlight(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	if err := repo.Create(ctx, &models.VideoJob{InputReference: "in.mp4"}); err != nil {
		t.Fatal(err)
	}

	started := make(chan struct{})
	runner := &slowRunner{repo: repo, started: started, hold: 100 * time.Millisecond}
	pool := NewPool(zerolog.Nop(), repo, runner, 1, 5*time.Millisecond)
	pool.Start(ctx)

	<-started
	pool.Stop()

	got, err := repo.GetByID(ctx, runner.jobID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Status.Terminal() {
		t.Errorf("Stop returned with job still %s", got.Status)
	}
}

type slowRunner struct {
	repo    *storage.JobRepository
	started chan struct{}
	hold    time.Duration
	jobID   string
}

func (r *slowRunner) Run(ctx context.Context, job *models.VideoJob) {
	r.jobID = job.ID
	close(r.started)
	time.Sleep(r.hold)
	_ = r.repo.Complete(ctx, job.ID, "done")
}

func TestPoolDefaults(t *testing.T) {
	pool := NewPool(zerolog.Nop(), nil, nil, 0, 0)
	if pool.size != 1 {
		t.Errorf("size = %d", pool.size)
	}
	if pool.interval != time.Second {
		t.Errorf("interval = %v", pool.interval)
	}
}
