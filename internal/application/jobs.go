package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

// Background job names.
const (
	JobForceSyncOrders   = "force_sync_orders"
	JobSKUSync           = "sku_sync"
	JobCategorySync      = "category_sync"
	JobProductCategories = "product_categories"
)

type JobState string

const (
	JobIdle      JobState = "idle"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
)

type JobStatus struct {
	Name        string          `json:"name"`
	RunID       string          `json:"run_id,omitempty"`
	State       JobState        `json:"state"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type JobFunc func(ctx context.Context) (any, error)

// Jobs runs named work in the background, one run per name at a time, and
// keeps the latest status in the KV store.
type Jobs struct {
	kv  domain.KeyValueStore
	now func() time.Time
	log *logger.Logger

	mu      sync.Mutex
	running map[string]chan struct{}
}

func NewJobs(kv domain.KeyValueStore, now func() time.Time, log *logger.Logger) *Jobs {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Jobs{kv: kv, now: now, log: log, running: map[string]chan struct{}{}}
}

func jobKey(name string) string { return "job_" + name }

// Submit starts fn under name. The job outlives ctx cancellation.
func (j *Jobs) Submit(ctx context.Context, name string, fn JobFunc) (JobStatus, error) {
	j.mu.Lock()
	if _, busy := j.running[name]; busy {
		j.mu.Unlock()
		return JobStatus{}, fmt.Errorf("%s: %w", name, domain.ErrJobRunning)
	}
	done := make(chan struct{})
	j.running[name] = done
	j.mu.Unlock()

	started := j.now().UTC()
	st := JobStatus{Name: name, RunID: uuid.NewString(), State: JobRunning, StartedAt: &started}
	if err := j.kv.Set(ctx, jobKey(name), st); err != nil {
		j.finish(name, done)
		return JobStatus{}, fmt.Errorf("persist job %s: %w", name, err)
	}
	j.log.Info().Str("job", name).Str("run_id", st.RunID).Msg("background job started")

	bg := context.WithoutCancel(ctx)
	go func() {
		defer j.finish(name, done)

		out, err := runJob(bg, fn)
		completed := j.now().UTC()
		final := st
		final.State = JobCompleted
		final.CompletedAt = &completed
		if out != nil {
			if raw, mErr := json.Marshal(out); mErr == nil {
				final.Result = raw
			}
		}
		if err != nil {
			final.Error = err.Error()
			j.log.Error().Err(err).Str("job", name).Str("run_id", st.RunID).Msg("background job failed")
		} else {
			j.log.Info().Str("job", name).Str("run_id", st.RunID).
				Dur("elapsed", completed.Sub(started)).Msg("background job completed")
		}
		if sErr := j.kv.Set(bg, jobKey(name), final); sErr != nil {
			j.log.Error().Err(sErr).Str("job", name).Msg("persist job status failed")
		}
	}()
	return st, nil
}

// runJob turns a panic in fn into an error so the run is still recorded.
func runJob(ctx context.Context, fn JobFunc) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("job panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func (j *Jobs) finish(name string, done chan struct{}) {
	j.mu.Lock()
	delete(j.running, name)
	j.mu.Unlock()
	close(done)
}

// Status returns the last recorded status; a job never run is idle.
func (j *Jobs) Status(ctx context.Context, name string) (JobStatus, error) {
	var st JobStatus
	found, err := j.kv.Get(ctx, jobKey(name), &st)
	if err != nil {
		return JobStatus{}, fmt.Errorf("load job %s: %w", name, err)
	}
	if !found {
		return JobStatus{Name: name, State: JobIdle}, nil
	}
	return st, nil
}

// Wait blocks until the current run of name finishes or ctx is done.
func (j *Jobs) Wait(ctx context.Context, name string) error {
	j.mu.Lock()
	done, ok := j.running[name]
	j.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
