package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/kv"
)

func TestJobs_StatusLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	jobs := NewJobs(kv.NewMemoryStore(), func() time.Time { return now }, nil)

	st, err := jobs.Status(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, JobIdle, st.State)

	release := make(chan struct{})
	started, err := jobs.Submit(ctx, "demo", func(context.Context) (any, error) {
		<-release
		return map[string]int{"done": 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, JobRunning, started.State)
	assert.NotEmpty(t, started.RunID)

	st, err = jobs.Status(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, JobRunning, st.State)

	_, err = jobs.Submit(ctx, "demo", func(context.Context) (any, error) { return nil, nil })
	assert.True(t, errors.Is(err, domain.ErrJobRunning))

	// other names are independent
	_, err = jobs.Submit(ctx, "other", func(context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)
	require.NoError(t, jobs.Wait(ctx, "other"))

	close(release)
	require.NoError(t, jobs.Wait(ctx, "demo"))

	st, err = jobs.Status(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, st.State)
	assert.Equal(t, started.RunID, st.RunID)
	assert.JSONEq(t, `{"done":1}`, string(st.Result))
	require.NotNil(t, st.CompletedAt)

	_, err = jobs.Submit(ctx, "demo", func(context.Context) (any, error) { return nil, errors.New("bad") })
	require.NoError(t, err)
	require.NoError(t, jobs.Wait(ctx, "demo"))
	st, err = jobs.Status(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "bad", st.Error)
}

func TestJobs_OutliveCallerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	jobs := NewJobs(kv.NewMemoryStore(), nil, nil)

	release := make(chan struct{})
	var jobErr error
	_, err := jobs.Submit(ctx, "long", func(jctx context.Context) (any, error) {
		<-release
		jobErr = jctx.Err()
		return nil, nil
	})
	require.NoError(t, err)
	cancel()
	close(release)
	require.NoError(t, jobs.Wait(context.Background(), "long"))
	assert.NoError(t, jobErr)
}

func TestJobs_PanicIsRecordedAsFailure(t *testing.T) {
	ctx := context.Background()
	jobs := NewJobs(kv.NewMemoryStore(), nil, nil)

	_, err := jobs.Submit(ctx, JobCategorySync, func(context.Context) (any, error) {
		panic("remote client exploded")
	})
	require.NoError(t, err)
	require.NoError(t, jobs.Wait(ctx, JobCategorySync))

	st, err := jobs.Status(ctx, JobCategorySync)
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, st.State)
	assert.Contains(t, st.Error, "remote client exploded")
	assert.Empty(t, st.Result)

	// the name is free again
	_, err = jobs.Submit(ctx, JobCategorySync, func(context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)
	require.NoError(t, jobs.Wait(ctx, JobCategorySync))
}
