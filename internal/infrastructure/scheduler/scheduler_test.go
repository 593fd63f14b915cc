package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduler_RunsTasksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var pass, drain atomic.Int32

	s := New(
		Task{Name: "pass", Interval: 5 * time.Millisecond, Run: func(context.Context) error {
			pass.Add(1)
			return nil
		}},
		Task{Name: "drain", Interval: 5 * time.Millisecond, Run: func(context.Context) error {
			drain.Add(1)
			return errors.New("keeps failing")
		}},
		Task{Name: "disabled"},
	)
	s.Start(ctx)

	assert.Eventually(t, func() bool { return pass.Load() >= 2 && drain.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	s.Wait()

	n := pass.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, pass.Load(), "no runs after stop")
}
