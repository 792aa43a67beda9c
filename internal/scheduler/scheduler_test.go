package scheduler_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"texlipse/internal/scheduler"
)

func started(t *testing.T) *scheduler.Scheduler {
	s := scheduler.NewScheduler(10)
	s.RunScheduler()
	t.Cleanup(s.StopScheduler)
	return s
}

func TestDebounceRunsLastTaskOnly(t *testing.T) {
	s := started(t)

	var mu sync.Mutex
	var ran []int
	done := make(chan struct{})
	for i := range 5 {
		s.Debounce("main.tex", 20*time.Millisecond, scheduler.Task{
			Name: "reparse",
			Execute: func(context.Context) error {
				mu.Lock()
				ran = append(ran, i)
				mu.Unlock()
				if i == 4 {
					close(done)
				}
				return nil
			},
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced task did not run")
	}
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{4}, ran)
}

func TestDebounceKeysAreIndependent(t *testing.T) {
	s := started(t)

	var count atomic.Int32
	task := scheduler.Task{Name: "reparse", Execute: func(context.Context) error {
		count.Add(1)
		return nil
	}}
	s.Debounce("a.tex", time.Millisecond, task)
	s.Debounce("b.tex", time.Millisecond, task)

	require.Eventually(t, func() bool { return count.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestNewerTaskCancelsRunningOne(t *testing.T) {
	s := started(t)

	running := make(chan struct{})
	cancelled := make(chan struct{})
	s.Debounce("main.tex", time.Millisecond, scheduler.Task{
		Name: "slow",
		Execute: func(ctx context.Context) error {
			close(running)
			<-ctx.Done()
			close(cancelled)
			return ctx.Err()
		},
	})
	<-running

	s.Debounce("main.tex", time.Millisecond, scheduler.Task{
		Name:    "fast",
		Execute: func(context.Context) error { return nil },
	})
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("running task was not cancelled")
	}
}

func TestCancel(t *testing.T) {
	s := started(t)

	var count atomic.Int32
	s.Debounce("main.tex", 20*time.Millisecond, scheduler.Task{
		Name:    "reparse",
		Execute: func(context.Context) error { count.Add(1); return nil },
	})
	s.Cancel("main.tex")
	time.Sleep(60 * time.Millisecond)
	require.Zero(t, count.Load())
}

func TestHighPriorityAndPeriodic(t *testing.T) {
	s := started(t)

	done := make(chan struct{})
	require.True(t, s.ScheduleHighPriorityTask(scheduler.Task{
		Name:    "load",
		Execute: func(context.Context) error { close(done); return nil },
	}))
	<-done

	var ticks atomic.Int32
	s.SchedulePeriodicTask(5*time.Millisecond, scheduler.Task{
		Name:    "rescan",
		Execute: func(context.Context) error { ticks.Add(1); return nil },
	})
	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestStoppedSchedulerRejectsTasks(t *testing.T) {
	s := scheduler.NewScheduler(1)
	s.RunScheduler()
	s.StopScheduler()

	require.False(t, s.ScheduleHighPriorityTask(scheduler.Task{
		Name:    "late",
		Execute: func(context.Context) error { return nil },
	}))
}
