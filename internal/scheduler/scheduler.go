package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("texlipse.scheduler")

type Task struct {
	Name    string
	Execute func(ctx context.Context) error
}

type debounced struct {
	timer  *time.Timer
	cancel context.CancelFunc
}

// Scheduler runs tasks one at a time on a single worker goroutine.
type Scheduler struct {
	taskQueue       chan queued
	lowPriorityLock sync.Mutex
	stopChan        chan struct{}
	wg              sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	pending map[string]*debounced
}

type queued struct {
	task Task
	ctx  context.Context
}

// NewScheduler creates a new Scheduler with the specified queue size
func NewScheduler(queueSize int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		taskQueue: make(chan queued, queueSize),
		stopChan:  make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[string]*debounced),
	}
}

// RunScheduler starts the scheduler loop
func (s *Scheduler) RunScheduler() {
	go func() {
		for {
			select {
			case q := <-s.taskQueue:
				s.execute(q)
			case <-s.stopChan:
				return
			}
		}
	}()
}

func (s *Scheduler) execute(q queued) {
	defer s.wg.Done()
	if q.ctx.Err() != nil {
		log.Debugf("dropping cancelled %s task", q.task.Name)
		return
	}
	log.Debugf("executing %s task", q.task.Name)
	err := q.task.Execute(q.ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		log.Debugf("%s task cancelled", q.task.Name)
	default:
		log.Errorf("%s task: %v", q.task.Name, err)
	}
}

// enqueue adds a task to the queue. Without wait it gives up when the queue
// is full.
func (s *Scheduler) enqueue(ctx context.Context, task Task, wait bool) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		log.Debugf("scheduler stopped, not running %s", task.Name)
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	q := queued{task: task, ctx: ctx}
	if wait {
		s.taskQueue <- q
		return true
	}
	select {
	case s.taskQueue <- q:
		return true
	default:
		s.wg.Done()
		log.Warningf("skipped scheduling %s, queue is full", task.Name)
		return false
	}
}

// Debounce runs task after delay unless another task with the same key is
// debounced first. A newer task also cancels the context of an older one
// that is already queued or running.
func (s *Scheduler) Debounce(key string, delay time.Duration, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if old, ok := s.pending[key]; ok {
		old.timer.Stop()
		old.cancel()
	}

	ctx, cancel := context.WithCancel(s.ctx)
	d := &debounced{cancel: cancel}
	d.timer = time.AfterFunc(delay, func() {
		s.enqueue(ctx, task, true)
	})
	s.pending[key] = d
}

// Cancel drops the debounced task of key, if any.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.pending[key]; ok {
		d.timer.Stop()
		d.cancel()
		delete(s.pending, key)
	}
}

// SchedulePeriodicTask periodically runs low-priority tasks without blocking
func (s *Scheduler) SchedulePeriodicTask(interval time.Duration, lowTask Task) {
	ticker := time.NewTicker(interval)

	// Run the task on startup in a non-blocking manner
	go func() {
		s.lowPriorityLock.Lock()
		defer s.lowPriorityLock.Unlock()
		s.enqueue(s.ctx, lowTask, false)
	}()

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				go func() {
					s.lowPriorityLock.Lock()
					defer s.lowPriorityLock.Unlock()
					s.enqueue(s.ctx, lowTask, false)
				}()
			case <-s.stopChan:
				// Stop scheduling periodic tasks
				return
			}
		}
	}()
}

// ScheduleHighPriorityTask runs a high-priority task asap
func (s *Scheduler) ScheduleHighPriorityTask(task Task) bool {
	return s.enqueue(s.ctx, task, true)
}

// StopScheduler cancels debounced and running tasks, waits for the queue to
// empty and stops the scheduler.
func (s *Scheduler) StopScheduler() {
	log.Info("stopping scheduler")
	s.mu.Lock()
	s.stopped = true
	for key, d := range s.pending {
		d.timer.Stop()
		d.cancel()
		delete(s.pending, key)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	close(s.stopChan)
	log.Info("scheduler stopped")
}
