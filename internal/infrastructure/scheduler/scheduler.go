// Package scheduler runs the catalog's periodic housekeeping and debounces bursty input.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrSchedulerRunning = errors.New("scheduler is already running")
	ErrInvalidConfig    = errors.New("invalid scheduler configuration")
)

// Task is a named function run every Interval. A run is cancelled after Timeout,
// which defaults to the interval.
type Task struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs each registered Task on its own ticker
type Scheduler struct {
	log *zap.Logger

	mu     sync.Mutex
	tasks  []Task
	cancel context.CancelFunc // non-nil while running
	wg     sync.WaitGroup
}

func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{log: log.Named("scheduler")}
}

// Every registers a task; all tasks must be registered before Start
func (s *Scheduler) Every(task Task) error {
	if task.Interval <= 0 || task.Run == nil {
		return fmt.Errorf("%w: task %q needs a positive interval and a body", ErrInvalidConfig, task.Name)
	}
	if task.Timeout <= 0 {
		task.Timeout = task.Interval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrSchedulerRunning
	}
	s.tasks = append(s.tasks, task)
	return nil
}

// Start launches the task loops. Starting a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	ctx, s.cancel = context.WithCancel(ctx)
	for _, task := range s.tasks {
		s.wg.Go(func() { s.loop(ctx, task) })
	}
	s.log.Info("Scheduler started", zap.Int("tasks", len(s.tasks)))
	return nil
}

// Stop cancels the loops and waits for in-flight runs, giving up when ctx ends
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("Scheduler stop timed out", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	log := s.log.With(zap.String("task", task.Name))
	log.Debug("Task scheduled", zap.Duration("interval", task.Interval))

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run(ctx, task, log)
		}
	}
}

// run executes one tick; a panicking task is logged and keeps its schedule
func run(ctx context.Context, task Task, log *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Task panicked", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, task.Timeout)
	defer cancel()

	start := time.Now()
	err := task.Run(ctx)
	elapsed := zap.Duration("duration", time.Since(start))
	if err != nil {
		log.Error("Task failed", elapsed, zap.Error(err))
		return
	}
	log.Debug("Task completed", elapsed)
}
