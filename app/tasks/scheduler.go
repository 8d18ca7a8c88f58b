package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/tracker-relay/app/cfg"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	services          *Services
	ingestInterval    time.Duration
	reconcileInterval time.Duration
	taskTimeout       time.Duration
	workerCount       int
	ctx               context.Context
	cancel            context.CancelFunc
	wg                sync.WaitGroup
	taskQueue         chan TaskInterface
}

func NewScheduler(services *Services) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		services:          services,
		ingestInterval:    cfg.GetIngestInterval(),
		reconcileInterval: cfg.GetReconcileInterval(),
		taskTimeout:       cfg.GetTaskTimeout(),
		workerCount:       cfg.WorkerCount,
		ctx:               ctx,
		cancel:            cancel,
		taskQueue:         make(chan TaskInterface, 16),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ingestTicker := time.NewTicker(s.ingestInterval)
		defer ingestTicker.Stop()
		reconcileTicker := time.NewTicker(s.reconcileInterval)
		defer reconcileTicker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ingestTicker.C:
				if err := s.TriggerIngest(); err != nil {
					slog.Warn("Failed to enqueue IngestTask", "tracker", s.services.Tracker.Name, "error", err)
				}
			case <-reconcileTicker.C:
				if err := s.TriggerReconcile(); err != nil {
					slog.Warn("Failed to enqueue ReconcileTask", "tracker", s.services.Tracker.Name, "error", err)
				}
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) TriggerIngest() error {
	return s.EnqueueTask(NewIngestTask(s.services))
}

func (s *Scheduler) TriggerReconcile() error {
	return s.EnqueueTask(NewReconcileTask(s.services))
}

func (s *Scheduler) enqueueStartupTasks() {
	slog.Debug("Enqueueing startup ingest", "tracker", s.services.Tracker.Name)

	if err := s.TriggerIngest(); err != nil {
		slog.Warn("Failed to enqueue IngestTask", "tracker", s.services.Tracker.Name, "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	// A failed cycle is not retried; the next tick starts it from scratch.
	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "tracker", task.GetTrackerName(), "error", err)
		slog.Debug("Task left for the next cycle", "type", string(task.GetType()), "id", task.GetID())
	}
}
