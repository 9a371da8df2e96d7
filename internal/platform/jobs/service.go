package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultQueueSize = 128

// Recorder receives the outcome of every job run.
type Recorder interface {
	RecordJob(failed bool)
}

// Service is a small in-process queue with a single worker. Jobs are best
// effort: a full queue drops the job with a warning.
type Service struct {
	Metrics Recorder
	Timeout time.Duration
	queue   chan job
	wg      sync.WaitGroup
}

type job struct {
	Type string
	Run  func(context.Context) error
}

func New(metrics Recorder) *Service {
	return &Service{
		Metrics: metrics,
		Timeout: 30 * time.Second,
		queue:   make(chan job, defaultQueueSize),
	}
}

// Start runs the worker until ctx is cancelled. Jobs still queued at that
// point are drained with a fresh deadline before the worker exits.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.worker(ctx)
}

// Wait blocks until the worker has exited.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Enqueue(jobType string, run func(context.Context) error) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) error) error {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case j := <-s.queue:
			if err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) drain() {
	for {
		select {
		case j := <-s.queue:
			if err := s.runJob(context.Background(), j); err != nil {
				slog.Warn("job run failed during drain", "jobType", j.Type, "err", err)
			}
		default:
			return
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (err error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.Type, r)
		}
		if s.Metrics != nil {
			s.Metrics.RecordJob(err != nil)
		}
	}()
	return j.Run(ctx)
}
