// Package worker defines worker contracts for asynchronous jump analysis.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/leap/internal/domain/grade"
	"github.com/okian/leap/internal/domain/model"
	"github.com/okian/leap/internal/domain/vision"
	"github.com/okian/leap/pkg/logger"
	"github.com/okian/leap/pkg/metrics"
)

// Default worker configuration constants.
const (
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Job abstracts what workers read off the queue.
type Job = model.AnalysisJob

// Opener resolves a job's source reference into a readable frame source.
type Opener interface {
	Open(ctx context.Context, ref string) (vision.FrameSource, error)
}

// Analyzer runs the vision pipeline against an opened frame source.
type Analyzer interface {
	Analyze(ctx context.Context, src vision.FrameSource, subjectHeightCm float64, progress vision.ProgressFunc) (vision.Result, error)
}

// Recorder persists finished measurements.
type Recorder interface {
	Save(ctx context.Context, m model.Measurement) error
}

// Updater updates the best jump for a subject.
type Updater interface {
	UpdateBest(ctx context.Context, subjectID string, heightCm float64) (bool, error)
	UpdateBestWithMeta(ctx context.Context, subjectID string, heightCm float64, measurementID string, method model.Method) (bool, error)
}

// Reporter receives per-request progress and terminal outcomes. Progress
// percentages are monotonic per request.
type Reporter interface {
	SetProgress(requestID string, percent int)
	Complete(requestID string, m model.Measurement)
	Fail(requestID string, err error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes analysis jobs end to end.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining jobs before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing analysis jobs.
type InMemoryWorker struct {
	queue    Queue
	opener   Opener
	analyzer Analyzer
	recorder Recorder
	updater  Updater
	reporter Reporter
	name     string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, opener Opener, analyzer Analyzer, recorder Recorder, updater Updater, reporter Reporter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		opener:   opener,
		analyzer: analyzer,
		recorder: recorder,
		updater:  updater,
		reporter: reporter,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	jobChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobChan:
			if !ok {
				// Channel closed, worker should stop.
				return
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing analysis job", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob handles a single analysis job: resolve the clip, run the
// vision pipeline, classify, persist, and update the leaderboard.
func (w *InMemoryWorker) processJob(ctx context.Context, job Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	src, err := w.opener.Open(ctx, job.SourceRef)
	if err != nil {
		metrics.RecordWorkerError()
		w.reporter.Fail(job.RequestID, err)
		w.logger.Error(ctx, "opening analysis source failed",
			logger.String("requestID", job.RequestID),
			logger.String("sourceRef", job.SourceRef),
			logger.Error(err),
		)
		return fmt.Errorf("open source for request %s: %w", job.RequestID, err)
	}

	result, err := w.analyzer.Analyze(ctx, src, job.SubjectHeightCm, func(percent int) {
		w.reporter.SetProgress(job.RequestID, percent)
	})
	if err != nil {
		metrics.RecordWorkerError()
		w.reporter.Fail(job.RequestID, err)
		w.logger.Error(ctx, "analysis failed",
			logger.String("requestID", job.RequestID),
			logger.Error(err),
		)
		return fmt.Errorf("analyze request %s: %w", job.RequestID, err)
	}

	m := model.Measurement{
		ID:        uuid.NewString(),
		SubjectID: job.SubjectID,
		Method:    model.MethodVision,
		HeightCm:  result.HeightCm,
		Category:  grade.Classify(result.HeightCm).Label,
		CreatedAt: time.Now().UTC(),
	}

	if err := w.recorder.Save(ctx, m); err != nil {
		metrics.RecordWorkerError()
		w.reporter.Fail(job.RequestID, err)
		return fmt.Errorf("save measurement for request %s: %w", job.RequestID, err)
	}

	if _, err := w.updater.UpdateBestWithMeta(ctx, m.SubjectID, m.HeightCm, m.ID, m.Method); err != nil {
		metrics.RecordWorkerError()
		w.reporter.Fail(job.RequestID, err)
		return fmt.Errorf("leaderboard update for request %s: %w", job.RequestID, err)
	}

	metrics.RecordMeasuredHeight(string(model.MethodVision), m.HeightCm)
	w.reporter.Complete(job.RequestID, m)

	w.logger.Info(ctx, "analysis completed",
		logger.String("requestID", job.RequestID),
		logger.String("subjectID", m.SubjectID),
		logger.Float64("heightCm", m.HeightCm),
		logger.String("category", m.Category),
	)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	// Shutdown control
	shutdown chan struct{}

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, opener Opener, analyzer Analyzer, recorder Recorder, updater Updater, reporter Reporter) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q, opener, analyzer, recorder, updater, reporter,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new jobs.
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
