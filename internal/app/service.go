// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/leap/internal/adapters/detector"
	jobqueue "github.com/okian/leap/internal/adapters/mq/queue"
	workerpool "github.com/okian/leap/internal/adapters/mq/worker"
	repository "github.com/okian/leap/internal/adapters/repository"
	"github.com/okian/leap/internal/adapters/video"
	"github.com/okian/leap/internal/domain/dedupe"
	"github.com/okian/leap/internal/domain/grade"
	"github.com/okian/leap/internal/domain/kinematic"
	"github.com/okian/leap/internal/domain/model"
	"github.com/okian/leap/internal/domain/types"
	"github.com/okian/leap/internal/domain/vision"
	"github.com/okian/leap/pkg/logger"
	"github.com/okian/leap/pkg/metrics"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted = errors.New("service not started")
)

// openerAdapter narrows the video adapter to the port workers consume.
type openerAdapter struct {
	opener *video.DirOpener
}

func (a openerAdapter) Open(ctx context.Context, ref string) (vision.FrameSource, error) {
	return a.opener.Open(ctx, ref)
}

// Service implements the API dependencies for the jump analysis system.
type Service struct {
	mu sync.RWMutex

	// Core components
	rank       repository.RankStore
	history    repository.HistoryStore
	deduper    dedupe.Deduper
	jobQueue   jobqueue.Queue
	analyzer   *vision.Analyzer
	opener     workerpool.Opener
	pose       vision.Detector
	workerPool *workerpool.Pool

	// Request progress tracking
	statusMu sync.RWMutex
	statuses map[string]*types.AnalysisStatus

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	maxListLimit    int
	historyPath     string
	framesRoot      string
	detectorURL     string
	detectorTimeout time.Duration
	analyzerOpts    []vision.Option

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the analysis queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxListLimit caps the page size of measurement listings.
func WithMaxListLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxListLimit = limit
		}
	}
}

// WithHistoryPath sets the sqlite file backing the measurement history.
func WithHistoryPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.historyPath = path
		}
	}
}

// WithFramesRoot sets the directory video source references resolve under.
func WithFramesRoot(root string) Option {
	return func(s *Service) {
		if root != "" {
			s.framesRoot = root
		}
	}
}

// WithDetectorURL sets the pose detector endpoint.
func WithDetectorURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.detectorURL = url
		}
	}
}

// WithDetectorTimeout bounds a single detector inference call.
func WithDetectorTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.detectorTimeout = timeout
		}
	}
}

// WithAnalyzerOptions forwards tuning options to the vision analyzer.
func WithAnalyzerOptions(opts ...vision.Option) Option {
	return func(s *Service) {
		s.analyzerOpts = append(s.analyzerOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDetector injects a pose detector, replacing the HTTP client built
// from the detector URL. Used by tests and the simulation harness.
func WithDetector(d vision.Detector) Option {
	return func(s *Service) {
		if d != nil {
			s.pose = d
		}
	}
}

// WithOpener injects a frame source opener, replacing the directory
// opener built from the frames root.
func WithOpener(o workerpool.Opener) Option {
	return func(s *Service) {
		if o != nil {
			s.opener = o
		}
	}
}

// WithHistoryStore injects a prebuilt history store.
func WithHistoryStore(h repository.HistoryStore) Option {
	return func(s *Service) {
		if h != nil {
			s.history = h
		}
	}
}

// WithRankStore injects a prebuilt rank store.
func WithRankStore(r repository.RankStore) Option {
	return func(s *Service) {
		if r != nil {
			s.rank = r
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    1024,
		dedupeSize:   100000,
		maxListLimit: 100,
		historyPath:  "leap.db",
		framesRoot:   "clips",
		detectorURL:  "http://127.0.0.1:9090",
		statuses:     make(map[string]*types.AnalysisStatus),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting jump analysis service...")

	if s.rank == nil {
		s.rank = repository.NewTreapStore(ctx)
	}
	if s.history == nil {
		history, err := repository.NewSQLiteHistory(s.historyPath)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		s.history = history
	}
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.jobQueue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)
	if s.pose == nil {
		var clientOpts []detector.HTTPOption
		if s.detectorTimeout > 0 {
			clientOpts = append(clientOpts, detector.WithTimeout(s.detectorTimeout))
		}
		s.pose = detector.NewCached(detector.NewHTTPClient(s.detectorURL, clientOpts...))
	}
	s.analyzer = vision.New(s.pose, s.analyzerOpts...)
	if s.opener == nil {
		s.opener = openerAdapter{opener: video.NewDirOpener(s.framesRoot)}
	}

	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, s.opener, s.analyzer, s.history, s.rank, s)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "jump analysis service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping jump analysis service...")

	if s.workerPool != nil {
		s.workerPool.Stop()
	}
	if s.jobQueue != nil {
		_ = s.jobQueue.Close()
	}
	if closer, ok := s.rank.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if s.history != nil {
		_ = s.history.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "jump analysis service stopped")
}

// ManualMeasure computes a jump height from a takeoff/peak mark pair,
// classifies it, persists it, and feeds the leaderboard.
func (s *Service) ManualMeasure(ctx context.Context, subjectID string, takeoff, peak model.TimeMark) (model.Measurement, error) {
	result, err := kinematic.Estimate(takeoff, peak)
	if err != nil {
		return model.Measurement{}, err
	}

	m := model.Measurement{
		ID:             uuid.NewString(),
		SubjectID:      subjectID,
		Method:         model.MethodManual,
		HeightCm:       result.HeightCm,
		AirTimeSeconds: result.AirTimeSeconds,
		HasAirTime:     true,
		Category:       grade.Classify(result.HeightCm).Label,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.history.Save(ctx, m); err != nil {
		return model.Measurement{}, err
	}
	if _, err := s.rank.UpdateBestWithMeta(ctx, m.SubjectID, m.HeightCm, m.ID, m.Method); err != nil {
		return model.Measurement{}, err
	}
	metrics.RecordMeasuredHeight(string(model.MethodManual), m.HeightCm)

	s.logger.Info(ctx, "manual measurement recorded",
		logger.String("subjectID", m.SubjectID),
		logger.Float64("heightCm", m.HeightCm),
		logger.String("category", m.Category),
	)
	return m, nil
}

// SubmitAnalysis enqueues a vision analysis request. The returned request
// ID is the idempotency key: resubmitting it reports duplicate=true
// without enqueuing again. ErrQueueFull signals backpressure; the caller
// may retry later with the same request ID.
func (s *Service) SubmitAnalysis(ctx context.Context, requestID, subjectID, sourceRef string, subjectHeightCm float64) (string, bool, error) {
	if !s.isStarted() {
		return "", false, ErrNotStarted
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	if s.deduper.SeenAndRecord(ctx, requestID) {
		metrics.RecordSubmissionDuplicate()
		s.logger.Debug(ctx, "duplicate analysis request",
			logger.String("requestID", requestID),
		)
		return requestID, true, nil
	}

	s.setStatus(requestID, &types.AnalysisStatus{
		RequestID: requestID,
		State:     types.StateQueued,
		UpdatedAt: time.Now().UTC(),
	})

	job := model.AnalysisJob{
		RequestID:       requestID,
		SubjectID:       subjectID,
		SourceRef:       sourceRef,
		SubjectHeightCm: subjectHeightCm,
		EnqueuedAt:      time.Now().UTC(),
	}
	if !s.jobQueue.Enqueue(ctx, job) {
		// Roll back so the same request ID can be retried.
		s.deduper.Unrecord(ctx, requestID)
		s.dropStatus(requestID)
		return requestID, false, types.ErrQueueFull
	}

	return requestID, false, nil
}

// AnalysisStatus returns the current state of a submitted request.
func (s *Service) AnalysisStatus(ctx context.Context, requestID string) (types.AnalysisStatus, error) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	st, ok := s.statuses[requestID]
	if !ok {
		return types.AnalysisStatus{}, types.ErrUnknownRequest
	}
	return *st, nil
}

// SetProgress implements the worker Reporter. Progress never regresses.
func (s *Service) SetProgress(requestID string, percent int) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	st, ok := s.statuses[requestID]
	if !ok {
		return
	}
	st.State = types.StateRunning
	if percent > st.Percent {
		st.Percent = percent
	}
	st.UpdatedAt = time.Now().UTC()
}

// Complete implements the worker Reporter.
func (s *Service) Complete(requestID string, m model.Measurement) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	st, ok := s.statuses[requestID]
	if !ok {
		return
	}
	st.State = types.StateDone
	st.Percent = 100
	st.Measurement = &m
	st.Error = ""
	st.UpdatedAt = time.Now().UTC()
}

// Fail implements the worker Reporter.
func (s *Service) Fail(requestID string, err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	st, ok := s.statuses[requestID]
	if !ok {
		return
	}
	st.State = types.StateFailed
	st.Error = err.Error()
	st.UpdatedAt = time.Now().UTC()
}

// Measurement returns a single stored measurement by ID.
func (s *Service) Measurement(ctx context.Context, id string) (model.Measurement, error) {
	return s.history.Get(ctx, id)
}

// Measurements lists stored measurements, newest first.
func (s *Service) Measurements(ctx context.Context, subjectID string, limit int) ([]model.Measurement, error) {
	if limit <= 0 || limit > s.maxListLimit {
		limit = s.maxListLimit
	}
	return s.history.List(ctx, subjectID, limit)
}

// TopN returns the top N leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	entries, err := s.rank.TopN(ctx, n)
	if err != nil {
		return nil, err
	}

	apiEntries := make([]types.Entry, len(entries))
	for i, entry := range entries {
		apiEntries[i] = types.Entry{
			Rank:      entry.Rank,
			SubjectID: entry.SubjectID,
			HeightCm:  entry.HeightCm,
		}
	}
	return apiEntries, nil
}

// Rank returns the rank and best height for a given subject id.
func (s *Service) Rank(ctx context.Context, subjectID string) (types.Entry, error) {
	entry, err := s.rank.Rank(ctx, subjectID)
	if err != nil {
		return types.Entry{}, err
	}

	return types.Entry{
		Rank:      entry.Rank,
		SubjectID: entry.SubjectID,
		HeightCm:  entry.HeightCm,
	}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.jobQueue.Len(ctx)
		totalSubjects := s.rank.Count(ctx)

		stats["queueLength"] = queueLen
		stats["totalSubjects"] = totalSubjects
		stats["pendingRequests"] = s.pendingRequests()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTotalSubjects(totalSubjects)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Service) setStatus(requestID string, st *types.AnalysisStatus) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.statuses[requestID] = st
}

func (s *Service) dropStatus(requestID string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	delete(s.statuses, requestID)
}

func (s *Service) pendingRequests() int {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()

	pending := 0
	for _, st := range s.statuses {
		if st.State == types.StateQueued || st.State == types.StateRunning {
			pending++
		}
	}
	return pending
}
