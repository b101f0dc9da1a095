// Package supervisor runs one ffmpeg HLS worker per camera and keeps track of
// every worker it started, so launches can be deduplicated, bounded, listed
// and stopped on shutdown.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"camstream/internal/platform/logger"
	"camstream/internal/platform/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrWorkerRunning is returned when a camera already has a live worker.
	ErrWorkerRunning = errors.New("worker already running")

	// ErrPoolExhausted is returned when MaxWorkers workers are already live.
	ErrPoolExhausted = errors.New("worker pool exhausted")

	// ErrSupervisorClosed is returned for launches after Shutdown.
	ErrSupervisorClosed = errors.New("supervisor is shut down")

	// ErrWorkerNotFound is returned by Stop when no live worker matches.
	ErrWorkerNotFound = errors.New("worker not found")

	// ErrInvalidTarget is returned when the camera name or source is empty.
	ErrInvalidTarget = errors.New("camera name and source are required")
)

// Spec describes the worker a Launcher should start.
type Spec struct {
	WorkerID     string
	Camera       string
	SafeName     string
	SourceURL    string
	PlaylistPath string
}

// Process is a started worker.
type Process interface {
	PID() int
	// Wait blocks until the process exits.
	Wait() error
}

// Launcher starts worker processes. The process must stop once ctx is done.
type Launcher interface {
	Launch(ctx context.Context, spec Spec) (Process, error)
}

// URLRecorder persists the playback URL published for a camera.
type URLRecorder interface {
	SetStreamURL(name, url string) error
}

// Target names a camera to launch at startup.
type Target struct {
	Name      string
	SourceURL string
}

// Options configures a Supervisor.
type Options struct {
	OutputDir string
	BaseURL   string
	// MaxWorkers bounds the number of live workers (default 32).
	MaxWorkers int
	// StartupConcurrency bounds parallel launches in LaunchActive (default 4).
	StartupConcurrency int
}

type worker struct {
	info   Worker
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Supervisor owns every worker handle. Handles are keyed by the camera's safe
// name, which is also the name of its output files, so two cameras can never
// write to the same playlist at once.
type Supervisor struct {
	launcher Launcher
	recorder URLRecorder
	log      *slog.Logger
	metrics  *metrics.Metrics

	outputDir          string
	baseURL            string
	startupConcurrency int
	pool               *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	workers map[string]*worker
	closed  bool
}

// New returns a Supervisor. Metrics may be nil.
func New(launcher Launcher, recorder URLRecorder, opts Options, log *slog.Logger, m *metrics.Metrics) *Supervisor {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 32
	}
	if opts.StartupConcurrency <= 0 {
		opts.StartupConcurrency = 4
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "streams"
	}
	if log == nil {
		log = logger.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		launcher:           launcher,
		recorder:           recorder,
		log:                log,
		metrics:            m,
		outputDir:          opts.OutputDir,
		baseURL:            opts.BaseURL,
		startupConcurrency: opts.StartupConcurrency,
		pool:               semaphore.NewWeighted(int64(opts.MaxWorkers)),
		ctx:                ctx,
		cancel:             cancel,
		workers:            make(map[string]*worker),
	}
}

// Launch starts the worker for a camera and records its playback URL. It
// returns once the process has been spawned; the worker itself keeps running
// until it exits or is stopped.
func (s *Supervisor) Launch(name, source string) (Worker, error) {
	safe := SafeName(name)
	if safe == "" || source == "" {
		return Worker{}, ErrInvalidTarget
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Worker{}, ErrSupervisorClosed
	}
	if existing, ok := s.workers[safe]; ok && existing.info.State.Live() {
		info := existing.info
		s.mu.Unlock()
		s.countLaunch("duplicate")
		return info, ErrWorkerRunning
	}
	if !s.pool.TryAcquire(1) {
		s.mu.Unlock()
		s.countLaunch("pool_exhausted")
		return Worker{}, ErrPoolExhausted
	}

	wctx, cancel := context.WithCancel(s.ctx)
	w := &worker{
		info: Worker{
			ID:           uuid.NewString(),
			Camera:       name,
			SafeName:     safe,
			SourceURL:    source,
			PlaylistPath: PlaylistPath(s.outputDir, name),
			StreamURL:    StreamURL(s.baseURL, name),
			State:        StateStarting,
			StartedAt:    time.Now().UTC(),
		},
		ctx:    wctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	// The slot is held while the process starts so a concurrent launch for the
	// same camera sees it as live.
	s.workers[safe] = w
	s.wg.Add(1)
	s.mu.Unlock()

	proc, err := s.launcher.Launch(wctx, Spec{
		WorkerID:     w.info.ID,
		Camera:       name,
		SafeName:     safe,
		SourceURL:    source,
		PlaylistPath: w.info.PlaylistPath,
	})
	if err != nil {
		cancel()
		s.pool.Release(1)
		info := s.finish(w, StateFailed, err)
		s.wg.Done()

		s.log.Error("worker launch failed",
			slog.String("camera", name),
			slog.String("worker_id", info.ID),
			slog.String("error", err.Error()))
		s.countLaunch("error")
		return info, fmt.Errorf("launch worker for %q: %w", name, err)
	}

	s.mu.Lock()
	w.info.State = StateRunning
	w.info.PID = proc.PID()
	info := w.info
	s.mu.Unlock()

	go s.watch(w, proc)

	s.log.Info("worker started",
		slog.String("camera", name),
		slog.String("worker_id", info.ID),
		slog.Int("pid", info.PID),
		slog.String("playlist", info.PlaylistPath),
		slog.String("stream_url", info.StreamURL))
	s.countLaunch("ok")

	if s.recorder != nil {
		if err := s.recorder.SetStreamURL(name, info.StreamURL); err != nil {
			s.log.Warn("record stream url failed",
				slog.String("camera", name),
				slog.String("error", err.Error()))
		}
	}
	return info, nil
}

// LaunchAsync runs Launch in a goroutine tracked by Shutdown. Failures are
// logged and visible through Workers.
func (s *Supervisor) LaunchAsync(name, source string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Warn("launch ignored after shutdown", slog.String("camera", name))
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if _, err := s.Launch(name, source); err != nil && !errors.Is(err, ErrWorkerRunning) {
			s.log.Warn("async launch failed",
				slog.String("camera", name),
				slog.String("error", err.Error()))
		}
	}()
}

// LaunchActive launches every target with at most StartupConcurrency launches
// in flight. Individual failures are logged, not returned; the only error is
// ctx being cancelled.
func (s *Supervisor) LaunchActive(ctx context.Context, targets []Target) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.startupConcurrency)

	var started atomic.Int32
	for _, t := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := s.Launch(t.Name, t.SourceURL); err != nil {
				s.log.Warn("startup launch failed",
					slog.String("camera", t.Name),
					slog.String("error", err.Error()))
				return nil
			}
			started.Add(1)
			return nil
		})
	}
	err := g.Wait()

	s.log.Info("startup launches complete",
		slog.Int("requested", len(targets)),
		slog.Int("started", int(started.Load())))
	return err
}

// Stop terminates the live worker for name and waits for it to exit.
func (s *Supervisor) Stop(ctx context.Context, name string) error {
	s.mu.Lock()
	w, ok := s.workers[SafeName(name)]
	if !ok || !w.info.State.Live() {
		s.mu.Unlock()
		return ErrWorkerNotFound
	}
	s.mu.Unlock()

	w.cancel()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown rejects new launches, stops every worker and waits for them to
// exit or for ctx to expire.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	var live []string
	for _, w := range s.workers {
		if w.info.State.Live() {
			live = append(live, w.info.Camera)
		}
	}
	s.mu.Unlock()

	s.log.Info("stopping workers", slog.Int("live", len(live)))

	var g errgroup.Group
	for _, name := range live {
		g.Go(func() error {
			if err := s.Stop(ctx, name); err != nil && !errors.Is(err, ErrWorkerNotFound) {
				return fmt.Errorf("stop worker %q: %w", name, err)
			}
			return nil
		})
	}
	stopErr := g.Wait()

	// Covers any worker the snapshot missed.
	s.cancel()
	if stopErr != nil {
		return stopErr
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for workers: %w", ctx.Err())
	}
}

// Workers returns a snapshot of every known worker, sorted by camera name.
func (s *Supervisor) Workers() []Worker {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Worker, 0, len(s.workers))
	for _, w := range s.workers {
		out = append(out, w.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Camera < out[j].Camera })
	return out
}

// Worker returns the latest handle for a camera.
func (s *Supervisor) Worker(name string) (Worker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workers[SafeName(name)]
	if !ok {
		return Worker{}, false
	}
	return w.info, true
}

// LiveCount returns the number of starting or running workers.
func (s *Supervisor) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, w := range s.workers {
		if w.info.State.Live() {
			n++
		}
	}
	return n
}

// watch waits for proc to exit and records why it did.
func (s *Supervisor) watch(w *worker, proc Process) {
	defer s.wg.Done()

	err := proc.Wait()
	s.pool.Release(1)

	state := StateExited
	switch {
	case w.ctx.Err() != nil:
		state = StateStopped
		err = nil
	case err != nil:
		state = StateFailed
	}
	info := s.finish(w, state, err)
	w.cancel()

	attrs := []any{
		slog.String("camera", info.Camera),
		slog.String("worker_id", info.ID),
		slog.Int("pid", info.PID),
		slog.String("state", string(info.State)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		s.log.Warn("worker exited", attrs...)
	} else {
		s.log.Info("worker exited", attrs...)
	}
	if s.metrics != nil {
		s.metrics.IncWorkerExits(string(state))
	}
}

// finish moves w into a terminal state and unblocks Stop.
func (s *Supervisor) finish(w *worker, state State, err error) Worker {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	w.info.State = state
	w.info.ExitedAt = &now
	if err != nil {
		w.info.Error = err.Error()
	}
	close(w.done)
	return w.info
}

func (s *Supervisor) countLaunch(result string) {
	if s.metrics != nil {
		s.metrics.IncWorkersLaunched(result)
	}
}
