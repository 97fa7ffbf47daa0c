package core

// session.go implements the per-session state machine.
//
// State is an immutable SessionState behind an atomic pointer. Readers call
// Snapshot and never lock. Writers hold mu, build a new value from the
// current one and swap it in, so a reader never sees a half-updated state.
//
// Each analyze run carries the generation number it started under.
// SelectFiles, Clear and an init failure bump the generation, and any
// completion from an older generation is dropped.

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/csvinsight/internal/logging"
)

// Session is one user's interaction, from first page load until it expires.
type Session struct {
	id  string
	svc *Service

	mu    sync.Mutex // serializes transitions
	gen   uint64
	state atomic.Pointer[SessionState]

	lastActive atomic.Int64 // unix nanos

	listenerMu sync.Mutex
	listeners  map[chan SessionState]struct{}
	closed     bool
}

func newSession(id string, svc *Service) *Session {
	s := &Session{
		id:        id,
		svc:       svc,
		listeners: make(map[chan SessionState]struct{}),
	}
	s.state.Store(&SessionState{Status: StatusIdle})
	s.touch()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the current state. The returned value must not be modified.
func (s *Session) Snapshot() SessionState {
	return *s.state.Load()
}

// LastActive returns when the session was last used.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// SelectFiles replaces the file selection and clears any previous results.
// A run still in flight for the old selection becomes stale.
func (s *Session) SelectFiles(ctx context.Context, files []UploadedFile) error {
	if len(files) == 0 {
		return ErrNoFiles
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.svc.gate.Err() != nil {
		return ErrInitFailed
	}

	s.gen++
	s.transitionLocked(ctx, SessionState{
		Status: StatusFilesSelected,
		Files:  slices.Clone(files),
	})
	return nil
}

// Start validates the analyze preconditions, moves the session to loading
// and runs parse and analysis in the background. The returned channel is
// closed when the run finishes, whatever its outcome.
//
// The run outlives ctx: it keeps ctx's values but not its cancellation, and
// is bounded by the service's analysis timeout instead.
func (s *Session) Start(ctx context.Context) (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Load()
	if len(cur.Files) == 0 {
		return nil, ErrNoFiles
	}
	if err := s.svc.readiness(); err != nil {
		return nil, err
	}
	if cur.Status == StatusError {
		return nil, ErrSessionFailed
	}
	if cur.InFlight() {
		return nil, ErrAnalysisInFlight
	}

	s.gen++
	gen := s.gen
	files := cur.Files

	next := *cur
	next.Status = StatusLoading
	next.Error = ""
	s.transitionLocked(ctx, next)

	done := make(chan struct{})
	go s.run(ctx, gen, files, done)
	return done, nil
}

// Analyze starts a run and waits for it to finish. The outcome is reported
// through the session state, not the returned error, which only covers
// rejected preconditions and ctx ending while waiting.
func (s *Session) Analyze(ctx context.Context) error {
	done, err := s.Start(ctx)
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear resets the session to idle. It is rejected while a run is in flight.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.svc.gate.Err() != nil {
		return ErrInitFailed
	}

	cur := s.state.Load()
	if cur.InFlight() {
		return ErrBusy
	}
	if cur.Status == StatusIdle {
		return nil
	}

	s.gen++
	s.transitionLocked(ctx, SessionState{Status: StatusIdle})
	return nil
}

// Export encodes the parsed tables. It never changes the session state.
func (s *Session) Export(ctx context.Context, format ExportFormat) (Artifact, error) {
	cur := s.Snapshot()
	if len(cur.Tables) == 0 {
		return Artifact{}, ErrNothingToExport
	}
	if cur.InFlight() {
		return Artifact{}, ErrBusy
	}
	if err := s.svc.readiness(); err != nil {
		return Artifact{}, err
	}

	art, err := s.svc.exporter.Export(ctx, format, cur.Tables)
	if err != nil {
		return Artifact{}, fmt.Errorf("export %s: %w", format, err)
	}

	s.touch()
	s.svc.recorder.ExportCompleted(ctx, format, len(art.Data))
	logging.ForSession(ctx, s.id).Info("export completed",
		"format", format,
		"tables", len(cur.Tables),
		"bytes", len(art.Data),
	)
	return art, nil
}

// Subscribe returns a channel that receives every new snapshot, starting
// with the current one. Only the latest snapshot is buffered: a slow reader
// skips intermediate states but always sees the newest. The channel is
// closed by the returned func or when the session is removed.
func (s *Session) Subscribe() (<-chan SessionState, func()) {
	ch := make(chan SessionState, 1)

	s.listenerMu.Lock()
	if s.closed {
		s.listenerMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.listeners[ch] = struct{}{}
	ch <- s.Snapshot()
	s.listenerMu.Unlock()

	unsubscribe := func() {
		s.listenerMu.Lock()
		defer s.listenerMu.Unlock()
		if _, ok := s.listeners[ch]; ok {
			delete(s.listeners, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// closeListeners ends every subscription. Called when the session is removed.
func (s *Session) closeListeners() {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	s.closed = true
	for ch := range s.listeners {
		close(ch)
	}
	clear(s.listeners)
}

// failInit moves the session to the error state after capability loading
// failed. Any run in flight becomes stale.
func (s *Session) failInit(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Load()
	if cur.Status == StatusError && cur.Error == MsgCapabilityLoadFailed {
		return
	}

	s.gen++
	s.transitionLocked(ctx, SessionState{
		Status: StatusError,
		Files:  cur.Files,
		Error:  MsgCapabilityLoadFailed,
	})
}

// run is the analyze pipeline: queue for a limiter slot, parse, analyze.
// Every outcome ends in a transition; nothing is returned to the caller.
func (s *Session) run(ctx context.Context, gen uint64, files []UploadedFile, done chan struct{}) {
	defer close(done)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.svc.opts.AnalysisTimeout)
	defer cancel()

	log := logging.ForSession(ctx, s.id).With("generation", gen)
	rec := s.svc.recorder
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("analyze panicked", "panic", r)
			rec.AnalysisFailed(ctx, "panic", time.Since(start))
			s.applyLocked(ctx, gen, func(cur SessionState) SessionState {
				return SessionState{Status: StatusError, Files: cur.Files, Error: MsgUnexpected}
			})
		}
	}()

	rec.AnalysisStarted(ctx, len(files))
	log.Info("analysis started", "files", len(files))

	if err := s.svc.limiter.Acquire(ctx); err != nil {
		log.Warn("analysis slot unavailable", "error", err)
		rec.AnalysisFailed(ctx, "queue", time.Since(start))
		s.applyLocked(ctx, gen, func(cur SessionState) SessionState {
			return SessionState{Status: StatusError, Files: cur.Files, Tables: cur.Tables, Error: MsgAnalysisBusy}
		})
		return
	}
	defer s.svc.limiter.Release()

	// The wait for a slot can outlast a new selection.
	if !s.current(gen) {
		log.Debug("stale run dropped before parse")
		rec.AnalysisFailed(ctx, "stale", time.Since(start))
		return
	}

	tables, err := s.svc.parser.Parse(ctx, files)
	if err != nil {
		log.Warn("parse failed", "error", err)
		rec.AnalysisFailed(ctx, "parse", time.Since(start))
		msg := parseFailureMessage(err)
		s.applyLocked(ctx, gen, func(cur SessionState) SessionState {
			return SessionState{Status: StatusError, Files: cur.Files, Error: msg}
		})
		return
	}

	if !s.applyLocked(ctx, gen, func(cur SessionState) SessionState {
		return SessionState{Status: StatusParsingComplete, Files: cur.Files, Tables: tables}
	}) {
		log.Debug("stale run dropped after parse")
		rec.AnalysisFailed(ctx, "stale", time.Since(start))
		return
	}

	insights, err := s.svc.analyzer.Analyze(ctx, tables)
	if err != nil {
		// Analyzers log service detail themselves; only the generic text is shown.
		log.Warn("analysis failed", "error", err)
		rec.AnalysisFailed(ctx, "analyze", time.Since(start))
		s.applyLocked(ctx, gen, func(cur SessionState) SessionState {
			return SessionState{Status: StatusError, Files: cur.Files, Tables: cur.Tables, Error: MsgAnalysisFailed}
		})
		return
	}

	if !s.applyLocked(ctx, gen, func(cur SessionState) SessionState {
		return SessionState{Status: StatusAnalysisComplete, Files: cur.Files, Tables: cur.Tables, Insights: insights}
	}) {
		log.Debug("stale run dropped after analyze")
		rec.AnalysisFailed(ctx, "stale", time.Since(start))
		return
	}

	rec.AnalysisCompleted(ctx, time.Since(start))
	log.Info("analysis completed",
		"tables", len(tables),
		"insights", len(insights),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func parseFailureMessage(err error) string {
	var pe *FileParseError
	if errors.As(err, &pe) {
		return pe.Error()
	}
	return MsgParseFailed
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// applyLocked takes mu and applies fn if gen is still current.
// It reports whether the transition happened.
func (s *Session) applyLocked(ctx context.Context, gen uint64, fn func(cur SessionState) SessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return false
	}
	s.transitionLocked(ctx, fn(*s.state.Load()))
	return true
}

// transitionLocked stores next and notifies subscribers. Caller holds mu.
func (s *Session) transitionLocked(ctx context.Context, next SessionState) {
	prev := s.state.Swap(&next)
	s.touch()

	log := logging.ForSession(ctx, s.id)
	if next.Status == StatusError {
		log.Info("session transition", "from", prev.Status, "to", next.Status, "message", next.Error)
	} else {
		log.Debug("session transition", "from", prev.Status, "to", next.Status)
	}

	s.notify(next)
}

func (s *Session) notify(st SessionState) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	for ch := range s.listeners {
		// Drop the stale buffered snapshot so the newest always fits.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}
