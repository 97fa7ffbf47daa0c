package core

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultAnalysisTimeout bounds one analyze run when Options leaves it unset.
const DefaultAnalysisTimeout = 5 * time.Minute

// Deps are the collaborators shared by every session.
type Deps struct {
	Parser   Parser
	Analyzer Analyzer
	Exporter Exporter
	Gate     *Gate
	Limiter  *AnalysisLimiter // optional, defaults to NewAnalysisLimiter(0, 0)
	Recorder Recorder         // optional
}

// Options tune the analyze pipeline.
type Options struct {
	AnalysisTimeout time.Duration

	// MaxSessions caps live sessions created by GetOrCreate. Zero means no cap.
	MaxSessions int
}

// Service owns the session store and the pipeline dependencies.
// Session operations live on *Session; Service adds lifecycle and health.
type Service struct {
	*Store

	parser   Parser
	analyzer Analyzer
	exporter Exporter
	gate     *Gate
	limiter  *AnalysisLimiter
	recorder Recorder
	opts     Options
}

// NewService wires the dependencies and subscribes to gate failure so every
// session, live or future, enters the error state if capabilities fail to load.
func NewService(deps Deps, opts Options) (*Service, error) {
	switch {
	case deps.Parser == nil:
		return nil, errors.New("core: parser is required")
	case deps.Analyzer == nil:
		return nil, errors.New("core: analyzer is required")
	case deps.Exporter == nil:
		return nil, errors.New("core: exporter is required")
	case deps.Gate == nil:
		return nil, errors.New("core: gate is required")
	}

	if deps.Limiter == nil {
		deps.Limiter = NewAnalysisLimiter(0, 0)
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if opts.AnalysisTimeout <= 0 {
		opts.AnalysisTimeout = DefaultAnalysisTimeout
	}

	svc := &Service{
		parser:   deps.Parser,
		analyzer: deps.Analyzer,
		exporter: deps.Exporter,
		gate:     deps.Gate,
		limiter:  deps.Limiter,
		recorder: deps.Recorder,
		opts:     opts,
	}
	svc.Store = newStore(func(id string) *Session {
		return newSession(id, svc)
	})

	svc.gate.OnFailure(func(err error) {
		slog.Error("capabilities failed to load, failing all sessions", "error", err, "sessions", svc.Len())
		svc.each(func(s *Session) {
			s.failInit(context.Background())
		})
	})

	return svc, nil
}

// Create registers a new session. It shadows Store.Create so a session
// created while the gate is failing still ends up in the error state.
func (svc *Service) Create() *Session {
	s := svc.Store.Create()
	if svc.gate.Err() != nil {
		s.failInit(context.Background())
	}
	return s
}

// GetOrCreate returns the session with the given ID, or a new one if the ID
// is empty or unknown. created reports which happened. Creation fails with
// ErrTooManySessions once MaxSessions are live.
func (svc *Service) GetOrCreate(id string) (s *Session, created bool, err error) {
	if id != "" {
		if s, err := svc.Get(id); err == nil {
			return s, false, nil
		}
	}

	s, err = svc.createBounded(svc.opts.MaxSessions)
	if err != nil {
		return nil, false, err
	}
	if svc.gate.Err() != nil {
		s.failInit(context.Background())
	}
	return s, true, nil
}

// InitialState is the snapshot a session created now would start with. It
// stands in for requests that only read and carry no session.
func (svc *Service) InitialState() SessionState {
	if svc.gate.Err() != nil {
		return SessionState{Status: StatusError, Error: MsgCapabilityLoadFailed}
	}
	return SessionState{Status: StatusIdle}
}

// readiness maps the gate state to the error a gated operation returns.
func (svc *Service) readiness() error {
	if svc.gate.Ready() {
		return nil
	}
	if svc.gate.Err() != nil {
		return ErrInitFailed
	}
	return ErrNotReady
}

// Ready reports whether all capabilities are loaded.
func (svc *Service) Ready() bool {
	return svc.gate.Ready()
}

// GateErr returns the capability load failure, if any.
func (svc *Service) GateErr() error {
	return svc.gate.Err()
}

// LimiterStatus reports analysis slot usage.
func (svc *Service) LimiterStatus() LimiterStatus {
	return svc.limiter.Status()
}

// WaitForAnalyses blocks until no analysis is running or ctx ends.
// Used during graceful shutdown.
func (svc *Service) WaitForAnalyses(ctx context.Context) error {
	return svc.limiter.WaitForDrain(ctx)
}
