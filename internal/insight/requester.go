// Package insight asks a language model for analysis suggestions and data
// cleaning steps for a set of parsed tables.
//
// The model receives a short summary of each table (field names and a few
// sample rows) and must answer with JSON matching ResponseSchema. Transient
// failures are retried with bounded exponential backoff. Callers only ever
// see core.ErrAnalysisFailed; service detail goes to the log.
package insight

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/csvinsight/internal/core"
	"github.com/JonMunkholm/csvinsight/internal/logging"
)

// ErrTransient marks generator errors worth retrying (rate limits,
// overload, open circuit). Generators wrap it.
var ErrTransient = errors.New("transient model failure")

// Request is one structured generation call.
type Request struct {
	Model  string
	Prompt string
	Schema *Schema
}

// Generator produces JSON text for a request.
type Generator interface {
	GenerateJSON(ctx context.Context, req Request) (string, error)
}

// Defaults for Config fields left at zero.
const (
	DefaultRetryBaseDelay = time.Second
	DefaultRetryMaxDelay  = 8 * time.Second
)

// Config tunes the requester.
type Config struct {
	Model          string
	Language       string
	MaxRetries     int // additional attempts after the first; 0 disables retry
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// Requester implements core.Analyzer.
type Requester struct {
	gen    Generator
	cfg    Config
	tracer trace.Tracer
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRequester creates a requester that calls gen.
func NewRequester(gen Generator, cfg Config) *Requester {
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Requester{
		gen:    gen,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/JonMunkholm/csvinsight/internal/insight"),
		sleep:  sleepContext,
	}
}

// Analyze implements core.Analyzer.
func (r *Requester) Analyze(ctx context.Context, tables []core.ParsedTable) ([]core.Insight, error) {
	ctx, span := r.tracer.Start(ctx, "insight.analyze")
	defer span.End()

	span.SetAttributes(
		attribute.Int("tables", len(tables)),
		attribute.String("model", r.cfg.Model),
	)
	log := logging.WithFields(ctx, "model", r.cfg.Model, "tables", len(tables))

	insights, err := r.analyze(ctx, log, tables)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		log.Error("analysis request failed", "error", err)
		return nil, core.ErrAnalysisFailed
	}

	span.SetAttributes(attribute.Int("insights", len(insights)))
	return insights, nil
}

func (r *Requester) analyze(ctx context.Context, log *slog.Logger, tables []core.ParsedTable) ([]core.Insight, error) {
	prompt, err := BuildPrompt(Summarize(tables), r.cfg.Language)
	if err != nil {
		return nil, err
	}
	req := Request{Model: r.cfg.Model, Prompt: prompt, Schema: ResponseSchema()}

	text, err := r.generateWithRetry(ctx, log, req)
	if err != nil {
		return nil, err
	}

	insights, err := Decode(text)
	if err != nil {
		log.Debug("undecodable model response", "response", text)
		return nil, err
	}
	if len(insights) != len(tables) {
		log.Warn("insight count differs from table count", "insights", len(insights))
	}
	return insights, nil
}

func (r *Requester) generateWithRetry(ctx context.Context, log *slog.Logger, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := r.backoff(attempt)
			log.Warn("model request failed, retrying",
				"error", lastErr,
				"retry_attempt", attempt,
				"retry_max", r.cfg.MaxRetries,
				"retry_in_ms", wait.Milliseconds(),
			)
			if err := r.sleep(ctx, wait); err != nil {
				return "", errors.Join(lastErr, err)
			}
		}

		start := time.Now()
		text, err := r.gen.GenerateJSON(ctx, req)
		if err == nil {
			log.Debug("model request succeeded", "attempt", attempt+1, "duration_ms", time.Since(start).Milliseconds())
			return text, nil
		}
		lastErr = err
		if !errors.Is(err, ErrTransient) {
			break
		}
	}
	return "", lastErr
}

// backoff returns base * 2^(attempt-1), capped at the configured maximum.
func (r *Requester) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	if attempt > 30 {
		return r.cfg.RetryMaxDelay
	}
	wait := r.cfg.RetryBaseDelay * time.Duration(1<<uint(attempt-1))
	if wait > r.cfg.RetryMaxDelay || wait <= 0 {
		return r.cfg.RetryMaxDelay
	}
	return wait
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
