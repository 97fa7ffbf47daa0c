// Package gemini is the language-model client used for analysis. It sends
// structured-output requests through the genai SDK behind a circuit breaker
// and maps service failures onto a small set of sentinel errors.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/JonMunkholm/csvinsight/internal/insight"
)

var (
	ErrUnauthorized  = errors.New("gemini unauthorized")
	ErrRateLimited   = fmt.Errorf("gemini rate limited: %w", insight.ErrTransient)
	ErrUnavailable   = fmt.Errorf("gemini unavailable: %w", insight.ErrTransient)
	ErrEmptyResponse = errors.New("gemini empty response")
)

// Config configures the client.
type Config struct {
	APIKey          string
	RequestTimeout  time.Duration
	BreakerFailures uint32        // consecutive transient failures that open the breaker
	BreakerCooldown time.Duration // how long the breaker stays open
}

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Client implements insight.Generator.
type Client struct {
	generate generateFunc
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker
	tracer   trace.Tracer
}

// New creates a client for the Gemini API.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: API key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return newClient(gc.Models.GenerateContent, cfg), nil
}

func newClient(generate generateFunc, cfg Config) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 120 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// Only service-side trouble counts against the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, insight.ErrTransient)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &Client{
		generate: generate,
		timeout:  cfg.RequestTimeout,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		tracer:   otel.Tracer("github.com/JonMunkholm/csvinsight/internal/gemini"),
	}
}

// GenerateJSON implements insight.Generator.
func (c *Client) GenerateJSON(ctx context.Context, req insight.Request) (string, error) {
	ctx, span := c.tracer.Start(ctx, "gemini.generate_content")
	defer span.End()

	span.SetAttributes(
		attribute.String("model", req.Model),
		attribute.Int("prompt_chars", len(req.Prompt)),
	)

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toGenaiSchema(req.Schema),
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.generate(callCtx, req.Model, genai.Text(req.Prompt), config)
		if err != nil {
			return nil, classify(err)
		}
		if resp == nil {
			return nil, ErrEmptyResponse
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return nil, ErrEmptyResponse
		}
		return text, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate content failed")
		return "", err
	}

	text := result.(string)
	span.SetAttributes(attribute.Int("response_chars", len(text)))
	return text, nil
}

// BreakerState reports the circuit breaker state for health output.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// classify maps SDK and transport errors onto the package sentinels,
// keeping the original error text for the log.
func classify(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}

	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case code == 0 && errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func toGenaiSchema(s *insight.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:             toGenaiType(s.Type),
		Description:      s.Description,
		Items:            toGenaiSchema(s.Items),
		Required:         s.Required,
		PropertyOrdering: s.PropertyOrdering,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toGenaiSchema(p)
		}
	}
	return out
}

func toGenaiType(t string) genai.Type {
	switch t {
	case insight.TypeArray:
		return genai.TypeArray
	case insight.TypeObject:
		return genai.TypeObject
	case insight.TypeString:
		return genai.TypeString
	default:
		return genai.TypeUnspecified
	}
}
