// Package feedback produces written feedback on storytelling content: a
// single block response or the full text of a draft. Gemini is used when an
// API key is configured; a rule-based generator covers development and
// serves as the fallback when Gemini fails.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/admitai/admitai-korea/internal/config"
	"github.com/admitai/admitai-korea/internal/telemetry"
)

// Kind selects what the feedback is about
type Kind string

const (
	// KindBlock reviews one story block response.
	KindBlock Kind = "block"
	// KindCulturalFit reviews how a whole draft presents the writer's Korean
	// background to U.S. admissions readers.
	KindCulturalFit Kind = "cultural_fit"
)

// ErrEmptyText is returned when there is nothing to review.
var ErrEmptyText = errors.New("feedback: text is empty")

// Request is one feedback call
type Request struct {
	Kind Kind
	Text string
	// Language is "KO" or "EN"; empty means EN.
	Language string
}

// Generator writes feedback for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	// Provider names the backing implementation for logs and metrics.
	Provider() string
}

// Status is reported by GET /ai/status.
type Status struct {
	Configured bool   `json:"configured"`
	Model      string `json:"model"`
	Message    string `json:"message"`
}

// New builds the generator selected by cfg. With provider "gemini" and
// Fallback set, Gemini errors are answered by the heuristic generator.
func New(ctx context.Context, cfg config.AIConfig) (Generator, Status, error) {
	switch cfg.Provider {
	case "heuristic", "":
		return Instrument(NewHeuristic()), Status{
			Configured: true,
			Model:      "heuristic",
			Message:    "Rule-based feedback is active; set ai.provider=gemini for model feedback",
		}, nil

	case "gemini":
		gem, err := NewGemini(ctx, cfg)
		if err != nil {
			return nil, Status{Model: cfg.Model, Message: err.Error()}, err
		}
		var gen Generator = Instrument(gem)
		msg := "Gemini feedback is active"
		if cfg.Fallback {
			gen = &Fallback{Primary: gen, Secondary: Instrument(NewHeuristic())}
			msg += " with rule-based fallback"
		}
		return gen, Status{Configured: true, Model: gem.Model(), Message: msg}, nil

	default:
		return nil, Status{}, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

// Fallback asks Secondary when Primary fails.
type Fallback struct {
	Primary   Generator
	Secondary Generator
}

// Generate implements Generator
func (f *Fallback) Generate(ctx context.Context, req Request) (string, error) {
	out, err := f.Primary.Generate(ctx, req)
	if err == nil || errors.Is(err, ErrEmptyText) || ctx.Err() != nil {
		return out, err
	}
	slog.Warn("feedback provider failed, using fallback",
		"provider", f.Primary.Provider(), "fallback", f.Secondary.Provider(), "kind", req.Kind, "error", err)
	return f.Secondary.Generate(ctx, req)
}

// Provider implements Generator
func (f *Fallback) Provider() string {
	return f.Primary.Provider() + "+" + f.Secondary.Provider()
}

type instrumented struct {
	next Generator
}

// Instrument records request counts and latency for g.
func Instrument(g Generator) Generator {
	return &instrumented{next: g}
}

func (i *instrumented) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", ErrEmptyText
	}
	provider := i.next.Provider()
	start := time.Now()
	out, err := i.next.Generate(ctx, req)
	telemetry.AIFeedbackDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	telemetry.AIFeedbackRequestsTotal.WithLabelValues(string(req.Kind), provider, outcome).Inc()
	return out, err
}

func (i *instrumented) Provider() string {
	return i.next.Provider()
}

func korean(lang string) bool {
	return strings.EqualFold(lang, "KO")
}
