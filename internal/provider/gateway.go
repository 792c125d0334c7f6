package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Result is the gateway's successful outcome: the image plus which backend
// produced it.
type Result struct {
	Image *Image
	Tag   string
}

// Attempt records one failed provider call inside an ExhaustedError.
type Attempt struct {
	Tag string
	Err error
}

// ExhaustedError aggregates the failures of every configured provider. The
// caller must not charge a credit for this outcome.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Tag, a.Err))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// Gateway tries an ordered list of providers and returns the first success.
type Gateway struct {
	providers []Provider
	log       *slog.Logger
}

func NewGateway(providers []Provider, log *slog.Logger) (*Gateway, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	return &Gateway{providers: providers, log: log}, nil
}

// Generate walks the provider list in priority order. Any failure (transport
// error, non-200 status, malformed payload) moves on to the next provider;
// only when every backend has failed does the caller see an *ExhaustedError.
func (g *Gateway) Generate(ctx context.Context, prompt string) (*Result, error) {
	var attempts []Attempt
	for _, p := range g.providers {
		img, err := p.Generate(ctx, prompt)
		if err != nil {
			g.log.Warn("provider attempt failed", "provider", p.Tag(), "err", err)
			attempts = append(attempts, Attempt{Tag: p.Tag(), Err: err})
			if ctx.Err() != nil {
				break
			}
			continue
		}
		g.log.Info("provider attempt succeeded", "provider", p.Tag(), "bytes", len(img.Data))
		return &Result{Image: img, Tag: p.Tag()}, nil
	}
	return nil, &ExhaustedError{Attempts: attempts}
}
