package llm

import (
	"context"
	"iter"
	"time"
)

// Defaults are the configured fallbacks applied to every call on a provider.
type Defaults struct {
	// Temperature is used when a call does not set one.
	Temperature *float64
	// MaxTokens is used when a call does not set a positive cap.
	MaxTokens int
	// RequestTimeout bounds a single-shot Complete. Streams are bounded by
	// the caller's context only.
	RequestTimeout time.Duration
}

type defaulted struct {
	Provider
	d Defaults
}

// WithDefaults wraps p so that calls fall back to d.
func WithDefaults(p Provider, d Defaults) Provider {
	if p == nil {
		return nil
	}
	return &defaulted{Provider: p, d: d}
}

func (p *defaulted) options(opts Options) Options {
	if opts.Temperature == nil && p.d.Temperature != nil {
		opts.Temperature = Temperature(*p.d.Temperature)
	}
	if opts.MaxTokens <= 0 && p.d.MaxTokens > 0 {
		opts.MaxTokens = p.d.MaxTokens
	}
	return opts
}

func (p *defaulted) Complete(ctx context.Context, prompt string, opts Options) (*Result, error) {
	if p.d.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.d.RequestTimeout)
		defer cancel()
	}
	return p.Provider.Complete(ctx, prompt, p.options(opts))
}

func (p *defaulted) RawStream(ctx context.Context, prompt string, opts Options) iter.Seq2[RawEvent, error] {
	return p.Provider.RawStream(ctx, prompt, p.options(opts))
}
