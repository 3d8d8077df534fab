package llm

import (
	"context"
	"iter"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

// Options carries per-call overrides. Zero values fall back to provider defaults.
type Options struct {
	Model       string
	Temperature *float64
	MaxTokens   int
}

// ModelOr returns the requested model or def when none was requested.
func (o Options) ModelOr(def string) string {
	if o.Model != "" {
		return o.Model
	}
	return def
}

// TemperatureOr returns the requested temperature or def.
func (o Options) TemperatureOr(def float64) float64 {
	if o.Temperature != nil {
		return *o.Temperature
	}
	return def
}

// MaxTokensOr returns the requested token cap or def.
func (o Options) MaxTokensOr(def int) int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return def
}

// Temperature is a convenience for building Options literals.
func Temperature(t float64) *float64 {
	return &t
}

// Result is the outcome of a single-shot completion
type Result struct {
	Text           string
	Provider       string
	Model          string
	PromptTokens   int
	ResponseTokens int
	LatencyMs      int64
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Complete runs a single-shot completion.
	Complete(ctx context.Context, prompt string, opts Options) (*Result, error)

	// RawStream yields the vendor's streaming output in one of the RawEvent
	// shapes. Callers normally consume it through Stream.
	RawStream(ctx context.Context, prompt string, opts Options) iter.Seq2[RawEvent, error]
}

// Factory builds a provider from its credential (API key or host).
type Factory func(credential string) Provider
