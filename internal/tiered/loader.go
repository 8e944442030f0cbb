// Package tiered loads a payload from a ranked list of sources, falling back
// to a built-in default when every source fails.
package tiered

import (
	"context"
	"errors"
	"fmt"

	"foryou/internal/domain"
	"foryou/internal/logger"
)

// ErrUnavailable reports that a source cannot be used in the current environment.
var ErrUnavailable = errors.New("source unavailable")

// RetrieveFunc fetches the raw payload of a source.
type RetrieveFunc func(ctx context.Context) ([]byte, error)

// Source is one ranked data source.
type Source struct {
	Name     string
	Retrieve RetrieveFunc
}

// ParseFunc decodes a raw payload.
type ParseFunc[T any] func(raw []byte) (T, error)

// Loader tries sources in order and returns the first parsed payload.
type Loader[T any] struct {
	sources  []Source
	parse    ParseFunc[T]
	fallback T
	log      *logger.Logger
}

// NewLoader creates a Loader. A nil log discards diagnostics.
func NewLoader[T any](sources []Source, parse ParseFunc[T], defaultValue T, log *logger.Logger) *Loader[T] {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader[T]{
		sources:  sources,
		parse:    parse,
		fallback: defaultValue,
		log:      log.WithComponent("tiered"),
	}
}

// Load runs one pass over the sources. Each source is attempted once.
func (l *Loader[T]) Load(ctx context.Context) T {
	for _, source := range l.sources {
		value, err := l.try(ctx, source)
		if err == nil {
			l.log.Debug("source loaded", map[string]interface{}{logger.FieldSource: source.Name})
			return value
		}

		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			l.log.WithError(parseErr.Err).Error("source payload is malformed", map[string]interface{}{
				logger.FieldSource: source.Name,
				logger.FieldReason: domain.ErrorCodeParse,
			})
			continue
		}
		l.log.WithError(err).Warn("source retrieval failed", map[string]interface{}{
			logger.FieldSource: source.Name,
			logger.FieldReason: domain.ErrorCodeRetrieval,
		})
	}

	l.log.Info("all sources failed, using default")
	return l.fallback
}

func (l *Loader[T]) try(ctx context.Context, source Source) (T, error) {
	var zero T
	if source.Retrieve == nil {
		return zero, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	raw, err := source.Retrieve(ctx)
	if err != nil {
		return zero, err
	}

	value, err := l.parse(raw)
	if err != nil {
		return zero, &ParseError{Source: source.Name, Err: err}
	}
	return value, nil
}

// Load is a one-shot form of Loader.Load.
func Load[T any](ctx context.Context, log *logger.Logger, sources []Source, parse ParseFunc[T], defaultValue T) T {
	return NewLoader(sources, parse, defaultValue, log).Load(ctx)
}

// ParseError wraps a payload decoding failure.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s payload: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
