// Package extract defines the contract between the service shell and the
// component that turns document files into knowledge.
package extract

import (
	"context"
	"strings"
)

// Extractor processes a batch of document paths and returns a
// JSON-serializable result. The shape of the result belongs to the
// implementation; callers pass it through untouched.
type Extractor interface {
	ProcessDocuments(ctx context.Context, paths []string) (any, error)
}

// ExtractorFunc adapts a plain function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, paths []string) (any, error)

func (f ExtractorFunc) ProcessDocuments(ctx context.Context, paths []string) (any, error) {
	return f(ctx, paths)
}

// NormalizePath rewrites every backslash to a forward slash.
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

// NormalizePaths normalizes each path, preserving order. It never returns nil.
func NormalizePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, NormalizePath(p))
	}
	return out
}

// serialized guards an extractor that is not known to be safe for concurrent
// use. The single-slot semaphore lets a waiting caller give up when its
// context ends.
type serialized struct {
	sem   chan struct{}
	inner Extractor
}

// Serialized wraps inner so that at most one ProcessDocuments call runs at a time.
func Serialized(inner Extractor) Extractor {
	return &serialized{sem: make(chan struct{}, 1), inner: inner}
}

func (s *serialized) ProcessDocuments(ctx context.Context, paths []string) (any, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.inner.ProcessDocuments(ctx, paths)
}
