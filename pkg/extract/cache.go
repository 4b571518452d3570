package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

// cached memoizes results per batch of files. Entries are keyed on the
// path list together with each file's size and modification time, so an
// edited document is re-extracted.
type cached struct {
	inner   Extractor
	results *expirable.LRU[string, any]
}

// Cached wraps inner with an expirable LRU of the given size. A size of zero
// or less returns inner unchanged.
func Cached(inner Extractor, size int, ttl time.Duration) Extractor {
	if size <= 0 {
		return inner
	}
	return &cached{
		inner:   inner,
		results: expirable.NewLRU[string, any](size, nil, ttl),
	}
}

func (c *cached) ProcessDocuments(ctx context.Context, paths []string) (any, error) {
	key, ok := cacheKey(paths)
	if !ok {
		return c.inner.ProcessDocuments(ctx, paths)
	}

	if result, hit := c.results.Get(key); hit {
		log.Debug().Int("documents", len(paths)).Msg("extraction cache hit")
		return result, nil
	}

	result, err := c.inner.ProcessDocuments(ctx, paths)
	if err != nil {
		return nil, err
	}
	c.results.Add(key, result)
	return result, nil
}

// cacheKey fingerprints the batch. It reports false when any file cannot be
// stat'ed; such batches are never cached.
func cacheKey(paths []string) (string, bool) {
	var sb strings.Builder
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return "", false
		}
		fmt.Fprintf(&sb, "%s\x00%d\x00%d\n", p, info.Size(), info.ModTime().UnixNano())
	}
	return sb.String(), true
}
