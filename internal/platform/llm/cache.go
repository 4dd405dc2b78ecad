package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/platform/kv"
)

const cachePrefix = "llm:"

// CachedClient memoises completions in the kv store so identical requests are
// answered without calling the provider again.
type CachedClient struct {
	next   Client
	store  *kv.Store
	model  string
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedClient(next Client, store *kv.Store, model string, ttl time.Duration, logger zerolog.Logger) *CachedClient {
	return &CachedClient{
		next:   next,
		store:  store,
		model:  model,
		ttl:    ttl,
		logger: logger.With().Str("component", "llm_cache").Logger(),
	}
}

func (c *CachedClient) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	key := CacheKey(c.model, req)

	if data, err := c.store.Get(key); err == nil {
		c.logger.Debug().Str("key", key).Msg("cache hit")
		return json.RawMessage(data), nil
	} else if !errors.Is(err, kv.ErrNotFound) {
		c.logger.Warn().Err(err).Msg("cache read failed")
	}

	out, err := c.next.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.store.Put(key, out, c.ttl); err != nil {
		c.logger.Warn().Err(err).Msg("cache write failed")
	}
	return out, nil
}

// CacheKey hashes every input that can change the completion.
func CacheKey(model string, req Request) string {
	h := sha256.New()
	for _, part := range []string{model, req.System, req.Prompt, string(req.Schema)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	for _, u := range req.ImageURLs {
		h.Write([]byte(u))
		h.Write([]byte{0})
	}
	return cachePrefix + hex.EncodeToString(h.Sum(nil))
}

// Forget drops the cached completion for req, for replies that turned out
// to be unusable.
func (c *CachedClient) Forget(req Request) {
	if err := c.store.Delete(CacheKey(c.model, req)); err != nil {
		c.logger.Warn().Err(err).Msg("cache delete failed")
	}
}

// PurgeExpired removes completions past their TTL.
func (c *CachedClient) PurgeExpired() (int, error) {
	return c.store.PurgeExpired(cachePrefix)
}
