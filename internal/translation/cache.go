// Package translation lazily caches secondary-language renderings of messages.
package translation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rbright/kaiwa/internal/conversation"
)

const defaultConcurrency = 4

var errEmptyTranslation = errors.New("empty translation")

// Translator renders text into a target language.
type Translator interface {
	Translate(ctx context.Context, text string, target string) (string, error)
}

// Cache maps a message identity to its rendering in one target language.
// Entries never expire within a session.
type Cache struct {
	translator  Translator
	target      conversation.Language
	concurrency int
	logger      *slog.Logger

	entries *gocache.Cache
	flight  singleflight.Group
}

// New constructs a cache fronting translator for the target language.
func New(translator Translator, target conversation.Language, concurrency int, logger *slog.Logger) *Cache {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		translator:  translator,
		target:      target,
		concurrency: concurrency,
		logger:      logger,
		entries:     gocache.New(gocache.NoExpiration, 0),
	}
}

// Target returns the language this cache renders into.
func (c *Cache) Target() conversation.Language {
	return c.target
}

// Lookup returns a cached rendering without calling the translator.
func (c *Cache) Lookup(id string) (string, bool) {
	v, ok := c.entries.Get(id)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Get returns the rendering for msg, calling the translator on a miss.
// Failures are not cached so a later call may retry.
func (c *Cache) Get(ctx context.Context, msg conversation.Message) (string, bool) {
	if text, ok := c.Lookup(msg.ID); ok {
		return text, true
	}
	if strings.TrimSpace(msg.Text) == "" {
		return "", false
	}

	v, err, _ := c.flight.Do(msg.ID, func() (any, error) {
		if text, ok := c.Lookup(msg.ID); ok {
			return text, nil
		}
		text, err := c.translator.Translate(ctx, msg.Text, string(c.target))
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", errEmptyTranslation
		}
		c.entries.Set(msg.ID, text, gocache.NoExpiration)
		return text, nil
	})
	if err != nil {
		c.logger.Warn("translation failed", "message_id", msg.ID, "target", c.target, "error", err.Error())
		return "", false
	}
	return v.(string), true
}

// Backfill fills every message lacking a rendering and returns the renderings
// now available, keyed by message identity. Cached messages cost no call.
func (c *Cache) Backfill(ctx context.Context, messages []conversation.Message) map[string]string {
	var (
		mu     sync.Mutex
		filled = make(map[string]string, len(messages))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, msg := range messages {
		if text, ok := c.Lookup(msg.ID); ok {
			mu.Lock()
			filled[msg.ID] = text
			mu.Unlock()
			continue
		}
		if strings.TrimSpace(msg.Text) == "" {
			continue
		}

		g.Go(func() error {
			text, ok := c.Get(gctx, msg)
			if !ok {
				return nil
			}
			mu.Lock()
			filled[msg.ID] = text
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return filled
}
