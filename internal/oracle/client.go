package oracle

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/robomaint/triage/internal/model"
)

// Client is the production Oracle: an optional text generator fronted by a
// bounded response cache. A nil generator means the oracle is unavailable and
// every Analyze call answers from the heuristic — same shape, no special
// casing downstream.
type Client struct {
	gen   TextGenerator
	cache *responseCache
	log   *logrus.Logger
}

func NewClient(gen TextGenerator, cacheSize int, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		gen:   gen,
		cache: newResponseCache(cacheSize),
		log:   log,
	}
}

func (c *Client) Available() bool { return c.gen != nil }

func (c *Client) Analyze(ctx context.Context, rec *model.Record, similar []model.Match, kind TemplateKind) (Analysis, error) {
	if !c.Available() {
		return Heuristic(rec, similar), nil
	}

	// Only the triage template is cached; other templates carry
	// caller-specific context that must not be replayed.
	var key string
	if kind == TemplateTriage {
		key = fingerprint(rec)
		if a, ok := c.cache.get(key); ok {
			c.log.WithField("record_id", rec.RecordID).Debug("oracle cache hit")
			return a, nil
		}
	}

	prompt := BuildPrompt(rec, similar, kind)
	text, err := c.gen.GenerateText(ctx, prompt)
	if err != nil {
		return Analysis{}, fmt.Errorf("oracle call: %w", err)
	}

	a := ParseResponse(text, rec)
	if key != "" {
		c.cache.put(key, a)
	}
	return a, nil
}

func (c *Client) CacheStats() CacheStats { return c.cache.stats() }
