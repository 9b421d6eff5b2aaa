// Package analysis asks a remote model for an investment narrative and
// derives an integer grade from it.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"estate-advisor/internal/listing"
)

// FallbackNarrative is returned in place of a narrative when the remote
// analysis call fails. Fallback results are never persisted or cached.
const FallbackNarrative = "Ошибка при запросе к сервису анализа. Попробуйте позже."

const DefaultTimeout = 60 * time.Second

// Result is one completed analysis. Grade is only meaningful when Fallback
// is false.
type Result struct {
	Narrative string
	Grade     int
	Fallback  bool
}

type Client struct {
	caller  Caller
	cache   *MemoCache
	grader  Grader
	timeout time.Duration
	log     zerolog.Logger
}

func NewClient(caller Caller, cache *MemoCache, grader Grader, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{caller: caller, cache: cache, grader: grader, timeout: timeout, log: log}
}

// Analyze produces a narrative and grade for one listing. Remote failures
// are soft: the fixed fallback narrative comes back with Fallback set, and
// the caller decides how the turn proceeds. Identical records within the
// cache window reuse the memoized narrative without a remote call.
func (c *Client) Analyze(ctx context.Context, rec listing.Record) Result {
	key := rec.CacheKey()
	if narrative, ok := c.cache.Get(key); ok {
		return Result{Narrative: narrative, Grade: c.grader.Grade(narrative)}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	narrative, err := c.caller.Generate(callCtx, BuildPrompt(rec))
	if err != nil {
		c.log.Error().
			Err(err).
			Str("failure_class", string(classifyTransportError(err))).
			Str("location", rec.Location).
			Msg("remote analysis failed")
		return Result{Narrative: FallbackNarrative, Fallback: true}
	}
	if narrative == "" {
		c.log.Error().Str("location", rec.Location).Msg("remote analysis returned empty narrative")
		return Result{Narrative: FallbackNarrative, Fallback: true}
	}

	c.cache.Put(key, narrative)
	return Result{Narrative: narrative, Grade: c.grader.Grade(narrative)}
}

// BuildPrompt embeds the four listing fields into the fixed four-dimension
// analysis request.
func BuildPrompt(rec listing.Record) string {
	return fmt.Sprintf(`Проведи инвестиционный анализ объекта недвижимости:
Локация: %s
Площадь: %g м²
Цена: %d руб
Тип: %s

Проанализируй:
1. Рыночную стоимость
2. Арендный потенциал
3. Тренды района
4. Риски инвестиций`, rec.Location, rec.Area, rec.Price, rec.PropertyType)
}
