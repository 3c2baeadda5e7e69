package memory

import (
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// SummaryCache keeps generated chat summaries in memory so repeated
// /summary calls do not hit the language model for an unchanged chat.
// Entries are invalidated on every message write to the chat.
type SummaryCache struct {
	cache *gocache.Cache
}

func NewSummaryCache(ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *SummaryCache) Get(chatId uuid.UUID) (string, bool) {
	v, found := c.cache.Get(chatId.String())
	if !found {
		return "", false
	}
	summary, ok := v.(string)
	return summary, ok
}

func (c *SummaryCache) Set(chatId uuid.UUID, summary string) {
	c.cache.SetDefault(chatId.String(), summary)
}

func (c *SummaryCache) Invalidate(chatId uuid.UUID) {
	c.cache.Delete(chatId.String())
}
