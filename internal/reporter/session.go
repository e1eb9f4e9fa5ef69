package reporter

import (
	"time"

	"github.com/patrickmn/go-cache"
)

var _ Session = (*CacheSession)(nil)

// CacheSession keeps flags until ttl passes, which ends the session.
// A ttl of 0 keeps them for the life of the process.
type CacheSession struct {
	cache *cache.Cache
}

func NewCacheSession(ttl time.Duration) *CacheSession {
	if ttl <= 0 {
		return &CacheSession{cache: cache.New(cache.NoExpiration, 0)}
	}
	return &CacheSession{cache: cache.New(ttl, ttl)}
}

func (s *CacheSession) Flag(key string) bool {
	_, ok := s.cache.Get(key)
	return ok
}

func (s *CacheSession) SetFlag(key string) {
	s.cache.Set(key, "1", cache.DefaultExpiration)
}
