// Package botinfo caches the bot's own identity (nickname, user id) as
// last reported by get_login_info, refreshed on every lifecycle
// connect event.
package botinfo

import "sync"

// Cache is a concurrency-safe snapshot of the bot's identity.
type Cache struct {
	mu       sync.RWMutex
	nickname string
	userID   int64
}

// New builds an empty Cache.
func New() *Cache {
	return &Cache{}
}

// Set replaces the cached identity. Satisfies onebot.BotInfoCache.
func (c *Cache) Set(nickname string, userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nickname = nickname
	c.userID = userID
}

// Get returns the cached identity. ok is false until the first
// successful refresh.
func (c *Cache) Get() (nickname string, userID int64, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nickname, c.userID, c.userID != 0
}
