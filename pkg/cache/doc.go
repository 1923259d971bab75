// Package cache provides a generic, thread-safe LRU cache with optional
// per-entry expiry.
//
// The cache evicts the least recently used entry once capacity is reached,
// and lazily drops entries whose TTL has passed when they are next accessed.
// It backs the preference cache, where bounded memory and a hard freshness
// ceiling both matter.
//
// # Usage
//
//	c := cache.NewLRUCache[string, EffectivePreferences](1024)
//
//	// Entries without expiry
//	c.Put("recipient:123", prefs)
//
//	// Entries that stop being served after five minutes
//	c.PutTTL("recipient:456", prefs, 5*time.Minute)
//
//	prefs, ok := c.Get("recipient:456")
//
// An eviction callback can be registered with SetEvictCallback for values
// that hold resources needing cleanup. All operations are safe for
// concurrent use and run in O(1).
package cache
