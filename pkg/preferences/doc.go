// Package preferences merges per-recipient notification overrides with group
// defaults into an effective preference set.
//
// Resolution reads the recipient record; when it overrides the group default
// its own channel, content-type and frequency settings win, otherwise the
// owning group's defaults are inherited. A recipient muted until a future
// instant resolves with IsMuted set.
//
// Results are memoized in a bounded LRU cache with a TTL and a per-recipient
// version counter. The counter is the authority: any preference write bumps
// it, and a cached entry behind the counter is recomputed even when its TTL
// has not yet passed. VersionSource implementations are provided in-memory
// and on Redis; the Redis one makes invalidations visible across processes.
//
//	resolver, err := preferences.NewResolver(store, store, store,
//		preferences.WithCacheTTL(5*time.Minute),
//	)
//	eff, err := resolver.Resolve(ctx, recipientID)
package preferences
