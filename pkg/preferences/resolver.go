package preferences

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/colin-rod/tribe-mvp-sub000/pkg/cache"
)

// RecipientStore reads recipient preference records from external storage.
type RecipientStore interface {
	GetRecipient(ctx context.Context, id uuid.UUID) (*Recipient, error)
}

// GroupStore reads group-level default preferences from external storage.
type GroupStore interface {
	GetGroupDefaults(ctx context.Context, groupID uuid.UUID) (*GroupDefaults, error)
}

// VersionSource is the authoritative, monotonically increasing preference
// version per recipient. Any write to a recipient's or group's preference
// fields must bump it so concurrent cached readers recompute instead of
// serving stale data.
type VersionSource interface {
	Current(ctx context.Context, recipientID uuid.UUID) (uint64, error)
	Bump(ctx context.Context, recipientID uuid.UUID) (uint64, error)
}

// Resolver merges per-recipient overrides with group defaults into an
// effective preference set, memoized in a bounded TTL cache keyed by
// recipient and guarded by the version counter.
type Resolver struct {
	recipients RecipientStore
	groups     GroupStore
	versions   VersionSource
	cache      *cache.LRUCache[uuid.UUID, EffectivePreferences]
	ttl        time.Duration
	logger     *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*resolverOptions)

type resolverOptions struct {
	cacheSize int
	cacheTTL  time.Duration
	logger    *slog.Logger
}

// WithCacheSize bounds the number of cached preference entries.
func WithCacheSize(n int) ResolverOption {
	return func(o *resolverOptions) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

// WithCacheTTL sets how long a cache entry may be served before recompute.
func WithCacheTTL(ttl time.Duration) ResolverOption {
	return func(o *resolverOptions) {
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// WithLogger sets the resolver logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(o *resolverOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewResolver creates a preference resolver backed by the given stores.
func NewResolver(recipients RecipientStore, groups GroupStore, versions VersionSource, opts ...ResolverOption) (*Resolver, error) {
	if recipients == nil || groups == nil {
		return nil, ErrStoreNil
	}
	if versions == nil {
		return nil, ErrVersionSourceNil
	}

	options := &resolverOptions{
		cacheSize: 1024,
		cacheTTL:  5 * time.Minute,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Resolver{
		recipients: recipients,
		groups:     groups,
		versions:   versions,
		cache:      cache.NewLRUCache[uuid.UUID, EffectivePreferences](options.cacheSize),
		ttl:        options.cacheTTL,
		logger:     options.logger,
	}, nil
}

// Resolve returns the effective preferences for a recipient. A cached entry
// is served only when it is both newer than the authoritative version and
// inside its TTL; otherwise the entry is recomputed from the stores.
func (r *Resolver) Resolve(ctx context.Context, recipientID uuid.UUID) (EffectivePreferences, error) {
	version, err := r.versions.Current(ctx, recipientID)
	if err != nil {
		return EffectivePreferences{}, fmt.Errorf("failed to read preference version for %s: %w", recipientID, err)
	}

	if cached, ok := r.cache.Get(recipientID); ok {
		if cached.CacheVersion == version && time.Now().Before(cached.ExpiresAt) {
			return cached, nil
		}
		r.logger.DebugContext(ctx, "stale preference cache entry, recomputing",
			slog.String("recipient_id", recipientID.String()),
			slog.Uint64("cached_version", cached.CacheVersion),
			slog.Uint64("current_version", version))
	}

	eff, err := r.compute(ctx, recipientID, version)
	if err != nil {
		return EffectivePreferences{}, err
	}

	r.cache.PutTTL(recipientID, eff, r.ttl)
	return eff, nil
}

// Invalidate bumps the recipient's preference version and drops any cached
// entry, forcing the next Resolve to recompute. Call it after every write to
// the recipient's or their group's preference fields.
func (r *Resolver) Invalidate(ctx context.Context, recipientID uuid.UUID) error {
	if _, err := r.versions.Bump(ctx, recipientID); err != nil {
		return fmt.Errorf("failed to bump preference version for %s: %w", recipientID, err)
	}
	r.cache.Remove(recipientID)
	return nil
}

func (r *Resolver) compute(ctx context.Context, recipientID uuid.UUID, version uint64) (EffectivePreferences, error) {
	recipient, err := r.recipients.GetRecipient(ctx, recipientID)
	if err != nil {
		return EffectivePreferences{}, fmt.Errorf("failed to load recipient %s: %w", recipientID, err)
	}
	if recipient == nil {
		return EffectivePreferences{}, ErrRecipientNotFound
	}

	now := time.Now()
	eff := EffectivePreferences{
		RecipientID:  recipient.ID,
		GroupID:      recipient.GroupID,
		IsActive:     recipient.IsActive,
		MutedUntil:   recipient.MutedUntil,
		QuietHours:   recipient.QuietHours,
		CacheVersion: version,
		ExpiresAt:    now.Add(r.ttl),
	}
	if recipient.MutedUntil != nil && recipient.MutedUntil.After(now) {
		eff.IsMuted = true
	}

	if recipient.OverridesGroupDefault {
		eff.Source = SourceRecipientOverride
		eff.Channels = recipient.Channels
		eff.ContentTypes = recipient.ContentTypes
		eff.Frequency = recipient.Frequency
		return eff, nil
	}

	defaults, err := r.groups.GetGroupDefaults(ctx, recipient.GroupID)
	if err != nil {
		return EffectivePreferences{}, fmt.Errorf("failed to load group defaults for %s: %w", recipient.GroupID, err)
	}
	if defaults == nil {
		return EffectivePreferences{}, ErrGroupNotFound
	}

	eff.Source = SourceGroupDefault
	eff.Channels = defaults.Channels
	eff.ContentTypes = defaults.ContentTypes
	eff.Frequency = defaults.Frequency
	return eff, nil
}
