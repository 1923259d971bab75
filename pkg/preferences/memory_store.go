package preferences

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore implements RecipientStore, GroupStore and VersionSource for
// testing and local development. Writes bump the recipient version counters
// so cached readers observe the change, mirroring what the production
// configuration flow does against its storage.
type MemoryStore struct {
	mu         sync.RWMutex
	recipients map[uuid.UUID]Recipient
	groups     map[uuid.UUID]GroupDefaults
	versions   *MemoryVersions
}

// NewMemoryStore creates an empty in-memory preference store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recipients: make(map[uuid.UUID]Recipient),
		groups:     make(map[uuid.UUID]GroupDefaults),
		versions:   NewMemoryVersions(),
	}
}

// GetRecipient implements RecipientStore.
func (s *MemoryStore) GetRecipient(_ context.Context, id uuid.UUID) (*Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipients[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// GetGroupDefaults implements GroupStore.
func (s *MemoryStore) GetGroupDefaults(_ context.Context, groupID uuid.UUID) (*GroupDefaults, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

// SetRecipient stores a recipient record and bumps its preference version.
func (s *MemoryStore) SetRecipient(ctx context.Context, r Recipient) error {
	s.mu.Lock()
	s.recipients[r.ID] = r
	s.mu.Unlock()

	_, err := s.versions.Bump(ctx, r.ID)
	return err
}

// SetGroupDefaults stores group defaults and bumps the version of every
// recipient inheriting from that group.
func (s *MemoryStore) SetGroupDefaults(ctx context.Context, g GroupDefaults) error {
	s.mu.Lock()
	s.groups[g.GroupID] = g
	members := make([]uuid.UUID, 0)
	for id, r := range s.recipients {
		if r.GroupID == g.GroupID && !r.OverridesGroupDefault {
			members = append(members, id)
		}
	}
	s.mu.Unlock()

	for _, id := range members {
		if _, err := s.versions.Bump(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Current implements VersionSource.
func (s *MemoryStore) Current(ctx context.Context, recipientID uuid.UUID) (uint64, error) {
	return s.versions.Current(ctx, recipientID)
}

// Bump implements VersionSource.
func (s *MemoryStore) Bump(ctx context.Context, recipientID uuid.UUID) (uint64, error) {
	return s.versions.Bump(ctx, recipientID)
}
