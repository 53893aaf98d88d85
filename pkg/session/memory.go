package session

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/linkit-hq/linkit-engine/pkg/models"
)

type memoryStore struct {
	cache *cache.Cache
	ttl   time.Duration

	mu    sync.Mutex
	locks map[string]*keyLock // only keys with a holder or waiter
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewMemoryStore creates a process-local store. A zero ttl keeps feeds until Clear.
func NewMemoryStore(ttl time.Duration) Store {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl / 2
	}
	return &memoryStore{
		cache: cache.New(expiration, cleanup),
		ttl:   expiration,
		locks: make(map[string]*keyLock),
	}
}

var _ Store = (*memoryStore)(nil)

func feedKey(key Key, kind models.FeedKind) string {
	return "feed:" + key.String() + ":" + string(kind)
}

// lock serializes access to one feed key. The entry is dropped when the last
// holder releases it, so expired sessions leave nothing behind.
func (s *memoryStore) lock(k string) func() {
	s.mu.Lock()
	l, ok := s.locks[k]
	if !ok {
		l = &keyLock{}
		s.locks[k] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, k)
		}
		s.mu.Unlock()
	}
}

func (s *memoryStore) SaveFeed(_ context.Context, key Key, state *FeedState) error {
	k := feedKey(key, state.Kind)
	unlock := s.lock(k)
	defer unlock()

	s.cache.Set(k, state.Clone(), s.ttl)
	return nil
}

func (s *memoryStore) LoadFeed(_ context.Context, key Key, kind models.FeedKind) (*FeedState, error) {
	v, ok := s.cache.Get(feedKey(key, kind))
	if !ok {
		return nil, ErrNoFeed
	}
	return v.(*FeedState).Clone(), nil
}

func (s *memoryStore) UpdateFeed(ctx context.Context, key Key, kind models.FeedKind, fn func(state *FeedState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	k := feedKey(key, kind)
	unlock := s.lock(k)
	defer unlock()

	v, ok := s.cache.Get(k)
	if !ok {
		return ErrNoFeed
	}
	state := v.(*FeedState).Clone()
	if err := fn(state); err != nil {
		return err
	}
	s.cache.Set(k, state, s.ttl)
	return nil
}

func (s *memoryStore) Clear(_ context.Context, key Key) error {
	for _, kind := range feedKinds {
		k := feedKey(key, kind)
		unlock := s.lock(k)
		s.cache.Delete(k)
		unlock()
	}
	return nil
}
