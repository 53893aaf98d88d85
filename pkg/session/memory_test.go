package session

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkit-hq/linkit-engine/pkg/models"
)

func TestMemoryStore(t *testing.T) {
	testStore(t, func() Store { return NewMemoryStore(0) })
}

func TestMemoryStore_TTLExpires(t *testing.T) {
	s := NewMemoryStore(50 * time.Millisecond)
	ctx := context.Background()
	key := Key{ActorID: 1, ConversationID: 1}

	require.NoError(t, s.SaveFeed(ctx, key, &FeedState{Kind: models.FeedKindProfiles, IDs: []string{"1"}}))
	time.Sleep(80 * time.Millisecond)

	_, err := s.LoadFeed(ctx, key, models.FeedKindProfiles)
	assert.ErrorIs(t, err, ErrNoFeed)
}

func TestMemoryStore_StoredStateIsNotAliased(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()
	key := Key{ActorID: 1}

	state := &FeedState{Kind: models.FeedKindProfiles, IDs: []string{"1", "2"}}
	require.NoError(t, s.SaveFeed(ctx, key, state))
	state.IDs[0] = "changed"

	got, err := s.LoadFeed(ctx, key, models.FeedKindProfiles)
	require.NoError(t, err)
	assert.Equal(t, "1", got.IDs[0])
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.UpdateFeed(ctx, Key{ActorID: 1}, models.FeedKindProfiles, func(*FeedState) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func (s *memoryStore) heldLocks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

func TestMemoryStore_LocksReleasedAfterUse(t *testing.T) {
	s := NewMemoryStore(time.Hour).(*memoryStore)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		key := Key{ActorID: models.ActorID(i), ConversationID: int64(i)}
		require.NoError(t, s.SaveFeed(ctx, key, &FeedState{Kind: models.FeedKindProfiles, IDs: []string{strconv.Itoa(i), "x"}}))
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.UpdateFeed(ctx, key, models.FeedKindProfiles, func(st *FeedState) error {
					st.Cursor = (st.Cursor + 1) % len(st.IDs)
					return nil
				})
			}()
		}
	}
	wg.Wait()
	require.NoError(t, s.Clear(ctx, Key{ActorID: 1, ConversationID: 1}))

	assert.Zero(t, s.heldLocks())
}
