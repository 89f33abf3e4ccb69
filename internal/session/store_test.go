package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/actuallystonmai/song-recommendation-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetUnknown(t *testing.T) {
	st := NewMemoryStore(0)
	_, err := st.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrUnknownSession)
	assert.ErrorIs(t, st.Update(context.Background(), "nope", func(*Session) error { return nil }), domain.ErrUnknownSession)
}

func TestMemoryStoreUpdateKeepsFailedChangesOut(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(0)
	require.NoError(t, st.Put(ctx, offered()))

	err := st.Update(ctx, "tok", func(s *Session) error {
		s.Ratings["a"] = 5
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	got, err := st.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Empty(t, got.Ratings)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(0)
	s := offered()
	require.NoError(t, st.Put(ctx, s))

	s.Ratings["a"] = 4
	got, err := st.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Empty(t, got.Ratings)
}

func TestMemoryStoreSerializesUpdatesPerToken(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(0)

	ids := make([]string, 50)
	for i := range ids {
		ids[i] = fmt.Sprintf("song-%02d", i)
	}
	s := New("tok", time.Now())
	s.Offer(ids)
	require.NoError(t, st.Put(ctx, s))

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, st.Update(ctx, "tok", func(s *Session) error {
				return s.Rate(id, 3)
			}))
		}(id)
	}
	wg.Wait()

	got, err := st.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Len(t, got.Ratings, len(ids))
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	st := NewMemoryStore(time.Minute)
	st.now = func() time.Time { return now }

	require.NoError(t, st.Put(ctx, offered()))
	now = now.Add(30 * time.Second)
	_, err := st.Get(ctx, "tok")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = st.Get(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrUnknownSession)

	assert.Equal(t, 1, st.Sweep())
	assert.Equal(t, 0, st.Len())
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(0)
	require.NoError(t, st.Put(ctx, offered()))
	require.NoError(t, st.Delete(ctx, "tok"))

	_, err := st.Get(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrUnknownSession)
	assert.NoError(t, st.Delete(ctx, "tok"))
}
