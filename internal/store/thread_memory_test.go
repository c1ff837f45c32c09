package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishal27shetty/Company-Research-Agent/internal/domain"
)

func TestMemoryThreadStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryThreadStore()

	_, err := s.Get(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 := domain.NewThreadState("t1", base)
	t1.Company = "Acme"
	require.NoError(t, s.Save(ctx, t1))

	t1.Company = "mutated after save"
	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Company)

	t2 := domain.NewThreadState("t2", base.Add(time.Hour))
	require.NoError(t, s.Save(ctx, t2))

	idle, err := s.ListIdle(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, idle)

	idle, err = s.ListIdle(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, idle)

	require.NoError(t, s.Delete(ctx, "t1"))
	assert.ErrorIs(t, s.Delete(ctx, "t1"), ErrNotFound)
}

func TestMemoryThreadStoreSaveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryThreadStore()
	assert.Error(t, s.Save(ctx, domain.NewThreadState("t1", time.Now())))
	_, err := s.Get(context.Background(), "t1")
	assert.ErrorIs(t, err, ErrNotFound)
}
