package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/aescanero/layoutcounter/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCounterStorage(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryCounterStorage()

	require.NoError(t, s.Set(ctx, domain.KeyLeft, 4))
	require.NoError(t, s.InitializeDefaults(ctx))

	v, err := s.Get(ctx, domain.KeyLeft)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	v, err = s.Increment(ctx, domain.KeyLeft, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	v, err = s.CompareAndIncrement(ctx, domain.KeyLeft, -2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Get(domain.KeyLeft))
}

func TestInMemoryCounterStorageFailOn(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryCounterStorage()
	boom := errors.New("boom")

	s.FailOn("get_all", boom)
	_, err := s.GetAll(ctx)
	assert.ErrorIs(t, err, boom)

	s.FailOn("get_all", nil)
	_, err = s.GetAll(ctx)
	assert.NoError(t, err)
}
