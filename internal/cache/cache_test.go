package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carscout/carscout/internal/query"
)

func TestKeyStableAcrossRetailerOrder(t *testing.T) {
	q := query.New("gmc sierra")
	q.Makes = []string{"GMC"}

	a := Key(q, []string{"carmax", "autotrader"}, 10)
	b := Key(q, []string{"autotrader", "carmax"}, 10)

	assert.Equal(t, a, b)
	assert.True(t, len(a) > len("search:"))
}

func TestKeyVariesWithInputs(t *testing.T) {
	q1 := query.New("gmc sierra")
	q1.Makes = []string{"GMC"}
	q2 := query.New("toyota rav4")
	q2.Makes = []string{"Toyota"}

	base := Key(q1, []string{"carmax"}, 10)

	assert.NotEqual(t, base, Key(q2, []string{"carmax"}, 10))
	assert.NotEqual(t, base, Key(q1, []string{"kbb"}, 10))
	assert.NotEqual(t, base, Key(q1, []string{"carmax"}, 25))
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(16, time.Minute)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", []byte(`[{"name":"x"}]`)))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`[{"name":"x"}]`), value)
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore(16, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	time.Sleep(60 * time.Millisecond)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	store := NewMemoryStore(2, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1")))
	require.NoError(t, store.Set(ctx, "b", []byte("2")))
	require.NoError(t, store.Set(ctx, "c", []byte("3")))

	_, ok, _ := store.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "c")
	assert.True(t, ok)
}
