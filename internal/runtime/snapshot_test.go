package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formloom/formloom/internal/runtime"
	"github.com/formloom/formloom/internal/store"
)

// countingStore wraps a Store and counts slug lookups, which is enough to
// observe cache hits.
type countingStore struct {
	store.Store
	slugLookups int
}

func (c *countingStore) GetFormBySlug(ctx context.Context, slug string) (*store.Form, error) {
	c.slugLookups++
	return c.Store.GetFormBySlug(ctx, slug)
}

func seedPublishedForm(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateForm(ctx, &store.Form{
		ID: "f1", OrgID: "org1", Name: "Contato", Slug: "contato",
		Kind: store.KindEmbedded, Status: store.StatusDraft,
	}))
	require.NoError(t, s.SetFormStatus(ctx, "f1", store.StatusPublished))
	require.NoError(t, s.CreateField(ctx, &store.Field{
		ID: "nome", FormID: "f1", Type: store.FieldText, Label: "Nome", Required: true,
	}))
}

func openTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	s, err := store.Open("sqlite", t.TempDir()+"/runtime.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoader_NoCache(t *testing.T) {
	s := openTestStore(t)
	seedPublishedForm(t, s)

	loader := &runtime.Loader{Store: s}

	snap, err := loader.Load(context.Background(), "contato")
	require.NoError(t, err)
	assert.Equal(t, "f1", snap.Form.ID)
	require.Len(t, snap.Fields, 1)
	assert.Nil(t, snap.Style)
	assert.Nil(t, snap.Test)

	// Invalidate without a cache is a no-op, not a panic.
	loader.Invalidate(context.Background(), "contato")
}

func TestLoader_UnknownOrUnpublished(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateForm(ctx, &store.Form{
		ID: "f1", OrgID: "org1", Name: "Rascunho", Slug: "rascunho",
		Kind: store.KindEmbedded, Status: store.StatusDraft,
	}))

	loader := &runtime.Loader{Store: s}

	_, err := loader.Load(ctx, "missing")
	assert.ErrorIs(t, err, runtime.ErrFormNotFound)

	// Draft forms are indistinguishable from unknown slugs publicly.
	_, err = loader.Load(ctx, "rascunho")
	assert.ErrorIs(t, err, runtime.ErrFormNotFound)
}

func TestLoader_CacheAside(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := openTestStore(t)
	seedPublishedForm(t, s)
	counting := &countingStore{Store: s}

	loader := &runtime.Loader{Store: counting, Cache: cache, TTL: time.Minute}
	ctx := context.Background()

	snap, err := loader.Load(ctx, "contato")
	require.NoError(t, err)
	assert.Equal(t, 1, counting.slugLookups)

	// Second load is served from the cache.
	snap, err = loader.Load(ctx, "contato")
	require.NoError(t, err)
	assert.Equal(t, 1, counting.slugLookups)
	assert.Equal(t, "f1", snap.Form.ID)

	// Invalidation forces the next load back to the store.
	loader.Invalidate(ctx, "contato")
	_, err = loader.Load(ctx, "contato")
	require.NoError(t, err)
	assert.Equal(t, 2, counting.slugLookups)
}

func TestLoader_CacheExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := openTestStore(t)
	seedPublishedForm(t, s)
	counting := &countingStore{Store: s}

	loader := &runtime.Loader{Store: counting, Cache: cache, TTL: time.Second}
	ctx := context.Background()

	_, err := loader.Load(ctx, "contato")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = loader.Load(ctx, "contato")
	require.NoError(t, err)
	assert.Equal(t, 2, counting.slugLookups, "expired entries must fall back to the store")
}

func TestLoader_CorruptCacheEntryFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := openTestStore(t)
	seedPublishedForm(t, s)

	require.NoError(t, mr.Set("fl:snapshot:contato", "{not json"))

	loader := &runtime.Loader{Store: s, Cache: cache, TTL: time.Minute}

	snap, err := loader.Load(context.Background(), "contato")
	require.NoError(t, err)
	assert.Equal(t, "f1", snap.Form.ID)
}

func TestLoader_SnapshotCarriesActiveTest(t *testing.T) {
	s := openTestStore(t)
	seedPublishedForm(t, s)
	ctx := context.Background()

	require.NoError(t, s.CreateTest(ctx, &store.ABTest{
		ID: "t1", FormID: "f1", Name: "Botão", Status: store.TestDraft,
	}))
	require.NoError(t, s.CreateVariant(ctx, &store.Variant{
		ID: "va", TestID: "t1", Letter: "A", Control: true, TrafficPct: 50,
	}))
	require.NoError(t, s.CreateVariant(ctx, &store.Variant{
		ID: "vb", TestID: "t1", Letter: "B", TrafficPct: 50,
	}))

	loader := &runtime.Loader{Store: s}

	// Draft tests stay out of the snapshot.
	snap, err := loader.Load(ctx, "contato")
	require.NoError(t, err)
	assert.Nil(t, snap.Test)

	require.NoError(t, s.UpdateTestStatus(ctx, "t1", store.TestRunning, nil))
	snap, err = loader.Load(ctx, "contato")
	require.NoError(t, err)
	require.NotNil(t, snap.Test)
	assert.Len(t, snap.Variants, 2)
}
