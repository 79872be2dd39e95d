// Package runtime is the composition root of the public form runtime: it
// loads a published form's records as one snapshot, resolves them through
// the pipeline, renders the embed, and validates submissions.
package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/formloom/formloom/internal/store"
)

// ErrFormNotFound covers both an unknown slug and a form that is not
// published: the embed renders an explicit not-found state, never a
// partial form.
var ErrFormNotFound = errors.New("form not found")

// Snapshot is one consistent read of everything the runtime needs. The
// pipeline never touches the store again after this point.
type Snapshot struct {
	Form     store.Form        `json:"form"`
	Fields   []store.Field     `json:"fields"`
	Style    *store.FormStyle  `json:"style,omitempty"`
	Rules    []store.Rule      `json:"rules,omitempty"`
	Test     *store.ABTest     `json:"test,omitempty"`
	Variants []store.Variant   `json:"variants,omitempty"`
}

// Loader fetches snapshots, optionally through a Redis cache. A nil cache
// client is fully supported; correctness never depends on Redis.
type Loader struct {
	Store store.Store
	Cache *redis.Client
	TTL   time.Duration
}

func cacheKey(slug string) string {
	return "fl:snapshot:" + slug
}

// Load returns the published form's snapshot for a slug.
func (l *Loader) Load(ctx context.Context, slug string) (*Snapshot, error) {
	if l.Cache != nil {
		if raw, err := l.Cache.Get(ctx, cacheKey(slug)).Bytes(); err == nil {
			var snap Snapshot
			if json.Unmarshal(raw, &snap) == nil {
				return &snap, nil
			}
		}
	}

	snap, err := l.loadFromStore(ctx, slug)
	if err != nil {
		return nil, err
	}

	if l.Cache != nil {
		if raw, err := json.Marshal(snap); err == nil {
			ttl := l.TTL
			if ttl <= 0 {
				ttl = time.Minute
			}
			// Cache write failures are invisible to the caller.
			l.Cache.Set(ctx, cacheKey(slug), raw, ttl)
		}
	}

	return snap, nil
}

func (l *Loader) loadFromStore(ctx context.Context, slug string) (*Snapshot, error) {
	form, err := l.Store.GetFormBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("failed to load form: %w", err)
	}
	if form.Status != store.StatusPublished {
		return nil, ErrFormNotFound
	}

	snap := &Snapshot{Form: *form}

	if snap.Fields, err = l.Store.ListFields(ctx, form.ID); err != nil {
		return nil, fmt.Errorf("failed to load fields: %w", err)
	}

	style, err := l.Store.GetStyle(ctx, form.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load style: %w", err)
	}
	snap.Style = style

	if snap.Rules, err = l.Store.ListRules(ctx, form.ID); err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	test, err := l.Store.ActiveTest(ctx, form.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load test: %w", err)
	}
	if test != nil {
		snap.Test = test
		if snap.Variants, err = l.Store.ListVariants(ctx, test.ID); err != nil {
			return nil, fmt.Errorf("failed to load variants: %w", err)
		}
	}

	return snap, nil
}

// Invalidate drops a slug's cached snapshot. Called on publish and on any
// editor write to a published form.
func (l *Loader) Invalidate(ctx context.Context, slug string) {
	if l.Cache == nil {
		return
	}
	l.Cache.Del(ctx, cacheKey(slug))
}
