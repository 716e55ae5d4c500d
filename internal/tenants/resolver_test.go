package tenants

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/craftlane/backend/internal/models"
	"github.com/craftlane/backend/pkg/cache"
	"github.com/craftlane/backend/pkg/metrics"
)

type fakeStore struct {
	byID     map[uuid.UUID]*models.Tenant
	bySlug   map[string]*models.Tenant
	byDomain map[string]*models.Tenant
	calls    int
}

func (f *fakeStore) TenantByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	f.calls++
	return f.byID[id], nil
}

func (f *fakeStore) TenantBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	f.calls++
	return f.bySlug[slug], nil
}

func (f *fakeStore) TenantByDomain(_ context.Context, domain string) (*models.Tenant, error) {
	f.calls++
	return f.byDomain[domain], nil
}

func newFakeStore(ts ...*models.Tenant) *fakeStore {
	f := &fakeStore{
		byID:     map[uuid.UUID]*models.Tenant{},
		bySlug:   map[string]*models.Tenant{},
		byDomain: map[string]*models.Tenant{},
	}
	for _, t := range ts {
		f.byID[t.ID] = t
		f.bySlug[t.Slug] = t
		if t.CustomDomain != nil {
			f.byDomain[*t.CustomDomain] = t
		}
	}
	return f
}

func strptr(s string) *string { return &s }

func newResolverFixture(t *testing.T, ts ...*models.Tenant) (*Resolver, *fakeStore, *time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(ts...)
	mem := cache.NewMemoryWithClock(func() time.Time { return now })
	r := NewResolver(store, mem, "craftlane.app", 5*time.Minute, nil)
	return r, store, &now
}

func TestResolveExplicitHeaderWins(t *testing.T) {
	acme := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}
	other := &models.Tenant{ID: uuid.New(), Slug: "other", Active: true}
	r, _, _ := newResolverFixture(t, acme, other)

	got, err := r.Resolve(context.Background(), "other.craftlane.app", acme.ID.String())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got == nil || got.ID != acme.ID {
		t.Fatalf("resolved %+v, want explicit tenant %s", got, acme.ID)
	}
}

func TestResolveHostForms(t *testing.T) {
	acme := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true, CustomDomain: strptr("shop.acme-corp.com")}
	short := &models.Tenant{ID: uuid.New(), Slug: "short", Active: true, CustomDomain: strptr("acme.io")}
	r, _, _ := newResolverFixture(t, acme, short)

	tests := []struct {
		name string
		host string
		want *models.Tenant
	}{
		{"subdomain of base domain", "acme.craftlane.app", acme},
		{"subdomain with port", "acme.craftlane.app:8080", acme},
		{"local development host", "acme.localhost:3000", acme},
		{"custom domain two labels", "acme.io", short},
		{"custom domain www", "www.shop.acme-corp.com", nil},
		{"custom domain three labels", "shop.acme-corp.com", acme},
		{"unknown host", "nobody.example.org", nil},
		{"bare base domain", "craftlane.app", nil},
		{"empty host", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.host, "")
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			switch {
			case tt.want == nil && got != nil:
				t.Fatalf("resolved %s, want unresolved", got.Slug)
			case tt.want != nil && (got == nil || got.ID != tt.want.ID):
				t.Fatalf("resolved %+v, want %s", got, tt.want.Slug)
			}
		})
	}
}

func TestResolveNeverReturnsInactive(t *testing.T) {
	dead := &models.Tenant{ID: uuid.New(), Slug: "dead", Active: false, CustomDomain: strptr("dead.example.com")}
	r, _, _ := newResolverFixture(t, dead)
	ctx := context.Background()

	for _, tc := range []struct{ host, explicit string }{
		{"dead.craftlane.app", ""},
		{"dead.example.com", ""},
		{"", dead.ID.String()},
	} {
		got, err := r.Resolve(ctx, tc.host, tc.explicit)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if got != nil {
			t.Fatalf("inactive tenant resolved via host=%q explicit=%q", tc.host, tc.explicit)
		}
	}
}

func TestResolveCachesActiveResults(t *testing.T) {
	acme := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}
	r, store, now := newResolverFixture(t, acme)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "acme.craftlane.app", ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	first := store.calls

	if _, err := r.Resolve(ctx, "acme.craftlane.app", ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if store.calls != first {
		t.Fatalf("cache hit still queried store (%d -> %d calls)", first, store.calls)
	}

	// After the TTL the store is consulted again.
	*now = now.Add(6 * time.Minute)
	if _, err := r.Resolve(ctx, "acme.craftlane.app", ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if store.calls == first {
		t.Fatal("expired cache entry still served")
	}
}

func TestResolveCacheNeverServesDeactivatedTenant(t *testing.T) {
	acme := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}
	r, store, _ := newResolverFixture(t, acme)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "acme.craftlane.app", ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Deactivation invalidates the cached entry.
	acme.Active = false
	r.Invalidate(ctx, acme)

	got, err := r.Resolve(ctx, "acme.craftlane.app", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != nil {
		t.Fatal("deactivated tenant still resolved")
	}
	if store.calls < 2 {
		t.Fatal("store not re-consulted after invalidation")
	}
}

func TestResolveCountsCacheHitsAndMisses(t *testing.T) {
	acme := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}
	r, _, _ := newResolverFixture(t, acme)
	ctx := context.Background()

	hits := testutil.ToFloat64(metrics.TenantCacheCounter.WithLabelValues("hit"))
	misses := testutil.ToFloat64(metrics.TenantCacheCounter.WithLabelValues("miss"))

	_, _ = r.Resolve(ctx, "acme.craftlane.app", "")
	_, _ = r.Resolve(ctx, "acme.craftlane.app", "")

	if got := testutil.ToFloat64(metrics.TenantCacheCounter.WithLabelValues("miss")) - misses; got != 1 {
		t.Fatalf("miss count delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.TenantCacheCounter.WithLabelValues("hit")) - hits; got != 1 {
		t.Fatalf("hit count delta = %v, want 1", got)
	}
}

func TestInvalidateDropsSlugAndDomainKeys(t *testing.T) {
	acme := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true, CustomDomain: strptr("shop.acme-corp.com")}
	r, store, _ := newResolverFixture(t, acme)
	ctx := context.Background()

	_, _ = r.Resolve(ctx, "acme.craftlane.app", "")
	_, _ = r.Resolve(ctx, "shop.acme-corp.com", "")
	warm := store.calls

	r.Invalidate(ctx, acme)

	_, _ = r.Resolve(ctx, "acme.craftlane.app", "")
	_, _ = r.Resolve(ctx, "shop.acme-corp.com", "")
	if store.calls != warm+2 {
		t.Fatalf("expected 2 fresh store lookups after invalidation, got %d", store.calls-warm)
	}
}
