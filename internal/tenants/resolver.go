package tenants

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/craftlane/backend/internal/models"
	"github.com/craftlane/backend/pkg/cache"
	"github.com/craftlane/backend/pkg/metrics"
)

// Store is the tenant lookup view the resolver needs. Absent tenants are
// (nil, nil).
type Store interface {
	TenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	TenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	TenantByDomain(ctx context.Context, domain string) (*models.Tenant, error)
}

// Hosts whose first label is always treated as a tenant slug during local
// development.
var localDevHosts = map[string]struct{}{
	"localhost": {},
	"lvh.me":    {},
	"127.0.0.1": {},
}

// Resolver derives the active tenant for a request from an explicit header
// or the host name, backed by a short-TTL cache. An unresolved tenant is not
// an error; whether a tenant is mandatory is the calling handler's decision.
type Resolver struct {
	store      Store
	cache      cache.Cache
	baseDomain string
	ttl        time.Duration
	logger     *zap.Logger
}

// NewResolver creates a tenant resolver. baseDomain is the platform domain
// whose subdomains carry tenant slugs (e.g. "craftlane.app").
func NewResolver(store Store, c cache.Cache, baseDomain string, ttl time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		store:      store,
		cache:      c,
		baseDomain: strings.ToLower(baseDomain),
		ttl:        ttl,
		logger:     logger,
	}
}

// Resolve produces the active tenant for the request, or (nil, nil) when
// unresolved. Resolution order: explicit tenant-id header, custom domain,
// then slug subdomain of the base domain. Inactive tenants are never
// returned or cached.
func (r *Resolver) Resolve(ctx context.Context, host, explicitID string) (*models.Tenant, error) {
	if explicitID != "" {
		id, err := uuid.Parse(explicitID)
		if err != nil {
			return nil, nil
		}
		t, err := r.store.TenantByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if t != nil && t.Active {
			return t, nil
		}
		return nil, nil
	}

	host = normalizeHost(host)
	if host == "" {
		return nil, nil
	}

	if isCustomDomainHost(host) {
		if t, err := r.lookup(ctx, "domain:"+host, func(ctx context.Context) (*models.Tenant, error) {
			return r.store.TenantByDomain(ctx, host)
		}); t != nil || err != nil {
			return t, err
		}
	}

	if slug, ok := r.slugFromHost(host); ok {
		return r.lookup(ctx, "slug:"+slug, func(ctx context.Context) (*models.Tenant, error) {
			return r.store.TenantBySlug(ctx, slug)
		})
	}

	// Hosts that match neither rule may still be custom domains that were
	// not caught above (3+ labels without a www prefix).
	return r.lookup(ctx, "domain:"+host, func(ctx context.Context) (*models.Tenant, error) {
		return r.store.TenantByDomain(ctx, host)
	})
}

// lookup consults the cache before the store and caches only active results.
func (r *Resolver) lookup(ctx context.Context, key string, fetch func(context.Context) (*models.Tenant, error)) (*models.Tenant, error) {
	if raw, ok, err := r.cache.Get(ctx, key); err == nil && ok {
		var t models.Tenant
		if err := json.Unmarshal(raw, &t); err == nil && t.Active {
			metrics.TenantCacheCounter.WithLabelValues("hit").Inc()
			return &t, nil
		}
	} else if err != nil {
		r.logger.Warn("tenant cache read failed", zap.String("key", key), zap.Error(err))
	}
	metrics.TenantCacheCounter.WithLabelValues("miss").Inc()

	t, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if t == nil || !t.Active {
		return nil, nil
	}

	if raw, err := json.Marshal(t); err == nil {
		if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
			r.logger.Warn("tenant cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return t, nil
}

// Invalidate drops the cache entries for a tenant's slug and custom domain.
// Called whenever branding data changes.
func (r *Resolver) Invalidate(ctx context.Context, t *models.Tenant) {
	if err := r.cache.Delete(ctx, "slug:"+t.Slug); err != nil {
		r.logger.Warn("tenant cache invalidate failed", zap.String("slug", t.Slug), zap.Error(err))
	}
	if t.CustomDomain != nil && *t.CustomDomain != "" {
		if err := r.cache.Delete(ctx, "domain:"+strings.ToLower(*t.CustomDomain)); err != nil {
			r.logger.Warn("tenant cache invalidate failed", zap.String("domain", *t.CustomDomain), zap.Error(err))
		}
	}
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

// isCustomDomainHost reports whether the host is treated as a custom domain:
// two or fewer labels, or a leading www.
func isCustomDomainHost(host string) bool {
	return strings.HasPrefix(host, "www.") || strings.Count(host, ".") <= 1
}

// slugFromHost returns the first label as a tenant slug when the remaining
// labels are the platform base domain or a local-development host.
func (r *Resolver) slugFromHost(host string) (string, bool) {
	slug, rest, ok := strings.Cut(host, ".")
	if !ok || slug == "" || slug == "www" {
		return "", false
	}
	if rest == r.baseDomain {
		return slug, true
	}
	if _, ok := localDevHosts[rest]; ok {
		return slug, true
	}
	return "", false
}
