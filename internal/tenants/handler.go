package tenants

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/craftlane/backend/internal/audit"
	"github.com/craftlane/backend/internal/httpctx"
	"github.com/craftlane/backend/pkg/response"
	"github.com/craftlane/backend/pkg/storage"
)

// Handler handles tenant settings endpoints.
type Handler struct {
	repo     *Repository
	resolver *Resolver
	s3       *storage.S3
	audit    *audit.Recorder
	logger   *zap.Logger
}

// NewHandler creates a tenant handler. s3 may be nil when object storage is
// not configured; logo upload then returns 503.
func NewHandler(repo *Repository, resolver *Resolver, s3 *storage.S3, recorder *audit.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, resolver: resolver, s3: s3, audit: recorder, logger: logger}
}

// Get handles GET /tenant: the resolved tenant's public settings.
func (h *Handler) Get(c *gin.Context) {
	t := httpctx.Tenant(c)
	if t == nil {
		response.NotFound(c, "tenant not resolved")
		return
	}
	response.OK(c, t)
}

// UpdateRequest is the body for PATCH /tenant. Omitted fields keep their
// current value.
type UpdateRequest struct {
	Name         string  `json:"name"`
	PrimaryColor string  `json:"primary_color"`
	CustomDomain *string `json:"custom_domain"`
}

// Update handles PATCH /tenant.
func (h *Handler) Update(c *gin.Context) {
	t := httpctx.Tenant(c)
	if t == nil {
		response.NotFound(c, "tenant not resolved")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	updated, err := h.repo.UpdateBranding(c.Request.Context(), t.ID, req.Name, req.PrimaryColor, req.CustomDomain, nil)
	if err != nil {
		h.logger.Error("update tenant failed", zap.Error(err))
		response.Internal(c, "could not update tenant")
		return
	}

	// Drop both the old and new cache entries: a changed custom domain
	// must stop resolving under its previous name right away.
	h.resolver.Invalidate(c.Request.Context(), t)
	h.resolver.Invalidate(c.Request.Context(), updated)

	if u := httpctx.User(c); u != nil {
		h.audit.Record(c.Request.Context(), t.ID, &u.ID, audit.ActionTenantUpdated, "tenant", t.ID.String(), nil)
	}
	response.OK(c, updated)
}

// UploadLogo handles POST /tenant/logo (multipart field "logo").
func (h *Handler) UploadLogo(c *gin.Context) {
	t := httpctx.Tenant(c)
	if t == nil {
		response.NotFound(c, "tenant not resolved")
		return
	}
	if h.s3 == nil {
		response.ServiceUnavailable(c, "object storage not configured")
		return
	}

	file, err := c.FormFile("logo")
	if err != nil {
		response.BadRequest(c, "logo file is required")
		return
	}
	src, err := file.Open()
	if err != nil {
		response.BadRequest(c, "could not read logo file")
		return
	}
	defer src.Close()

	url, err := h.s3.UploadLogo(c.Request.Context(), t.ID.String(), file.Header.Get("Content-Type"), src, file.Size)
	if err != nil {
		h.logger.Warn("logo upload rejected", zap.Error(err))
		response.BadRequest(c, err.Error())
		return
	}

	updated, err := h.repo.UpdateBranding(c.Request.Context(), t.ID, "", "", nil, &url)
	if err != nil {
		h.logger.Error("persist logo url failed", zap.Error(err))
		response.Internal(c, "could not save logo")
		return
	}
	h.resolver.Invalidate(c.Request.Context(), updated)

	if u := httpctx.User(c); u != nil {
		h.audit.Record(c.Request.Context(), t.ID, &u.ID, audit.ActionLogoUploaded, "tenant", t.ID.String(), nil)
	}
	response.OK(c, updated)
}

// DownloadLogo handles GET /tenant/logo: a time-limited presigned URL for
// the stored logo object.
func (h *Handler) DownloadLogo(c *gin.Context) {
	t := httpctx.Tenant(c)
	if t == nil {
		response.NotFound(c, "tenant not resolved")
		return
	}
	if t.LogoURL == nil || *t.LogoURL == "" {
		response.NotFound(c, "no logo uploaded")
		return
	}
	key := storage.KeyFromURL(*t.LogoURL)
	if key == "" {
		response.NotFound(c, "no logo uploaded")
		return
	}
	if h.s3 == nil {
		response.ServiceUnavailable(c, "object storage not configured")
		return
	}

	url, err := h.s3.PresignLogoURL(c.Request.Context(), key)
	if err != nil {
		h.logger.Error("presign logo failed", zap.Error(err))
		response.Internal(c, "could not presign logo")
		return
	}
	response.OK(c, gin.H{"url": url})
}
