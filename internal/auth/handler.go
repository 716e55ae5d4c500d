package auth

import (
	"context"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/craftlane/backend/internal/audit"
	"github.com/craftlane/backend/internal/httpctx"
	"github.com/craftlane/backend/internal/models"
	"github.com/craftlane/backend/pkg/metrics"
	"github.com/craftlane/backend/pkg/response"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{1,30}[a-z0-9])?$`)

// TenantCreator is the slice of the tenant repository signup needs.
type TenantCreator interface {
	CreateTenant(ctx context.Context, t *models.Tenant) error
	TenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	sessions *SessionManager
	users    UserStore
	tenants  TenantCreator
	audit    *audit.Recorder
	logger   *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(sessions *SessionManager, users UserStore, tenantsRepo TenantCreator, recorder *audit.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, users: users, tenants: tenantsRepo, audit: recorder, logger: logger}
}

// RegisterRequest is the body for POST /auth/register. Registration bootstraps
// a new workspace: the tenant plus its owner in one step.
type RegisterRequest struct {
	TenantName string `json:"tenant_name" binding:"required"`
	Slug       string `json:"slug" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	FullName   string `json:"full_name" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest is the body for POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ChangePasswordRequest is the body for POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// SessionResponse is the standard auth success payload.
type SessionResponse struct {
	User   models.UserPublic `json:"user"`
	Tokens *TokenPair        `json:"tokens"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugPattern.MatchString(slug) {
		response.BadRequest(c, "slug must be lowercase letters, digits and hyphens")
		return
	}

	existing, err := h.tenants.TenantBySlug(c.Request.Context(), slug)
	if err != nil {
		h.logger.Error("slug lookup failed", zap.Error(err))
		response.Internal(c, "registration failed")
		return
	}
	if existing != nil {
		response.Conflict(c, "that workspace name is taken")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password failed", zap.Error(err))
		response.Internal(c, "registration failed")
		return
	}

	tenant := &models.Tenant{
		ID:     uuid.New(),
		Name:   req.TenantName,
		Slug:   slug,
		Active: true,
	}
	if err := h.tenants.CreateTenant(c.Request.Context(), tenant); err != nil {
		h.logger.Error("create tenant failed", zap.Error(err))
		response.Internal(c, "registration failed")
		return
	}

	owner := &models.User{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         models.RoleOwner,
		Active:       true,
	}
	if err := h.users.CreateUser(c.Request.Context(), owner); err != nil {
		h.logger.Error("create owner failed", zap.Error(err))
		response.Internal(c, "registration failed")
		return
	}

	pair, err := h.sessions.Issue(c.Request.Context(), owner)
	if err != nil {
		h.logger.Error("issue session failed", zap.Error(err))
		response.Internal(c, "registration failed")
		return
	}

	h.audit.Record(c.Request.Context(), tenant.ID, &owner.ID, audit.ActionRegister, "tenant", tenant.ID.String(), map[string]string{"slug": slug})
	response.Created(c, gin.H{
		"tenant": tenant,
		"user":   owner.ToPublic(),
		"tokens": pair,
	})
}

// Login handles POST /auth/login against the resolved tenant.
func (h *Handler) Login(c *gin.Context) {
	tenant := httpctx.Tenant(c)
	if tenant == nil {
		response.NotFound(c, "tenant not resolved")
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	u, pair, err := h.sessions.LoginPassword(c.Request.Context(), tenant.ID, req.Email, req.Password)
	if err != nil {
		metrics.LoginCounter.WithLabelValues("password", "failure").Inc()
		response.Unauthorized(c, "invalid credentials")
		return
	}

	metrics.LoginCounter.WithLabelValues("password", "success").Inc()
	h.audit.Record(c.Request.Context(), tenant.ID, &u.ID, audit.ActionLogin, "user", u.ID.String(), nil)
	response.OK(c, SessionResponse{User: u.ToPublic(), Tokens: pair})
}

// Refresh handles POST /auth/refresh.
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "refresh_token is required")
		return
	}

	u, pair, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Unauthorized(c, "invalid or expired refresh token")
		return
	}
	response.OK(c, SessionResponse{User: u.ToPublic(), Tokens: pair})
}

// Logout handles POST /auth/logout. Revokes the presented session only.
func (h *Handler) Logout(c *gin.Context) {
	u := httpctx.User(c)
	token, _ := httpctx.BearerToken(c)
	if err := h.sessions.Logout(c.Request.Context(), token); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		response.Internal(c, "logout failed")
		return
	}
	if u != nil {
		h.audit.Record(c.Request.Context(), u.TenantID, &u.ID, audit.ActionLogout, "user", u.ID.String(), nil)
	}
	response.NoContent(c)
}

// LogoutAll handles POST /auth/logout-all. Revokes every session the user
// holds, across devices.
func (h *Handler) LogoutAll(c *gin.Context) {
	u := httpctx.User(c)
	if u == nil {
		response.Unauthorized(c, "missing user context")
		return
	}
	if err := h.sessions.LogoutAll(c.Request.Context(), u.ID); err != nil {
		h.logger.Error("logout all failed", zap.Error(err))
		response.Internal(c, "logout failed")
		return
	}
	h.audit.Record(c.Request.Context(), u.TenantID, &u.ID, audit.ActionLogoutAll, "user", u.ID.String(), nil)
	response.NoContent(c)
}

// ChangePassword handles POST /auth/change-password. Other sessions are
// revoked; the one making the change stays alive.
func (h *Handler) ChangePassword(c *gin.Context) {
	u := httpctx.User(c)
	if u == nil {
		response.Unauthorized(c, "missing user context")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	token, _ := httpctx.BearerToken(c)
	if err := h.sessions.ChangePassword(c.Request.Context(), u, req.CurrentPassword, req.NewPassword, token); err != nil {
		response.Unauthorized(c, "current password is incorrect")
		return
	}

	h.audit.Record(c.Request.Context(), u.TenantID, &u.ID, audit.ActionPasswordChanged, "user", u.ID.String(), nil)
	response.NoContent(c)
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	u := httpctx.User(c)
	if u == nil {
		response.Unauthorized(c, "missing user context")
		return
	}
	response.OK(c, u.ToPublic())
}
