package users

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/craftlane/backend/internal/audit"
	"github.com/craftlane/backend/internal/auth"
	"github.com/craftlane/backend/internal/httpctx"
	"github.com/craftlane/backend/internal/models"
	"github.com/craftlane/backend/internal/permissions"
	"github.com/craftlane/backend/pkg/response"
)

// Directory lists tenant members under the caller's enforcement scope.
type Directory interface {
	List(ctx context.Context) ([]models.UserPublic, error)
}

// Handler handles member directory endpoints.
type Handler struct {
	repo   Directory
	users  auth.UserStore
	audit  *audit.Recorder
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(repo Directory, users auth.UserStore, recorder *audit.Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, users: users, audit: recorder, logger: logger}
}

// List handles GET /users. Row-level security already limits rows to the
// actor's tenant; the ownership-scope filter narrows further for roles that
// only see their own record.
func (h *Handler) List(c *gin.Context) {
	actor := httpctx.User(c)
	if actor == nil {
		response.Unauthorized(c, "missing user context")
		return
	}

	members, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		response.Internal(c, "could not list users")
		return
	}
	members = permissions.FilterByScope(members, permissions.ListScope(actor.Role), actor.TenantID, actor.ID)
	response.OK(c, members)
}

// UpdateRoleRequest is the body for PATCH /users/:id/role.
type UpdateRoleRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

// UpdateRole handles PATCH /users/:id/role. The caller can only assign
// roles strictly below their own; ownership transfers stay owner-to-owner.
func (h *Handler) UpdateRole(c *gin.Context) {
	actor := httpctx.User(c)
	if actor == nil {
		response.Unauthorized(c, "missing user context")
		return
	}

	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if permissions.Rank(req.Role) == 0 {
		response.BadRequest(c, "unknown role")
		return
	}

	target, err := h.users.UserByID(c.Request.Context(), targetID)
	if err != nil {
		h.logger.Error("lookup target user failed", zap.Error(err))
		response.Internal(c, "could not update role")
		return
	}
	if target == nil || target.TenantID != actor.TenantID {
		response.NotFound(c, "user not found")
		return
	}

	// The actor must outrank both the target's current role and the role
	// being assigned.
	if !permissions.CanAssign(actor.Role, req.Role) || !permissions.CanAssign(actor.Role, target.Role) {
		response.Forbidden(c, "cannot assign that role")
		return
	}

	if err := h.users.UpdateRole(c.Request.Context(), target.ID, req.Role); err != nil {
		h.logger.Error("update role failed", zap.Error(err))
		response.Internal(c, "could not update role")
		return
	}

	h.audit.Record(c.Request.Context(), actor.TenantID, &actor.ID, audit.ActionRoleChanged, "user", target.ID.String(), map[string]string{
		"from": string(target.Role),
		"to":   string(req.Role),
	})
	target.Role = req.Role
	response.OK(c, target.ToPublic())
}
