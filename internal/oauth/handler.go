package oauth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/craftlane/backend/internal/auth"
	"github.com/craftlane/backend/internal/httpctx"
	"github.com/craftlane/backend/pkg/cache"
	"github.com/craftlane/backend/pkg/metrics"
	"github.com/craftlane/backend/pkg/response"
)

// stateTTL bounds how long an authorization round-trip may take.
const stateTTL = 10 * time.Minute

const statePrefix = "oauth:state:"

// Handler exposes the OAuth login flow over HTTP.
type Handler struct {
	providers Registry
	linker    *Linker
	sessions  *auth.SessionManager
	states    cache.Cache
	logger    *zap.Logger
}

// NewHandler creates an OAuth handler.
func NewHandler(providers Registry, linker *Linker, sessions *auth.SessionManager, states cache.Cache, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{providers: providers, linker: linker, sessions: sessions, states: states, logger: logger}
}

// URL handles GET /auth/oauth/:provider/url. The state token pins the
// callback to the tenant the flow started on.
func (h *Handler) URL(c *gin.Context) {
	provider := h.providers.Provider(c.Param("provider"))
	if provider == nil {
		response.NotFound(c, "unknown provider")
		return
	}
	tenant := httpctx.Tenant(c)
	if tenant == nil {
		response.NotFound(c, "tenant not resolved")
		return
	}

	state, err := newState()
	if err != nil {
		h.logger.Error("generate oauth state failed", zap.Error(err))
		response.Internal(c, "could not start sign-in")
		return
	}
	if err := h.states.Set(c.Request.Context(), statePrefix+state, []byte(tenant.ID.String()), stateTTL); err != nil {
		h.logger.Error("store oauth state failed", zap.Error(err))
		response.Internal(c, "could not start sign-in")
		return
	}

	response.OK(c, gin.H{
		"url":   provider.AuthCodeURL(state),
		"state": state,
	})
}

// Callback handles GET /auth/oauth/:provider/callback and exchanges the
// authorization code for a session.
func (h *Handler) Callback(c *gin.Context) {
	name := c.Param("provider")
	provider := h.providers.Provider(name)
	if provider == nil {
		response.NotFound(c, "unknown provider")
		return
	}

	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		metrics.OAuthCallbackCounter.WithLabelValues(name, "rejected").Inc()
		response.BadRequest(c, "state and code are required")
		return
	}

	tenantID, ok := h.consumeState(c, state)
	if !ok {
		metrics.OAuthCallbackCounter.WithLabelValues(name, "rejected").Inc()
		response.Unauthorized(c, "invalid or expired state")
		return
	}

	identity, err := provider.Exchange(c.Request.Context(), code)
	if err != nil {
		metrics.OAuthCallbackCounter.WithLabelValues(name, "exchange_failed").Inc()
		h.logger.Warn("oauth exchange failed", zap.String("provider", name), zap.Error(err))
		response.Unauthorized(c, "sign-in could not be completed")
		return
	}

	u, err := h.linker.Resolve(c.Request.Context(), tenantID, identity)
	if err != nil {
		metrics.OAuthCallbackCounter.WithLabelValues(name, "rejected").Inc()
		switch {
		case errors.Is(err, ErrTenantMismatch), errors.Is(err, ErrUserDisabled):
			response.Unauthorized(c, "sign-in could not be completed")
		default:
			h.logger.Error("oauth link failed", zap.String("provider", name), zap.Error(err))
			response.Internal(c, "sign-in could not be completed")
		}
		return
	}

	pair, err := h.sessions.Issue(c.Request.Context(), u)
	if err != nil {
		h.logger.Error("session issue after oauth failed", zap.Error(err))
		response.Internal(c, "sign-in could not be completed")
		return
	}

	metrics.OAuthCallbackCounter.WithLabelValues(name, "ok").Inc()
	response.OK(c, gin.H{
		"user":   u.ToPublic(),
		"tokens": pair,
	})
}

// Unlink handles DELETE /auth/oauth/:provider for the authenticated user.
func (h *Handler) Unlink(c *gin.Context) {
	u := httpctx.User(c)
	if u == nil {
		response.Unauthorized(c, "missing user context")
		return
	}

	err := h.linker.Unlink(c.Request.Context(), u, c.Param("provider"))
	switch {
	case err == nil:
		response.NoContent(c)
	case errors.Is(err, ErrNotLinked):
		response.NotFound(c, "provider not linked")
	case errors.Is(err, ErrLastCredential):
		response.Conflict(c, "set a password before unlinking your only sign-in method")
	default:
		h.logger.Error("oauth unlink failed", zap.Error(err))
		response.Internal(c, "could not unlink provider")
	}
}

// consumeState validates the state token and returns the tenant the flow
// was started for. States are single-use.
func (h *Handler) consumeState(c *gin.Context, state string) (uuid.UUID, bool) {
	key := statePrefix + state
	raw, found, err := h.states.Get(c.Request.Context(), key)
	if err != nil || !found {
		return uuid.Nil, false
	}
	if err := h.states.Delete(c.Request.Context(), key); err != nil {
		h.logger.Warn("delete oauth state failed", zap.Error(err))
	}
	tenantID, err := uuid.Parse(string(raw))
	if err != nil {
		return uuid.Nil, false
	}
	return tenantID, true
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
