package magiclink

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/craftlane/backend/internal/auth"
	"github.com/craftlane/backend/internal/httpctx"
	"github.com/craftlane/backend/pkg/metrics"
	"github.com/craftlane/backend/pkg/queue"
	"github.com/craftlane/backend/pkg/response"
)

// requestAccepted is the body returned from the request endpoint no matter
// whether the email maps to an account. Keeping it a package constant makes
// the byte-identity easy to hold onto.
const requestAccepted = "If an account exists for that email, a sign-in link is on its way."

// Handler exposes magic link issuance and verification over HTTP.
type Handler struct {
	issuer   *Issuer
	sessions *auth.SessionManager
	jobs     *queue.Queue
	appURL   string
	logger   *zap.Logger
}

// NewHandler creates a magic link handler. jobs may be nil when no mail
// pipeline is configured; issuance then only logs the link.
func NewHandler(issuer *Issuer, sessions *auth.SessionManager, jobs *queue.Queue, appURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{issuer: issuer, sessions: sessions, jobs: jobs, appURL: appURL, logger: logger}
}

type requestLinkInput struct {
	Email string `json:"email" binding:"required,email"`
}

// Request handles POST /auth/magic-link. The success response is identical
// whether or not the email belongs to an account, so the endpoint cannot be
// used to probe for registered users.
func (h *Handler) Request(c *gin.Context) {
	tenant := httpctx.Tenant(c)
	if tenant == nil {
		response.NotFound(c, "tenant not resolved")
		return
	}

	var input requestLinkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, "a valid email is required")
		return
	}

	link, err := h.issuer.Create(c.Request.Context(), tenant.ID, input.Email)
	if err == nil {
		metrics.MagicLinkCounter.WithLabelValues("issued").Inc()
		h.deliver(c, tenant.Name, link.Email, link.Token)
	} else {
		metrics.MagicLinkCounter.WithLabelValues("suppressed").Inc()
		h.logger.Info("magic link not issued",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err),
		)
	}

	response.OK(c, gin.H{"message": requestAccepted})
}

type verifyLinkInput struct {
	Token string `json:"token" binding:"required"`
}

// Verify handles POST /auth/magic-link/verify and exchanges a valid token
// for a session.
func (h *Handler) Verify(c *gin.Context) {
	var input verifyLinkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, "token is required")
		return
	}

	u, err := h.issuer.Consume(c.Request.Context(), input.Token)
	if err != nil {
		metrics.MagicLinkCounter.WithLabelValues("rejected").Inc()
		switch {
		case errors.Is(err, ErrUsed):
			response.Conflict(c, "this link has already been used")
		case errors.Is(err, ErrExpired):
			response.Unauthorized(c, "this link has expired")
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrUserDisabled), errors.Is(err, ErrTenantDisabled):
			response.Unauthorized(c, "invalid link")
		default:
			h.logger.Error("magic link verification failed", zap.Error(err))
			response.Internal(c, "could not verify link")
		}
		return
	}

	pair, err := h.sessions.Issue(c.Request.Context(), u)
	if err != nil {
		h.logger.Error("session issue after magic link failed", zap.Error(err))
		response.Internal(c, "could not sign in")
		return
	}

	metrics.MagicLinkCounter.WithLabelValues("verified").Inc()
	response.OK(c, gin.H{
		"user":   u.ToPublic(),
		"tokens": pair,
	})
}

// deliver hands the sign-in mail to the job queue. Failures are logged and
// swallowed: the caller already received the acceptance response.
func (h *Handler) deliver(c *gin.Context, tenantName, email, token string) {
	url := fmt.Sprintf("%s/auth/magic?token=%s", h.appURL, token)
	if h.jobs == nil {
		h.logger.Info("mail pipeline not configured, logging magic link",
			zap.String("email", email),
			zap.String("url", url),
		)
		return
	}
	payload := queue.EmailPayload{
		To:      email,
		Subject: fmt.Sprintf("Sign in to %s", tenantName),
		BodyHTML: fmt.Sprintf(
			`<p>Click the link below to sign in to %s. It expires in 15 minutes and works once.</p><p><a href="%s">Sign in</a></p>`,
			tenantName, url,
		),
	}
	if err := h.jobs.Enqueue(c.Request.Context(), queue.QueueEmails, queue.JobTypeEmail, payload); err != nil {
		h.logger.Error("enqueue magic link email failed", zap.Error(err))
	}
}
