package magiclink

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/craftlane/backend/internal/httpctx"
)

func requestRouter(t *testing.T, fx *issuerFixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(httpctx.ContextTenant, fx.tenant)
		c.Next()
	})
	h := NewHandler(fx.issuer, nil, nil, "https://acme.craftlane.app", nil)
	r.POST("/auth/magic-link", h.Request)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRequestResponseIdenticalForUnknownEmail(t *testing.T) {
	fx := newIssuerFixture(t)
	r := requestRouter(t, fx)

	known := postJSON(r, "/auth/magic-link", `{"email":"alex@example.com"}`)
	unknown := postJSON(r, "/auth/magic-link", `{"email":"ghost@example.com"}`)

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("status codes = %d, %d, want both 200", known.Code, unknown.Code)
	}
	if !bytes.Equal(known.Body.Bytes(), unknown.Body.Bytes()) {
		t.Fatalf("bodies differ:\nknown:   %s\nunknown: %s", known.Body.String(), unknown.Body.String())
	}
}

func TestRequestStoresLinkOnlyForKnownEmail(t *testing.T) {
	fx := newIssuerFixture(t)
	r := requestRouter(t, fx)

	postJSON(r, "/auth/magic-link", `{"email":"alex@example.com"}`)
	postJSON(r, "/auth/magic-link", `{"email":"ghost@example.com"}`)

	if got := len(fx.links.byToken); got != 1 {
		t.Fatalf("stored %d links, want 1", got)
	}
	for _, l := range fx.links.byToken {
		if l.Email != "alex@example.com" {
			t.Fatalf("stored link for %s", l.Email)
		}
	}
}

func TestRequestRejectsWithoutTenant(t *testing.T) {
	fx := newIssuerFixture(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(fx.issuer, nil, nil, "https://craftlane.app", nil)
	r.POST("/auth/magic-link", h.Request)

	w := postJSON(r, "/auth/magic-link", `{"email":"alex@example.com"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
