package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"memorybox/internal/badges"
	"memorybox/internal/database"
	"memorybox/internal/metrics"
	"memorybox/internal/middleware"
	"memorybox/internal/response"
	"memorybox/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// likeOnlyGroups implements LikeGroup; any other call panics through the
// nil embedded interface
type likeOnlyGroups struct {
	services.GroupService
	likes int64
}

func (g *likeOnlyGroups) LikeGroup(ctx context.Context, groupID int64) (int64, error) {
	g.likes++
	return g.likes, nil
}

type staticBadges struct {
	services.BadgeService
}

func (staticBadges) ListDefinitions() []services.BadgeDefinition {
	return []services.BadgeDefinition{{ID: badges.TwentyPosts, Label: "20 memories"}}
}

func (staticBadges) GetGroupBadges(ctx context.Context, groupID int64) (*services.GroupBadges, error) {
	return &services.GroupBadges{GroupID: groupID, Badges: []string{badges.TwentyPosts}}, nil
}

func newTestRouter(t *testing.T, mutate func(*Dependencies)) http.Handler {
	t.Helper()
	deps := &Dependencies{
		Groups: &likeOnlyGroups{},
		Badges: staticBadges{},
		RateLimit: &middleware.RateLimiterConfig{
			Enabled:           true,
			RequestsPerSecond: 0.001,
			Burst:             2,
			IdleTTL:           time.Minute,
			MaxClients:        10,
		},
		Builder: response.NewBuilder(nil, zap.NewNop()),
		Logger:  zap.NewNop(),
	}
	if mutate != nil {
		mutate(deps)
	}
	return New(deps)
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRouter_BadgeRoutes(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := serve(h, http.MethodGet, "/api/badges")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), badges.TwentyPosts)
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderXRequestID))

	rec = serve(h, http.MethodGet, "/api/groups/12/badges")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"groupId":12`)
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := serve(h, http.MethodGet, "/api/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)

	rec = serve(h, http.MethodPatch, "/api/badges")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_PanicsBecome500(t *testing.T) {
	// GetGroup is not implemented by the fake, so the nil interface panics
	rec := serve(newTestRouter(t, nil), http.MethodGet, "/api/groups/1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestRouter_LikeIsRateLimited(t *testing.T) {
	groups := &likeOnlyGroups{}
	h := newTestRouter(t, func(d *Dependencies) { d.Groups = groups })

	assert.Equal(t, http.StatusOK, serve(h, http.MethodPost, "/api/groups/1/like").Code)
	assert.Equal(t, http.StatusOK, serve(h, http.MethodPost, "/api/groups/1/like").Code)

	rec := serve(h, http.MethodPost, "/api/groups/1/like")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, int64(2), groups.likes)

	// reads are not limited
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/badges").Code)
	}
}

func TestRouter_ForwardedForOnlyFromTrustedProxies(t *testing.T) {
	like := func(h http.Handler, peer, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/groups/1/like", nil)
		req.RemoteAddr = peer + ":50000"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	direct := newTestRouter(t, nil)
	accepted := 0
	for i := 0; i < 20; i++ {
		if like(direct, "203.0.113.9", fmt.Sprintf("198.51.100.%d", i)) == http.StatusOK {
			accepted++
		}
	}
	assert.Equal(t, 2, accepted)

	// behind a trusted balancer each forwarded client gets its own bucket
	proxied := newTestRouter(t, func(d *Dependencies) { d.TrustedProxies = []string{"10.0.0.0/8"} })
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, like(proxied, "10.0.0.2", fmt.Sprintf("198.51.100.%d", i)))
	}
	assert.Equal(t, http.StatusOK, like(proxied, "10.0.0.2", "198.51.100.50"))
	assert.Equal(t, http.StatusOK, like(proxied, "10.0.0.2", "198.51.100.50"))
	assert.Equal(t, http.StatusTooManyRequests, like(proxied, "10.0.0.2", "198.51.100.50"))
}

func TestRouter_Health(t *testing.T) {
	rec := serve(newTestRouter(t, nil), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	h := newTestRouter(t, func(d *Dependencies) {
		d.Health = func(context.Context) *services.ServiceHealth {
			return &services.ServiceHealth{Status: database.StatusUnhealthy, Issues: []string{"database: connection refused"}}
		}
	})
	rec = serve(h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Data services.ServiceHealth `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, database.StatusUnhealthy, body.Data.Status)
}

func TestRouter_MetricsUseRoutePatterns(t *testing.T) {
	m := metrics.New(nil)
	h := newTestRouter(t, func(d *Dependencies) { d.Metrics = m })

	serve(h, http.MethodGet, "/api/groups/77/badges")
	rec := serve(h, http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `route="/api/groups/{groupId}/badges"`)
	assert.False(t, strings.Contains(body, "/api/groups/77"))
}

func TestRouter_ServesUploadsWithoutListing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.gif"), []byte("GIF89a"), 0o644))

	h := newTestRouter(t, func(d *Dependencies) {
		d.UploadDir = dir
		d.UploadPath = "/uploads"
	})

	rec := serve(h, http.MethodGet, "/uploads/a.gif")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GIF89a", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/uploads/").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/uploads/missing.gif").Code)
}
