package posts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"memorybox/internal/models"
	"memorybox/internal/response"
	"memorybox/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPostService struct {
	created    *services.CreatePostRequest
	updated    *services.UpdatePostRequest
	listParams models.PostListParams
	deletePass string
	verifyPass string
	err        error
}

func (m *mockPostService) CreatePost(ctx context.Context, req *services.CreatePostRequest) (*models.Post, error) {
	m.created = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Post{ID: 7, GroupID: req.GroupID, Title: req.Title, Tags: req.Tags}, nil
}

func (m *mockPostService) GetPost(ctx context.Context, postID int64) (*models.Post, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Post{ID: postID, Title: "beach"}, nil
}

func (m *mockPostService) ListPosts(ctx context.Context, params models.PostListParams) (*models.Page[*models.Post], error) {
	m.listParams = params
	return models.NewPage([]*models.Post{{ID: 1}}, params.PaginationParams, 1), nil
}

func (m *mockPostService) UpdatePost(ctx context.Context, req *services.UpdatePostRequest) (*models.Post, error) {
	m.updated = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Post{ID: req.PostID, Title: req.Title}, nil
}

func (m *mockPostService) DeletePost(ctx context.Context, postID int64, password string) error {
	m.deletePass = password
	return m.err
}

func (m *mockPostService) VerifyPassword(ctx context.Context, postID int64, password string) error {
	m.verifyPass = password
	return m.err
}

func (m *mockPostService) LikePost(ctx context.Context, postID int64) (int64, error) {
	return 10000, m.err
}

func (m *mockPostService) IsPublic(ctx context.Context, postID int64) (bool, error) {
	return false, m.err
}

func setupRouter(svc services.PostService) http.Handler {
	c := NewPostController(svc, zap.NewNop(), response.NewBuilder(nil, zap.NewNop()))
	r := chi.NewRouter()
	r.Post("/api/groups/{groupId}/posts", c.CreatePost)
	r.Get("/api/groups/{groupId}/posts", c.ListPosts)
	r.Get("/api/posts/{postId}", c.GetPost)
	r.Put("/api/posts/{postId}", c.UpdatePost)
	r.Delete("/api/posts/{postId}", c.DeletePost)
	r.Post("/api/posts/{postId}/verify-password", c.VerifyPassword)
	r.Post("/api/posts/{postId}/like", c.LikePost)
	r.Get("/api/posts/{postId}/is-public", c.IsPublic)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func dataOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body response.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data, _ := body.Data.(map[string]interface{})
	return data
}

func TestCreatePost(t *testing.T) {
	svc := &mockPostService{}
	rec := do(setupRouter(svc), http.MethodPost, "/api/groups/4/posts", `{
		"nickname":"kim","title":"beach","content":"sunny","postPassword":"pp11",
		"groupPassword":"gp11","tags":["sea","summer"],"moment":"2024-02-21T17:47:00Z","isPublic":true}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, int64(4), svc.created.GroupID)
	assert.Equal(t, "gp11", svc.created.GroupPassword)
	require.NotNil(t, svc.created.Moment)
	assert.Equal(t, 2024, svc.created.Moment.Year())
	assert.Equal(t, float64(4), dataOf(t, rec)["groupId"])
}

func TestCreatePost_WrongGroupPassword(t *testing.T) {
	svc := &mockPostService{err: services.NewForbiddenError("group password does not match")}
	rec := do(setupRouter(svc), http.MethodPost, "/api/groups/4/posts", `{"title":"x"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListPosts(t *testing.T) {
	svc := &mockPostService{}
	rec := do(setupRouter(svc), http.MethodGet, "/api/groups/4/posts?sortBy=mostCommented&keyword=sea", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(4), svc.listParams.GroupID)
	assert.Equal(t, models.PostSortMostCommented, svc.listParams.SortBy)
	assert.Equal(t, "sea", svc.listParams.Keyword)
	assert.Nil(t, svc.listParams.IsPublic)

	rec = do(setupRouter(svc), http.MethodGet, "/api/groups/x/posts", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostPasswordFlows(t *testing.T) {
	svc := &mockPostService{}
	h := setupRouter(svc)

	rec := do(h, http.MethodPut, "/api/posts/9", `{"postPassword":"pp11","nickname":"kim","title":"new"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(9), svc.updated.PostID)

	rec = do(h, http.MethodPost, "/api/posts/9/verify-password", `{"postPassword":"pp11"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pp11", svc.verifyPass)

	rec = do(h, http.MethodDelete, "/api/posts/9", `{"postPassword":"pp11"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pp11", svc.deletePass)
	assert.Equal(t, "post deleted", dataOf(t, rec)["message"])

	missing := &mockPostService{err: services.EntityNotFoundError("post", 9)}
	rec = do(setupRouter(missing), http.MethodDelete, "/api/posts/9", `{"postPassword":"pp11"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLikeAndVisibility(t *testing.T) {
	h := setupRouter(&mockPostService{})

	rec := do(h, http.MethodPost, "/api/posts/2/like", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(10000), dataOf(t, rec)["likeCount"])

	rec = do(h, http.MethodGet, "/api/posts/2/is-public", "")
	assert.Equal(t, false, dataOf(t, rec)["isPublic"])

	rec = do(h, http.MethodGet, "/api/posts/2", "")
	assert.Equal(t, "beach", dataOf(t, rec)["title"])
}
