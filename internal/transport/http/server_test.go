package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savora/internal/bootstrap"
	"savora/internal/config"
)

type envelope struct {
	Error *string         `json:"error"`
	Data  json.RawMessage `json:"data"`
	Meta  *struct {
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"totalPages"`
	} `json:"meta"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	logs   *test.Hook
}

func newTestServer(t *testing.T, env map[string]string) *testServer {
	t.Helper()
	t.Setenv("CONFIG_FILE", "testdata-does-not-exist.toml")
	t.Setenv("DB_DRIVER", config.DriverMemory)
	t.Setenv("STORAGE_LOCAL_DIR", t.TempDir())
	t.Setenv("GIN_MODE", gin.TestMode)
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("JWT_SECRET", "scenario-secret")
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	app, err := bootstrap.NewWithConfig(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	return &testServer{t: t, router: NewRouter(app), logs: hook}
}

func (s *testServer) do(method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("auth-token", token)
	}
	return s.serve(req)
}

func (s *testServer) serve(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (s *testServer) registerAndLogin(username, email string) (userID, token string) {
	s.t.Helper()
	rec, _ := s.do(http.MethodPost, "/user/register", map[string]string{
		"username": username, "email": email, "password": "secret1",
	}, "")
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := s.do(http.MethodPost, "/user/login", map[string]string{
		"username": username, "password": "secret1",
	}, "")
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		UserID string `json:"userId"`
		Token  string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data.UserID, data.Token
}

func errorOf(t *testing.T, env envelope) string {
	t.Helper()
	require.NotNil(t, env.Error)
	return *env.Error
}

func TestScenario_RegisterLoginCreateFilter(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := s.do(http.MethodPost, "/user/register", map[string]string{
		"username": "alice01", "email": "a@x.com", "password": "secret1",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, env.Error)

	var profile map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	aliceID, _ := profile["id"].(string)
	assert.NotEmpty(t, aliceID)
	assert.Equal(t, "alice01", profile["username"])
	assert.Equal(t, "a@x.com", profile["email"])
	assert.NotContains(t, profile, "password")
	assert.NotContains(t, profile, "passwordHash")

	rec, env = s.do(http.MethodPost, "/user/login", map[string]string{
		"username": "alice01", "password": "secret1",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		UserID string `json:"userId"`
		Token  string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, aliceID, login.UserID)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, login.Token, rec.Header().Get("auth-token"))

	rec, env = s.do(http.MethodPost, "/recipes", map[string]any{
		"title":       "Soup",
		"ingredients": []string{"water", "salt"},
		"fullRecipe":  "Boil it.",
		"createdBy":   "someone-else",
	}, login.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var recipe map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &recipe))
	assert.Equal(t, aliceID, recipe["createdBy"])
	assert.Equal(t, "easy", recipe["difficulty"])

	rec, env = s.do(http.MethodGet, "/recipes?tags=soup", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, env.Error)
	assert.JSONEq(t, `[]`, string(env.Data))
	require.NotNil(t, env.Meta)
	assert.EqualValues(t, 0, env.Meta.Total)
	assert.Equal(t, 0, env.Meta.TotalPages)
	assert.Equal(t, 1, env.Meta.Page)
	assert.Equal(t, 20, env.Meta.Limit)

	rec, env = s.do(http.MethodGet, "/recipes?q=SOUP&limit=0", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, env.Meta.Total)
	assert.Equal(t, 1, env.Meta.TotalPages)
}

func TestRegisterDuplicateAndLoginFailures(t *testing.T) {
	s := newTestServer(t, nil)
	s.registerAndLogin("alice01", "a@x.com")

	rec, env := s.do(http.MethodPost, "/user/register", map[string]string{
		"username": "alice02", "email": "a@x.com", "password": "secret1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email is already registered", errorOf(t, env))

	rec, env = s.do(http.MethodPost, "/user/register", map[string]string{
		"username": "bob", "email": "b@x.com", "password": "secret1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `"username" length must be at least 6 characters long`, errorOf(t, env))

	_, unknown := s.do(http.MethodPost, "/user/login", map[string]string{"username": "nobody01", "password": "secret1"}, "")
	rec, wrong := s.do(http.MethodPost, "/user/login", map[string]string{"username": "alice01", "password": "nope123"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username or password is wrong", errorOf(t, wrong))
	assert.Equal(t, errorOf(t, unknown), errorOf(t, wrong))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := s.do(http.MethodPost, "/recipes", map[string]any{"title": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access denied, no token provided", errorOf(t, env))

	rec, env = s.do(http.MethodGet, "/user/me", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", errorOf(t, env))
}

func TestOwnershipBeatsValidation(t *testing.T) {
	s := newTestServer(t, nil)
	_, aliceToken := s.registerAndLogin("alice01", "a@x.com")
	_, bobToken := s.registerAndLogin("bobby01", "b@x.com")

	rec, env := s.do(http.MethodPost, "/recipes", map[string]any{
		"title": "Soup", "ingredients": "water, salt", "fullRecipe": "Boil it.", "difficulty": "medium",
	}, aliceToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var recipe struct {
		ID          string   `json:"id"`
		Ingredients []string `json:"ingredients"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &recipe))
	assert.Equal(t, []string{"water", "salt"}, recipe.Ingredients)

	rec, env = s.do(http.MethodPut, "/recipes/"+recipe.ID, map[string]any{"difficulty": "impossible"}, bobToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden, you can only update your own recipes", errorOf(t, env))

	rec, env = s.do(http.MethodDelete, "/recipes/"+recipe.ID, nil, bobToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden, you can only delete your own recipes", errorOf(t, env))

	rec, env = s.do(http.MethodPut, "/recipes/missing", map[string]any{"difficulty": "impossible"}, bobToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Recipe not found", errorOf(t, env))

	rec, env = s.do(http.MethodPut, "/recipes/"+recipe.ID, map[string]any{"difficulty": "impossible"}, aliceToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid difficulty. Use easy, medium, or hard.", errorOf(t, env))

	rec, env = s.do(http.MethodPut, "/recipes/"+recipe.ID, map[string]any{"title": "Better Soup", "createdBy": "bob"}, aliceToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "Better Soup", updated["title"])
	assert.Equal(t, "medium", updated["difficulty"])

	rec, env = s.do(http.MethodDelete, "/recipes/"+recipe.ID, nil, aliceToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"Recipe entry was deleted successfully."`, string(env.Data))

	rec, _ = s.do(http.MethodGet, "/recipes/"+recipe.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRejectsUnknownDifficulty(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := s.do(http.MethodGet, "/recipes?difficulty=extreme", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid difficulty. Use easy, medium, or hard.", errorOf(t, env))

	rec, _ = s.do(http.MethodGet, "/recipes?difficulty=all", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMultipartCreateServesImage(t *testing.T) {
	s := newTestServer(t, nil)
	_, token := s.registerAndLogin("alice01", "a@x.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Cake"))
	require.NoError(t, mw.WriteField("ingredients", `["flour","eggs"]`))
	require.NoError(t, mw.WriteField("fullRecipe", "Bake."))
	require.NoError(t, mw.WriteField("tags", "dessert,sweet"))
	require.NoError(t, mw.WriteField("cookingTime", "45"))
	fw, err := mw.CreateFormFile("image", "my cake.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake-png"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/recipes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("auth-token", token)
	rec, env := s.serve(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var recipe struct {
		Image       string   `json:"image"`
		Ingredients []string `json:"ingredients"`
		Tags        []string `json:"tags"`
		CookingTime int      `json:"cookingTime"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &recipe))
	assert.Equal(t, []string{"flour", "eggs"}, recipe.Ingredients)
	assert.Equal(t, []string{"dessert", "sweet"}, recipe.Tags)
	assert.Equal(t, 45, recipe.CookingTime)
	require.True(t, strings.HasPrefix(recipe.Image, "/uploads/"), recipe.Image)
	assert.True(t, strings.HasSuffix(recipe.Image, "-my-cake.png"), recipe.Image)

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, recipe.Image, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fake-png", rec.Body.String())
}

func TestDeleteMeCascades(t *testing.T) {
	s := newTestServer(t, nil)
	aliceID, aliceToken := s.registerAndLogin("alice01", "a@x.com")
	_, bobToken := s.registerAndLogin("bobby01", "b@x.com")

	for _, title := range []string{"Soup", "Stew"} {
		rec, _ := s.do(http.MethodPost, "/recipes", map[string]any{
			"title": title, "ingredients": []string{"water"}, "fullRecipe": "Cook.",
		}, aliceToken)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec, _ := s.do(http.MethodPost, "/recipes", map[string]any{
		"title": "Pie", "ingredients": []string{"apple"}, "fullRecipe": "Bake.",
	}, bobToken)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := s.do(http.MethodPatch, "/user/me", map[string]any{"bio": "I cook."}, aliceToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "I cook.", me["bio"])

	rec, _ = s.do(http.MethodDelete, "/user/me", nil, aliceToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = s.do(http.MethodGet, "/recipes?createdBy="+aliceID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, env.Meta.Total)

	rec, env = s.do(http.MethodGet, "/recipes", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, env.Meta.Total)

	rec, env = s.do(http.MethodGet, "/user/me", nil, aliceToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", errorOf(t, env))
}

func TestLoginRateLimitWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	s := newTestServer(t, map[string]string{
		"REDIS_ENABLED":    "true",
		"REDIS_ADDR":       mr.Addr(),
		"LOGIN_RATE_LIMIT": "2",
	})

	for i := 0; i < 2; i++ {
		rec, _ := s.do(http.MethodPost, "/user/login", map[string]string{"username": "nobody01", "password": "secret1"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec, env := s.do(http.MethodPost, "/user/login", map[string]string{"username": "nobody01", "password": "secret1"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "Too many login attempts, please try again later.", errorOf(t, env))
}

func TestRecipeCacheWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	s := newTestServer(t, map[string]string{"REDIS_ENABLED": "true", "REDIS_ADDR": mr.Addr()})
	_, token := s.registerAndLogin("alice01", "a@x.com")

	rec, env := s.do(http.MethodPost, "/recipes", map[string]any{
		"title": "Soup", "ingredients": []string{"water"}, "fullRecipe": "Boil.",
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	rec, _ = s.do(http.MethodGet, "/recipes/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, mr.Exists("savora:recipe:"+created.ID))

	rec, _ = s.do(http.MethodPut, "/recipes/"+created.ID, map[string]any{"title": "Soup 2"}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, mr.Exists("savora:recipe:"+created.ID))

	rec, env = s.do(http.MethodGet, "/recipes/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Soup 2", got["title"])
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to SAVORA", rec.Body.String())

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "memory", health["driver"])
}

func TestCreateRejectsEmptyDifficulty(t *testing.T) {
	s := newTestServer(t, nil)
	_, token := s.registerAndLogin("alice01", "a@x.com")

	rec, env := s.do(http.MethodPost, "/recipes", map[string]any{
		"title": "Soup", "ingredients": []string{"water"}, "fullRecipe": "Boil.", "difficulty": "",
	}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid difficulty. Use easy, medium, or hard.", errorOf(t, env))
}

func TestOversizedBodyIsRejected(t *testing.T) {
	s := newTestServer(t, map[string]string{"STORAGE_MAX_UPLOAD_MB": "1"})
	_, token := s.registerAndLogin("alice01", "a@x.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Cake"))
	fw, err := mw.CreateFormFile("image", "big.png")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte{'x'}, 3<<20))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/recipes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("auth-token", token)
	rec, env := s.serve(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File too large", errorOf(t, env))

	rec, _ = s.do(http.MethodGet, "/recipes", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHidesDependencyErrors(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	addr := mr.Addr()
	s := newTestServer(t, map[string]string{"REDIS_ENABLED": "true", "REDIS_ADDR": addr})
	mr.Close()

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), addr)

	var health struct {
		Dependencies map[string]struct {
			OK      bool   `json:"ok"`
			Message string `json:"message"`
		} `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.False(t, health.Dependencies["redis"].OK)
	assert.Equal(t, "unreachable", health.Dependencies["redis"].Message)

	var logged bool
	for _, e := range s.logs.AllEntries() {
		if e.Message == "health check failed" && e.Data["dependency"] == "redis" {
			logged = true
		}
	}
	assert.True(t, logged)
}
