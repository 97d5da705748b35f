package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cnotv/recipes/internal/config"
	"github.com/cnotv/recipes/internal/realtime"
	"github.com/cnotv/recipes/internal/recipes"
	"github.com/cnotv/recipes/internal/repository"
	"github.com/cnotv/recipes/internal/service"
)

func writeRecipeDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"index.json": `["pad-thai.json", "carbonara.json"]`,
		"pad-thai.json": `{
			"url": "pad-thai", "cuisine": "thai",
			"languages": {"en": {"title": "Pad Thai", "ingredients": ["noodles"], "steps": []}}
		}`,
		"carbonara.json": `{
			"url": "carbonara", "cuisine": "italian",
			"languages": {
				"en": {"title": "Carbonara", "ingredients": ["pasta"], "steps": []},
				"de": {"title": "Carbonara", "ingredients": ["Pasta"], "steps": []}
			}
		}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func setupFullRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	library, err := recipes.Load(writeRecipeDir(t), logger)
	require.NoError(t, err)

	hub := realtime.NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)

	svc := service.NewSessionService(repository.NewMemorySessionStore(), hub)
	hub.SetSessionSource(svc)

	cfg := &config.Config{}
	return SetupRouter(cfg, logger,
		NewSessionHandler(svc, logger),
		NewRecipeHandler(library),
		hub)
}

func TestHealthz(t *testing.T) {
	router := setupFullRouter(t)
	res := performRequest(router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := setupFullRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/create-session", nil)
	req.Header.Set("Origin", "https://recipes.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.Empty(t, res.Body.String())
	assert.Equal(t, "*", res.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSHeadersOnResponse(t *testing.T) {
	router := setupFullRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
	req.Header.Set("Origin", "https://recipes.example.com")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "*", res.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecipeEndpoints(t *testing.T) {
	router := setupFullRouter(t)

	t.Run("list all", func(t *testing.T) {
		res := performRequest(router, http.MethodGet, "/api/recipes", nil)
		require.Equal(t, http.StatusOK, res.Code)
		assert.Contains(t, res.Body.String(), `"totalCount":2`)
	})

	t.Run("filter by cuisine", func(t *testing.T) {
		res := performRequest(router, http.MethodGet, "/api/recipes?cuisine=thai", nil)
		require.Equal(t, http.StatusOK, res.Code)
		body := res.Body.String()
		assert.Contains(t, body, "pad-thai")
		assert.NotContains(t, body, "carbonara")
	})

	t.Run("filter by language", func(t *testing.T) {
		res := performRequest(router, http.MethodGet, "/api/recipes?lang=de", nil)
		require.Equal(t, http.StatusOK, res.Code)
		body := res.Body.String()
		assert.Contains(t, body, "carbonara")
		assert.NotContains(t, body, "pad-thai")
	})

	t.Run("get by slug", func(t *testing.T) {
		res := performRequest(router, http.MethodGet, "/api/recipes/pad-thai", nil)
		require.Equal(t, http.StatusOK, res.Code)
		assert.Contains(t, res.Body.String(), "Pad Thai")

		res = performRequest(router, http.MethodGet, "/api/recipes/unknown", nil)
		assert.Equal(t, http.StatusNotFound, res.Code)
	})

	t.Run("cuisines", func(t *testing.T) {
		res := performRequest(router, http.MethodGet, "/api/cuisines", nil)
		require.Equal(t, http.StatusOK, res.Code)
		body := res.Body.String()
		assert.Contains(t, body, "italian")
		assert.Contains(t, body, "thai")
	})
}
