package server

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"posterboard/internal/config"
	"posterboard/internal/database"
	"posterboard/internal/models"
	"posterboard/internal/storage"
	"posterboard/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTeamSecret = testutil.TeamSecret

type testEnv struct {
	server *Server
	app    *fiber.App
	blobs  *storage.MemoryStore
	redis  *miniredis.Miniredis
}

func newTestEnv(t *testing.T, mutate func(*config.Config), withRedis bool) *testEnv {
	t.Helper()
	cfg := testutil.Config(t)
	if mutate != nil {
		mutate(cfg)
	}

	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)

	env := &testEnv{blobs: storage.NewMemory(cfg.BlobPublicURL)}
	var rdb *redis.Client
	if withRedis {
		env.redis = miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: env.redis.Addr()})
	}

	srv, err := NewServerWithDeps(cfg, db, rdb, env.blobs)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	app := srv.NewApp()
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)
	env.server = srv
	env.app = app
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *testEnv) unlock(t *testing.T) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/team/unlock", map[string]string{"secret": testTeamSecret}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[unlockResponse](t, resp)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (e *testEnv) createPin(t *testing.T, x, y float64, body string) models.Pin {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/pins", createPinRequest{X: x, Y: y, Body: body}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[models.Pin](t, resp)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, false)

	resp := env.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[map[string]any](t, resp)
	checks := out["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "disabled", checks["redis"])
	assert.Equal(t, "healthy", checks["blob"])
}

func TestCreateAndListPins(t *testing.T) {
	env := newTestEnv(t, nil, false)

	pin := env.createPin(t, 0.5, 0.25, "Great show!")
	assert.NotEmpty(t, pin.ID)
	assert.Equal(t, "Great show!", pin.Body)
	assert.InDelta(t, 0.5, pin.X, 1e-12)
	assert.InDelta(t, 0.25, pin.Y, 1e-12)

	resp := env.do(t, http.MethodGet, "/api/pins", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pins := decode[[]models.Pin](t, resp)
	require.Len(t, pins, 1)
	assert.Equal(t, pin.ID, pins[0].ID)
}

func TestCreatePin_EmptyBody(t *testing.T) {
	env := newTestEnv(t, nil, false)

	resp := env.do(t, http.MethodPost, "/api/pins", createPinRequest{X: 0.1, Y: 0.1, Body: "   "}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, models.CodeValidation, out.Code)

	resp = env.do(t, http.MethodGet, "/api/pins", nil, "")
	assert.Empty(t, decode[[]models.Pin](t, resp))
}

func TestCreatePin_Cooldown(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	env := newTestEnv(t, nil, true)

	env.createPin(t, 0.1, 0.1, "first")

	resp := env.do(t, http.MethodPost, "/api/pins", createPinRequest{X: 0.2, Y: 0.2, Body: "second"}, "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	out := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, "Please wait 10 seconds between posts.", out.Error)

	env.redis.FastForward(11 * time.Second)
	env.createPin(t, 0.3, 0.3, "third")
}

func TestListPinsForTeam(t *testing.T) {
	env := newTestEnv(t, nil, false)

	resp := env.do(t, http.MethodGet, "/api/pins/list", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	first := env.createPin(t, 0.1, 0.1, "older")
	second := env.createPin(t, 0.2, 0.2, "newer")
	resp = env.do(t, http.MethodPost, "/api/pins/"+first.ID+"/replies", createReplyRequest{Body: "me too"}, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	token := env.unlock(t)
	resp = env.do(t, http.MethodGet, "/api/pins/list", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	pins := decode[[]models.Pin](t, resp)
	require.Len(t, pins, 2)
	byID := map[string]models.Pin{}
	for _, p := range pins {
		byID[p.ID] = p
	}
	require.NotNil(t, byID[first.ID].ReplyCount)
	assert.Equal(t, int64(1), *byID[first.ID].ReplyCount)
	require.NotNil(t, byID[second.ID].ReplyCount)
	assert.Equal(t, int64(0), *byID[second.ID].ReplyCount)
}

func TestUnlock_WrongSecret(t *testing.T) {
	env := newTestEnv(t, nil, false)

	resp := env.do(t, http.MethodPost, "/api/team/unlock", map[string]string{"secret": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	out := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, models.CodeUnauthorized, out.Code)
}

func TestDeletePin(t *testing.T) {
	t.Run("existing pin", func(t *testing.T) {
		env := newTestEnv(t, nil, false)
		pin := env.createPin(t, 0.4, 0.4, "bye")

		resp := env.do(t, http.MethodDelete, "/api/pins/"+pin.ID, nil, "")
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = env.do(t, http.MethodGet, "/api/pins", nil, "")
		assert.Empty(t, decode[[]models.Pin](t, resp))
	})

	t.Run("zero rows is delete denied", func(t *testing.T) {
		env := newTestEnv(t, nil, false)

		resp := env.do(t, http.MethodDelete, "/api/pins/"+uuid.NewString(), nil, "")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		out := decode[models.ErrorResponse](t, resp)
		assert.Equal(t, models.CodeDeleteDenied, out.Code)
		assert.Equal(t, "Delete was blocked. A policy change is required to delete pins.", out.Error)
	})

	t.Run("team policy", func(t *testing.T) {
		env := newTestEnv(t, func(c *config.Config) { c.DeletePolicy = config.DeletePolicyTeam }, false)
		pin := env.createPin(t, 0.4, 0.4, "guarded")

		resp := env.do(t, http.MethodDelete, "/api/pins/"+pin.ID, nil, "")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = env.do(t, http.MethodDelete, "/api/pins/"+pin.ID, nil, env.unlock(t))
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("malformed id", func(t *testing.T) {
		env := newTestEnv(t, nil, false)
		resp := env.do(t, http.MethodDelete, "/api/pins/not-a-uuid", nil, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestReplies(t *testing.T) {
	env := newTestEnv(t, nil, false)
	pin := env.createPin(t, 0.5, 0.5, "thread")

	for _, body := range []string{"one", "two"} {
		resp := env.do(t, http.MethodPost, "/api/pins/"+pin.ID+"/replies", createReplyRequest{AuthorName: "Sam", Body: body}, "")
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
	}

	resp := env.do(t, http.MethodGet, "/api/pins/"+pin.ID+"/replies", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	replies := decode[[]models.Reply](t, resp)
	require.Len(t, replies, 2)
	assert.Equal(t, "one", replies[0].Body)
	assert.Equal(t, "two", replies[1].Body)

	resp = env.do(t, http.MethodPost, "/api/pins/"+uuid.NewString()+"/replies", createReplyRequest{Body: "orphan"}, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/pins/"+pin.ID+"/replies", createReplyRequest{Body: ""}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeletePin_CascadesReplies(t *testing.T) {
	env := newTestEnv(t, nil, false)
	pin := env.createPin(t, 0.5, 0.5, "thread")
	resp := env.do(t, http.MethodPost, "/api/pins/"+pin.ID+"/replies", createReplyRequest{Body: "reply"}, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/pins/"+pin.ID, nil, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var count int64
	require.NoError(t, env.server.db.Model(&models.Reply{}).Where("pin_id = ?", pin.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func posterUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestPoster(t *testing.T) {
	env := newTestEnv(t, nil, false)

	resp := env.do(t, http.MethodGet, "/api/poster", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	img := testutil.PNG(t, 64, 32)

	body, contentType := posterUpload(t, "show.png", img)
	req := httptest.NewRequest(http.MethodPost, "/api/poster", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := env.app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body, contentType = posterUpload(t, "show.png", img)
	req = httptest.NewRequest(http.MethodPost, "/api/poster", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+env.unlock(t))
	resp, err = env.app.Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	uploaded := decode[models.PosterInfo](t, resp)
	assert.Equal(t, "current_poster.png", uploaded.Key)
	assert.Equal(t, 64, uploaded.Width)

	resp = env.do(t, http.MethodGet, "/api/poster", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	current := decode[models.PosterInfo](t, resp)
	assert.True(t, strings.HasPrefix(current.URL, "http://blob.local/posters/current_poster.png?t="))
}

func TestWebsocketRoutesRequireUpgrade(t *testing.T) {
	env := newTestEnv(t, nil, false)

	resp := env.do(t, http.MethodGet, "/api/ws/board", nil, "")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestCooldownMessage(t *testing.T) {
	assert.Equal(t, "Please wait 10 seconds between posts.", cooldownMessage(10*time.Second))
	assert.Equal(t, "Please wait 1 second between posts.", cooldownMessage(time.Second))
}
