package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"arthings/internal/config"
	"arthings/internal/database"
	"arthings/internal/email"
	"arthings/internal/middleware"
	"arthings/internal/models"
	"arthings/internal/uploads"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	r     *gin.Engine
	db    *sqlx.DB
	cfg   *config.Config
	store *uploads.Store
}

func setupApp(t *testing.T) *testApp {
	t.Helper()
	return setupAppWithConfig(t, nil)
}

// setupAppWithConfig lets a test adjust the config before the services are built.
func setupAppWithConfig(t *testing.T, configure func(cfg *config.Config)) *testApp {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		Environment:         "development",
		SessionDuration:     time.Hour,
		UploadDir:           filepath.Join(t.TempDir(), "uploads"),
		UploadURLPrefix:     "/uploads",
		MaxUploadBytes:      1 << 20,
		MaxImagesPerListing: 5,
		LegalDocsDir:        t.TempDir(),
	}
	if configure != nil {
		configure(cfg)
	}

	store, err := uploads.NewStore(cfg.UploadDir, cfg.UploadURLPrefix, cfg.MaxUploadBytes, cfg.MaxImagesPerListing)
	require.NoError(t, err)

	r := gin.New()
	SetupRoutes(r, db, cfg, email.NewService(cfg), store)

	return &testApp{r: r, db: db, cfg: cfg, store: store}
}

// login creates a user with a live session and returns its cookie.
func (a *testApp) login(t *testing.T, emailAddr string) (*models.User, *http.Cookie) {
	t.Helper()
	user, err := database.CreateUser(a.db, database.NewUser{Email: emailAddr, Password: "password123", City: "Kyiv"})
	require.NoError(t, err)
	session, err := database.CreateSession(a.db, user.ID, time.Hour)
	require.NoError(t, err)
	return user, &http.Cookie{Name: middleware.SessionCookie, Value: session.ID}
}

func (a *testApp) loginAdmin(t *testing.T, emailAddr string) (*models.User, *http.Cookie) {
	t.Helper()
	user, cookie := a.login(t, emailAddr)
	_, err := database.PromoteAdmin(a.db, emailAddr)
	require.NoError(t, err)
	return user, cookie
}

func (a *testApp) createItem(t *testing.T, ownerID int, title string, price float64) *models.Item {
	t.Helper()
	item, err := database.CreateItem(a.db, database.NewItem{
		UserID:      ownerID,
		Title:       title,
		Description: title + " for rent",
		Category:    "tools",
		PricePerDay: price,
		City:        "Kyiv",
	}, nil)
	require.NoError(t, err)
	return item
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	msg, _ := decode(t, w)["error"].(string)
	return msg
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	app := setupApp(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodGet, "/api/favorites"},
		{http.MethodGet, "/api/rentals"},
		{http.MethodPost, "/api/ratings"},
		{http.MethodGet, "/api/admin/stats"},
	} {
		w := app.do(t, tc.method, tc.path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	app := setupApp(t)

	w := app.do(t, http.MethodGet, "/api/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", errorOf(t, w))
}

func TestInfrastructureErrorsAreNotLeaked(t *testing.T) {
	app := setupApp(t)
	require.NoError(t, app.db.Close())

	w := app.do(t, http.MethodGet, "/api/products", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())

	w = app.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", decode(t, w)["status"])
}

func TestHealthAndConfig(t *testing.T) {
	app := setupApp(t)

	w := app.do(t, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "connected", decode(t, w)["database"])

	w = app.do(t, http.MethodGet, "/api/config", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["categories"], 12)
	cities := body["cities"].([]interface{})
	require.NotEmpty(t, cities)
	assert.IsType(t, "", cities[0])
}
