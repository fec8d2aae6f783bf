package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"inkfeed/internal/config"
	"inkfeed/internal/database"
	"inkfeed/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		JWTSecret:               testSecret,
		Port:                    "0",
		Env:                     "test",
		FeedDefaultLimit:        20,
		FeedMaxLimit:            50,
		FollowingFallback:       config.FollowingFallbackPublic,
		InvalidCursorPolicy:     config.InvalidCursorReset,
		FeedCountCacheTTL:       30 * time.Second,
		CacheBackend:            config.CacheBackendMemory,
		CacheSize:               128,
		SchedulerMaxConcurrency: 4,
		ToggleMaxAttempts:       3,
		ToggleBaseDelay:         time.Millisecond,
		ToggleScopeTimeout:      5 * time.Second,
		MediaDir:                t.TempDir(),
		MediaBaseURL:            "/media",
		MediaMaxUploadMB:        10,
	}
}

func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// newTestApp wires a full server over an in-memory database without Redis.
func newTestApp(t *testing.T, mutate ...func(*config.Config)) (*fiber.App, *Server, *gorm.DB) {
	t.Helper()
	cfg := testConfig(t)
	for _, m := range mutate {
		m(cfg)
	}
	db := setupSQLiteDB(t)
	s, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)
	t.Cleanup(s.sched.Close)
	return s.NewApp(), s, db
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createPosts(t *testing.T, db *gorm.DB, author uint, n int, mutate ...func(i int, p *models.Post)) []*models.Post {
	t.Helper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		p := &models.Post{
			UserID:    author,
			Caption:   fmt.Sprintf("post %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		for _, m := range mutate {
			m(i, p)
		}
		require.NoError(t, db.Create(p).Error)
		posts = append(posts, p)
	}
	return posts
}

func bearer(t *testing.T, userID uint) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + tok
}

// do sends a request and returns the status and raw body. userID 0 sends
// no Authorization header.
func do(t *testing.T, app *fiber.App, method, target string, userID uint, body io.Reader, contentType string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	if userID != 0 {
		req.Header.Set(fiber.HeaderAuthorization, bearer(t, userID))
	}
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func doJSON(t *testing.T, app *fiber.App, method, target string, userID uint, body string, out any) int {
	t.Helper()
	var r io.Reader
	ct := ""
	if body != "" {
		r = strings.NewReader(body)
		ct = fiber.MIMEApplicationJSON
	}
	status, raw := do(t, app, method, target, userID, r, ct)
	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}
	return status
}

type feedItemBody struct {
	ID                string `json:"id"`
	UserID            uint   `json:"user_id"`
	LikesCount        int    `json:"likes_count"`
	IsLiked           bool   `json:"isLiked"`
	IsSaved           bool   `json:"isSaved"`
	IsFollowingAuthor bool   `json:"isFollowingAuthor"`
}

type feedBody struct {
	Items      []feedItemBody   `json:"items"`
	NextCursor *string          `json:"nextCursor"`
	Pagination *models.PageInfo `json:"pagination"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
