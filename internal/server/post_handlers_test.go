package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"inkfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartPost(t *testing.T, fields map[string]string, img []byte, imageType string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if img != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="piece.png"`)
		h.Set("Content-Type", imageType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(img)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < 8; i++ {
		img.Set(i, i, color.RGBA{B: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCreatePost_CaptionOnlyLifecycle(t *testing.T) {
	app, _, db := newTestApp(t)
	owner := createUser(t, db, "owner")
	other := createUser(t, db, "other")

	var created models.Post
	require.Equal(t, http.StatusCreated, doJSON(t, app, http.MethodPost, "/api/posts", owner.ID,
		`{"caption":"  fresh flash sheet  ","style":"blackwork","bodyPart":"forearm"}`, &created))
	assert.Len(t, created.ID, 26)
	assert.Equal(t, "fresh flash sheet", created.Caption)
	assert.Equal(t, "blackwork", created.Style)
	assert.Equal(t, "forearm", created.BodyPart)
	assert.Equal(t, owner.ID, created.UserID)

	var fetched models.Post
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/api/posts/"+created.ID, 0, "", &fetched))
	assert.Equal(t, created.ID, fetched.ID)

	var body feedBody
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/api/feed?style=blackwork", 0, "", &body))
	require.Len(t, body.Items, 1)

	var denied errorBody
	assert.Equal(t, http.StatusForbidden, doJSON(t, app, http.MethodDelete, "/api/posts/"+created.ID, other.ID, "", &denied))
	assert.Equal(t, models.CodeForbidden, denied.Code)

	assert.Equal(t, http.StatusNoContent, doJSON(t, app, http.MethodDelete, "/api/posts/"+created.ID, owner.ID, "", nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, app, http.MethodGet, "/api/posts/"+created.ID, 0, "", nil))

	body = feedBody{}
	require.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/api/feed", 0, "", &body))
	assert.Empty(t, body.Items)
}

func TestCreatePost_WithImage(t *testing.T) {
	app, s, db := newTestApp(t)
	owner := createUser(t, db, "owner")

	buf, ct := multipartPost(t, map[string]string{"caption": "healed", "type": "tattoo"}, tinyPNG(t), "image/png")
	status, raw := do(t, app, http.MethodPost, "/api/posts", owner.ID, buf, ct)
	require.Equal(t, http.StatusCreated, status, string(raw))

	var stored models.Post
	require.NoError(t, db.Where("user_id = ?", owner.ID).First(&stored).Error)
	require.NotEmpty(t, stored.ImageKey)
	assert.True(t, strings.HasPrefix(stored.ImageURL, "/media/"), stored.ImageURL)
	assert.True(t, strings.HasSuffix(stored.ImageKey, ".webp"), stored.ImageKey)

	_, err := os.Stat(filepath.Join(s.config.MediaDir, filepath.FromSlash(stored.ImageKey)))
	assert.NoError(t, err)

	status, _ = do(t, app, http.MethodGet, stored.ImageURL, 0, nil, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestCreatePost_Rejects(t *testing.T) {
	app, _, db := newTestApp(t)
	owner := createUser(t, db, "owner")

	t.Run("anonymous", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, doJSON(t, app, http.MethodPost, "/api/posts", 0, `{"caption":"x"}`, nil))
	})

	t.Run("empty post", func(t *testing.T) {
		var body errorBody
		assert.Equal(t, http.StatusBadRequest, doJSON(t, app, http.MethodPost, "/api/posts", owner.ID, `{"caption":"   "}`, &body))
		assert.Equal(t, models.CodeValidation, body.Code)
	})

	t.Run("bad visibility", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, doJSON(t, app, http.MethodPost, "/api/posts", owner.ID, `{"caption":"x","visibility":"friends"}`, nil))
	})

	t.Run("image that is not an image", func(t *testing.T) {
		buf, ct := multipartPost(t, map[string]string{"caption": "x"}, []byte("definitely not a png"), "image/png")
		status, _ := do(t, app, http.MethodPost, "/api/posts", owner.ID, buf, ct)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestGetPost_PrivateVisibleToOwnerOnly(t *testing.T) {
	app, _, db := newTestApp(t)
	owner := createUser(t, db, "owner")
	post := createPosts(t, db, owner.ID, 1, func(_ int, p *models.Post) {
		p.Visibility = models.VisibilityPrivate
	})[0]

	assert.Equal(t, http.StatusOK, doJSON(t, app, http.MethodGet, "/api/posts/"+post.ID, owner.ID, "", nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, app, http.MethodGet, "/api/posts/"+post.ID, 0, "", nil))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, app, http.MethodGet, "/api/posts/not-an-id", 0, "", nil))
}
