package media

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"inkfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalize_DownscalesLongEdge(t *testing.T) {
	out, err := Normalize(1, pngBytes(t, 4096, 1024), "image/png")
	require.NoError(t, err)
	assert.Equal(t, MimeWebP, out.MimeType)
	assert.Equal(t, 2048, out.Width)
	assert.Equal(t, 512, out.Height)
	assert.Len(t, out.Hash, 64)
	assert.NotEmpty(t, out.Data)
}

func TestNormalize_KeepsSmallImages(t *testing.T) {
	out, err := Normalize(1, pngBytes(t, 300, 200), "")
	require.NoError(t, err)
	assert.Equal(t, 300, out.Width)
	assert.Equal(t, 200, out.Height)
}

func TestNormalize_HashIsPerUser(t *testing.T) {
	content := pngBytes(t, 10, 10)
	a, err := Normalize(1, content, "image/png")
	require.NoError(t, err)
	b, err := Normalize(2, content, "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestNormalize_Rejects(t *testing.T) {
	tests := []struct {
		name        string
		content     []byte
		contentType string
	}{
		{"empty", nil, "image/png"},
		{"not an image", []byte("plain text, definitely not pixels"), "image/png"},
		{"type mismatch", pngBytes(t, 4, 4), "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(1, tt.content, tt.contentType)
			var appErr *models.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, models.CodeValidation, appErr.Code)
		})
	}
}
