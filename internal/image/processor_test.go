package image_test

import (
	"bytes"
	stdimage "image"
	"image/color"
	imgdraw "image/draw"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"testing"

	rwimage "github.com/siwarga/rwrt-backend/internal/image"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) *stdimage.RGBA {
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	imgdraw.Draw(img, img.Bounds(), &stdimage.Uniform{color.RGBA{R: 255, A: 255}}, stdimage.Point{}, imgdraw.Src)
	return img
}

// mock jpeg image
func createTestJPEG(t *testing.T, w, h int) ([]byte, *multipart.FileHeader) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(w, h), nil))
	return buf.Bytes(), &multipart.FileHeader{Size: int64(buf.Len())}
}

func TestValidateAndProcess_KeepsSmallPhoto(t *testing.T) {
	data, header := createTestJPEG(t, 800, 600)
	result, err := rwimage.ValidateAndProcess(bytes.NewReader(data), header)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", result.ContentType)
	assert.Equal(t, 800, result.Width)
	assert.Equal(t, 600, result.Height)
	assert.NotEmpty(t, result.Photo)
	assert.NotEmpty(t, result.Thumbnail)
}

func TestValidateAndProcess_ShrinksLargePhoto(t *testing.T) {
	data, header := createTestJPEG(t, 4000, 3000)
	result, err := rwimage.ValidateAndProcess(bytes.NewReader(data), header)
	require.NoError(t, err)
	assert.Equal(t, 1600, result.Width)
	assert.Equal(t, 1200, result.Height)

	img, _, err := stdimage.Decode(bytes.NewReader(result.Photo))
	require.NoError(t, err)
	assert.Equal(t, 1600, img.Bounds().Dx())
}

func TestValidateAndProcess_PNGBecomesJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(200, 100)))

	result, err := rwimage.ValidateAndProcess(bytes.NewReader(buf.Bytes()), &multipart.FileHeader{Size: int64(buf.Len())})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", result.ContentType)
	_, format, err := stdimage.Decode(bytes.NewReader(result.Photo))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestValidateAndProcess_Rejections(t *testing.T) {
	t.Run("oversized file", func(t *testing.T) {
		data, _ := createTestJPEG(t, 100, 100)
		header := &multipart.FileHeader{Size: 11 * 1024 * 1024} // size too big
		_, err := rwimage.ValidateAndProcess(bytes.NewReader(data), header)
		assert.ErrorIs(t, err, rwimage.ErrInvalidImage)
		assert.Contains(t, err.Error(), "file size")
	})

	t.Run("not an image", func(t *testing.T) {
		data := []byte("%PDF-1.4 not a photo")
		_, err := rwimage.ValidateAndProcess(bytes.NewReader(data), &multipart.FileHeader{Size: int64(len(data))})
		assert.ErrorIs(t, err, rwimage.ErrInvalidImage)
		assert.Contains(t, err.Error(), "only jpeg and png")
	})

	t.Run("truncated jpeg", func(t *testing.T) {
		data, _ := createTestJPEG(t, 100, 100)
		data = data[:20]
		_, err := rwimage.ValidateAndProcess(bytes.NewReader(data), &multipart.FileHeader{Size: int64(len(data))})
		assert.ErrorIs(t, err, rwimage.ErrInvalidImage)
	})
}

func TestThumbnailSize(t *testing.T) {
	data, header := createTestJPEG(t, 800, 400)
	result, err := rwimage.ValidateAndProcess(bytes.NewReader(data), header)
	require.NoError(t, err)

	img, _, err := stdimage.Decode(bytes.NewReader(result.Thumbnail))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
}
