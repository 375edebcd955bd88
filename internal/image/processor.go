package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/disintegration/imaging"
)

const (
	MaxFileSize   = 10 * 1024 * 1024 // 10MB
	MaxDimension  = 8192
	MaxEdge       = 1600 // longest edge of the stored photo
	ThumbnailSize = 300
	JPEGQuality   = 80
)

// ErrInvalidImage wraps every rejection caused by the upload itself.
var ErrInvalidImage = errors.New("invalid image")

type ProcessedImage struct {
	Photo       []byte
	Thumbnail   []byte
	ContentType string
	Width       int
	Height      int
}

// ValidateAndProcess accepts a jpeg/png phone photo, applies its EXIF
// orientation, shrinks it to MaxEdge and re-encodes it as JPEG together with
// a 300x300 center-cropped thumbnail.
func ValidateAndProcess(file io.Reader, header *multipart.FileHeader) (*ProcessedImage, error) {
	if header.Size > MaxFileSize {
		return nil, fmt.Errorf("%w: file size %d exceeds maximum %d bytes", ErrInvalidImage, header.Size, MaxFileSize)
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: file exceeds maximum %d bytes", ErrInvalidImage, MaxFileSize)
	}

	contentType := http.DetectContentType(data)
	if contentType != "image/jpeg" && contentType != "image/png" {
		return nil, fmt.Errorf("%w: file type %q, only jpeg and png are allowed", ErrInvalidImage, contentType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", ErrInvalidImage, err)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return nil, fmt.Errorf("%w: image dimensions %dx%d exceed maximum %d", ErrInvalidImage, cfg.Width, cfg.Height, MaxDimension)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", ErrInvalidImage, err)
	}

	b := img.Bounds()
	if b.Dx() > MaxEdge || b.Dy() > MaxEdge {
		img = imaging.Fit(img, MaxEdge, MaxEdge, imaging.Lanczos)
	}

	var photoBuf bytes.Buffer
	if err := imaging.Encode(&photoBuf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode photo: %w", err)
	}

	thumb := imaging.Fill(img, ThumbnailSize, ThumbnailSize, imaging.Center, imaging.Lanczos)
	var thumbBuf bytes.Buffer
	if err := imaging.Encode(&thumbBuf, thumb, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return &ProcessedImage{
		Photo:       photoBuf.Bytes(),
		Thumbnail:   thumbBuf.Bytes(),
		ContentType: "image/jpeg",
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
	}, nil
}
