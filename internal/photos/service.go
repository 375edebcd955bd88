// Package photos stores the resolution photos an RT admin attaches to a
// report before resolving it.
package photos

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/approval"
	rwimage "github.com/siwarga/rwrt-backend/internal/image"
	"github.com/siwarga/rwrt-backend/internal/middleware"
	"github.com/siwarga/rwrt-backend/internal/rbac"
	"github.com/siwarga/rwrt-backend/internal/requests"
)

// ObjectStore is implemented by aws.S3Service.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentType string) error
	GeneratePresignedURL(ctx context.Context, method, key string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

type reportGetter interface {
	Get(ctx context.Context, sess rbac.Session, kind approval.Kind, id string) (requests.Item, error)
}

// Photo is an uploaded resolution photo. Key is what the resolve command
// carries; the URLs expire.
type Photo struct {
	Key          string `json:"key"`
	ThumbnailKey string `json:"thumbnailKey"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
}

type Service struct {
	objects ObjectStore
	reports reportGetter
	expiry  time.Duration
}

func NewService(objects ObjectStore, reports reportGetter, presignExpiry time.Duration) *Service {
	return &Service{objects: objects, reports: reports, expiry: presignExpiry}
}

// Upload validates and compresses the image and stores it under the report.
// Only the RT admin of the report's area may upload, and only while the
// report is still open for action.
func (s *Service) Upload(ctx context.Context, sess rbac.Session, reportID string, file io.Reader, header *multipart.FileHeader) (Photo, error) {
	if !sess.Can(rbac.ReportsProcess) {
		return Photo{}, apperr.Denied("your role cannot attach photos to reports")
	}

	item, err := s.reports.Get(ctx, sess, approval.KindReport, reportID)
	if err != nil {
		return Photo{}, err
	}
	if item.Status.Terminal() {
		return Photo{}, apperr.Illegal("report %s is already %s", reportID, item.Status)
	}

	processed, err := rwimage.ValidateAndProcess(file, header)
	if err != nil {
		if errors.Is(err, rwimage.ErrInvalidImage) {
			return Photo{}, apperr.Invalid("photo", "%v", err)
		}
		return Photo{}, err
	}

	base := approval.PhotoKeyPrefix(reportID) + uuid.NewString()
	photo := Photo{
		Key:          base + ".jpg",
		ThumbnailKey: base + "_thumb.jpg",
		Width:        processed.Width,
		Height:       processed.Height,
	}

	if err := s.objects.PutObject(ctx, photo.Key, bytes.NewReader(processed.Photo), processed.ContentType); err != nil {
		return Photo{}, apperr.Unavailable("store photo", err)
	}
	if err := s.objects.PutObject(ctx, photo.ThumbnailKey, bytes.NewReader(processed.Thumbnail), processed.ContentType); err != nil {
		if delErr := s.objects.DeleteObject(ctx, photo.Key); delErr != nil {
			middleware.GetLoggerFromContext(ctx).Warn("Orphaned photo", "key", photo.Key, "error", delErr)
		}
		return Photo{}, apperr.Unavailable("store thumbnail", err)
	}

	if photo.URL, err = s.URL(ctx, photo.Key); err != nil {
		return Photo{}, err
	}
	if photo.ThumbnailURL, err = s.URL(ctx, photo.ThumbnailKey); err != nil {
		return Photo{}, err
	}

	middleware.GetLoggerFromContext(ctx).Info("Resolution photo stored",
		"report", reportID, "key", photo.Key, "width", photo.Width, "height", photo.Height)
	return photo, nil
}

// URL presigns a GET for a stored photo.
func (s *Service) URL(ctx context.Context, key string) (string, error) {
	url, err := s.objects.GeneratePresignedURL(ctx, http.MethodGet, key, s.expiry)
	if err != nil {
		return "", apperr.Unavailable("presign photo", err)
	}
	return url, nil
}
