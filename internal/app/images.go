package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"savora/internal/model"
)

// ErrImageRejected is wrapped by an ImageProcessor that refuses an upload.
var ErrImageRejected = errors.New("image rejected")

const msgImageTooLarge = "Image dimensions are too large"

// ImageUpload is a single uploaded file as received from the client.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ImageStore persists image bytes and addresses them by their public path.
type ImageStore interface {
	Save(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, path string) error
}

// ImageProcessor rewrites an upload before it is stored, for example to
// shrink oversized photos.
type ImageProcessor interface {
	Process(contentType string, body io.Reader) (io.Reader, string, error)
}

type ImageCleanupPublisher interface {
	PublishImageCleanup(ctx context.Context, job model.ImageCleanupJob) error
}

type ImageService struct {
	store     ImageStore
	publisher ImageCleanupPublisher
	processor ImageProcessor
	maxBytes  int64
	log       logrus.FieldLogger
}

// NewImageService returns a service that deletes inline when publisher is nil.
func NewImageService(store ImageStore, publisher ImageCleanupPublisher, maxBytes int64, log logrus.FieldLogger) *ImageService {
	return &ImageService{
		store:     store,
		publisher: publisher,
		maxBytes:  maxBytes,
		log:       log,
	}
}

// WithProcessor runs every saved upload through p. A nil p is ignored.
func (s *ImageService) WithProcessor(p ImageProcessor) *ImageService {
	if p != nil {
		s.processor = p
	}
	return s
}

// Save stores upload and returns its public path. A nil upload is a no-op.
func (s *ImageService) Save(ctx context.Context, upload *ImageUpload) (string, error) {
	if upload == nil {
		return "", nil
	}
	if s.maxBytes > 0 && upload.Size > s.maxBytes {
		return "", newError(ErrValidation, "File too large, maximum size is %d MB", s.maxBytes/(1024*1024))
	}
	body, contentType := upload.Body, upload.ContentType
	if s.processor != nil {
		var err error
		if body, contentType, err = s.processor.Process(contentType, body); err != nil {
			if errors.Is(err, ErrImageRejected) {
				s.log.WithError(err).WithField("filename", upload.Filename).Info("image upload rejected")
				return "", newError(ErrValidation, msgImageTooLarge)
			}
			return "", fmt.Errorf("process image failed: %w", err)
		}
	}
	path, err := s.store.Save(ctx, upload.Filename, contentType, body)
	if err != nil {
		return "", fmt.Errorf("save image failed: %w", err)
	}
	return path, nil
}

// Discard schedules removal of stored images. Failures are logged only.
func (s *ImageService) Discard(ctx context.Context, reason string, paths ...string) {
	paths = nonEmpty(paths)
	if len(paths) == 0 {
		return
	}

	if s.publisher != nil {
		job := model.ImageCleanupJob{
			Paths:       paths,
			Reason:      reason,
			RequestedAt: time.Now().UTC(),
		}
		err := s.publisher.PublishImageCleanup(ctx, job)
		if err == nil {
			return
		}
		s.log.WithError(err).WithField("reason", reason).Warn("publish image cleanup failed, deleting inline")
	}

	for _, path := range paths {
		if err := s.store.Delete(ctx, path); err != nil {
			s.log.WithError(err).WithField("path", path).Warn("delete image failed")
		}
	}
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
