package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"
)

// Generated image URLs from the agent expire; re-hosting keeps cover images
// alive for the lifetime of the build.
const maxImageBytes = 10 << 20

// ImageStore re-hosts remote images into durable object storage.
type ImageStore interface {
	// Rehost downloads the image at srcURL and stores it under a key derived
	// from the build ID, returning the durable public URL.
	Rehost(ctx context.Context, buildID uuid.UUID, srcURL string) (string, error)
	Close() error
}

var _ ImageStore = (*blobImageStore)(nil)

type blobImageStore struct {
	bucket     *blob.Bucket
	publicBase string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewBlobImageStore opens the bucket named by bucketURL (any scheme the
// registered gocloud drivers understand, e.g. file:// or s3://).
func NewBlobImageStore(ctx context.Context, bucketURL, publicBase string, fetchTimeout time.Duration, logger *zap.Logger) (ImageStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open image bucket %s: %w", bucketURL, err)
	}
	return &blobImageStore{
		bucket:     bucket,
		publicBase: publicBase,
		httpClient: &http.Client{Timeout: fetchTimeout},
		logger:     logger.Named("BlobImageStore"),
	}, nil
}

func (s *blobImageStore) Rehost(ctx context.Context, buildID uuid.UUID, srcURL string) (string, error) {
	log := s.logger.With(zap.String("buildID", buildID.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create image fetch request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Error("Failed to fetch source image", zap.Error(err))
		return "", fmt.Errorf("failed to fetch source image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Error("Source image fetch returned non-OK status", zap.Int("statusCode", resp.StatusCode))
		return "", fmt.Errorf("source image fetch returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}

	key := fmt.Sprintf("covers/%s.png", buildID)
	w, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to open bucket writer for %s: %w", key, err)
	}
	if _, err = io.Copy(w, io.LimitReader(resp.Body, maxImageBytes)); err != nil {
		w.Close()
		log.Error("Failed to copy image into bucket", zap.Error(err))
		return "", fmt.Errorf("failed to store image %s: %w", key, err)
	}
	if err = w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize image %s: %w", key, err)
	}

	publicURL := fmt.Sprintf("%s/%s", s.publicBase, key)
	log.Info("Image re-hosted", zap.String("key", key))
	return publicURL, nil
}

func (s *blobImageStore) Close() error {
	return s.bucket.Close()
}
