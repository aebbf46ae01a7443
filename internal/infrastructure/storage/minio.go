package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/johnquangdev/notetaker/internal/infrastructure/cache"
	"github.com/johnquangdev/notetaker/pkg/config"
)

// Object categories used as the middle segment of object keys
const (
	CategoryImages     = "images"
	CategoryRecordings = "recordings"
)

var ErrInvalidMediaType = errors.New("invalid media type")

// PresignedUpload is a short-lived PUT target for a client-side upload
type PresignedUpload struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MinIOClient wraps MinIO operations
type MinIOClient struct {
	client    *minio.Client
	bucket    string
	publicURL string // Public URL for generating accessible URLs (e.g., https://minio.example.com)
	expiry    time.Duration
	cache     cache.Store
	logger    *zap.Logger
	now       func() time.Time
}

// NewMinIOClient creates a new MinIO client and makes sure the bucket exists.
// store may be nil, in which case presigned GET URLs are not cached.
func NewMinIOClient(cfg *config.StorageConfig, store cache.Store, logger *zap.Logger) (*MinIOClient, error) {
	client, err := newClient(cfg, store, logger)
	if err != nil {
		return nil, err
	}

	if err := client.ensureBucketWithPolicy(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}
	return client, nil
}

func newClient(cfg *config.StorageConfig, store cache.Store, logger *zap.Logger) (*MinIOClient, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	return &MinIOClient{
		client:    minioClient,
		bucket:    cfg.BucketName,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		expiry:    expiry,
		cache:     store,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// ensureBucketWithPolicy ensures bucket exists and has public read policy
func (m *MinIOClient) ensureBucketWithPolicy(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	// Public read lets the transcription service fetch recordings and
	// lets exported notes reference images by plain URL.
	policy := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Effect": "Allow",
				"Principal": {"AWS": ["*"]},
				"Action": ["s3:GetObject"],
				"Resource": ["arn:aws:s3:::%s/*"]
			}
		]
	}`, m.bucket)

	if err := m.client.SetBucketPolicy(ctx, m.bucket, policy); err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}
	return nil
}

// ObjectKey builds "<owner>/<category>/<uuid>.<ext>" where ext is the
// subtype of mimeType.
func ObjectKey(ownerID, category, mimeType string) (string, error) {
	ext, err := extension(mimeType)
	if err != nil {
		return "", err
	}
	if ownerID == "" || category == "" {
		return "", fmt.Errorf("owner and category are required")
	}
	return fmt.Sprintf("%s/%s/%s.%s", ownerID, category, uuid.NewString(), ext), nil
}

func extension(mimeType string) (string, error) {
	mt, _, _ := strings.Cut(mimeType, ";")
	typ, sub, ok := strings.Cut(strings.TrimSpace(mt), "/")
	if !ok || typ == "" || sub == "" || strings.ContainsAny(sub, "/\\ ") {
		return "", fmt.Errorf("%w: %q", ErrInvalidMediaType, mimeType)
	}
	return strings.ToLower(sub), nil
}

// PresignUpload reserves a new object key and returns a presigned PUT URL for it
func (m *MinIOClient) PresignUpload(ctx context.Context, ownerID, mimeType, category string) (*PresignedUpload, error) {
	key, err := ObjectKey(ownerID, category, mimeType)
	if err != nil {
		return nil, err
	}

	u, err := m.client.PresignedPutObject(ctx, m.bucket, key, m.expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned upload URL: %w", err)
	}

	if m.logger != nil {
		m.logger.Debug("presigned upload", zap.String("key", key), zap.String("mime", mimeType))
	}

	return &PresignedUpload{
		URL:       m.rewriteHost(u),
		Key:       key,
		ExpiresAt: m.now().Add(m.expiry),
	}, nil
}

func (m *MinIOClient) cacheKey(objectKey string) string {
	return "presign:get:" + objectKey
}

// cacheTTL keeps a cached URL around until shortly before it stops working
func (m *MinIOClient) cacheTTL() time.Duration {
	margin := time.Minute
	if m.expiry <= 2*margin {
		return m.expiry / 2
	}
	return m.expiry - margin
}

// PresignDownload returns a presigned GET URL for key
func (m *MinIOClient) PresignDownload(ctx context.Context, key string) (string, error) {
	if m.cache != nil {
		if cached, ok, err := m.cache.Get(ctx, m.cacheKey(key)); err == nil && ok {
			return cached, nil
		} else if err != nil && m.logger != nil {
			m.logger.Warn("presign cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, m.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	signed := m.rewriteHost(u)

	if m.cache != nil {
		if err := m.cache.Set(ctx, m.cacheKey(key), signed, m.cacheTTL()); err != nil && m.logger != nil {
			m.logger.Warn("presign cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return signed, nil
}

// UploadFile uploads a file to MinIO
func (m *MinIOClient) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

// Delete removes an object and forgets any cached URL for it
func (m *MinIOClient) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	if m.cache != nil {
		_ = m.cache.Delete(ctx, m.cacheKey(key))
	}
	return nil
}

// PublicURL returns the unsigned URL of key
func (m *MinIOClient) PublicURL(key string) string {
	base := m.publicURL
	if base == "" {
		base = strings.TrimRight(m.client.EndpointURL().String(), "/")
	}
	return fmt.Sprintf("%s/%s/%s", base, m.bucket, key)
}

// rewriteHost swaps the internal endpoint for the public URL when one is
// configured, e.g. when MinIO sits behind a reverse proxy.
func (m *MinIOClient) rewriteHost(u *url.URL) string {
	if m.publicURL == "" {
		return u.String()
	}
	pathAndQuery := u.EscapedPath()
	if u.RawQuery != "" {
		pathAndQuery += "?" + u.RawQuery
	}
	return m.publicURL + pathAndQuery
}
