package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	. "aktis-collector-monday/internal/common"
	"aktis-collector-monday/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/ternarybob/arbor"
)

// objectPutter is the minio operation the S3 publisher needs
type objectPutter interface {
	PutObject(ctx context.Context, bucket, key string, payload []byte, contentType string) (etag string, err error)
}

type minioPutter struct {
	client *minio.Client
}

func (m *minioPutter) PutObject(ctx context.Context, bucket, key string, payload []byte, contentType string) (string, error) {
	info, err := m.client.PutObject(ctx, bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return info.ETag, nil
}

// S3Publisher puts the payload into an S3-compatible bucket. Object stores
// overwrite unconditionally, so no version token is read first.
type S3Publisher struct {
	client objectPutter
	bucket string
	prefix string
	logger arbor.ILogger
}

// NewS3Publisher connects a minio client for the configured endpoint
func NewS3Publisher(config *S3Config, logger arbor.ILogger) (*S3Publisher, error) {
	useSSL := true
	if config.UseSSL != nil {
		useSSL = *config.UseSSL
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: useSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, NewConfigurationError("invalid_s3_settings", "failed to create S3 client").WithCause(err)
	}

	return &S3Publisher{
		client: &minioPutter{client: client},
		bucket: config.Bucket,
		prefix: config.Prefix,
		logger: logger,
	}, nil
}

func (sp *S3Publisher) Name() string {
	return OutputTargetS3
}

func (sp *S3Publisher) objectKey(p string) string {
	key := strings.TrimLeft(p, "/")
	if sp.prefix != "" {
		key = path.Join(strings.Trim(sp.prefix, "/"), key)
	}
	return key
}

func (sp *S3Publisher) Publish(ctx context.Context, p string, payload []byte) (*models.PublishResult, error) {
	key := sp.objectKey(p)

	etag, err := sp.client.PutObject(ctx, sp.bucket, key, payload, "application/json")
	if err != nil {
		return nil, NewTransportError("s3_put_failed", "failed to put object").
			WithContext("bucket", sp.bucket).
			WithContext("key", key).
			WithCause(err)
	}

	sp.logger.Debug().Str("bucket", sp.bucket).Str("key", key).Str("etag", etag).Msg("Put payload object")

	return &models.PublishResult{
		Target:   OutputTargetS3,
		Location: fmt.Sprintf("s3://%s/%s", sp.bucket, key),
		Version:  etag,
	}, nil
}
