package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/poail0-cell/duels-analyzer-1/internal/duels"
)

// SnapshotBackup uploads the serialized cache to S3 after successful sync
// cycles. It is purely a safety net for the local file; a failed upload is
// logged by the caller and never fails the sync.
type SnapshotBackup struct {
	client *s3.Client
	bucket string
	logger *slog.Logger
}

func NewSnapshotBackup(ctx context.Context, bucket, region string, logger *slog.Logger) (*SnapshotBackup, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SnapshotBackup{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		logger: logger,
	}, nil
}

func (b *SnapshotBackup) Backup(ctx context.Context, cache *duels.Cache) error {
	data, err := json.Marshal(cache.Games())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	key := fmt.Sprintf("snapshots/games-%s.json", time.Now().UTC().Format("20060102T150405Z"))
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload snapshot to s3://%s/%s: %w", b.bucket, key, err)
	}
	b.logger.Info("snapshot uploaded", "bucket", b.bucket, "key", key, "games", cache.Len())
	return nil
}
