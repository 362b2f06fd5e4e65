package storage

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const stagingPrefix = "staging/"

// MinioConfig holds the settings for an S3 compatible bucket.
type MinioConfig struct {
	Endpoint  string // e.g. https://minio.internal:9000
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	// PublicURL is prepended to object keys to build download links.
	// Defaults to Endpoint/Bucket.
	PublicURL string
}

// MinioStore keeps attachments in an S3 compatible bucket. Staged objects live
// under staging/ and are copied into place on commit.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStore connects to the bucket, creating it when missing.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}
	endpoint := u.Host
	if endpoint == "" {
		endpoint = cfg.Endpoint
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: u.Scheme == "https",
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, err
		}
	}

	public := cfg.PublicURL
	if public == "" {
		public = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, publicURL: strings.TrimRight(public, "/")}, nil
}

// Stage implements Store.
func (m *MinioStore) Stage(ctx context.Context, f File) (Staged, error) {
	ct, body, err := sniff(f.Body)
	if err != nil {
		return Staged{}, err
	}
	key := newKey(ct)

	size := f.Size
	if size <= 0 {
		size = -1
	}
	info, err := m.client.PutObject(ctx, m.bucket, stagingPrefix+key, body, size, minio.PutObjectOptions{
		ContentType: ct,
	})
	if err != nil {
		return Staged{}, err
	}

	return Staged{
		Key:          key,
		URL:          m.publicURL + "/" + key,
		OriginalName: filepath.Base(f.Name),
		MimeType:     ct,
		Size:         info.Size,
	}, nil
}

// Commit implements Store.
func (m *MinioStore) Commit(ctx context.Context, s Staged) error {
	if err := validKey(s.Key); err != nil {
		return err
	}
	_, err := m.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: m.bucket, Object: s.Key},
		minio.CopySrcOptions{Bucket: m.bucket, Object: stagingPrefix + s.Key},
	)
	if err != nil {
		return err
	}
	return m.client.RemoveObject(ctx, m.bucket, stagingPrefix+s.Key, minio.RemoveObjectOptions{})
}

// Discard implements Store.
func (m *MinioStore) Discard(ctx context.Context, s Staged) error {
	if err := validKey(s.Key); err != nil {
		return err
	}
	return m.client.RemoveObject(ctx, m.bucket, stagingPrefix+s.Key, minio.RemoveObjectOptions{})
}

// Delete implements Store.
func (m *MinioStore) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

// SweepStaging removes staged objects older than olderThan.
func (m *MinioStore) SweepStaging(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: stagingPrefix, Recursive: true}) {
		if obj.Err != nil {
			return removed, obj.Err
		}
		if obj.LastModified.After(cutoff) {
			continue
		}
		if err := m.client.RemoveObject(ctx, m.bucket, obj.Key, minio.RemoveObjectOptions{}); err == nil {
			removed++
		}
	}
	return removed, nil
}
