package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
)

// MinIOStore keeps each index as the object <prefix><key>.json in a bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIOStore connects to the endpoint and creates the bucket if it does not exist.
func NewMinIOStore(ctx context.Context, cfg config.MinIOConfig) (*MinIOStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("minio endpoint not configured")
	}
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey(), cfg.SecretKey(), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			code := minio.ToErrorResponse(err).Code
			if code != "BucketAlreadyOwnedByYou" && code != "BucketAlreadyExists" {
				return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
			}
		}
	}
	return &MinIOStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *MinIOStore) objectName(key string) string {
	return s.prefix + key + fileExt
}

// Backend returns "minio".
func (s *MinIOStore) Backend() string {
	return "minio"
}

// Save uploads the encoded index, replacing any existing object.
func (s *MinIOStore) Save(ctx context.Context, key string, index models.EmbeddingIndex) error {
	if err := ValidateKey(key); err != nil {
		return persistFailure(key, err)
	}
	data, err := Encode(index)
	if err != nil {
		return persistFailure(key, err)
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.objectName(key), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return persistFailure(key, err)
	}
	return nil
}

// Load downloads and decodes the object for key.
func (s *MinIOStore) Load(ctx context.Context, key string) (models.EmbeddingIndex, error) {
	if err := ValidateKey(key); err != nil {
		return nil, loadFailure(key, err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, loadFailure(key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, loadFailure(key, fs.ErrNotExist)
		}
		return nil, loadFailure(key, err)
	}
	index, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return index, nil
}

// List returns the stored keys under the prefix.
func (s *MinIOStore) List(ctx context.Context) ([]IndexInfo, error) {
	var out []IndexInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(obj.Key, s.prefix)
		if strings.Contains(name, "/") || path.Ext(name) != fileExt {
			continue
		}
		out = append(out, IndexInfo{
			Key:       strings.TrimSuffix(name, fileExt),
			SizeBytes: obj.Size,
			UpdatedAt: obj.LastModified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Close is a no-op.
func (s *MinIOStore) Close() error {
	return nil
}
