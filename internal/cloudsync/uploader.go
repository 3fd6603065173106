// Package cloudsync copies rendered entry PDFs into a user's S3-compatible
// bucket.
package cloudsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Folder is the key prefix every exported PDF is written under.
const Folder = "LogBook"

var (
	ErrBucketMissing = errors.New("bucket does not exist")
	ErrInvalidTarget = errors.New("sync target incomplete")
)

// Target holds the unsealed connection details for one upload.
type Target struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

func (t Target) validate() error {
	if strings.TrimSpace(t.Endpoint) == "" || strings.TrimSpace(t.Bucket) == "" ||
		t.AccessKey == "" || t.SecretKey == "" {
		return ErrInvalidTarget
	}
	return nil
}

// Upload is the result of a successful sync.
type Upload struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	ETag     string `json:"etag"`
	Location string `json:"location"`
}

// MinioUploader talks to any S3-compatible service through minio-go.
type MinioUploader struct {
	folder string
}

func NewMinioUploader() *MinioUploader {
	return &MinioUploader{folder: Folder}
}

func (u *MinioUploader) client(t Target) (*minio.Client, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	region := t.Region
	if region == "" {
		region = "us-east-1"
	}
	endpoint := strings.TrimPrefix(strings.TrimPrefix(t.Endpoint, "https://"), "http://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(t.AccessKey, t.SecretKey, ""),
		Secure: t.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return client, nil
}

// Verify checks that the credentials can see the bucket.
func (u *MinioUploader) Verify(ctx context.Context, t Target) error {
	client, err := u.client(t)
	if err != nil {
		return err
	}
	exists, err := client.BucketExists(ctx, t.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		return ErrBucketMissing
	}
	return nil
}

// Upload writes data to {folder}/{filename}, replacing any earlier export of
// the same entry date.
func (u *MinioUploader) Upload(ctx context.Context, t Target, filename string, data []byte) (Upload, error) {
	client, err := u.client(t)
	if err != nil {
		return Upload{}, err
	}
	key := path.Join(u.folder, filename)
	info, err := client.PutObject(ctx, t.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		return Upload{}, fmt.Errorf("put object: %w", err)
	}
	return Upload{
		Bucket:   t.Bucket,
		Key:      key,
		ETag:     info.ETag,
		Location: "s3://" + t.Bucket + "/" + key,
	}, nil
}
