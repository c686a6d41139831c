package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config — конфигурация S3-совместимого хранилища.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
}

// Validate проверяет полноту конфигурации.
func (c *S3Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("s3: endpoint is required")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return errors.New("s3: credentials are required")
	}
	if c.Bucket == "" {
		return errors.New("s3: bucket is required")
	}
	return nil
}

// S3ConfigFromEnv читает конфигурацию из переменных окружения
// S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY, S3_REGION, S3_USE_SSL, S3_BUCKET.
func S3ConfigFromEnv() S3Config {
	return S3Config{
		Endpoint:  os.Getenv("S3_ENDPOINT"),
		AccessKey: os.Getenv("S3_ACCESS_KEY"),
		SecretKey: os.Getenv("S3_SECRET_KEY"),
		Region:    os.Getenv("S3_REGION"),
		UseSSL:    os.Getenv("S3_USE_SSL") == "true",
		Bucket:    os.Getenv("S3_BUCKET"),
	}
}

// S3Store — реализация Store поверх S3-совместимого бакета.
//
// GetFile скачивает объект во временную директорию staging и возвращает
// локальный путь. PutFile загружает файл в бакет под ключом dst.
type S3Store struct {
	client  *minio.Client
	bucket  string
	staging string
}

// NewS3Store создаёт S3Store. Директория staging принимает скачанные
// объекты; бакет создаётся, если его нет.
func NewS3Store(ctx context.Context, cfg S3Config, staging string) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &S3Store{client: client, bucket: cfg.Bucket, staging: staging}, nil
}

// GetFile скачивает объект name в staging и возвращает локальный путь.
func (s *S3Store) GetFile(ctx context.Context, name string) (string, error) {
	local := filepath.Join(s.staging, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	err := s.client.FGetObject(ctx, s.bucket, name, local, minio.GetObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return "", fmt.Errorf("%w: %q", ErrNoResource, name)
		}
		return "", fmt.Errorf("get object %q: %w", name, err)
	}
	return local, nil
}

// PutFile загружает локальный файл src в бакет под ключом dst.
func (s *S3Store) PutFile(ctx context.Context, src, dst string) (string, error) {
	if _, err := s.client.FPutObject(ctx, s.bucket, dst, src, minio.PutObjectOptions{}); err != nil {
		return "", fmt.Errorf("put object %q: %w", dst, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, dst), nil
}
