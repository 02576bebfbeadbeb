package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"hiring-portal/internal/config"
	"hiring-portal/internal/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/rs/zerolog"
)

const minioScheme = "minio://"

// MinIOFileStore 把简历存到对象存储，url 形如 minio://bucket/key
type MinIOFileStore struct {
	client *minio.Client
	cfg    *config.MinIOConfig
	bucket string
	log    zerolog.Logger
}

var _ FileStore = (*MinIOFileStore)(nil)

// NewMinIOFileStore 创建客户端并确保存储桶存在
func NewMinIOFileStore(ctx context.Context, cfg *config.MinIOConfig) (*MinIOFileStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("MinIO endpoint 不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	s := &MinIOFileStore{
		client: client,
		cfg:    cfg,
		bucket: cfg.BucketName,
		log:    logger.Component("minio"),
	}

	if err := s.ensureBucketExists(ctx); err != nil {
		return nil, err
	}
	if cfg.ResumeExpireDays > 0 {
		if err := s.setupLifecycle(ctx, cfg.ResumeExpireDays); err != nil {
			// 生命周期规则失败不影响读写
			s.log.Warn().Err(err).Str("bucket", s.bucket).Msg("设置简历过期规则失败")
		}
	}

	s.log.Info().Str("endpoint", cfg.Endpoint).Str("bucket", s.bucket).Msg("MinIO 文件存储初始化成功")
	return s, nil
}

func (s *MinIOFileStore) ensureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.cfg.Location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", s.bucket, err)
	}
	s.log.Info().Str("bucket", s.bucket).Msg("已创建存储桶")
	return nil
}

func (s *MinIOFileStore) setupLifecycle(ctx context.Context, days int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     "expire-resumes",
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(days),
			},
		},
	}
	return s.client.SetBucketLifecycle(ctx, s.bucket, lc)
}

// Put 上传本地文件
func (s *MinIOFileStore) Put(ctx context.Context, key, srcPath string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	info, err := s.client.FPutObject(ctx, s.bucket, key, srcPath, minio.PutObjectOptions{
		ContentType: contentTypeOf(key),
	})
	if err != nil {
		return "", fmt.Errorf("上传简历 %s 到 MinIO 失败: %w", key, err)
	}
	s.log.Debug().Str("key", key).Int64("size", info.Size).Msg("简历已上传")
	return ObjectURL(s.bucket, key), nil
}

// Open 读取对象
func (s *MinIOFileStore) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	bucket, key, err := ParseObjectURL(url)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s 失败: %w", url, err)
	}
	// GetObject 是惰性的，Stat 才能发现对象不存在
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("对象 %s: %w", url, ErrNotFound)
		}
		return nil, fmt.Errorf("读取对象 %s 失败: %w", url, err)
	}
	return obj, nil
}

// Delete 删除对象，RemoveObject 对不存在的对象不报错
func (s *MinIOFileStore) Delete(ctx context.Context, url string) error {
	bucket, key, err := ParseObjectURL(url)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", url, err)
	}
	return nil
}

// ObjectURL 拼接 minio://bucket/key
func ObjectURL(bucket, key string) string {
	return minioScheme + bucket + "/" + key
}

// ParseObjectURL 拆分 minio://bucket/key
func ParseObjectURL(url string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(url, minioScheme)
	if !ok {
		return "", "", fmt.Errorf("不是 MinIO 地址 %q: %w", url, ErrInvalidKey)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("MinIO 地址缺少 bucket 或 key %q: %w", url, ErrInvalidKey)
	}
	return bucket, key, nil
}

func contentTypeOf(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
