// Package file 提供导出文件的存储：本地目录和 MinIO 对象存储
package file

import (
	"context"
	"fmt"
	"io"

	"github.com/ashwinyue/next-dataset/internal/config"
)

// Storage 文件存储接口
type Storage interface {
	// Save 保存文件，返回存储键
	Save(ctx context.Context, req *SaveRequest) (string, error)
	// GetURL 获取文件的访问URL
	GetURL(key string) string
}

// SaveRequest 保存文件请求
// Key 为空时生成随机文件名
type SaveRequest struct {
	Key         string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// StorageType 存储类型
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeMinIO StorageType = "minio"
)

// NewMirror 按导出配置创建镜像存储
// local 不需要镜像，返回 nil
func NewMirror(ctx context.Context, cfg *config.ExportConfig) (Storage, error) {
	switch StorageType(cfg.Storage) {
	case StorageTypeLocal, "":
		return nil, nil
	case StorageTypeMinIO:
		m := cfg.MinIO
		if m.Endpoint == "" || m.AccessKey == "" || m.SecretKey == "" || m.Bucket == "" {
			return nil, fmt.Errorf("missing required MinIO config")
		}
		urlPrefix := m.URLPrefix
		if urlPrefix == "" {
			scheme := "http"
			if m.UseSSL {
				scheme = "https"
			}
			urlPrefix = fmt.Sprintf("%s://%s", scheme, m.Endpoint)
		}
		return NewMinIOStorage(ctx, &MinIOConfig{
			Endpoint:   m.Endpoint,
			AccessKey:  m.AccessKey,
			SecretKey:  m.SecretKey,
			BucketName: m.Bucket,
			UseSSL:     m.UseSSL,
			URLPrefix:  urlPrefix,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage)
	}
}
