package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStorage 本地文件存储
type LocalStorage struct {
	basePath  string // 基础路径
	urlPrefix string // URL前缀，为空时使用 file:// 绝对路径
}

// NewLocalStorage 创建本地存储服务
func NewLocalStorage(basePath, urlPrefix string) (*LocalStorage, error) {
	// 确保基础路径存在
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalStorage{
		basePath:  basePath,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
	}, nil
}

// Save 保存文件到 {basePath}/{key}
func (s *LocalStorage) Save(ctx context.Context, req *SaveRequest) (string, error) {
	key := req.Key
	if key == "" {
		key = uuid.New().String() + extensionByContentType(req.ContentType)
	}
	fullPath := s.Path(key)

	// 创建目录
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	// 先写临时文件再重命名，避免留下半个文件
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".export-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, req.Reader); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return "", fmt.Errorf("failed to rename file: %w", err)
	}

	return key, nil
}

// GetURL 获取文件的访问URL
func (s *LocalStorage) GetURL(key string) string {
	if s.urlPrefix == "" {
		abs, err := filepath.Abs(s.Path(key))
		if err != nil {
			return s.Path(key)
		}
		return "file://" + abs
	}
	return fmt.Sprintf("%s/%s", s.urlPrefix, key)
}

// Path 返回存储键对应的本地路径
func (s *LocalStorage) Path(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

// extensionByContentType 根据内容类型返回扩展名
func extensionByContentType(contentType string) string {
	switch contentType {
	case "application/jsonl", "application/x-ndjson":
		return ".jsonl"
	case "text/csv":
		return ".csv"
	case "application/json":
		return ".json"
	default:
		return ".bin"
	}
}
