package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore 简历文件的持久存储。url 是存储自己的寻址方式，写入候选人的 resume_url
type FileStore interface {
	// Put 把本地文件 srcPath 存为 key，返回可寻址的 url。srcPath 之后可能不存在
	Put(ctx context.Context, key, srcPath string) (string, error)
	Open(ctx context.Context, url string) (io.ReadCloser, error)
	// Delete 删除 url 指向的文件，文件不存在不算错误
	Delete(ctx context.Context, url string) error
}

// ErrInvalidKey key 为空或包含路径分隔符
var ErrInvalidKey = errors.New("invalid file key")

// LocalFileStore 本地目录存储，url 即文件路径
type LocalFileStore struct {
	dir string
}

var _ FileStore = (*LocalFileStore)(nil)

// NewLocalFileStore 创建存储目录
func NewLocalFileStore(dir string) (*LocalFileStore, error) {
	if dir == "" {
		dir = filepath.Join("uploads", "resumes")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录 %s 失败: %w", dir, err)
	}
	return &LocalFileStore{dir: dir}, nil
}

// Dir 存储根目录
func (s *LocalFileStore) Dir() string {
	return s.dir
}

// Put 优先 rename，跨设备时退化为复制
func (s *LocalFileStore) Put(ctx context.Context, key, srcPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateKey(key); err != nil {
		return "", err
	}

	dst := filepath.Join(s.dir, key)
	if err := os.Rename(srcPath, dst); err == nil {
		return dst, nil
	}
	if err := copyFile(srcPath, dst); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("保存简历文件 %s 失败: %w", key, err)
	}
	_ = os.Remove(srcPath)
	return dst, nil
}

// Open 只允许打开存储目录内的文件
func (s *LocalFileStore) Open(_ context.Context, url string) (io.ReadCloser, error) {
	path, err := s.resolve(url)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("简历文件 %s: %w", url, ErrNotFound)
		}
		return nil, err
	}
	return f, nil
}

// Delete 删除文件
func (s *LocalFileStore) Delete(_ context.Context, url string) error {
	path, err := s.resolve(url)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("删除简历文件 %s 失败: %w", url, err)
	}
	return nil
}

func (s *LocalFileStore) resolve(url string) (string, error) {
	root, err := filepath.Abs(s.dir)
	if err != nil {
		return "", err
	}
	path, err := filepath.Abs(url)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("路径 %s 不在上传目录内: %w", url, ErrInvalidKey)
	}
	return path, nil
}

func validateKey(key string) error {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return fmt.Errorf("%q: %w", key, ErrInvalidKey)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
