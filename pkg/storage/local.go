package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalArchive 本地文件系统归档实现
type LocalArchive struct {
	basePath string
}

// NewLocalArchive 创建本地归档实例
func NewLocalArchive(cfg Config) (*LocalArchive, error) {
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve archive path: %v", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %v", err)
	}

	return &LocalArchive{basePath: absPath}, nil
}

// Save 保存文件到本地归档
func (a *LocalArchive) Save(reader io.Reader, filename string) (ObjectInfo, error) {
	key := newObjectKey(filename)

	fullPath := filepath.Join(a.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to create directory: %v", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	size, err := io.Copy(file, reader)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to write file: %v", err)
	}

	return ObjectInfo{
		Key:         key,
		Name:        filename,
		Size:        size,
		ContentType: contentTypeFor(filename),
	}, nil
}

// Get 按对象键读取文件
func (a *LocalArchive) Get(key string) (io.ReadCloser, error) {
	fullPath, err := a.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object %s not found", key)
		}
		return nil, fmt.Errorf("failed to open object: %v", err)
	}
	return file, nil
}

// Delete 按对象键删除文件
func (a *LocalArchive) Delete(key string) error {
	fullPath, err := a.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("object %s not found", key)
		}
		return fmt.Errorf("failed to delete object: %v", err)
	}
	return nil
}

// List 列出指定前缀下的所有对象
func (a *LocalArchive) List(prefix string) ([]ObjectInfo, error) {
	objects := make([]ObjectInfo, 0)

	err := filepath.Walk(a.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(a.basePath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(relPath)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}

		objects = append(objects, ObjectInfo{
			Key:         key,
			Name:        filepath.Base(path),
			Size:        info.Size(),
			ContentType: contentTypeFor(path),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %v", err)
	}

	return objects, nil
}

// Exists 检查对象是否存在
func (a *LocalArchive) Exists(key string) (bool, error) {
	fullPath, err := a.resolve(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// resolve 将对象键解析为归档内的绝对路径
// 拒绝逃逸出归档根目录的键
func (a *LocalArchive) resolve(key string) (string, error) {
	fullPath := filepath.Join(a.basePath, filepath.FromSlash(key))
	if !strings.HasPrefix(fullPath, a.basePath+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid object key: %s", key)
	}
	return fullPath, nil
}

func init() {
	RegisterArchive("local", func(cfg Config) (Archive, error) {
		return NewLocalArchive(cfg)
	})
}
