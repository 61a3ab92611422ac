package storage

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectInfo 归档对象的元数据
type ObjectInfo struct {
	Key         string // 对象键，由日期路径和唯一ID组成
	Name        string // 原始文件名
	Size        int64  // 对象大小(字节)
	ContentType string // MIME类型
}

// Archive 原始文档归档接口
// 摄取流水线只处理纯文本，原始报告文件(PDF等)保存在归档中供追溯
type Archive interface {
	// Save 保存文件并返回对象信息，对象键由实现生成
	Save(reader io.Reader, filename string) (ObjectInfo, error)

	// Get 按对象键读取文件内容
	Get(key string) (io.ReadCloser, error)

	// Delete 按对象键删除文件
	Delete(key string) error

	// List 列出指定前缀下的所有对象，前缀为空时列出全部
	List(prefix string) ([]ObjectInfo, error)

	// Exists 检查对象是否存在
	Exists(key string) (bool, error)
}

// Config 归档配置
type Config struct {
	Type      string // 归档类型: "local"或"minio"
	Path      string // 本地归档路径
	Endpoint  string // MinIO服务端点
	AccessKey string // 访问密钥ID
	SecretKey string // 秘密访问密钥
	UseSSL    bool   // 是否使用SSL
	Bucket    string // 存储桶名称
}

// DefaultConfig 返回默认归档配置
func DefaultConfig() Config {
	return Config{
		Type: "local",
		Path: "data/archive",
	}
}

// Factory 归档实现的工厂函数
type Factory func(cfg Config) (Archive, error)

var archiveFactories = make(map[string]Factory)

// RegisterArchive 注册归档实现
func RegisterArchive(name string, factory Factory) {
	archiveFactories[name] = factory
}

// NewArchive 根据配置创建归档实例
func NewArchive(cfg Config) (Archive, error) {
	factory, exists := archiveFactories[cfg.Type]
	if !exists {
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
	return factory(cfg)
}

// newObjectKey 生成对象键
// 按年月日分层，便于按时间段浏览和清理归档
func newObjectKey(filename string) string {
	now := time.Now()
	return fmt.Sprintf("%04d/%02d/%02d/%s%s",
		now.Year(), now.Month(), now.Day(),
		uuid.NewString(), filepath.Ext(filename))
}

// contentTypeFor 根据文件扩展名判断MIME类型
func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
