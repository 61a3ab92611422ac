package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioArchive 基于MinIO对象存储的归档实现
type MinioArchive struct {
	client *minio.Client
	bucket string
}

// NewMinioArchive 创建MinIO归档实例
// 存储桶不存在时自动创建
func NewMinioArchive(cfg Config) (*MinioArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %v", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %v", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %v", err)
		}
	}

	return &MinioArchive{client: client, bucket: cfg.Bucket}, nil
}

// Save 上传文件到MinIO归档
// 大小传-1让客户端使用分片上传，不把整个文件读进内存
func (a *MinioArchive) Save(reader io.Reader, filename string) (ObjectInfo, error) {
	key := newObjectKey(filename)
	contentType := contentTypeFor(filename)

	info, err := a.client.PutObject(
		context.Background(),
		a.bucket,
		key,
		reader,
		-1,
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to upload object: %v", err)
	}

	return ObjectInfo{
		Key:         key,
		Name:        filename,
		Size:        info.Size,
		ContentType: contentType,
	}, nil
}

// Get 按对象键读取文件
func (a *MinioArchive) Get(key string) (io.ReadCloser, error) {
	obj, err := a.client.GetObject(
		context.Background(),
		a.bucket,
		key,
		minio.GetObjectOptions{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %v", err)
	}
	return obj, nil
}

// Delete 按对象键删除文件
func (a *MinioArchive) Delete(key string) error {
	err := a.client.RemoveObject(
		context.Background(),
		a.bucket,
		key,
		minio.RemoveObjectOptions{},
	)
	if err != nil {
		return fmt.Errorf("failed to delete object: %v", err)
	}
	return nil
}

// List 列出指定前缀下的所有对象
func (a *MinioArchive) List(prefix string) ([]ObjectInfo, error) {
	objects := make([]ObjectInfo, 0)

	objectCh := a.client.ListObjects(
		context.Background(),
		a.bucket,
		minio.ListObjectsOptions{Prefix: prefix, Recursive: true},
	)
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects: %v", object.Err)
		}
		objects = append(objects, ObjectInfo{
			Key:         object.Key,
			Name:        filepath.Base(object.Key),
			Size:        object.Size,
			ContentType: contentTypeFor(object.Key),
		})
	}

	return objects, nil
}

// Exists 检查对象是否存在
func (a *MinioArchive) Exists(key string) (bool, error) {
	_, err := a.client.StatObject(
		context.Background(),
		a.bucket,
		key,
		minio.StatObjectOptions{},
	)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %v", err)
	}
	return true, nil
}

func init() {
	RegisterArchive("minio", func(cfg Config) (Archive, error) {
		return NewMinioArchive(cfg)
	})
}
