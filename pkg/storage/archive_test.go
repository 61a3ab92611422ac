package storage

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchive(t *testing.T) Archive {
	archive, err := NewLocalArchive(Config{Path: t.TempDir()})
	require.NoError(t, err)
	return archive
}

// TestLocalArchive 测试本地归档实现
func TestLocalArchive(t *testing.T) {
	archive := newTestArchive(t)

	content := "Climate-related financial disclosure guidance."
	info, err := archive.Save(bytes.NewBufferString(content), "tcfd-guidance.pdf")
	require.NoError(t, err)

	t.Run("save assigns key and metadata", func(t *testing.T) {
		assert.NotEmpty(t, info.Key)
		assert.True(t, strings.HasSuffix(info.Key, ".pdf"), "对象键应保留原始扩展名")
		assert.Equal(t, "tcfd-guidance.pdf", info.Name)
		assert.Equal(t, int64(len(content)), info.Size)
		assert.Equal(t, "application/pdf", info.ContentType)
	})

	t.Run("get round trip", func(t *testing.T) {
		reader, err := archive.Get(info.Key)
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	})

	t.Run("get missing object", func(t *testing.T) {
		_, err := archive.Get("2025/01/01/missing.pdf")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("exists", func(t *testing.T) {
		exists, err := archive.Exists(info.Key)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = archive.Exists("2025/01/01/missing.pdf")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("list with prefix", func(t *testing.T) {
		_, err := archive.Save(bytes.NewBufferString("more content"), "esrs-standard.txt")
		require.NoError(t, err)

		all, err := archive.List("")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		// 前缀是日期路径的前4位(年份)
		yearPrefix := info.Key[:4]
		filtered, err := archive.List(yearPrefix)
		require.NoError(t, err)
		assert.Len(t, filtered, 2)

		none, err := archive.List("1999")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, archive.Delete(info.Key))

		exists, err := archive.Exists(info.Key)
		require.NoError(t, err)
		assert.False(t, exists)

		err = archive.Delete(info.Key)
		assert.Error(t, err, "重复删除应报告对象不存在")
	})

	t.Run("rejects escaping keys", func(t *testing.T) {
		_, err := archive.Get("../outside.txt")
		assert.Error(t, err)
	})
}

// TestArchiveFactory 测试归档工厂
func TestArchiveFactory(t *testing.T) {
	t.Run("local", func(t *testing.T) {
		archive, err := NewArchive(Config{Type: "local", Path: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &LocalArchive{}, archive)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewArchive(Config{Type: "s3-compatible"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown archive type")
	})
}

// TestContentTypeFor 测试MIME类型推断
func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", contentTypeFor("report.PDF"))
	assert.Equal(t, "text/markdown", contentTypeFor("notes.md"))
	assert.Equal(t, "text/csv", contentTypeFor("metrics.csv"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("binary.bin"))
}
