package services

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fyerfyer/compliance-QA-system/internal/document"
	"github.com/fyerfyer/compliance-QA-system/internal/embedding"
	"github.com/fyerfyer/compliance-QA-system/internal/models"
	"github.com/fyerfyer/compliance-QA-system/internal/repository"
	"github.com/fyerfyer/compliance-QA-system/internal/vectordb"
)

// wordCodec 测试用的按词分词编解码器
type wordCodec struct {
	vocab []string
	index map[string]int
}

func newWordCodec() *wordCodec {
	return &wordCodec{index: make(map[string]int)}
}

func (c *wordCodec) Encode(text string) []int {
	words := strings.Fields(text)
	tokens := make([]int, 0, len(words))
	for _, word := range words {
		id, ok := c.index[word]
		if !ok {
			id = len(c.vocab)
			c.vocab = append(c.vocab, word)
			c.index[word] = id
		}
		tokens = append(tokens, id)
	}
	return tokens
}

func (c *wordCodec) Decode(tokens []int) string {
	words := make([]string, 0, len(tokens))
	for _, id := range tokens {
		if id >= 0 && id < len(c.vocab) {
			words = append(words, c.vocab[id])
		}
	}
	return strings.Join(words, " ")
}

func (c *wordCodec) Count(text string) int {
	return len(strings.Fields(text))
}

func (c *wordCodec) Close() error { return nil }

// hashEmbedder 确定性测试嵌入客户端
type hashEmbedder struct {
	dim int
}

func (h *hashEmbedder) Embed(ctx context.Context, text string) (*embedding.Result, error) {
	vector := make([]float32, h.dim)
	for i, r := range text {
		vector[i%h.dim] += float32(r%7) / 10
	}
	vector[0] += 1 // 避免零向量
	return &embedding.Result{Embedding: vector, TokenCount: len(text), Model: "hash"}, nil
}

func (h *hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*embedding.Result, error) {
	results := make([]*embedding.Result, len(texts))
	for i, text := range texts {
		result, err := h.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		results[i] = result
	}
	return results, nil
}

func (h *hashEmbedder) Name() string    { return "hash" }
func (h *hashEmbedder) Dimensions() int { return h.dim }
func (h *hashEmbedder) Close() error    { return nil }

func newTestIngestionService(t *testing.T) (*IngestionService, vectordb.Store, repository.DocumentRepository) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Document{}, &models.DocumentSegment{}))
	repo := repository.NewDocumentRepositoryWithDB(db)

	chunker, err := document.NewChunker(newWordCodec(), document.ChunkerConfig{
		MaxTokens:          50,
		OverlapTokens:      10,
		PreserveParagraphs: true,
		PreserveSentences:  true,
		MinChunkSize:       5,
	})
	require.NoError(t, err)

	client := &hashEmbedder{dim: 8}
	batch := embedding.NewBatchProcessor(client, 10, 0, 1)

	store, err := vectordb.NewMemoryStore(vectordb.Config{Dimension: 8})
	require.NoError(t, err)

	quiet := logrus.New()
	quiet.SetLevel(logrus.PanicLevel)

	return NewIngestionService(chunker, batch, store, repo, quiet), store, repo
}

func sentence(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "word" + string(rune('a'+i%26))
	}
	return strings.Join(words, " ") + "."
}

// TestIngestDocument 测试完整摄取流程
func TestIngestDocument(t *testing.T) {
	service, store, repo := newTestIngestionService(t)

	content := sentence(40) + "\n\n" + sentence(40) + "\n\n" + sentence(40)
	result, err := service.Ingest(context.Background(), IngestRequest{
		FileName:     "tcfd-guidance.txt",
		FileType:     "txt",
		Region:       "EU",
		Organization: "TCFD",
		Standard:     "TCFD",
		Content:      content,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.DocumentID)
	assert.Greater(t, result.SegmentCount, 1, "超过maxTokens的文本应产生多个分块")
	assert.Greater(t, result.TokenCount, 0)

	t.Run("document row completed", func(t *testing.T) {
		doc, err := repo.GetByID(result.DocumentID)
		require.NoError(t, err)
		assert.Equal(t, models.DocStatusCompleted, doc.Status)
		assert.Equal(t, models.StageCompleted, doc.CurrentStage)
		assert.Equal(t, result.SegmentCount, doc.SegmentCount)
		assert.NotNil(t, doc.ProcessedAt)
	})

	t.Run("segments persisted in order", func(t *testing.T) {
		segments, err := repo.GetSegments(result.DocumentID)
		require.NoError(t, err)
		require.Len(t, segments, result.SegmentCount)
		for i, segment := range segments {
			assert.Equal(t, i, segment.Position)
			assert.NotEmpty(t, segment.Text)
			assert.Greater(t, segment.TokenCount, 0)
		}
	})

	t.Run("vectors searchable with metadata", func(t *testing.T) {
		count, err := store.Count()
		require.NoError(t, err)
		assert.Equal(t, result.SegmentCount, count)

		embedder := &hashEmbedder{dim: 8}
		queryResult, err := embedder.Embed(context.Background(), sentence(40))
		require.NoError(t, err)

		results, err := store.Search(queryResult.Embedding, vectordb.SearchFilter{TopK: 3})
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "EU", results[0].Metadata["region"], "分块元数据应继承文档属性")
		assert.Equal(t, "tcfd-guidance.txt", results[0].Metadata["file_name"])
	})
}

// TestIngestTooShort 测试过短内容快速失败
func TestIngestTooShort(t *testing.T) {
	service, store, _ := newTestIngestionService(t)

	_, err := service.Ingest(context.Background(), IngestRequest{
		FileName: "tiny.txt",
		Content:  "too short",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")

	count, _ := store.Count()
	assert.Equal(t, 0, count, "失败的摄取不应写入任何向量")
}

// TestIngestEmbeddingFailure 测试向量化失败时文档标记为failed
func TestIngestEmbeddingFailure(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Document{}, &models.DocumentSegment{}))
	repo := repository.NewDocumentRepositoryWithDB(db)

	chunker, err := document.NewChunker(newWordCodec(), document.DefaultChunkerConfig())
	require.NoError(t, err)

	// 维度不一致的存储使Add失败之前，先让嵌入失败
	failing := &failingEmbedder{}
	batch := embedding.NewBatchProcessor(failing, 10, 0, 1)
	store, err := vectordb.NewMemoryStore(vectordb.Config{Dimension: 8})
	require.NoError(t, err)

	quiet := logrus.New()
	quiet.SetLevel(logrus.PanicLevel)
	service := NewIngestionService(chunker, batch, store, repo, quiet)

	docID := "failing-doc"
	_, err = service.Ingest(context.Background(), IngestRequest{
		DocumentID: docID,
		FileName:   "doc.txt",
		Content:    sentence(120),
	})
	require.Error(t, err)

	doc, err := repo.GetByID(docID)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusFailed, doc.Status)
	assert.NotEmpty(t, doc.Error)
}

// failingEmbedder 总是失败的嵌入客户端
type failingEmbedder struct{}

func (f *failingEmbedder) Embed(ctx context.Context, text string) (*embedding.Result, error) {
	return nil, &embedding.ProviderError{Provider: "failing", Attempts: 1}
}

func (f *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*embedding.Result, error) {
	return nil, &embedding.ProviderError{Provider: "failing", Attempts: 1}
}

func (f *failingEmbedder) Name() string    { return "failing" }
func (f *failingEmbedder) Dimensions() int { return 8 }
func (f *failingEmbedder) Close() error    { return nil }
