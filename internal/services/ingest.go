package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/fyerfyer/compliance-QA-system/internal/document"
	"github.com/fyerfyer/compliance-QA-system/internal/embedding"
	"github.com/fyerfyer/compliance-QA-system/internal/models"
	"github.com/fyerfyer/compliance-QA-system/internal/repository"
	"github.com/fyerfyer/compliance-QA-system/internal/vectordb"
)

// 可摄取文档的最小内容长度（字符）
// 更短的内容无法产生有意义的检索语料
const minContentChars = 100

// IngestRequest 文档摄取请求
type IngestRequest struct {
	DocumentID   string                 // 文档ID，为空时自动生成
	FileName     string                 // 文件名
	FileType     string                 // 文件类型
	FilePath     string                 // 原始文件归档路径（如果有）
	Region       string                 // 适用地区
	Organization string                 // 发布机构
	Standard     string                 // 关联的合规标准
	Content      string                 // 纯文本内容
	Metadata     map[string]interface{} // 附加元数据
}

// IngestResult 摄取结果
type IngestResult struct {
	DocumentID   string // 文档ID
	SegmentCount int    // 产生的分块数
	TokenCount   int    // 全部分块的token总数
}

// IngestionService 文档摄取服务
// 将纯文本文档分块、向量化并写入向量库和关系库
type IngestionService struct {
	chunker   *document.Chunker
	embedder  *embedding.BatchProcessor
	store     vectordb.Store
	documents repository.DocumentRepository
	logger    *logrus.Logger
}

// NewIngestionService 创建文档摄取服务
func NewIngestionService(chunker *document.Chunker, embedder *embedding.BatchProcessor,
	store vectordb.Store, documents repository.DocumentRepository, logger *logrus.Logger) *IngestionService {
	if logger == nil {
		logger = logrus.New()
	}
	return &IngestionService{
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		documents: documents,
		logger:    logger,
	}
}

// Ingest 执行一次文档摄取
// 内容过少时快速失败；任何阶段失败都把文档标记为failed
func (s *IngestionService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if len([]rune(req.Content)) < minContentChars {
		return nil, fmt.Errorf("document content too short: need at least %d characters", minContentChars)
	}

	docID := req.DocumentID
	if docID == "" {
		docID = uuid.NewString()
	}

	doc, err := s.registerDocument(docID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to register document: %w", err)
	}

	result, err := s.process(ctx, doc, req)
	if err != nil {
		if statusErr := s.documents.UpdateStatus(docID, models.DocStatusFailed, err.Error()); statusErr != nil {
			s.logger.WithError(statusErr).Warn("failed to mark document as failed")
		}
		return nil, err
	}

	return result, nil
}

// registerDocument 登记文档记录并进入processing状态
func (s *IngestionService) registerDocument(docID string, req IngestRequest) (*models.Document, error) {
	metaJSON, err := json.Marshal(req.Metadata)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:           docID,
		FileName:     req.FileName,
		FileType:     req.FileType,
		FilePath:     req.FilePath,
		FileSize:     int64(len(req.Content)),
		Region:       req.Region,
		Organization: req.Organization,
		Standard:     req.Standard,
		Status:       models.DocStatusProcessing,
		CurrentStage: models.StageChunking,
		Metadata:     datatypes.JSON(metaJSON),
	}
	if err := s.documents.Create(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// process 执行分块、向量化和入库
func (s *IngestionService) process(ctx context.Context, doc *models.Document, req IngestRequest) (*IngestResult, error) {
	// 分块元数据继承文档属性，供检索时过滤和来源标注
	chunkMeta := map[string]interface{}{
		"document_id": doc.ID,
		"file_name":   req.FileName,
	}
	if req.Region != "" {
		chunkMeta["region"] = req.Region
	}
	if req.Organization != "" {
		chunkMeta["organization"] = req.Organization
	}
	if req.Standard != "" {
		chunkMeta["standard"] = req.Standard
	}
	for key, value := range req.Metadata {
		chunkMeta[key] = value
	}

	chunks, err := s.chunker.Chunk(req.Content, chunkMeta)
	if err != nil {
		return nil, fmt.Errorf("chunking failed: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document produced no chunks")
	}

	if err := s.documents.UpdateStage(doc.ID, models.StageEmbedding); err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	embeddings, err := s.embedder.Process(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	if err := s.documents.UpdateStage(doc.ID, models.StageIndexing); err != nil {
		return nil, err
	}

	records := make([]vectordb.Record, len(chunks))
	segments := make([]*models.DocumentSegment, len(chunks))
	totalTokens := 0
	for i, chunk := range chunks {
		segmentID := fmt.Sprintf("%s_%d", doc.ID, chunk.ChunkIndex)
		records[i] = vectordb.Record{
			ID:        segmentID,
			Content:   chunk.Content,
			Metadata:  chunk.Metadata,
			Embedding: embeddings[i].Embedding,
			CreatedAt: time.Now(),
		}

		segMeta, _ := json.Marshal(chunk.Metadata)
		segments[i] = &models.DocumentSegment{
			DocumentID: doc.ID,
			SegmentID:  segmentID,
			Position:   chunk.ChunkIndex,
			Text:       chunk.Content,
			StartChar:  chunk.StartChar,
			EndChar:    chunk.EndChar,
			TokenCount: chunk.TokenCount,
			PageNumber: chunk.PageNumber,
			Metadata:   datatypes.JSON(segMeta),
		}
		totalTokens += chunk.TokenCount
	}

	if err := s.store.Add(records); err != nil {
		return nil, fmt.Errorf("vector store add failed: %w", err)
	}
	if err := s.documents.SaveSegments(segments); err != nil {
		return nil, fmt.Errorf("failed to save segments: %w", err)
	}

	doc.Status = models.DocStatusCompleted
	doc.CurrentStage = models.StageCompleted
	doc.SegmentCount = len(chunks)
	doc.TokenCount = totalTokens
	now := time.Now()
	doc.ProcessedAt = &now
	if err := s.documents.Update(doc); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"document": doc.ID,
		"file":     req.FileName,
		"segments": len(chunks),
		"tokens":   totalTokens,
	}).Info("document ingested")

	return &IngestResult{
		DocumentID:   doc.ID,
		SegmentCount: len(chunks),
		TokenCount:   totalTokens,
	}, nil
}

// RemoveDocument 删除文档及其向量记录
// 向量库不支持按ID删除时重建索引的成本由调用方承担；
// 这里只负责关系库记录的清理
func (s *IngestionService) RemoveDocument(docID string) error {
	return s.documents.Delete(docID)
}
