package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/fyerfyer/compliance-QA-system/internal/database"
	"github.com/fyerfyer/compliance-QA-system/internal/models"
)

// docRepository 文档仓储的gorm实现
type docRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 使用全局数据库连接创建文档仓储
func NewDocumentRepository() DocumentRepository {
	return &docRepository{db: database.DB}
}

// NewDocumentRepositoryWithDB 使用指定数据库连接创建文档仓储
func NewDocumentRepositoryWithDB(db *gorm.DB) DocumentRepository {
	return &docRepository{db: db}
}

// Create 创建文档记录
func (r *docRepository) Create(doc *models.Document) error {
	return r.db.Create(doc).Error
}

// Update 更新文档记录
func (r *docRepository) Update(doc *models.Document) error {
	return r.db.Save(doc).Error
}

// GetByID 根据ID获取文档
func (r *docRepository) GetByID(id string) (*models.Document, error) {
	var doc models.Document
	err := r.db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// List 列出文档列表
// 支持status、region、organization、standard筛选
func (r *docRepository) List(offset, limit int, filters map[string]interface{}) ([]*models.Document, int64, error) {
	var docs []*models.Document
	var total int64

	query := r.db.Model(&models.Document{})
	for key, value := range filters {
		switch key {
		case "status", "region", "organization", "standard":
			query = query.Where(key+" = ?", value)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("uploaded_at DESC").Offset(offset).Limit(limit).Find(&docs).Error
	if err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

// Delete 删除文档及其全部分块
func (r *docRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&models.DocumentSegment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Document{}).Error
	})
}

// UpdateStatus 更新文档状态和错误信息
// 状态进入completed时记录完成时间
func (r *docRepository) UpdateStatus(id string, status models.DocumentStatus, errorMsg string) error {
	updates := map[string]interface{}{
		"status":     status,
		"error":      errorMsg,
		"updated_at": time.Now(),
	}
	if status == models.DocStatusCompleted {
		now := time.Now()
		updates["processed_at"] = &now
	}

	result := r.db.Model(&models.Document{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrDocumentNotFound
	}
	return nil
}

// UpdateStage 更新文档当前摄取阶段
func (r *docRepository) UpdateStage(id string, stage models.IngestStage) error {
	result := r.db.Model(&models.Document{}).Where("id = ?", id).Updates(map[string]interface{}{
		"current_stage": stage,
		"updated_at":    time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrDocumentNotFound
	}
	return nil
}

// SaveSegments 批量保存文档分块
func (r *docRepository) SaveSegments(segments []*models.DocumentSegment) error {
	if len(segments) == 0 {
		return nil
	}
	return r.db.Create(segments).Error
}

// GetSegments 获取文档的所有分块，按序号排序
func (r *docRepository) GetSegments(docID string) ([]*models.DocumentSegment, error) {
	var segments []*models.DocumentSegment
	err := r.db.Where("document_id = ?", docID).Order("position").Find(&segments).Error
	if err != nil {
		return nil, err
	}
	return segments, nil
}

// CountSegments 统计文档的分块数量
func (r *docRepository) CountSegments(docID string) (int, error) {
	var count int64
	err := r.db.Model(&models.DocumentSegment{}).Where("document_id = ?", docID).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// DeleteSegments 删除文档的所有分块
func (r *docRepository) DeleteSegments(docID string) error {
	return r.db.Where("document_id = ?", docID).Delete(&models.DocumentSegment{}).Error
}
