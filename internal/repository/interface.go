package repository

import "github.com/fyerfyer/compliance-QA-system/internal/models"

// DocumentRepository 文档仓储接口
// 负责合规文档元数据和分块记录的存储和检索
type DocumentRepository interface {
	// Create 创建文档记录
	Create(doc *models.Document) error

	// Update 更新文档记录
	Update(doc *models.Document) error

	// GetByID 根据ID获取文档
	GetByID(id string) (*models.Document, error)

	// List 列出文档列表，支持分页和筛选
	List(offset, limit int, filters map[string]interface{}) ([]*models.Document, int64, error)

	// Delete 删除文档及其全部分块
	Delete(id string) error

	// UpdateStatus 更新文档状态和错误信息
	UpdateStatus(id string, status models.DocumentStatus, errorMsg string) error

	// UpdateStage 更新文档当前摄取阶段
	UpdateStage(id string, stage models.IngestStage) error

	// SaveSegments 批量保存文档分块
	SaveSegments(segments []*models.DocumentSegment) error

	// GetSegments 获取文档的所有分块，按序号排序
	GetSegments(docID string) ([]*models.DocumentSegment, error)

	// CountSegments 统计文档的分块数量
	CountSegments(docID string) (int, error)

	// DeleteSegments 删除文档的所有分块
	DeleteSegments(docID string) error
}

// ReportRepository 合规分析报告仓储接口
type ReportRepository interface {
	// Create 保存分析报告
	Create(report *models.ComplianceReport) error

	// GetByID 根据ID获取报告
	GetByID(id string) (*models.ComplianceReport, error)

	// List 按时间倒序列出报告
	List(offset, limit int) ([]*models.ComplianceReport, int64, error)

	// Delete 删除报告
	Delete(id string) error
}
