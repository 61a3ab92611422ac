package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentStatus 文档摄取状态类型
type DocumentStatus string

const (
	// DocStatusUploaded 文档已登记，等待摄取
	DocStatusUploaded DocumentStatus = "uploaded"
	// DocStatusProcessing 文档摄取中
	DocStatusProcessing DocumentStatus = "processing"
	// DocStatusCompleted 文档摄取完成，可被检索
	DocStatusCompleted DocumentStatus = "completed"
	// DocStatusFailed 文档摄取失败
	DocStatusFailed DocumentStatus = "failed"
)

// IngestStage 文档摄取阶段
type IngestStage string

const (
	// StageChunking 分块阶段
	StageChunking IngestStage = "chunking"
	// StageEmbedding 向量化阶段
	StageEmbedding IngestStage = "embedding"
	// StageIndexing 向量入库阶段
	StageIndexing IngestStage = "indexing"
	// StageCompleted 摄取完成
	StageCompleted IngestStage = "completed"
)

// Document 合规文档数据模型
// 存储语料库中监管文档的元数据
type Document struct {
	ID           string         `gorm:"primaryKey"`         // 文档ID，主键
	FileName     string         `gorm:"not null"`           // 文件名
	FileType     string         `gorm:"not null"`           // 文件类型
	FilePath     string         `gorm:"not null"`           // 归档路径
	FileSize     int64          `gorm:"not null"`           // 文件大小（字节）
	Region       string         `gorm:"size:64;index"`      // 适用地区
	Organization string         `gorm:"size:128;index"`     // 发布机构
	Standard     string         `gorm:"size:64;index"`      // 关联的合规标准
	Status       DocumentStatus `gorm:"not null;index"`     // 摄取状态
	CurrentStage IngestStage    `gorm:"size:20"`            // 当前摄取阶段
	UploadedAt   time.Time      `gorm:"not null;index"`     // 登记时间
	ProcessedAt  *time.Time     `gorm:"index"`              // 摄取完成时间
	UpdatedAt    time.Time      `gorm:"not null;index"`     // 更新时间
	Error        string         `gorm:"type:text"`          // 错误信息
	SegmentCount int            `gorm:"not null;default:0"` // 分块数量
	TokenCount   int            `gorm:"not null;default:0"` // 全文token数
	Tags         string         `gorm:"type:varchar(255)"`  // 标签，逗号分隔
	Metadata     datatypes.JSON `gorm:"type:json"`          // 元数据，JSON格式
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (d *Document) BeforeCreate(tx *gorm.DB) (err error) {
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now()
	}
	d.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (d *Document) BeforeUpdate(tx *gorm.DB) (err error) {
	d.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (Document) TableName() string {
	return "documents"
}

// DocumentSegment 文档分块数据模型
// 跟踪文档的文本分块及其在向量库中的对应记录
type DocumentSegment struct {
	ID         uint           `gorm:"primaryKey;autoIncrement"` // 主键ID
	DocumentID string         `gorm:"not null;index"`           // 所属文档ID
	SegmentID  string         `gorm:"not null;uniqueIndex"`     // 分块唯一ID，也是向量库记录ID
	Position   int            `gorm:"not null"`                 // 分块序号
	Text       string         `gorm:"type:text;not null"`       // 分块文本内容
	StartChar  int            `gorm:"not null;default:0"`       // 在源文本中的起始偏移
	EndChar    int            `gorm:"not null;default:0"`       // 在源文本中的结束偏移
	TokenCount int            `gorm:"not null;default:0"`       // 分块token数
	PageNumber int            `gorm:"default:0"`                // 页码（如果可定位）
	CreatedAt  time.Time      `gorm:"not null"`                 // 创建时间
	UpdatedAt  time.Time      `gorm:"not null"`                 // 更新时间
	Metadata   datatypes.JSON `gorm:"type:json"`                // 分块元数据
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (ds *DocumentSegment) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now()
	ds.CreatedAt = now
	ds.UpdatedAt = now
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (ds *DocumentSegment) BeforeUpdate(tx *gorm.DB) (err error) {
	ds.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (DocumentSegment) TableName() string {
	return "document_segments"
}
