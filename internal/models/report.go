package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ComplianceReport 合规分析结果数据模型
// 每次分析产生一条记录，结论和统计以JSON形式持久化
type ComplianceReport struct {
	ID           string         `gorm:"primaryKey"`        // 报告ID，主键
	ReportName   string         `gorm:"not null;index"`    // 被分析报告名称
	Standards    string         `gorm:"not null;size:255"` // 检查的标准，逗号分隔
	Depth        string         `gorm:"not null;size:20"`  // 分析深度
	OverallScore int            `gorm:"not null"`          // 总体得分
	Summary      string         `gorm:"type:text"`         // 叙述摘要
	Findings     datatypes.JSON `gorm:"type:json"`         // 各标准结论，JSON格式
	Analytics    datatypes.JSON `gorm:"type:json"`         // 统计信息，JSON格式（如果生成）
	ProcessedAt  time.Time      `gorm:"not null;index"`    // 分析完成时间
	CreatedAt    time.Time      `gorm:"not null"`          // 创建时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (r *ComplianceReport) BeforeCreate(tx *gorm.DB) (err error) {
	r.CreatedAt = time.Now()
	if r.ProcessedAt.IsZero() {
		r.ProcessedAt = r.CreatedAt
	}
	return nil
}

// TableName 明确指定表名
func (ComplianceReport) TableName() string {
	return "compliance_reports"
}
