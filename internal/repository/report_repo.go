package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/fyerfyer/compliance-QA-system/internal/database"
	"github.com/fyerfyer/compliance-QA-system/internal/models"
)

// reportRepository 分析报告仓储的gorm实现
type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository 使用全局数据库连接创建报告仓储
func NewReportRepository() ReportRepository {
	return &reportRepository{db: database.DB}
}

// NewReportRepositoryWithDB 使用指定数据库连接创建报告仓储
func NewReportRepositoryWithDB(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// Create 保存分析报告
func (r *reportRepository) Create(report *models.ComplianceReport) error {
	return r.db.Create(report).Error
}

// GetByID 根据ID获取报告
func (r *reportRepository) GetByID(id string) (*models.ComplianceReport, error) {
	var report models.ComplianceReport
	err := r.db.Where("id = ?", id).First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrReportNotFound
		}
		return nil, err
	}
	return &report, nil
}

// List 按分析时间倒序列出报告
func (r *reportRepository) List(offset, limit int) ([]*models.ComplianceReport, int64, error) {
	var reports []*models.ComplianceReport
	var total int64

	if err := r.db.Model(&models.ComplianceReport{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Order("processed_at DESC").Offset(offset).Limit(limit).Find(&reports).Error
	if err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

// Delete 删除报告
func (r *reportRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.ComplianceReport{}).Error
}
