package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/fyerfyer/compliance-QA-system/internal/compliance"
	"github.com/fyerfyer/compliance-QA-system/internal/models"
	"github.com/fyerfyer/compliance-QA-system/internal/repository"
)

// AnalysisService 合规分析服务
// 驱动分析器并将结果持久化为报告记录
type AnalysisService struct {
	analyzer *compliance.Analyzer
	reports  repository.ReportRepository
	logger   *logrus.Logger
}

// NewAnalysisService 创建合规分析服务
func NewAnalysisService(analyzer *compliance.Analyzer, reports repository.ReportRepository, logger *logrus.Logger) *AnalysisService {
	if logger == nil {
		logger = logrus.New()
	}
	return &AnalysisService{
		analyzer: analyzer,
		reports:  reports,
		logger:   logger,
	}
}

// AnalyzeAndStore 执行合规分析并持久化结果
// 返回分析结果和报告记录ID
func (s *AnalysisService) AnalyzeAndStore(ctx context.Context, req compliance.AnalyzeRequest) (*compliance.ComplianceAnalysisResult, string, error) {
	result, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, "", err
	}

	reportID := uuid.NewString()
	record, err := buildReportRecord(reportID, req, result)
	if err != nil {
		return nil, "", fmt.Errorf("failed to serialize analysis result: %w", err)
	}

	if err := s.reports.Create(record); err != nil {
		// 分析已经完成，持久化失败不应丢弃结果
		s.logger.WithError(err).Error("failed to persist compliance report")
		return result, "", err
	}

	return result, reportID, nil
}

// buildReportRecord 将分析结果转换为报告数据模型
func buildReportRecord(reportID string, req compliance.AnalyzeRequest, result *compliance.ComplianceAnalysisResult) (*models.ComplianceReport, error) {
	findingsJSON, err := json.Marshal(result.Findings)
	if err != nil {
		return nil, err
	}

	record := &models.ComplianceReport{
		ID:           reportID,
		ReportName:   result.ReportName,
		Standards:    strings.Join(req.Standards, ","),
		Depth:        string(req.Depth),
		OverallScore: result.OverallScore,
		Summary:      result.Summary,
		Findings:     datatypes.JSON(findingsJSON),
		ProcessedAt:  result.ProcessedAt,
	}

	if result.Analytics != nil {
		analyticsJSON, err := json.Marshal(result.Analytics)
		if err != nil {
			return nil, err
		}
		record.Analytics = datatypes.JSON(analyticsJSON)
	}

	return record, nil
}
