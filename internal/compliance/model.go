package compliance

import (
	"fmt"
	"time"
)

// Severity 问题严重程度
type Severity string

const (
	// SeverityCritical 严重缺失，必须整改
	SeverityCritical Severity = "critical"
	// SeverityWarning 存在缺口，建议整改
	SeverityWarning Severity = "warning"
	// SeverityInfo 提示性问题
	SeverityInfo Severity = "info"
)

// AnalysisDepth 分析深度
// 决定每个标准选取的问题数量
type AnalysisDepth string

const (
	// DepthBasic 基础分析，每个标准前3个问题
	DepthBasic AnalysisDepth = "basic"
	// DepthDetailed 详细分析，每个标准前6个问题
	DepthDetailed AnalysisDepth = "detailed"
	// DepthComprehensive 全面分析，使用全部问题
	DepthComprehensive AnalysisDepth = "comprehensive"
)

// ComplianceIssue 合规问题
// 从模型回答中解析产生，按(截断描述,类别)去重
type ComplianceIssue struct {
	ID             string   `json:"id"`                       // 问题标识
	Description    string   `json:"description"`              // 问题描述
	Severity       Severity `json:"severity"`                 // 严重程度
	Category       string   `json:"category"`                 // 类别，由关键词分类派生
	Standard       string   `json:"standard"`                 // 所属标准
	Recommendation string   `json:"recommendation,omitempty"` // 整改建议
	Context        string   `json:"context,omitempty"`        // 上下文补充
	Page           int      `json:"page,omitempty"`           // 页码（如果可定位）
}

// StandardFinding 单个标准的合规结论
// 每次分析中每个标准产生一条
type StandardFinding struct {
	Standard   string            `json:"standard"`   // 标准名称
	Compliance int               `json:"compliance"` // 合规得分，0-100
	Issues     []ComplianceIssue `json:"issues"`     // 去重后的问题列表，保持发现顺序
}

// CountStat 计数和占比统计
type CountStat struct {
	Count      int     `json:"count"`      // 数量
	Percentage float64 `json:"percentage"` // 占全部问题的百分比，四舍五入
}

// Opportunity 改进机会
// 针对得分低于70且存在严重问题的标准
type Opportunity struct {
	Standard             string `json:"standard"`              // 标准名称
	Score                int    `json:"score"`                 // 当前得分
	CriticalIssues       int    `json:"critical_issues"`       // 严重问题数
	PotentialImprovement int    `json:"potential_improvement"` // 预估改进空间百分比，上限30
	Description          string `json:"description"`           // 描述
}

// Analytics 分析统计
// 仅在请求时生成
type Analytics struct {
	IssuesByCategory map[string]CountStat `json:"issues_by_category"` // 按类别统计
	IssuesBySeverity map[string]CountStat `json:"issues_by_severity"` // 按严重程度统计
	TopCategories    []string             `json:"top_categories"`     // 问题最多的前5个类别
	Opportunities    []Opportunity        `json:"opportunities"`      // 改进机会，最多5条
}

// ComplianceAnalysisResult 一次合规分析的完整结果
// 生成后不再修改，新的分析产生新的结果
type ComplianceAnalysisResult struct {
	ReportName   string            `json:"report_name"`         // 被分析报告名称
	OverallScore int               `json:"overall_score"`       // 各标准得分的平均值，四舍五入
	Summary      string            `json:"summary"`             // 确定性生成的叙述摘要
	Findings     []StandardFinding `json:"findings"`            // 各标准的结论
	Analytics    *Analytics        `json:"analytics,omitempty"` // 统计信息（如果请求）
	ProcessedAt  time.Time         `json:"processed_at"`        // 处理时间
}

// AnalysisError 分析操作错误
type AnalysisError struct {
	Code    int    // 错误码
	Message string // 错误消息
}

// Error 实现error接口
func (e AnalysisError) Error() string {
	return fmt.Sprintf("compliance analysis error (code=%d): %s", e.Code, e.Message)
}

// 错误码常量
const (
	ErrCodeNoStandards  = 2001 // 未指定任何标准
	ErrCodeNoQuestions  = 2002 // 所有标准都没有可用问题
	ErrCodeEmptyContent = 2003 // 文档内容过少
)

// NewAnalysisError 创建分析错误
func NewAnalysisError(code int, message string) AnalysisError {
	return AnalysisError{Code: code, Message: message}
}
