package compliance

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/compliance-QA-system/internal/rag"
)

// QuestionAnswerer 问答能力接口
// rag.Engine满足该接口
type QuestionAnswerer interface {
	Query(ctx context.Context, question string) (*rag.RAGResponse, error)
}

// AnalyzeRequest 合规分析请求
type AnalyzeRequest struct {
	ReportName       string        // 被分析报告名称
	Standards        []string      // 要检查的标准列表
	Depth            AnalysisDepth // 分析深度
	IncludeAnalytics bool          // 是否生成统计信息
}

// Analyzer 合规分析器
// 用标准问题集驱动问答引擎，从回答中提取、归类和评分问题
type Analyzer struct {
	answerer  QuestionAnswerer
	extractor IssueExtractor
	logger    *logrus.Logger
}

// NewAnalyzer 创建合规分析器
// extractor为nil时使用内置的行解析提取器
func NewAnalyzer(answerer QuestionAnswerer, extractor IssueExtractor, logger *logrus.Logger) *Analyzer {
	if extractor == nil {
		extractor = NewLineParser()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Analyzer{
		answerer:  answerer,
		extractor: extractor,
		logger:    logger,
	}
}

// Analyze 执行一次合规分析
// 各标准和问题顺序执行，保证问题发现顺序确定（去重保留首次出现）。
// 单个问题失败记录日志后跳过，不中止整个分析。
func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) (*ComplianceAnalysisResult, error) {
	if len(req.Standards) == 0 {
		return nil, NewAnalysisError(ErrCodeNoStandards, "no compliance standards specified")
	}

	depth := req.Depth
	if depth == "" {
		depth = DepthBasic
	}

	// 先收集全部问题，所有标准都没有可用问题时快速失败，
	// 避免产生误导性的满分结果
	questionsByStandard := make(map[string][]string, len(req.Standards))
	totalQuestions := 0
	for _, standard := range req.Standards {
		questions := QuestionsFor(standard, depth)
		questionsByStandard[standard] = questions
		totalQuestions += len(questions)
	}
	if totalQuestions == 0 {
		return nil, NewAnalysisError(ErrCodeNoQuestions, "no usable questions for any requested standard")
	}

	findings := make([]StandardFinding, 0, len(req.Standards))
	for _, standard := range req.Standards {
		finding, err := a.analyzeStandard(ctx, standard, questionsByStandard[standard], depth)
		if err != nil {
			// 取消是唯一会中止整个分析的错误
			return nil, err
		}
		findings = append(findings, *finding)
	}

	overall := OverallScore(findings)
	result := &ComplianceAnalysisResult{
		ReportName:   req.ReportName,
		OverallScore: overall,
		Summary:      BuildSummary(overall, findings),
		Findings:     findings,
		ProcessedAt:  time.Now(),
	}
	if req.IncludeAnalytics {
		result.Analytics = BuildAnalytics(findings)
	}

	a.logger.WithFields(logrus.Fields{
		"report":    req.ReportName,
		"standards": len(findings),
		"score":     overall,
	}).Info("compliance analysis completed")

	return result, nil
}

// analyzeStandard 分析单个标准
// 问题顺序执行，每次网络调用完成后才开始下一个问题
func (a *Analyzer) analyzeStandard(ctx context.Context, standard string, questions []string, depth AnalysisDepth) (*StandardFinding, error) {
	var issues []ComplianceIssue

	for _, question := range questions {
		// 取消后不再发起新的问题调用
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := a.answerer.Query(ctx, question)
		if err != nil {
			// 单个问题失败不中止整个分析，该问题不贡献任何发现
			a.logger.WithFields(logrus.Fields{
				"standard": standard,
				"question": question,
			}).WithError(err).Warn("question failed, skipping")
			continue
		}

		// 零检索的固定回答不包含缺口描述，解析结果自然为空
		issues = append(issues, a.extractor.ExtractIssues(resp.Answer, standard)...)
	}

	deduped := DeduplicateIssues(issues)
	return &StandardFinding{
		Standard:   standard,
		Compliance: ScoreStandard(deduped, depth),
		Issues:     deduped,
	}, nil
}
