package compliance

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/compliance-QA-system/internal/rag"
)

// scriptedAnswerer 按问题内容返回脚本化回答
type scriptedAnswerer struct {
	answers   map[string]string // 问题子串 → 回答
	defaults  string            // 无匹配时的回答
	failOn    string            // 包含该子串的问题返回错误
	questions []string          // 收到的全部问题
	cancel    context.CancelFunc
	cancelAt  int // 在第N次调用后触发取消
}

func (s *scriptedAnswerer) Query(ctx context.Context, question string) (*rag.RAGResponse, error) {
	s.questions = append(s.questions, question)

	if s.cancel != nil && len(s.questions) == s.cancelAt {
		s.cancel()
	}

	if s.failOn != "" && strings.Contains(question, s.failOn) {
		return nil, errors.New("provider unavailable")
	}

	answer := s.defaults
	for substr, scripted := range s.answers {
		if strings.Contains(question, substr) {
			answer = scripted
			break
		}
	}

	return &rag.RAGResponse{
		Answer:  answer,
		Sources: []rag.Source{},
		Metadata: rag.ResponseMetadata{
			RetrievedChunks: 1,
			Model:           "scripted",
		},
	}, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

const cleanAnswer = "The report covers this requirement thoroughly with clear citations. [Source 1]"

// TestAnalyzeCleanReport 测试无问题报告得满分
func TestAnalyzeCleanReport(t *testing.T) {
	answerer := &scriptedAnswerer{defaults: cleanAnswer}
	analyzer := NewAnalyzer(answerer, nil, quietLogger())

	result, err := analyzer.Analyze(context.Background(), AnalyzeRequest{
		ReportName: "annual-report-2025.pdf",
		Standards:  []string{"TCFD"},
		Depth:      DepthBasic,
	})
	require.NoError(t, err)

	require.Len(t, result.Findings, 1)
	assert.Equal(t, 100, result.Findings[0].Compliance, "零问题的标准应得满分")
	assert.Empty(t, result.Findings[0].Issues)
	assert.Equal(t, 100, result.OverallScore)
	assert.Equal(t, "annual-report-2025.pdf", result.ReportName)
	assert.False(t, result.ProcessedAt.IsZero())
	assert.Nil(t, result.Analytics, "未请求时不生成统计")
	assert.Len(t, answerer.questions, 3, "basic深度每个标准3个问题")
}

// TestAnalyzeWithGaps 测试缺口提取和评分
func TestAnalyzeWithGaps(t *testing.T) {
	answerer := &scriptedAnswerer{
		defaults: cleanAnswer,
		answers: map[string]string{
			"board's oversight": "The report is missing any description of board oversight responsibilities.\n" +
				"This is a critical governance gap.",
			"management's role": "The report does not describe management's role in assessing climate risks.",
		},
	}
	analyzer := NewAnalyzer(answerer, nil, quietLogger())

	result, err := analyzer.Analyze(context.Background(), AnalyzeRequest{
		ReportName:       "gap-report.pdf",
		Standards:        []string{"TCFD"},
		Depth:            DepthBasic,
		IncludeAnalytics: true,
	})
	require.NoError(t, err)

	finding := result.Findings[0]
	require.Len(t, finding.Issues, 2)
	assert.Equal(t, SeverityCritical, finding.Issues[0].Severity)
	assert.Less(t, finding.Compliance, 100)
	assert.NotNil(t, result.Analytics)
	assert.Contains(t, result.Summary, "TCFD")
}

// TestAnalyzeDeduplication 测试单标准内去重
func TestAnalyzeDeduplication(t *testing.T) {
	// 两个问题产生首50字符相同、类别相同的问题描述
	duplicate1 := "Missing governance disclosure details on board oversight duties in the report."
	duplicate2 := "Missing governance disclosure details on board oversight roles in the report."

	answerer := &scriptedAnswerer{
		defaults: cleanAnswer,
		answers: map[string]string{
			"board's oversight": duplicate1,
			"management's role": duplicate2,
		},
	}
	analyzer := NewAnalyzer(answerer, nil, quietLogger())

	result, err := analyzer.Analyze(context.Background(), AnalyzeRequest{
		ReportName: "dup-report.pdf",
		Standards:  []string{"TCFD"},
		Depth:      DepthBasic,
	})
	require.NoError(t, err)

	finding := result.Findings[0]
	require.Len(t, finding.Issues, 1, "重复键的问题应合并为一条")
	assert.Contains(t, finding.Issues[0].Description, "duties", "应保留首次出现的问题")
}

// TestAnalyzeQuestionFailureSkipped 测试单个问题失败不中止分析
func TestAnalyzeQuestionFailureSkipped(t *testing.T) {
	answerer := &scriptedAnswerer{
		defaults: cleanAnswer,
		failOn:   "management's role",
	}
	analyzer := NewAnalyzer(answerer, nil, quietLogger())

	result, err := analyzer.Analyze(context.Background(), AnalyzeRequest{
		ReportName: "flaky-report.pdf",
		Standards:  []string{"TCFD"},
		Depth:      DepthBasic,
	})
	require.NoError(t, err, "单个问题失败应被跳过而不是中止")

	assert.Equal(t, 100, result.Findings[0].Compliance,
		"失败的问题不贡献任何发现")
	assert.Len(t, answerer.questions, 3, "后续问题应继续执行")
}

// TestAnalyzeCancellation 测试取消停止发起新调用
func TestAnalyzeCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	answerer := &scriptedAnswerer{
		defaults: cleanAnswer,
		cancel:   cancel,
		cancelAt: 2,
	}
	analyzer := NewAnalyzer(answerer, nil, quietLogger())

	_, err := analyzer.Analyze(ctx, AnalyzeRequest{
		ReportName: "cancelled-report.pdf",
		Standards:  []string{"TCFD", "GRI"},
		Depth:      DepthComprehensive,
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, len(answerer.questions), "取消后不应发起新的问题调用")
}

// TestAnalyzeValidation 测试请求校验
func TestAnalyzeValidation(t *testing.T) {
	analyzer := NewAnalyzer(&scriptedAnswerer{defaults: cleanAnswer}, nil, quietLogger())

	_, err := analyzer.Analyze(context.Background(), AnalyzeRequest{
		ReportName: "report.pdf",
	})
	require.Error(t, err)

	var analysisErr AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, ErrCodeNoStandards, analysisErr.Code)
}

// TestAnalyzeUnknownStandard 测试未知标准的通用问题回退
func TestAnalyzeUnknownStandard(t *testing.T) {
	answerer := &scriptedAnswerer{defaults: cleanAnswer}
	analyzer := NewAnalyzer(answerer, nil, quietLogger())

	result, err := analyzer.Analyze(context.Background(), AnalyzeRequest{
		ReportName: "report.pdf",
		Standards:  []string{"CustomStandard-X"},
		Depth:      DepthComprehensive,
	})
	require.NoError(t, err)

	assert.Len(t, answerer.questions, 3, "未知标准应回退到3个通用问题")
	for _, question := range answerer.questions {
		assert.Contains(t, question, "CustomStandard-X", "通用问题应代入标准名")
	}
	assert.Equal(t, "CustomStandard-X", result.Findings[0].Standard)
}

// TestQuestionsFor 测试问题选择
func TestQuestionsFor(t *testing.T) {
	assert.Len(t, QuestionsFor("TCFD", DepthBasic), 3)
	assert.Len(t, QuestionsFor("TCFD", DepthDetailed), 6)
	assert.Len(t, QuestionsFor("TCFD", DepthComprehensive), 10)

	t.Run("case insensitive lookup", func(t *testing.T) {
		assert.Equal(t, QuestionsFor("TCFD", DepthBasic), QuestionsFor("tcfd", DepthBasic))
	})

	t.Run("prefix is stable across depths", func(t *testing.T) {
		basic := QuestionsFor("ESRS", DepthBasic)
		detailed := QuestionsFor("ESRS", DepthDetailed)
		assert.Equal(t, basic, detailed[:3], "深度只扩展问题前缀")
	})
}
