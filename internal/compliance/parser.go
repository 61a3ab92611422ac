package compliance

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// 问题描述的最短长度，过短的匹配行视为噪声
const minIssueLineLength = 20

// IssueExtractor 问题提取策略接口
// 启发式行解析是默认实现，结构化输出解析器可替换它
type IssueExtractor interface {
	// ExtractIssues 从模型的自由文本回答中提取离散问题
	ExtractIssues(text, standard string) []ComplianceIssue
}

// 缺口指示模式，命中且长度达标的行开启一个新问题
var gapPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmissing\b`),
	regexp.MustCompile(`(?i)\bfails? to\b`),
	regexp.MustCompile(`(?i)\bdoes not (disclose|describe|include|address|provide|cover)\b`),
	regexp.MustCompile(`(?i)\blacks?\b`),
	regexp.MustCompile(`(?i)\babsent\b`),
	regexp.MustCompile(`(?i)\bno (evidence|disclosure|mention) of\b`),
	regexp.MustCompile(`(?i)\bshould (include|disclose|describe|provide|address)\b`),
	regexp.MustCompile(`(?i)\binsufficient\b`),
	regexp.MustCompile(`(?i)\bnot disclosed\b`),
	regexp.MustCompile(`(?i)\bgaps? (exist|in|identified)\b`),
	regexp.MustCompile(`(?i)\bincomplete\b`),
}

// 严重程度标记
var (
	criticalPattern = regexp.MustCompile(`(?i)\bcritical\b`)
	warningPattern  = regexp.MustCompile(`(?i)\bwarning\b`)
	infoPattern     = regexp.MustCompile(`(?i)\b(informational|minor|note)\b`)
)

// 建议标记
var recommendationPattern = regexp.MustCompile(`(?i)^\s*(recommendation|recommend(ed)?|suggest(ed|ion)?)[:\s]`)

// 行首列表编号
var listNumberPattern = regexp.MustCompile(`^\d+[.)]\s+`)

// categoryRule 类别判定规则
// 规则按声明顺序求值，首个命中者胜出
type categoryRule struct {
	category string
	keywords []string
}

// 类别规则表，顺序即优先级
var categoryRules = []categoryRule{
	{"Governance", []string{"governance", "board", "oversight", "management role", "committee"}},
	{"Strategy", []string{"strategy", "strategic", "business model", "scenario", "transition plan"}},
	{"Risk Management", []string{"risk"}},
	{"Metrics and Targets", []string{"metric", "target", "kpi", "measurement", "baseline"}},
	{"Environmental", []string{"emission", "climate", "energy", "carbon", "environmental", "water", "waste"}},
	{"Social", []string{"social", "employee", "workforce", "human rights", "diversity", "community", "safety"}},
	{"Disclosure", []string{"disclosure", "report", "transparen", "publish"}},
}

// 无规则命中时的兜底类别
const fallbackCategory = "Compliance"

// LineParser 基于行扫描的启发式问题提取器
type LineParser struct{}

// NewLineParser 创建行解析提取器
func NewLineParser() *LineParser {
	return &LineParser{}
}

// ExtractIssues 逐行扫描回答文本提取问题
// 命中缺口模式且足够长的行开启新问题；后续行作为上下文追加，
// 直到出现严重程度或建议标记，或下一个问题开始
func (p *LineParser) ExtractIssues(text, standard string) []ComplianceIssue {
	var issues []ComplianceIssue
	var current *ComplianceIssue

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(stripListMarker(rawLine))
		if line == "" {
			continue
		}

		if isIssueStart(line) {
			if current != nil {
				issues = append(issues, *current)
			}
			current = &ComplianceIssue{
				ID:          uuid.NewString(),
				Description: line,
				Severity:    severityOf(line),
				Category:    CategorizeIssue(line),
				Standard:    standard,
			}
			continue
		}

		if current == nil {
			continue
		}

		// 非起始行更新当前问题的属性或上下文
		switch {
		case recommendationPattern.MatchString(line):
			current.Recommendation = strings.TrimSpace(
				recommendationPattern.ReplaceAllString(line, ""))
		case criticalPattern.MatchString(line):
			current.Severity = SeverityCritical
			current.Context = appendContext(current.Context, line)
		case infoPattern.MatchString(line) && current.Severity == SeverityWarning:
			current.Severity = SeverityInfo
			current.Context = appendContext(current.Context, line)
		default:
			current.Context = appendContext(current.Context, line)
		}
	}

	if current != nil {
		issues = append(issues, *current)
	}

	return issues
}

// isIssueStart 判断一行是否开启新问题
func isIssueStart(line string) bool {
	if len(line) <= minIssueLineLength {
		return false
	}
	for _, pattern := range gapPatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

// severityOf 从问题起始行推断严重程度
// 无显式标记时默认为warning
func severityOf(line string) Severity {
	switch {
	case criticalPattern.MatchString(line):
		return SeverityCritical
	case infoPattern.MatchString(line):
		return SeverityInfo
	case warningPattern.MatchString(line):
		return SeverityWarning
	default:
		return SeverityWarning
	}
}

// CategorizeIssue 按顺序规则表判定问题类别
func CategorizeIssue(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.category
			}
		}
	}
	return fallbackCategory
}

// stripListMarker 去掉行首的列表符号和编号
func stripListMarker(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	trimmed = strings.TrimPrefix(trimmed, "- ")
	trimmed = strings.TrimPrefix(trimmed, "* ")
	trimmed = strings.TrimPrefix(trimmed, "• ")
	return listNumberPattern.ReplaceAllString(trimmed, "")
}

// appendContext 向问题上下文追加一行
func appendContext(existing, line string) string {
	if existing == "" {
		return line
	}
	return existing + " " + line
}
