package compliance

import (
	"math"
	"unicode/utf8"
)

// 去重键使用的描述截断长度（字符）
const dedupKeyLength = 50

// severityWeight 各严重程度的权重
func severityWeight(severity Severity) int {
	switch severity {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 2
	}
}

// maxWeight 各分析深度的权重上限
// 深度越大问题基数越大，单个问题对得分的影响越小
func maxWeight(depth AnalysisDepth) int {
	switch depth {
	case DepthBasic:
		return 15
	case DepthDetailed:
		return 30
	case DepthComprehensive:
		return 50
	default:
		return 15
	}
}

// ScoreStandard 计算单个标准的合规得分
// 零问题得满分；问题越多越重得分单调不增
func ScoreStandard(issues []ComplianceIssue, depth AnalysisDepth) int {
	if len(issues) == 0 {
		return 100
	}

	totalWeight := 0
	for _, issue := range issues {
		totalWeight += severityWeight(issue.Severity)
	}

	penalty := float64(totalWeight) / float64(maxWeight(depth)) * 100
	if penalty > 100 {
		penalty = 100
	}

	score := int(math.Round(100 - penalty))
	if score < 0 {
		score = 0
	}
	return score
}

// OverallScore 计算各标准得分的平均值
// 零标准得0分
func OverallScore(findings []StandardFinding) int {
	if len(findings) == 0 {
		return 0
	}

	total := 0
	for _, finding := range findings {
		total += finding.Compliance
	}
	return int(math.Round(float64(total) / float64(len(findings))))
}

// DeduplicateIssues 按(截断描述,类别)去重
// 去重范围是单个标准的问题列表，保留首次出现的问题
func DeduplicateIssues(issues []ComplianceIssue) []ComplianceIssue {
	seen := make(map[string]struct{}, len(issues))
	deduped := make([]ComplianceIssue, 0, len(issues))

	for _, issue := range issues {
		key := dedupKey(issue)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, issue)
	}
	return deduped
}

// dedupKey 构造问题的去重键
func dedupKey(issue ComplianceIssue) string {
	description := issue.Description
	if utf8.RuneCountInString(description) > dedupKeyLength {
		description = string([]rune(description)[:dedupKeyLength])
	}
	return description + "|" + issue.Category
}
