package compliance

import (
	"fmt"
	"strings"
)

// 摘要的定性评级阈值
const (
	strongScoreThreshold   = 80
	moderateScoreThreshold = 60
)

// BuildSummary 从计算结果组装确定性的叙述摘要
// 摘要不经过模型生成，相同输入产生相同文本
func BuildSummary(overallScore int, findings []StandardFinding) string {
	totalIssues := 0
	criticalIssues := 0
	for _, finding := range findings {
		totalIssues += len(finding.Issues)
		for _, issue := range finding.Issues {
			if issue.Severity == SeverityCritical {
				criticalIssues++
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(
		"The report achieved an overall compliance score of %d/100 across %d standard(s), with %d issue(s) identified (%d critical). ",
		overallScore, len(findings), totalIssues, criticalIssues))
	sb.WriteString(qualitativeBand(overallScore))
	sb.WriteString("\n")

	for _, finding := range findings {
		sb.WriteString(fmt.Sprintf("\n- %s: %d/100, %d issue(s)",
			finding.Standard, finding.Compliance, len(finding.Issues)))
	}

	return sb.String()
}

// qualitativeBand 得分的定性描述
func qualitativeBand(score int) string {
	switch {
	case score >= strongScoreThreshold:
		return "Overall compliance is strong."
	case score >= moderateScoreThreshold:
		return "Overall compliance is moderate; targeted improvements are advised."
	default:
		return "Significant compliance gaps were identified; remediation should be prioritized."
	}
}
