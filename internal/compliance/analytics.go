package compliance

import (
	"fmt"
	"math"
	"sort"
)

const (
	// 改进机会的得分门槛
	opportunityScoreThreshold = 70
	// 改进机会的数量上限
	maxOpportunities = 5
	// 热点类别的数量上限
	maxTopCategories = 5
	// 单条改进机会的预估改进上限（百分比）
	maxPotentialImprovement = 30
	// 每个严重问题贡献的预估改进空间（百分比）
	potentialPerCritical = 5
)

// BuildAnalytics 从各标准结论生成统计信息
// 百分比以所有标准的问题总数为基数
func BuildAnalytics(findings []StandardFinding) *Analytics {
	byCategory := make(map[string]int)
	bySeverity := make(map[string]int)
	total := 0

	for _, finding := range findings {
		for _, issue := range finding.Issues {
			byCategory[issue.Category]++
			bySeverity[string(issue.Severity)]++
			total++
		}
	}

	analytics := &Analytics{
		IssuesByCategory: toCountStats(byCategory, total),
		IssuesBySeverity: toCountStats(bySeverity, total),
		TopCategories:    topCategories(byCategory),
		Opportunities:    improvementOpportunities(findings),
	}
	return analytics
}

// toCountStats 计数转统计结构
func toCountStats(counts map[string]int, total int) map[string]CountStat {
	stats := make(map[string]CountStat, len(counts))
	for key, count := range counts {
		percentage := 0.0
		if total > 0 {
			percentage = math.Round(float64(count) / float64(total) * 100)
		}
		stats[key] = CountStat{Count: count, Percentage: percentage}
	}
	return stats
}

// topCategories 按问题数取前5个类别
// 同数量时按类别名排序保证确定性
func topCategories(byCategory map[string]int) []string {
	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}

	sort.Slice(categories, func(i, j int) bool {
		if byCategory[categories[i]] != byCategory[categories[j]] {
			return byCategory[categories[i]] > byCategory[categories[j]]
		}
		return categories[i] < categories[j]
	})

	if len(categories) > maxTopCategories {
		categories = categories[:maxTopCategories]
	}
	return categories
}

// improvementOpportunities 识别改进机会
// 得分低于70且至少有一个严重问题的标准，每个标准一条，最多5条
func improvementOpportunities(findings []StandardFinding) []Opportunity {
	var opportunities []Opportunity

	for _, finding := range findings {
		if finding.Compliance >= opportunityScoreThreshold {
			continue
		}

		criticalCount := 0
		for _, issue := range finding.Issues {
			if issue.Severity == SeverityCritical {
				criticalCount++
			}
		}
		if criticalCount == 0 {
			continue
		}

		potential := criticalCount * potentialPerCritical
		if potential > maxPotentialImprovement {
			potential = maxPotentialImprovement
		}

		opportunities = append(opportunities, Opportunity{
			Standard:             finding.Standard,
			Score:                finding.Compliance,
			CriticalIssues:       criticalCount,
			PotentialImprovement: potential,
			Description: fmt.Sprintf(
				"Resolving %d critical issue(s) under %s could improve its score by up to %d%%.",
				criticalCount, finding.Standard, potential),
		})

		if len(opportunities) >= maxOpportunities {
			break
		}
	}

	return opportunities
}
