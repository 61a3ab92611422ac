package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExtractIssues 测试行解析提取器
func TestExtractIssues(t *testing.T) {
	parser := NewLineParser()

	t.Run("gap line starts an issue", func(t *testing.T) {
		text := "The report is missing governance disclosures for board oversight."
		issues := parser.ExtractIssues(text, "TCFD")

		require.Len(t, issues, 1)
		assert.Equal(t, SeverityWarning, issues[0].Severity, "无显式标记时默认warning")
		assert.Equal(t, "Governance", issues[0].Category)
		assert.Equal(t, "TCFD", issues[0].Standard)
		assert.NotEmpty(t, issues[0].ID)
	})

	t.Run("short matching line ignored", func(t *testing.T) {
		issues := parser.ExtractIssues("Missing data.", "TCFD")
		assert.Empty(t, issues, "过短的命中行视为噪声")
	})

	t.Run("severity marker upgrades issue", func(t *testing.T) {
		text := "The report fails to disclose scope 3 emission inventories.\n" +
			"This is a critical omission for full value-chain accounting."
		issues := parser.ExtractIssues(text, "GHG")

		require.Len(t, issues, 1)
		assert.Equal(t, SeverityCritical, issues[0].Severity)
		assert.Contains(t, issues[0].Context, "critical omission")
	})

	t.Run("recommendation marker captured", func(t *testing.T) {
		text := "The report lacks any description of climate scenario analysis methods.\n" +
			"Recommendation: document the scenarios and assumptions used."
		issues := parser.ExtractIssues(text, "TCFD")

		require.Len(t, issues, 1)
		assert.Equal(t, "document the scenarios and assumptions used.", issues[0].Recommendation)
	})

	t.Run("multiple issues split correctly", func(t *testing.T) {
		text := "1. The report is missing quantitative emission reduction targets entirely.\n" +
			"Some additional context about the gap.\n" +
			"2. The report does not describe the board's oversight responsibilities.\n"
		issues := parser.ExtractIssues(text, "TCFD")

		require.Len(t, issues, 2)
		assert.Contains(t, issues[0].Description, "emission reduction targets")
		assert.Contains(t, issues[0].Context, "additional context")
		assert.Contains(t, issues[1].Description, "oversight responsibilities")
	})

	t.Run("non-gap text yields no issues", func(t *testing.T) {
		text := "The report covers all governance requirements thoroughly.\n" +
			"Board oversight is described in section 2."
		issues := parser.ExtractIssues(text, "TCFD")
		assert.Empty(t, issues)
	})
}

// TestCategorizeIssue 测试类别规则表
func TestCategorizeIssue(t *testing.T) {
	cases := []struct {
		text     string
		expected string
	}{
		{"the board lacks oversight procedures", "Governance"},
		{"no scenario analysis for the business model", "Strategy"},
		{"risk identification process is absent", "Risk Management"},
		{"quantitative targets are not disclosed", "Metrics and Targets"},
		{"scope 1 emission data is incomplete", "Environmental"},
		{"employee safety training is missing", "Social"},
		{"the annual report omits transparency commitments", "Disclosure"},
		{"something entirely unrelated to any keyword", "Compliance"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.expected, CategorizeIssue(tc.text), "文本: %s", tc.text)
	}

	t.Run("rule order decides ties", func(t *testing.T) {
		// 同时命中Risk Management和Metrics and Targets时，先声明的规则胜出
		assert.Equal(t, "Risk Management", CategorizeIssue("risk metrics are not tracked"))
		// Governance优先于Environmental
		assert.Equal(t, "Governance", CategorizeIssue("board oversight of climate issues is weak"))
	})
}

// TestDeduplicateIssues 测试问题去重
func TestDeduplicateIssues(t *testing.T) {
	t.Run("identical truncated keys collapse", func(t *testing.T) {
		first := ComplianceIssue{
			ID:          "a",
			Description: "The report is missing governance disclosure details on board oversight duties.",
			Category:    "Governance",
		}
		second := ComplianceIssue{
			ID:          "b",
			Description: "The report is missing governance disclosure details on board oversight roles.",
			Category:    "Governance",
		}

		deduped := DeduplicateIssues([]ComplianceIssue{first, second})
		require.Len(t, deduped, 1, "前50字符和类别相同的问题应合并")
		assert.Equal(t, "a", deduped[0].ID, "保留首次出现的问题")
	})

	t.Run("different category kept", func(t *testing.T) {
		first := ComplianceIssue{Description: "Missing disclosure of relevant data", Category: "Governance"}
		second := ComplianceIssue{Description: "Missing disclosure of relevant data", Category: "Environmental"}

		deduped := DeduplicateIssues([]ComplianceIssue{first, second})
		assert.Len(t, deduped, 2, "类别不同的问题不应合并")
	})

	t.Run("order preserved", func(t *testing.T) {
		issues := []ComplianceIssue{
			{Description: "First unique issue description", Category: "Governance"},
			{Description: "Second unique issue description", Category: "Strategy"},
			{Description: "First unique issue description", Category: "Governance"},
			{Description: "Third unique issue description", Category: "Social"},
		}

		deduped := DeduplicateIssues(issues)
		require.Len(t, deduped, 3)
		assert.Equal(t, "First unique issue description", deduped[0].Description)
		assert.Equal(t, "Second unique issue description", deduped[1].Description)
		assert.Equal(t, "Third unique issue description", deduped[2].Description)
	})
}
