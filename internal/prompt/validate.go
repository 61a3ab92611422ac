package prompt

import (
	"regexp"
	"strings"
)

const (
	// InsufficientInfoMessage 零检索时的固定回答
	// 无论模型生成了什么内容都替换为该消息
	InsufficientInfoMessage = "I could not find sufficient information in the provided documents to answer this question. Please consult the original regulatory text or supply additional documentation."

	// 疑似无依据陈述时追加的限定声明
	hallucinationDisclaimer = " Note: parts of this answer could not be verified against the provided documents and may reflect general knowledge rather than the source material."
)

// 常见的泛化措辞，在无引用时提示可能的幻觉
// 按词边界匹配，避免"unusually"这类包含词误报
var hedgePhrases = []string{
	"generally speaking",
	"typically requires",
	"in most cases",
	"it is common",
	"usually",
	"as a rule",
	"in general",
}

var hedgePatterns = compileHedgePatterns()

func compileHedgePatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(hedgePhrases))
	for i, phrase := range hedgePhrases {
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
	}
	return patterns
}

// 引用标记的识别模式
var citationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[[^\]]+\]`),       // 方括号来源引用
	regexp.MustCompile(`(?i)\bpage\s+\d+`), // 页码引用
	regexp.MustCompile(`(?i)\b(section|article|paragraph|clause)\s+[\dIVX]`), // 条款编号引用
}

// 法务模板期望的情态动词
var modalVerbPattern = regexp.MustCompile(`\b(shall|should|may|must)\b`)

// ValidationResult 回答校验结果
type ValidationResult struct {
	IsValid         bool     // violations为空时为true
	Violations      []string // 违反防护规则的问题
	Recommendations []string // 改进建议
}

// ValidateResponse 对生成的回答做启发式校验
// 校验是提示性的，不会修改回答内容
func (e *Engine) ValidateResponse(text, templateID string) (*ValidationResult, error) {
	tmpl, err := e.registry.Get(templateID)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{}
	lower := strings.ToLower(text)
	cited := hasCitation(text)

	// 无引用的泛化措辞视为潜在幻觉
	if !cited {
		for i, pattern := range hedgePatterns {
			if pattern.MatchString(lower) {
				result.Violations = append(result.Violations,
					"possible unsupported claim: generic phrase \""+hedgePhrases[i]+"\" used without citation")
				break
			}
		}
	}

	if !cited {
		result.Violations = append(result.Violations,
			"no citation markers found in the answer")
	}

	if !strings.Contains(lower, "based on the provided") &&
		!strings.Contains(lower, "according to the provided") {
		result.Recommendations = append(result.Recommendations,
			"qualify statements with the source scope, e.g. \"based on the provided documents\"")
	}

	// 法务审计模板期望明确的义务等级表述
	if tmpl.ResponseFormat == FormatFormal && !hasModalVerb(lower) {
		result.Recommendations = append(result.Recommendations,
			"use explicit obligation language (shall/should/may) for audit findings")
	}

	result.IsValid = len(result.Violations) == 0
	return result, nil
}

// ApplyGuardrails 对生成的回答应用防护规则
// 零检索时无条件替换为固定的信息不足消息；
// 幻觉启发式触发且无引用时追加限定声明
func (e *Engine) ApplyGuardrails(answer string, qc QueryContext) string {
	if len(qc.RetrievedChunks) == 0 {
		return InsufficientInfoMessage
	}

	if hasHedgeWithoutCitation(answer) {
		return answer + hallucinationDisclaimer
	}
	return answer
}

// hasCitation 检查文本是否包含任一引用标记
func hasCitation(text string) bool {
	for _, pattern := range citationPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// hasHedgeWithoutCitation 检查无引用的泛化措辞
func hasHedgeWithoutCitation(text string) bool {
	if hasCitation(text) {
		return false
	}
	lower := strings.ToLower(text)
	for _, pattern := range hedgePatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}

// hasModalVerb 检查文本是否包含情态动词
func hasModalVerb(lower string) bool {
	return modalVerbPattern.MatchString(lower)
}
