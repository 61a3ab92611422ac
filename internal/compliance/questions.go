package compliance

import (
	"fmt"
	"strings"
)

// 各标准的问题数量选择
const (
	basicQuestionCount    = 3
	detailedQuestionCount = 6
)

// questionBanks 各标准的审查问题库
// 问题顺序即优先级：basic取前3个，detailed取前6个，comprehensive取全部
var questionBanks = map[string][]string{
	"TCFD": {
		"Does the report describe the board's oversight of climate-related risks and opportunities?",
		"Does the report describe management's role in assessing and managing climate-related risks?",
		"Are the climate-related risks and opportunities identified over short, medium, and long term?",
		"Does the report describe the impact of climate-related risks on business strategy and financial planning?",
		"Is the resilience of the strategy assessed against different climate scenarios, including a 2°C scenario?",
		"Does the report describe the processes for identifying and assessing climate-related risks?",
		"Are climate risk management processes integrated into overall risk management?",
		"Are the metrics used to assess climate-related risks and opportunities disclosed?",
		"Are Scope 1, Scope 2, and, if appropriate, Scope 3 greenhouse gas emissions disclosed?",
		"Are the targets used to manage climate-related risks and performance against targets described?",
	},
	"ESRS": {
		"Does the report include a double materiality assessment covering impact and financial materiality?",
		"Are the material impacts, risks, and opportunities across the value chain identified?",
		"Does the report disclose the governance processes for managing sustainability matters?",
		"Are the transition plan and climate targets compatible with limiting warming to 1.5°C disclosed?",
		"Does the report disclose gross Scope 1, 2, and 3 greenhouse gas emissions in line with E1?",
		"Are the policies, actions, and resources related to material sustainability matters described?",
		"Does the report cover own workforce disclosures including working conditions and equal treatment?",
		"Are the due diligence processes for identifying adverse human rights impacts described?",
		"Does the report disclose resource use and circular economy indicators where material?",
		"Is the sustainability statement structured and tagged as required for digital reporting?",
	},
	"GRI": {
		"Does the report identify the organization's material topics and the process for determining them?",
		"Are the organizational details, reporting period, and restatement policies disclosed?",
		"Does the report describe stakeholder engagement practices?",
		"Are management approach disclosures provided for each material topic?",
		"Does the report disclose energy consumption within and outside the organization?",
		"Are employment, labor relations, and occupational health and safety disclosures included?",
		"Does the report disclose anti-corruption policies, training, and confirmed incidents?",
		"Are supplier environmental and social assessment practices described?",
		"Does the report include a GRI content index referencing each disclosure location?",
	},
	"ISSB": {
		"Does the report disclose governance processes for sustainability-related risks and opportunities per IFRS S1?",
		"Are material sustainability-related financial disclosures identified and explained?",
		"Does the report describe climate-related physical and transition risks per IFRS S2?",
		"Are the anticipated financial effects of climate-related risks quantified or qualitatively explained?",
		"Does the report disclose greenhouse gas emissions measured in accordance with the GHG Protocol?",
		"Are industry-based metrics from applicable SASB standards considered and disclosed?",
		"Is the connectivity between sustainability disclosures and financial statements explained?",
		"Are scenario analysis methods and assumptions for climate resilience disclosed?",
	},
}

// genericQuestionPatterns 未知标准的通用问题模板
// 将标准名代入固定模式
var genericQuestionPatterns = []string{
	"Does the report address the core disclosure requirements of the %s standard?",
	"What gaps exist between the report's content and the %s requirements?",
	"Does the report provide sufficient evidence of compliance with %s?",
}

// QuestionsFor 返回指定标准和深度下的审查问题
// 标准名大小写不敏感；未知标准回退到通用模板问题
func QuestionsFor(standard string, depth AnalysisDepth) []string {
	bank, known := lookupBank(standard)
	if !known {
		questions := make([]string, 0, len(genericQuestionPatterns))
		for _, pattern := range genericQuestionPatterns {
			questions = append(questions, fmt.Sprintf(pattern, standard))
		}
		return questions
	}

	switch depth {
	case DepthBasic:
		return prefixQuestions(bank, basicQuestionCount)
	case DepthDetailed:
		return prefixQuestions(bank, detailedQuestionCount)
	case DepthComprehensive:
		return append([]string(nil), bank...)
	default:
		return prefixQuestions(bank, basicQuestionCount)
	}
}

// KnownStandards 返回内置问题库覆盖的标准
func KnownStandards() []string {
	standards := make([]string, 0, len(questionBanks))
	for standard := range questionBanks {
		standards = append(standards, standard)
	}
	return standards
}

// lookupBank 大小写不敏感地查找问题库
func lookupBank(standard string) ([]string, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(standard))
	bank, ok := questionBanks[normalized]
	return bank, ok
}

// prefixQuestions 取问题库的前n个问题
func prefixQuestions(bank []string, n int) []string {
	if n > len(bank) {
		n = len(bank)
	}
	return append([]string(nil), bank[:n]...)
}
