package prompt

import "fmt"

// ResponseFormat 回答的输出形态
type ResponseFormat string

const (
	// FormatStructured 结构化分段输出
	FormatStructured ResponseFormat = "structured"
	// FormatFormal 正式的法务审计风格输出
	FormatFormal ResponseFormat = "formal"
	// FormatProcedural 流程步骤型输出
	FormatProcedural ResponseFormat = "procedural"
	// FormatBullet 简短要点输出
	FormatBullet ResponseFormat = "bullet"
)

// PromptTemplate 提示词模板
// 进程启动时加载，初始化后只读
type PromptTemplate struct {
	ID                 string         // 模板标识
	Name               string         // 展示名称
	SystemPrompt       string         // 固定的系统指令文本
	UserPromptTemplate string         // 含{context}和{question}占位符的用户提示词模板
	Guardrails         []string       // 防护规则描述列表
	ResponseFormat     ResponseFormat // 输出形态
}

// TemplateNotFoundError 模板未注册错误
type TemplateNotFoundError struct {
	TemplateID string
}

// Error 实现error接口
func (e TemplateNotFoundError) Error() string {
	return fmt.Sprintf("prompt template not found: %s", e.TemplateID)
}

// Registry 模板注册表
// 构造时显式传入模板集合，之后不可变
type Registry struct {
	templates map[string]PromptTemplate
}

// NewRegistry 创建模板注册表
// 相同ID的后加入模板覆盖先加入的
func NewRegistry(templates ...PromptTemplate) *Registry {
	index := make(map[string]PromptTemplate, len(templates))
	for _, tmpl := range templates {
		index[tmpl.ID] = tmpl
	}
	return &Registry{templates: index}
}

// Get 按ID查找模板
func (r *Registry) Get(id string) (PromptTemplate, error) {
	tmpl, exists := r.templates[id]
	if !exists {
		return PromptTemplate{}, TemplateNotFoundError{TemplateID: id}
	}
	return tmpl, nil
}

// IDs 返回所有已注册的模板ID
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	return ids
}

// 内置模板ID
const (
	TemplateGeneral   = "general"   // 通用合规助手
	TemplateLegal     = "legal"     // 法务审计
	TemplateTechnical = "technical" // 技术实施
	TemplateQuick     = "quick"     // 快速参考
)

// DefaultRegistry 返回包含内置模板的注册表
func DefaultRegistry() *Registry {
	return NewRegistry(
		PromptTemplate{
			ID:           TemplateGeneral,
			Name:         "General Compliance Assistant",
			SystemPrompt: "You are a knowledgeable compliance assistant specializing in regulatory standards and corporate disclosure requirements. Answer questions conversationally but precisely, and always ground your statements in the provided source material. Cite the source document for every substantive claim.",
			UserPromptTemplate: "Use the following excerpts from compliance documents to answer the question.\n\n" +
				"Context:\n{context}\n\n" +
				"Question: {question}\n\n" +
				"Provide a clear, well-organized answer. Reference the source documents you relied on.",
			Guardrails: []string{
				"Only state facts supported by the provided context",
				"Cite the source document for each claim",
				"Say so explicitly when the context does not cover the question",
			},
			ResponseFormat: FormatStructured,
		},
		PromptTemplate{
			ID:           TemplateLegal,
			Name:         "Legal and Audit Review",
			SystemPrompt: "You are a legal compliance auditor. Use precise regulatory language and distinguish mandatory requirements (shall), recommendations (should), and permissions (may). Every assertion must cite the relevant section, article, or page of the source material.",
			UserPromptTemplate: "Review the following regulatory excerpts and answer the audit question.\n\n" +
				"Source material:\n{context}\n\n" +
				"Audit question: {question}\n\n" +
				"Answer formally. Distinguish shall/should/may obligations and cite sections or pages for every finding.",
			Guardrails: []string{
				"Distinguish shall, should, and may obligations explicitly",
				"Cite a section, article, or page for every assertion",
				"Never extrapolate beyond the quoted regulatory text",
			},
			ResponseFormat: FormatFormal,
		},
		PromptTemplate{
			ID:           TemplateTechnical,
			Name:         "Technical Implementation Guide",
			SystemPrompt: "You are a technical consultant helping organizations implement compliance requirements. Focus on concrete procedures, data requirements, calculation methodologies, and measurable implementation steps drawn from the provided documents.",
			UserPromptTemplate: "Based on the following implementation guidance, answer the question.\n\n" +
				"Reference documents:\n{context}\n\n" +
				"Question: {question}\n\n" +
				"Describe the required procedures, data inputs, and calculations step by step, citing the source documents.",
			Guardrails: []string{
				"Describe procedures and data requirements concretely",
				"Include calculation methodologies where the context specifies them",
				"Cite the source document for each procedure",
			},
			ResponseFormat: FormatProcedural,
		},
		PromptTemplate{
			ID:           TemplateQuick,
			Name:         "Quick Reference",
			SystemPrompt: "You are a compliance quick-reference service. Answer in terse bullet points with no preamble. Every bullet must be traceable to the provided context.",
			UserPromptTemplate: "Context:\n{context}\n\n" +
				"Question: {question}\n\n" +
				"Answer in short bullet points only, each with its source.",
			Guardrails: []string{
				"Bullet points only, no narrative paragraphs",
				"Each bullet names its source document",
			},
			ResponseFormat: FormatBullet,
		},
	)
}
