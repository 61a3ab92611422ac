package prompt

import (
	"fmt"
	"strings"

	"github.com/fyerfyer/compliance-QA-system/internal/vectordb"
)

const (
	// 无检索结果时上下文区域的固定说明
	noContextMessage = "No relevant material was found in the document corpus for this question."

	// 检索块之间的分隔符
	chunkDelimiter = "\n---\n"
)

// QueryContext 提示词生成的输入上下文
type QueryContext struct {
	Question        string                  // 用户问题
	RetrievedChunks []vectordb.SearchResult // 检索到的文档块
	UserContext     string                  // 可选的附加用户上下文
}

// GeneratedPrompt 组装完成的提示词
type GeneratedPrompt struct {
	SystemPrompt string   // 系统提示词
	UserPrompt   string   // 用户提示词
	Guardrails   []string // 模板携带的防护规则
	TemplateID   string   // 使用的模板ID
}

// Engine 提示词策略引擎
// 负责模板选择、上下文组装和回答校验
type Engine struct {
	registry *Registry
}

// NewEngine 创建提示词策略引擎
// registry为nil时使用内置模板集合
func NewEngine(registry *Registry) *Engine {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Engine{registry: registry}
}

// GeneratePrompt 根据模板和检索上下文组装提示词
// 占位符{context}和{question}按原样替换，不做递归替换
func (e *Engine) GeneratePrompt(templateID string, qc QueryContext) (*GeneratedPrompt, error) {
	tmpl, err := e.registry.Get(templateID)
	if err != nil {
		return nil, err
	}

	contextText := formatContext(qc.RetrievedChunks)
	if qc.UserContext != "" {
		contextText = contextText + "\n\nAdditional context from the user:\n" + qc.UserContext
	}

	userPrompt := strings.ReplaceAll(tmpl.UserPromptTemplate, "{context}", contextText)
	userPrompt = strings.ReplaceAll(userPrompt, "{question}", qc.Question)

	return &GeneratedPrompt{
		SystemPrompt: tmpl.SystemPrompt,
		UserPrompt:   userPrompt,
		Guardrails:   tmpl.Guardrails,
		TemplateID:   tmpl.ID,
	}, nil
}

// Registry 返回引擎使用的模板注册表
func (e *Engine) Registry() *Registry {
	return e.registry
}

// formatContext 将检索块渲染为带来源标头的上下文文本
// 每个块一行来源标头加正文，块之间用分隔符隔开
func formatContext(chunks []vectordb.SearchResult) string {
	if len(chunks) == 0 {
		return noContextMessage
	}

	sections := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		header := sourceHeader(i+1, chunk.Metadata)
		sections = append(sections, header+"\n"+strings.TrimSpace(chunk.Content))
	}

	return strings.Join(sections, chunkDelimiter)
}

// sourceHeader 构造单行来源标头
func sourceHeader(index int, metadata map[string]interface{}) string {
	name := metadataString(metadata, "file_name")
	if name == "" {
		name = "unknown document"
	}

	var details []string
	if region := metadataString(metadata, "region"); region != "" {
		details = append(details, region)
	}
	if org := metadataString(metadata, "organization"); org != "" {
		details = append(details, org)
	}
	if section := metadataString(metadata, "section"); section != "" {
		details = append(details, "section "+section)
	}
	if page := metadataInt(metadata, "page_number"); page > 0 {
		details = append(details, fmt.Sprintf("page %d", page))
	}

	if len(details) > 0 {
		return fmt.Sprintf("[Source %d: %s (%s)]", index, name, strings.Join(details, ", "))
	}
	return fmt.Sprintf("[Source %d: %s]", index, name)
}

// metadataString 从元数据中读取字符串字段
func metadataString(metadata map[string]interface{}, key string) string {
	if metadata == nil {
		return ""
	}
	if value, ok := metadata[key].(string); ok {
		return value
	}
	return ""
}

// metadataInt 从元数据中读取整数字段
// JSON反序列化的数值是float64，需要同时处理
func metadataInt(metadata map[string]interface{}, key string) int {
	if metadata == nil {
		return 0
	}
	switch value := metadata[key].(type) {
	case int:
		return value
	case float64:
		return int(value)
	}
	return 0
}
