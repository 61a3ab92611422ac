package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/compliance-QA-system/internal/vectordb"
)

func sampleChunks() []vectordb.SearchResult {
	return []vectordb.SearchResult{
		{
			ID:      "doc1_0",
			Content: "The board shall oversee climate-related risks.",
			Metadata: map[string]interface{}{
				"file_name":   "tcfd-guidance.pdf",
				"region":      "EU",
				"page_number": float64(12),
			},
			Similarity: 0.91,
		},
		{
			ID:         "doc2_3",
			Content:    "Scope 1 emissions must be reported annually.",
			Metadata:   map[string]interface{}{"file_name": "ghg-protocol.pdf"},
			Similarity: 0.84,
		},
	}
}

// TestGeneratePrompt 测试提示词组装
func TestGeneratePrompt(t *testing.T) {
	engine := NewEngine(nil)

	t.Run("placeholders substituted verbatim", func(t *testing.T) {
		generated, err := engine.GeneratePrompt(TemplateGeneral, QueryContext{
			Question:        "What are the board oversight requirements?",
			RetrievedChunks: sampleChunks(),
		})
		require.NoError(t, err)

		assert.NotEmpty(t, generated.SystemPrompt)
		assert.Contains(t, generated.UserPrompt, "What are the board oversight requirements?")
		assert.Contains(t, generated.UserPrompt, "The board shall oversee climate-related risks.")
		assert.NotContains(t, generated.UserPrompt, "{context}", "占位符应被替换")
		assert.NotContains(t, generated.UserPrompt, "{question}")
		assert.NotEmpty(t, generated.Guardrails)
	})

	t.Run("source headers include metadata", func(t *testing.T) {
		generated, err := engine.GeneratePrompt(TemplateGeneral, QueryContext{
			Question:        "question",
			RetrievedChunks: sampleChunks(),
		})
		require.NoError(t, err)

		assert.Contains(t, generated.UserPrompt, "[Source 1: tcfd-guidance.pdf (EU, page 12)]")
		assert.Contains(t, generated.UserPrompt, "[Source 2: ghg-protocol.pdf]")
		assert.Contains(t, generated.UserPrompt, chunkDelimiter)
	})

	t.Run("empty retrieval states no material found", func(t *testing.T) {
		generated, err := engine.GeneratePrompt(TemplateGeneral, QueryContext{
			Question: "question",
		})
		require.NoError(t, err)
		assert.Contains(t, generated.UserPrompt, noContextMessage)
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := engine.GeneratePrompt("nonexistent", QueryContext{Question: "q"})
		require.Error(t, err)

		var notFound TemplateNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "nonexistent", notFound.TemplateID)
	})

	t.Run("user context appended", func(t *testing.T) {
		generated, err := engine.GeneratePrompt(TemplateGeneral, QueryContext{
			Question:        "question",
			RetrievedChunks: sampleChunks(),
			UserContext:     "The company operates in the energy sector.",
		})
		require.NoError(t, err)
		assert.Contains(t, generated.UserPrompt, "The company operates in the energy sector.")
	})
}

// TestDefaultRegistry 测试内置模板集合
func TestDefaultRegistry(t *testing.T) {
	registry := DefaultRegistry()

	for _, id := range []string{TemplateGeneral, TemplateLegal, TemplateTechnical, TemplateQuick} {
		tmpl, err := registry.Get(id)
		require.NoError(t, err, "内置模板应全部注册")
		assert.NotEmpty(t, tmpl.SystemPrompt)
		assert.Contains(t, tmpl.UserPromptTemplate, "{context}")
		assert.Contains(t, tmpl.UserPromptTemplate, "{question}")
		assert.NotEmpty(t, tmpl.Guardrails)
	}

	assert.Len(t, registry.IDs(), 4)
}

// TestApplyGuardrails 测试防护规则
func TestApplyGuardrails(t *testing.T) {
	engine := NewEngine(nil)

	t.Run("zero chunks always replaced with fixed message", func(t *testing.T) {
		for _, answer := range []string{
			"",
			"Some confident hallucinated answer.",
			"According to section 4, everything is fine. [Source 1]",
		} {
			final := engine.ApplyGuardrails(answer, QueryContext{Question: "q"})
			assert.Equal(t, InsufficientInfoMessage, final,
				"零检索时应无条件返回固定的信息不足消息")
		}
	})

	t.Run("hedge without citation appends disclaimer", func(t *testing.T) {
		answer := "Generally speaking, companies disclose emissions annually."
		final := engine.ApplyGuardrails(answer, QueryContext{
			Question:        "q",
			RetrievedChunks: sampleChunks(),
		})
		assert.True(t, strings.HasPrefix(final, answer), "追加声明不应改动原回答")
		assert.Greater(t, len(final), len(answer))
	})

	t.Run("cited answer passes unchanged", func(t *testing.T) {
		answer := "Per section 4.1, the board shall oversee climate risk. [Source 1]"
		final := engine.ApplyGuardrails(answer, QueryContext{
			Question:        "q",
			RetrievedChunks: sampleChunks(),
		})
		assert.Equal(t, answer, final)
	})

	t.Run("hedge words match whole words only", func(t *testing.T) {
		// "unusually"包含"usually"但不是泛化措辞
		answer := "The report discloses an unusually high emission figure for 2023."
		final := engine.ApplyGuardrails(answer, QueryContext{
			Question:        "q",
			RetrievedChunks: sampleChunks(),
		})
		assert.Equal(t, answer, final, "包含词不应触发限定声明")

		hedged := "Companies usually report emissions once a year."
		final = engine.ApplyGuardrails(hedged, QueryContext{
			Question:        "q",
			RetrievedChunks: sampleChunks(),
		})
		assert.Greater(t, len(final), len(hedged), "独立的泛化措辞仍应追加声明")
	})
}

// TestValidateResponse 测试回答校验启发式
func TestValidateResponse(t *testing.T) {
	engine := NewEngine(nil)

	t.Run("cited answer is valid", func(t *testing.T) {
		result, err := engine.ValidateResponse(
			"Based on the provided documents, section 4 requires annual reporting. [Source 1]",
			TemplateGeneral)
		require.NoError(t, err)
		assert.True(t, result.IsValid)
		assert.Empty(t, result.Violations)
	})

	t.Run("hedge without citation flagged", func(t *testing.T) {
		result, err := engine.ValidateResponse(
			"Generally speaking, companies typically report once a year.",
			TemplateGeneral)
		require.NoError(t, err)
		assert.False(t, result.IsValid)
		assert.NotEmpty(t, result.Violations)
	})

	t.Run("embedded hedge word not flagged as unsupported claim", func(t *testing.T) {
		result, err := engine.ValidateResponse(
			"The filing reports an unusually sharp increase in scope 3 emissions.",
			TemplateGeneral)
		require.NoError(t, err)

		for _, v := range result.Violations {
			assert.NotContains(t, v, "unsupported claim",
				"\"unusually\"不应被当作泛化措辞")
		}
	})

	t.Run("missing citation flagged", func(t *testing.T) {
		result, err := engine.ValidateResponse(
			"The company reports its emissions every year.",
			TemplateGeneral)
		require.NoError(t, err)
		assert.False(t, result.IsValid)
	})

	t.Run("legal template recommends modal verbs", func(t *testing.T) {
		result, err := engine.ValidateResponse(
			"The report covers governance per section 2.", TemplateLegal)
		require.NoError(t, err)

		found := false
		for _, rec := range result.Recommendations {
			if strings.Contains(rec, "shall/should/may") {
				found = true
			}
		}
		assert.True(t, found, "法务模板缺少情态动词时应给出建议")
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := engine.ValidateResponse("text", "nonexistent")
		require.Error(t, err)
	})
}
