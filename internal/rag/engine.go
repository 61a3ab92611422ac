package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/compliance-QA-system/internal/cache"
	"github.com/fyerfyer/compliance-QA-system/internal/llm"
	"github.com/fyerfyer/compliance-QA-system/internal/prompt"
	"github.com/fyerfyer/compliance-QA-system/internal/vectordb"
)

// NoRelevantInfoMessage 零检索时的固定回答
const NoRelevantInfoMessage = "No relevant information was found in the document corpus for this question."

// Retriever 检索能力接口
// vectordb.Retriever满足该接口
type Retriever interface {
	SearchText(ctx context.Context, query string, filter vectordb.SearchFilter) ([]vectordb.SearchResult, error)
}

// Config 问答引擎配置
type Config struct {
	TemplateID       string        // 默认提示词模板
	TopK             int           // 检索块数上限
	MinSimilarity    float32       // 最低相似度阈值
	EnableRerank     bool          // 是否启用关键词重排
	RerankBoost      float32       // 每个关键词命中的相似度加成
	EnableGuardrails bool          // 是否对回答应用防护规则
	CacheTTL         time.Duration // 回答缓存过期时间，0表示不缓存
}

// DefaultEngineConfig 返回默认引擎配置
func DefaultEngineConfig() *Config {
	return &Config{
		TemplateID:       prompt.TemplateGeneral,
		TopK:             5,
		MinSimilarity:    0.3,
		EnableRerank:     true,
		RerankBoost:      DefaultRerankBoost,
		EnableGuardrails: true,
		CacheTTL:         time.Hour,
	}
}

// EngineOption 引擎配置选项函数类型
type EngineOption func(*Config)

// WithTemplateID 设置默认提示词模板
func WithTemplateID(templateID string) EngineOption {
	return func(c *Config) {
		c.TemplateID = templateID
	}
}

// WithTopK 设置检索块数上限
func WithTopK(topK int) EngineOption {
	return func(c *Config) {
		c.TopK = topK
	}
}

// WithMinSimilarity 设置最低相似度阈值
func WithMinSimilarity(min float32) EngineOption {
	return func(c *Config) {
		c.MinSimilarity = min
	}
}

// WithRerank 设置是否启用关键词重排
func WithRerank(enable bool) EngineOption {
	return func(c *Config) {
		c.EnableRerank = enable
	}
}

// WithRerankBoost 设置重排加成
func WithRerankBoost(boost float32) EngineOption {
	return func(c *Config) {
		c.RerankBoost = boost
	}
}

// WithGuardrails 设置是否应用防护规则
func WithGuardrails(enable bool) EngineOption {
	return func(c *Config) {
		c.EnableGuardrails = enable
	}
}

// WithCacheTTL 设置回答缓存过期时间
func WithCacheTTL(ttl time.Duration) EngineOption {
	return func(c *Config) {
		c.CacheTTL = ttl
	}
}

// Engine 检索增强问答引擎
// 将检索、提示词组装和大模型生成编排为单次问答操作
type Engine struct {
	retriever Retriever
	llmClient llm.Client
	prompts   *prompt.Engine
	answers   cache.Cache
	config    *Config
	logger    *logrus.Logger
}

// NewEngine 创建问答引擎
// answerCache为nil时禁用回答缓存
func NewEngine(retriever Retriever, llmClient llm.Client, prompts *prompt.Engine,
	answerCache cache.Cache, logger *logrus.Logger, opts ...EngineOption) *Engine {
	cfg := DefaultEngineConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if prompts == nil {
		prompts = prompt.NewEngine(nil)
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Engine{
		retriever: retriever,
		llmClient: llmClient,
		prompts:   prompts,
		answers:   answerCache,
		config:    cfg,
		logger:    logger,
	}
}

// WithTemplate 返回使用指定提示词模板的引擎副本
// 原引擎不受影响，回答缓存按模板区分键
func (e *Engine) WithTemplate(templateID string) *Engine {
	clone := *e
	cfg := *e.config
	cfg.TemplateID = templateID
	clone.config = &cfg
	return &clone
}

// Query 执行一次检索增强问答
// 零检索时返回固定回答且不调用大模型
func (e *Engine) Query(ctx context.Context, question string) (*RAGResponse, error) {
	return e.QueryWithFilter(ctx, question, nil)
}

// QueryWithFilter 带元数据过滤的问答
func (e *Engine) QueryWithFilter(ctx context.Context, question string, metadataFilter map[string]interface{}) (*RAGResponse, error) {
	started := time.Now()
	scope := filterScope(metadataFilter)

	// 缓存命中直接返回
	if cached := e.lookupCache(question, scope); cached != nil {
		cached.Metadata.Cached = true
		cached.Metadata.ProcessingTimeMs = time.Since(started).Milliseconds()
		return cached, nil
	}

	chunks, err := e.retriever.SearchText(ctx, question, vectordb.SearchFilter{
		TopK:          e.config.TopK,
		MinSimilarity: e.config.MinSimilarity,
		Metadata:      metadataFilter,
	})
	if err != nil {
		return nil, &QueryFailedError{Stage: "retrieval", Err: err}
	}

	// 零检索是合法结果，不触发大模型调用
	if len(chunks) == 0 {
		e.logger.WithField("question", question).Debug("no chunks retrieved, returning canned response")
		return &RAGResponse{
			Answer:  NoRelevantInfoMessage,
			Sources: []Source{},
			Metadata: ResponseMetadata{
				RetrievedChunks:  0,
				Model:            e.llmClient.Name(),
				ProcessingTimeMs: time.Since(started).Milliseconds(),
				TemplateID:       e.config.TemplateID,
			},
		}, nil
	}

	if e.config.EnableRerank {
		chunks = rerank(question, chunks, e.config.RerankBoost)
	}

	qc := prompt.QueryContext{
		Question:        question,
		RetrievedChunks: chunks,
	}
	generated, err := e.prompts.GeneratePrompt(e.config.TemplateID, qc)
	if err != nil {
		return nil, &QueryFailedError{Stage: "prompt", Err: err}
	}

	llmResp, err := e.llmClient.Generate(ctx, generated.UserPrompt, generated.SystemPrompt)
	if err != nil {
		return nil, &QueryFailedError{Stage: "generation", Err: err}
	}

	answer := llmResp.Text
	if e.config.EnableGuardrails {
		answer = e.prompts.ApplyGuardrails(answer, qc)
	}

	response := &RAGResponse{
		Answer:  answer,
		Sources: buildSources(chunks),
		Metadata: ResponseMetadata{
			RetrievedChunks:  len(chunks),
			Model:            llmResp.ModelName,
			TokenCount:       llmResp.TokenCount,
			ProcessingTimeMs: time.Since(started).Milliseconds(),
			TemplateID:       e.config.TemplateID,
		},
	}

	e.storeCache(question, scope, response)

	e.logger.WithFields(logrus.Fields{
		"chunks":   len(chunks),
		"model":    llmResp.ModelName,
		"duration": time.Since(started),
	}).Debug("rag query completed")

	return response, nil
}

// lookupCache 查找缓存的回答
func (e *Engine) lookupCache(question, scope string) *RAGResponse {
	if e.answers == nil || e.config.CacheTTL <= 0 {
		return nil
	}

	value, found, err := e.answers.Get(e.answerKey(question, scope))
	if err != nil || !found {
		return nil
	}

	var response RAGResponse
	if err := json.Unmarshal([]byte(value), &response); err != nil {
		// 缓存内容损坏时忽略并重新生成
		return nil
	}
	return &response
}

// storeCache 写入回答缓存
func (e *Engine) storeCache(question, scope string, response *RAGResponse) {
	if e.answers == nil || e.config.CacheTTL <= 0 {
		return
	}

	data, err := json.Marshal(response)
	if err != nil {
		return
	}

	if err := e.answers.Set(e.answerKey(question, scope), string(data), e.config.CacheTTL); err != nil {
		e.logger.WithError(err).Warn("failed to cache answer")
	}
}

// answerKey 生成回答缓存键
// 无过滤条件时保持和历史键格式一致
func (e *Engine) answerKey(question, scope string) string {
	if scope == "" {
		return cache.AnswerKey(e.config.TemplateID, question)
	}
	return cache.AnswerKey(e.config.TemplateID, question, scope)
}

// filterScope 将元数据过滤条件序列化为稳定的缓存键片段
// 键按字典序排列，保证相同过滤条件生成相同片段
func filterScope(filter map[string]interface{}) string {
	if len(filter) == 0 {
		return ""
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v;", k, filter[k])
	}
	return b.String()
}
