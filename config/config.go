package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Chunker  ChunkerConfig  `mapstructure:"chunker"`
	Embed    EmbedConfig    `mapstructure:"embed"`
	VectorDB VectorDBConfig `mapstructure:"vectordb"`
	LLM      LLMConfig      `mapstructure:"llm"`
	RAG      RAGConfig      `mapstructure:"rag"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Database DatabaseConfig `mapstructure:"database"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ChunkerConfig 文档分块配置
type ChunkerConfig struct {
	MaxTokens          int    `mapstructure:"max_tokens"`          // 单个分块的最大token数
	OverlapTokens      int    `mapstructure:"overlap_tokens"`      // 相邻分块的重叠token数
	MinChunkSize       int    `mapstructure:"min_chunk_size"`      // 分块的最小token数
	PreserveParagraphs bool   `mapstructure:"preserve_paragraphs"` // 是否保持段落边界
	PreserveSentences  bool   `mapstructure:"preserve_sentences"`  // 是否保持句子边界
	Encoding           string `mapstructure:"encoding"`            // tiktoken编码名称
}

// EmbedConfig 向量嵌入模型配置
type EmbedConfig struct {
	Provider   string `mapstructure:"provider"`    // 提供商：openai 或 local
	Model      string `mapstructure:"model"`       // 模型名称
	APIKey     string `mapstructure:"api_key"`     // API密钥，支持${ENV_VAR}占位符
	Endpoint   string `mapstructure:"endpoint"`    // API端点
	Dimensions int    `mapstructure:"dimensions"`  // 向量维度
	BatchSize  int    `mapstructure:"batch_size"`  // 批处理大小
	MaxWorkers int    `mapstructure:"max_workers"` // 批处理并发数
}

// VectorDBConfig 向量存储配置
type VectorDBConfig struct {
	Type string `mapstructure:"type"` // 存储类型：memory 或 sqlite
	Path string `mapstructure:"path"` // sqlite数据库文件路径
}

// LLMConfig 大语言模型配置
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`    // 提供商：openai 或 ollama
	Model       string  `mapstructure:"model"`       // 模型名称
	APIKey      string  `mapstructure:"api_key"`     // API密钥，支持${ENV_VAR}占位符
	Endpoint    string  `mapstructure:"endpoint"`    // API端点
	MaxTokens   int     `mapstructure:"max_tokens"`  // 最大生成token数
	Temperature float32 `mapstructure:"temperature"` // 采样温度
	Timeout     int     `mapstructure:"timeout"`     // 请求超时(秒)
	MaxRetries  int     `mapstructure:"max_retries"` // 最大重试次数
}

// RAGConfig 检索增强生成配置
type RAGConfig struct {
	TemplateID       string        `mapstructure:"template_id"`       // 默认提示词模板
	TopK             int           `mapstructure:"top_k"`             // 检索结果数量
	MinSimilarity    float32       `mapstructure:"min_similarity"`    // 最低相似度阈值
	EnableRerank     bool          `mapstructure:"enable_rerank"`     // 是否启用重排序
	RerankBoost      float32       `mapstructure:"rerank_boost"`      // 关键词命中的相似度加成
	EnableGuardrails bool          `mapstructure:"enable_guardrails"` // 是否启用回答校验
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`         // 回答缓存TTL
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`   // 是否启用回答缓存
	Type     string `mapstructure:"type"`     // 缓存类型：memory 或 redis
	Address  string `mapstructure:"address"`  // Redis地址
	Password string `mapstructure:"password"` // Redis密码
	DB       int    `mapstructure:"db"`       // Redis数据库编号
}

// DatabaseConfig 关系数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // 数据库类型，目前仅支持sqlite
	DSN  string `mapstructure:"dsn"`  // 数据源名称
}

// ArchiveConfig 原始文档归档配置
type ArchiveConfig struct {
	Type      string `mapstructure:"type"`       // 归档类型：local 或 minio
	Path      string `mapstructure:"path"`       // 本地归档路径
	Endpoint  string `mapstructure:"endpoint"`   // MinIO端点
	AccessKey string `mapstructure:"access_key"` // MinIO访问密钥
	SecretKey string `mapstructure:"secret_key"` // MinIO秘密密钥
	Bucket    string `mapstructure:"bucket"`     // MinIO桶名称
	UseSSL    bool   `mapstructure:"use_ssl"`    // 是否使用SSL
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别
	Format     string `mapstructure:"format"`      // 输出格式：json 或 text
	File       string `mapstructure:"file"`        // 日志文件路径，为空时只输出到标准输出
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // 单个日志文件的最大大小(MB)
	MaxBackups int    `mapstructure:"max_backups"` // 保留的轮转文件数量
	MaxAgeDays int    `mapstructure:"max_age"`     // 轮转文件的最大保留天数
}

// Load 从文件和环境变量加载配置
// 配置文件不存在时使用默认值
func Load(configPath string) (*Config, error) {
	var config Config

	if configPath == "" {
		configPath = "config.yaml"
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			log.Printf("Warning: config file not found at %s, using defaults", configPath)
		} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: config file not found at %s, using defaults", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	}

	setDefaults(v)

	// 支持COMPLIANCE_QA_LLM_API_KEY这样的环境变量覆盖
	v.SetEnvPrefix("COMPLIANCE_QA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	expandSecrets(&config)

	return &config, nil
}

// expandSecrets 展开密钥配置中的${ENV_VAR}占位符
func expandSecrets(cfg *Config) {
	cfg.Embed.APIKey = expandEnvPlaceholder(cfg.Embed.APIKey)
	cfg.LLM.APIKey = expandEnvPlaceholder(cfg.LLM.APIKey)
	cfg.Archive.AccessKey = expandEnvPlaceholder(cfg.Archive.AccessKey)
	cfg.Archive.SecretKey = expandEnvPlaceholder(cfg.Archive.SecretKey)
	cfg.Cache.Password = expandEnvPlaceholder(cfg.Cache.Password)
}

// expandEnvPlaceholder 将${ENV_VAR}形式的值替换为对应环境变量
// 环境变量未设置时保留原值
func expandEnvPlaceholder(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envVar := value[2 : len(value)-1]
		if envVal := os.Getenv(envVar); envVal != "" {
			return envVal
		}
	}
	return value
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 分块默认配置
	v.SetDefault("chunker.max_tokens", 1000)
	v.SetDefault("chunker.overlap_tokens", 200)
	v.SetDefault("chunker.min_chunk_size", 100)
	v.SetDefault("chunker.preserve_paragraphs", true)
	v.SetDefault("chunker.preserve_sentences", true)
	v.SetDefault("chunker.encoding", "cl100k_base")

	// 嵌入默认配置
	v.SetDefault("embed.provider", "openai")
	v.SetDefault("embed.model", "text-embedding-3-small")
	v.SetDefault("embed.endpoint", "https://api.openai.com/v1")
	v.SetDefault("embed.dimensions", 1536)
	v.SetDefault("embed.batch_size", 10)
	v.SetDefault("embed.max_workers", 4)

	// 向量存储默认配置
	v.SetDefault("vectordb.type", "sqlite")
	v.SetDefault("vectordb.path", "data/vectors.db")

	// LLM默认配置
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.endpoint", "https://api.openai.com/v1")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", 60)
	v.SetDefault("llm.max_retries", 3)

	// RAG默认配置
	v.SetDefault("rag.template_id", "general")
	v.SetDefault("rag.top_k", 5)
	v.SetDefault("rag.min_similarity", 0.3)
	v.SetDefault("rag.enable_rerank", true)
	v.SetDefault("rag.rerank_boost", 0.01)
	v.SetDefault("rag.enable_guardrails", true)
	v.SetDefault("rag.cache_ttl", "1h")

	// 缓存默认配置
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.db", 0)

	// 数据库默认配置
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/compliance.db")

	// 归档默认配置
	v.SetDefault("archive.type", "local")
	v.SetDefault("archive.path", "data/archive")
	v.SetDefault("archive.bucket", "compliance-docs")
	v.SetDefault("archive.use_ssl", false)

	// 日志默认配置
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
}
