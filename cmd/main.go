package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	appconfig "github.com/fyerfyer/compliance-QA-system/config"
	"github.com/fyerfyer/compliance-QA-system/internal/cache"
	"github.com/fyerfyer/compliance-QA-system/internal/compliance"
	"github.com/fyerfyer/compliance-QA-system/internal/database"
	"github.com/fyerfyer/compliance-QA-system/internal/document"
	"github.com/fyerfyer/compliance-QA-system/internal/embedding"
	"github.com/fyerfyer/compliance-QA-system/internal/llm"
	"github.com/fyerfyer/compliance-QA-system/internal/rag"
	"github.com/fyerfyer/compliance-QA-system/internal/repository"
	"github.com/fyerfyer/compliance-QA-system/internal/services"
	"github.com/fyerfyer/compliance-QA-system/internal/tokenizer"
	"github.com/fyerfyer/compliance-QA-system/internal/vectordb"
	"github.com/fyerfyer/compliance-QA-system/pkg/logger"
	"github.com/fyerfyer/compliance-QA-system/pkg/storage"
)

// 命令行选项
type options struct {
	ConfigFile string // 配置文件路径

	IngestPath   string // 待摄取的文档路径
	Region       string // 文档适用地区
	Organization string // 文档发布机构
	Standard     string // 文档关联的合规标准

	Question   string // 单次问答的问题
	TemplateID string // 提示词模板

	ReportName string // 待分析的报告名称
	Standards  string // 逗号分隔的合规标准列表
	Depth      string // 分析深度: basic/detailed/comprehensive
	Analytics  bool   // 是否生成分析洞察
}

func main() {
	// .env文件不存在不是错误
	_ = godotenv.Load()

	opts := parseFlags()

	cfg, err := appconfig.Load(opts.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Setup(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	log.Info("starting compliance QA system")

	if err := database.Setup(&database.Config{
		Type:         cfg.Database.Type,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		MaxLifetime:  time.Hour,
	}, log); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer database.Close()

	app, err := buildApp(cfg, log)
	if err != nil {
		log.Fatalf("failed to initialize components: %v", err)
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case opts.IngestPath != "":
		err = runIngest(ctx, app, opts, log)
	case opts.Question != "":
		err = runAsk(ctx, app, opts)
	case opts.ReportName != "":
		err = runAnalyze(ctx, app, opts, log)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("command failed: %v", err)
	}
}

// parseFlags 解析命令行参数
func parseFlags() options {
	opts := options{}

	flag.StringVar(&opts.ConfigFile, "config", "", "Path to config file")

	flag.StringVar(&opts.IngestPath, "ingest", "", "Path to a document to ingest")
	flag.StringVar(&opts.Region, "region", "", "Region the document applies to")
	flag.StringVar(&opts.Organization, "org", "", "Publishing organization")
	flag.StringVar(&opts.Standard, "standard", "", "Compliance standard the document belongs to")

	flag.StringVar(&opts.Question, "ask", "", "Ask a single question against the corpus")
	flag.StringVar(&opts.TemplateID, "template", "", "Prompt template (general/legal/technical/quick)")

	flag.StringVar(&opts.ReportName, "analyze", "", "Report name to run a compliance analysis for")
	flag.StringVar(&opts.Standards, "standards", "TCFD", "Comma-separated compliance standards")
	flag.StringVar(&opts.Depth, "depth", "basic", "Analysis depth (basic/detailed/comprehensive)")
	flag.BoolVar(&opts.Analytics, "analytics", false, "Include analytics in the compliance report")

	flag.Parse()
	return opts
}

// app 装配完成的应用组件
type app struct {
	codec     tokenizer.Codec
	store     vectordb.Store
	archive   storage.Archive
	ingestion *services.IngestionService
	engine    *rag.Engine
	analysis  *services.AnalysisService
}

func (a *app) close() {
	if a.codec != nil {
		a.codec.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// buildApp 按配置装配全部组件
func buildApp(cfg *appconfig.Config, log *logrus.Logger) (*app, error) {
	codec, err := tokenizer.NewCodec(cfg.Chunker.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer: %v", err)
	}

	chunker, err := document.NewChunker(codec, document.ChunkerConfig{
		MaxTokens:          cfg.Chunker.MaxTokens,
		OverlapTokens:      cfg.Chunker.OverlapTokens,
		MinChunkSize:       cfg.Chunker.MinChunkSize,
		PreserveParagraphs: cfg.Chunker.PreserveParagraphs,
		PreserveSentences:  cfg.Chunker.PreserveSentences,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chunker: %v", err)
	}

	embedClient, err := embedding.NewClient(cfg.Embed.Provider,
		embedding.WithAPIKey(cfg.Embed.APIKey),
		embedding.WithModel(cfg.Embed.Model),
		embedding.WithBaseURL(cfg.Embed.Endpoint),
		embedding.WithDimensions(cfg.Embed.Dimensions),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %v", err)
	}
	batch := embedding.NewBatchProcessor(embedClient,
		cfg.Embed.BatchSize, 100*time.Millisecond, cfg.Embed.MaxWorkers)

	store, err := setupVectorStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector store: %v", err)
	}

	llmClient, err := llm.NewClient(cfg.LLM.Provider,
		llm.WithAPIKey(cfg.LLM.APIKey),
		llm.WithModel(cfg.LLM.Model),
		llm.WithBaseURL(cfg.LLM.Endpoint),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithTemperature(cfg.LLM.Temperature),
		llm.WithTimeout(time.Duration(cfg.LLM.Timeout)*time.Second),
		llm.WithMaxRetries(cfg.LLM.MaxRetries),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %v", err)
	}

	var answerCache cache.Cache
	if cfg.Cache.Enable {
		answerCache, err = cache.NewCache(cache.Config{
			Type:            cfg.Cache.Type,
			RedisAddr:       cfg.Cache.Address,
			RedisPassword:   cfg.Cache.Password,
			RedisDB:         cfg.Cache.DB,
			DefaultTTL:      cfg.RAG.CacheTTL,
			CleanupInterval: 10 * time.Minute,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create cache: %v", err)
		}
	}

	archive, err := storage.NewArchive(storage.Config{
		Type:      cfg.Archive.Type,
		Path:      cfg.Archive.Path,
		Endpoint:  cfg.Archive.Endpoint,
		AccessKey: cfg.Archive.AccessKey,
		SecretKey: cfg.Archive.SecretKey,
		Bucket:    cfg.Archive.Bucket,
		UseSSL:    cfg.Archive.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %v", err)
	}

	retriever := vectordb.NewRetriever(store, embedClient)
	engine := rag.NewEngine(retriever, llmClient, nil, answerCache, log,
		rag.WithTemplateID(cfg.RAG.TemplateID),
		rag.WithTopK(cfg.RAG.TopK),
		rag.WithMinSimilarity(cfg.RAG.MinSimilarity),
		rag.WithRerank(cfg.RAG.EnableRerank),
		rag.WithRerankBoost(cfg.RAG.RerankBoost),
		rag.WithGuardrails(cfg.RAG.EnableGuardrails),
		rag.WithCacheTTL(cfg.RAG.CacheTTL),
	)

	analyzer := compliance.NewAnalyzer(engine, nil, log)

	return &app{
		codec:     codec,
		store:     store,
		archive:   archive,
		ingestion: services.NewIngestionService(chunker, batch, store, repository.NewDocumentRepository(), log),
		engine:    engine,
		analysis:  services.NewAnalysisService(analyzer, repository.NewReportRepository(), log),
	}, nil
}

// setupVectorStore 创建向量存储
// sqlite类型使用独立的数据库文件，和业务库分开
func setupVectorStore(cfg *appconfig.Config) (vectordb.Store, error) {
	if cfg.VectorDB.Type == "sqlite" {
		if dir := filepath.Dir(cfg.VectorDB.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create vector store directory: %v", err)
			}
		}
		db, err := gorm.Open(sqlite.Open(cfg.VectorDB.Path), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to open vector database: %v", err)
		}
		return vectordb.NewSQLStore(db, cfg.Embed.Dimensions)
	}

	return vectordb.NewStore(vectordb.Config{
		Type:      cfg.VectorDB.Type,
		DSN:       cfg.VectorDB.Path,
		Dimension: cfg.Embed.Dimensions,
	})
}

// runIngest 归档并摄取一份文档
func runIngest(ctx context.Context, a *app, opts options, log *logrus.Logger) error {
	content, err := os.ReadFile(opts.IngestPath)
	if err != nil {
		return fmt.Errorf("failed to read document: %v", err)
	}

	// 原始文件先进归档，摄取失败也能追溯
	file, err := os.Open(opts.IngestPath)
	if err != nil {
		return fmt.Errorf("failed to open document: %v", err)
	}
	info, err := a.archive.Save(file, filepath.Base(opts.IngestPath))
	file.Close()
	if err != nil {
		return fmt.Errorf("failed to archive document: %v", err)
	}
	log.WithField("key", info.Key).Info("document archived")

	result, err := a.ingestion.Ingest(ctx, services.IngestRequest{
		FileName:     filepath.Base(opts.IngestPath),
		FileType:     strings.TrimPrefix(filepath.Ext(opts.IngestPath), "."),
		FilePath:     info.Key,
		Region:       opts.Region,
		Organization: opts.Organization,
		Standard:     opts.Standard,
		Content:      string(content),
	})
	if err != nil {
		return err
	}

	return printJSON(result)
}

// runAsk 执行单次问答
func runAsk(ctx context.Context, a *app, opts options) error {
	engine := a.engine
	if opts.TemplateID != "" {
		engine = a.engine.WithTemplate(opts.TemplateID)
	}

	response, err := engine.Query(ctx, opts.Question)
	if err != nil {
		return err
	}
	return printJSON(response)
}

// runAnalyze 执行合规分析并持久化报告
func runAnalyze(ctx context.Context, a *app, opts options, log *logrus.Logger) error {
	standards := strings.Split(opts.Standards, ",")
	for i := range standards {
		standards[i] = strings.TrimSpace(standards[i])
	}

	result, reportID, err := a.analysis.AnalyzeAndStore(ctx, compliance.AnalyzeRequest{
		ReportName:       opts.ReportName,
		Standards:        standards,
		Depth:            compliance.AnalysisDepth(opts.Depth),
		IncludeAnalytics: opts.Analytics,
	})
	if err != nil {
		return err
	}

	log.WithField("report_id", reportID).Info("compliance report saved")
	return printJSON(result)
}

// printJSON 将结果以缩进JSON输出到标准输出
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
