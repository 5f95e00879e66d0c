// =============================================================================
// medgraph 主入口
// =============================================================================
// 跨源检索聚合引擎的命令行入口
//
// 使用方法:
//
//	medgraph ask "How is type 2 diabetes treated?"  # 对演示语料提问
//	medgraph ask --config medgraph.yaml "..."       # 指定配置文件
//	medgraph version                                # 显示版本信息
// =============================================================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/BaSui01/medgraph"
	"github.com/BaSui01/medgraph/config"
	"github.com/BaSui01/medgraph/retrieval"
	"github.com/BaSui01/medgraph/sources"
	"github.com/BaSui01/medgraph/types"
)

// 版本信息（构建时注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ask":
		runAsk(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// runAsk 对内置演示语料执行一次完整的聚合查询。
// 词典来源用 SQLite（默认内存库），向量来源用进程内索引；
// 患者库与文献库需要外部服务，演示入口不接入。
func runAsk(args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: medgraph ask [--config path] <question>")
		os.Exit(1)
	}
	question := fs.Arg(0)

	loader := config.NewLoader().WithValidator((*config.Config).Validate)
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting medgraph",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	ctx := context.Background()

	dictSource, err := buildDictionary(cfg.Dictionary, logger)
	if err != nil {
		logger.Fatal("failed to build dictionary source", zap.Error(err))
	}
	vecSource, err := buildVectorIndex(ctx, logger)
	if err != nil {
		logger.Fatal("failed to build vector source", zap.Error(err))
	}

	client, err := medgraph.New(
		medgraph.WithSource("dictionary", types.SourceDictionary, dictSource),
		medgraph.WithSource("documents", types.SourceVector, vecSource),
		medgraph.WithLogger(logger),
		medgraph.WithMaxConcurrentSources(cfg.Engine.MaxConcurrentSources),
		medgraph.WithQueryOptions(queryOptionsFromConfig(cfg)),
	)
	if err != nil {
		logger.Fatal("failed to build client", zap.Error(err))
	}

	result, err := client.Ask(ctx, question)
	if err != nil {
		logger.Fatal("query failed", zap.Error(err))
	}

	fmt.Printf("Answer:\n%s\n\n", result.Answer)
	fmt.Printf("Sources (%d hits, %dms):\n", result.RetrievalCount, result.LatencyMS)
	for _, s := range result.Sources {
		status := "ok"
		if !s.Succeeded {
			status = "failed: " + s.Error
		}
		fmt.Printf("  %-12s %-12s fragments=%-3d %s\n", s.SourceID, s.Kind, s.FragmentCount, status)
	}
	fmt.Printf("Context: %d fragments, %d tokens\n", result.Context.FragmentCount(), result.Context.TotalTokens)
}

// queryOptionsFromConfig 把文件配置映射为查询配置。
func queryOptionsFromConfig(cfg *config.Config) retrieval.QueryOptions {
	opts := retrieval.DefaultQueryOptions()
	opts.PerSourceTimeout = cfg.Engine.PerSourceTimeout
	opts.TopK = cfg.Engine.TopK
	opts.Combine = retrieval.CombineOptions{
		MaxTotalTokens: cfg.Combine.MaxTotalTokens,
		CategoryWeights: map[types.FragmentKind]float64{
			types.FragmentEntity:       cfg.Combine.EntityWeight,
			types.FragmentRelationship: cfg.Combine.RelationshipWeight,
			types.FragmentChunk:        cfg.Combine.ChunkWeight,
		},
		DedupMethod:    retrieval.DedupMethod(cfg.Combine.DedupMethod),
		DedupThreshold: cfg.Combine.DedupThreshold,
		RankMethod:     retrieval.RankMethod(cfg.Combine.RankMethod),
		MMRLambda:      cfg.Combine.MMRLambda,
	}
	return opts
}

// buildDictionary 打开词典库并灌入演示术语。
func buildDictionary(cfg config.DictionaryConfig, logger *zap.Logger) (*sources.SQLiteDictionarySource, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open dictionary db: %w", err)
	}
	if err := sources.InitDictionarySchema(db); err != nil {
		return nil, err
	}

	var count int64
	db.Model(&sources.DictionaryTerm{}).Count(&count)
	if count == 0 {
		terms := []sources.DictionaryTerm{
			{
				Term:       "diabetes",
				Definition: "A group of metabolic disorders characterized by high blood sugar levels.",
				Relations:  "diabetes -> treated with -> metformin\ndiabetes -> treated with -> insulin",
				Category:   "condition",
			},
			{
				Term:       "insulin",
				Definition: "A peptide hormone produced by beta cells of the pancreatic islets.",
				Relations:  "insulin -> regulates -> blood glucose",
				Category:   "hormone",
			},
			{
				Term:       "metformin",
				Definition: "A biguanide antihyperglycemic agent, first-line therapy for type 2 diabetes.",
				Relations:  "metformin -> treats -> type 2 diabetes",
				Category:   "drug",
			},
			{
				Term:       "hypertension",
				Definition: "Persistently elevated arterial blood pressure.",
				Relations:  "hypertension -> risk factor for -> stroke",
				Category:   "condition",
			},
		}
		for i := range terms {
			if err := db.Create(&terms[i]).Error; err != nil {
				return nil, fmt.Errorf("seed dictionary: %w", err)
			}
		}
	}

	return sources.NewSQLiteDictionarySource(db, logger), nil
}

// buildVectorIndex 建立演示文档块的内存向量索引。
func buildVectorIndex(ctx context.Context, logger *zap.Logger) (*sources.MemoryVectorSource, error) {
	src := sources.NewMemoryVectorSource(nil, 0, logger)
	err := src.Add(ctx,
		"First-line treatment for type 2 diabetes is lifestyle modification combined with metformin.",
		"Insulin therapy is indicated when oral agents fail to achieve glycemic control.",
		"Blood pressure above 140/90 mmHg on repeated measurement defines hypertension in adults.",
		"Statin therapy reduces cardiovascular risk in patients with elevated LDL cholesterol.",
	)
	if err != nil {
		return nil, err
	}
	return src, nil
}

func printVersion() {
	fmt.Printf("medgraph %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`medgraph - Cross-source retrieval aggregation engine

Usage:
  medgraph <command> [options]

Commands:
  ask       Run an aggregation query against the demo corpus
  version   Show version information
  help      Show this help message

Options for 'ask':
  --config <path>   Path to configuration file (YAML)

Examples:
  medgraph ask "How is type 2 diabetes treated?"
  medgraph ask --config /etc/medgraph/medgraph.yaml "What is insulin?"
  medgraph version`)
}

// initLogger 按配置初始化 zap 日志。
func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	var encoding string
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoding = "console"
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoding = "json"
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	zcfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputPaths,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: true,
	}

	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
