// medgraph 配置加载器。
//
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖。
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("medgraph.yaml").
//	    WithEnvPrefix("MEDGRAPH").
//	    Load()
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是 medgraph 的完整配置结构
type Config struct {
	// Engine 检索引擎配置
	Engine EngineConfig `yaml:"engine" env:"ENGINE"`

	// Combine 上下文合并配置
	Combine CombineConfig `yaml:"combine" env:"COMBINE"`

	// Redis 结果缓存配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database 患者库配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Mongo 文献库配置
	Mongo MongoConfig `yaml:"mongo" env:"MONGO"`

	// Dictionary 词典库配置
	Dictionary DictionaryConfig `yaml:"dictionary" env:"DICTIONARY"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// EngineConfig 检索引擎配置
type EngineConfig struct {
	// 单源检索超时
	PerSourceTimeout time.Duration `yaml:"per_source_timeout" env:"PER_SOURCE_TIMEOUT"`
	// 每个来源请求的命中数
	TopK int `yaml:"top_k" env:"TOP_K"`
	// 同时在途的来源数上限（0 不限制）
	MaxConcurrentSources int64 `yaml:"max_concurrent_sources" env:"MAX_CONCURRENT_SOURCES"`
	// 单源片段上限（0 不限制）
	MaxFragmentsPerSource int `yaml:"max_fragments_per_source" env:"MAX_FRAGMENTS_PER_SOURCE"`
	// 零来源成功时按错误返回
	Strict bool `yaml:"strict" env:"STRICT"`
	// token 估算使用的模型名（tiktoken），空用字符估算
	TokenizerModel string `yaml:"tokenizer_model" env:"TOKENIZER_MODEL"`
}

// CombineConfig 上下文合并配置
type CombineConfig struct {
	// token 预算
	MaxTotalTokens int `yaml:"max_total_tokens" env:"MAX_TOTAL_TOKENS"`
	// 三类片段的预算权重，和必须为 1
	EntityWeight       float64 `yaml:"entity_weight" env:"ENTITY_WEIGHT"`
	RelationshipWeight float64 `yaml:"relationship_weight" env:"RELATIONSHIP_WEIGHT"`
	ChunkWeight        float64 `yaml:"chunk_weight" env:"CHUNK_WEIGHT"`
	// 去重方法: none, fingerprint, content
	DedupMethod string `yaml:"dedup_method" env:"DEDUP_METHOD"`
	// 内容去重相似度阈值
	DedupThreshold float64 `yaml:"dedup_threshold" env:"DEDUP_THRESHOLD"`
	// 排序方法: score, mmr
	RankMethod string `yaml:"rank_method" env:"RANK_METHOD"`
	// MMR 相关性权重
	MMRLambda float64 `yaml:"mmr_lambda" env:"MMR_LAMBDA"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 是否启用结果缓存
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 缓存条目保留时间
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// DatabaseConfig 患者库（PostgreSQL）配置
type DatabaseConfig struct {
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// MongoConfig 文献库（MongoDB）配置
type MongoConfig struct {
	// 连接 URI
	URI string `yaml:"uri" env:"URI"`
	// 数据库名
	Database string `yaml:"database" env:"DATABASE"`
	// 集合名
	Collection string `yaml:"collection" env:"COLLECTION"`
	// 连接超时
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
}

// DictionaryConfig 词典库（SQLite）配置
type DictionaryConfig struct {
	// 数据库文件路径，":memory:" 表示内存库
	Path string `yaml:"path" env:"PATH"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "MEDGRAPH",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).WithValidator((*Config).Validate).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Engine.PerSourceTimeout <= 0 {
		errs = append(errs, "per_source_timeout must be positive")
	}
	if c.Engine.TopK <= 0 {
		errs = append(errs, "top_k must be positive")
	}
	if c.Combine.MaxTotalTokens <= 0 {
		errs = append(errs, "max_total_tokens must be positive")
	}

	sum := c.Combine.EntityWeight + c.Combine.RelationshipWeight + c.Combine.ChunkWeight
	if sum < 1-1e-6 || sum > 1+1e-6 {
		errs = append(errs, "combine weights must sum to 1")
	}
	if c.Combine.MMRLambda < 0 || c.Combine.MMRLambda > 1 {
		errs = append(errs, "mmr_lambda must be in [0, 1]")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN 返回患者库连接字符串
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}
