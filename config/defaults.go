package config

import "time"

// DefaultConfig 返回包含所有默认值的配置。
// 默认值允许不依赖任何外部服务跑通本地开发：
// 词典用内存 SQLite，缓存关闭，遥测关闭。
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			PerSourceTimeout:      10 * time.Second,
			TopK:                  5,
			MaxConcurrentSources:  0,
			MaxFragmentsPerSource: 200,
			Strict:                false,
		},
		Combine: CombineConfig{
			MaxTotalTokens:     4000,
			EntityWeight:       0.3,
			RelationshipWeight: 0.3,
			ChunkWeight:        0.4,
			DedupMethod:        "content",
			DedupThreshold:     0.85,
			RankMethod:         "score",
			MMRLambda:          0.7,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
			TTL:      10 * time.Minute,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "medgraph",
			Name:            "medgraph",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "medgraph",
			Collection:     "literature",
			ConnectTimeout: 5 * time.Second,
		},
		Dictionary: DictionaryConfig{
			Path: ":memory:",
		},
		Log: LogConfig{
			Level:        "info",
			Format:       "json",
			OutputPaths:  []string{"stdout"},
			EnableCaller: false,
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "medgraph",
			SampleRate:  1.0,
		},
	}
}
