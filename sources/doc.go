// Package sources 提供各知识源的 SourceClient 实现：
//
//   - SQLiteDictionarySource：医学词典（术语定义与关系），基于 GORM + SQLite
//   - PostgresPatientSource：患者历史记录，基于 GORM + PostgreSQL
//   - MongoLiteratureSource：文献与指南，基于 MongoDB
//   - MemoryVectorSource：进程内向量块检索，余弦相似度
//
// 另有两个可叠加的装饰器：
//
//   - CachedSource：Redis 结果缓存，缓存故障时降级直连
//   - RateLimitedSource：令牌桶限流，保护脆弱的上游
//
// 所有实现满足 retrieval.SourceClient 契约：尊重 ctx 超时，
// 检索失败返回 error 而不是 panic，由派发器负责隔离。
package sources
