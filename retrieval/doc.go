/*
# 概述

Package retrieval 实现 MedGraph 的跨源检索聚合与排序引擎。

引擎把一个问题并发派发给多个知识源（患者病史图谱、文献/指南图谱、
医学词典图谱、向量块存储），将各源的原始命中归一化为统一的上下文
片段，去重、排序后在全局 token 预算内融合为单一上下文与多源答案。

# 核心接口/类型

  - SourceClient — 外部知识源统一接口（Retrieve(question, mode, topK)）
  - Dispatcher — 并发扇出派发器，单源超时隔离、部分失败容忍
  - Extractor — 原始命中 → ContextFragment 归一化（Graph / Vector 两种变体）
  - Deduplicator — 指纹/内容相似度去重，保留高分副本
  - Ranker — score / MMR 两种排序策略
  - Combiner — 按类别权重切分 token 预算并贪心装填
  - Aggregator — 按来源优先级拼接多源答案
  - Engine — 对外 Query 门面，串联以上全部阶段

# 主要能力

  - 并发派发：每源独立超时，单源失败/超时不影响兄弟调用
  - 去重：指纹哈希 O(n) 与 Jaccard 相似度 O(n²) 两种策略
  - 多样性排序：Maximal Marginal Relevance，lambda 可调
  - 预算合并：每类别 token 上限，整片装填、从不截断片段内容
  - 策略可替换：来源相关度估计与 token 估算均为注入式策略

派发失败被限制在派发边界内：下游的抽取、去重、排序与合并只处理
成功的结果，对其输入必须是全函数。
*/
package retrieval
