// Package types 定义 MedGraph 检索聚合引擎的共享数据模型。
//
// 所有类型在每次查询中新建、查询结束后丢弃；引擎本身不持久化任何状态。
// ContextFragment 是引擎内部的通用货币：抽取器创建它，去重、排序与合并
// 阶段只读消费它，排序结果以新的 RankedFragment 集合返回，从不原地修改。
package types
