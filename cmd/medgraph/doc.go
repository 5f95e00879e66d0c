// medgraph 命令行入口。
//
// 提供 ask/version 子命令，演示词典 + 向量双源的聚合查询。
package main
