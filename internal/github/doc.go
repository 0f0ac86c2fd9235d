// Package github 封装对 GitHub REST API 的全部上游访问。
//
// 调用方需要：
//  1. 通过 NewClient 注入共享的 http.Client 与 token，不要各自新建连接池；
//  2. 用 Conditional 携带条件请求头，304 统一以 ErrNotModified 表达；
//  3. 对限流场景用 IsRateLimited 判断，不要依赖错误字符串匹配。
//
// 该包只负责取数与错误分类，过滤、聚合与缓存策略由上层实现。
package github
