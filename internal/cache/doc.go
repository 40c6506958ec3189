// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package cache 管理 HatFlow 共享的 Redis 连接。

Manager 根据 config.RedisConfig 建立连接（可选 TLS），启动后台
健康检查，并把同一个 *redis.Client 交给 Hat 记忆存储与会话快照存储。
*/
package cache
