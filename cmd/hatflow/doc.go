// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 HatFlow 服务端与命令行入口。

# 概述

cmd/hatflow 按 YAML 配置装配 Hat 存储、记忆、挂起快照、任务归档、
模型 Provider 与团队流程编排器，对外提供 HTTP API 与交互式会话。

# 核心类型

  - App         - 依赖图：存储后端、Provider、Orchestrator、事件 Hub、连接池
  - Server      - API 与 Metrics 双端口，由 errgroup 统一启停
  - REPL        - 单会话命令行：run team / approve / retry / wear 等
  - Middleware  - HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve、run、propose、missions、health、version
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    RequestLogger、CORS、RateLimiter（x/time/rate）、Auth（API Key / JWT）、
    MetricsMiddleware
  - 后端选择：hats（memory/file/database）、memory 与 sessions（memory/redis）、
    missions（file/database），可选 NATS 事件广播
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
