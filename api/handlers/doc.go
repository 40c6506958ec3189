// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 HatFlow HTTP API 的请求处理器实现。

# 概述

所有 Handler 遵循标准 net/http 接口，使用 Go 1.22 ServeMux 的
方法与路径参数路由，通过 Register 把自己的路由挂到 mux 上。

# 核心类型

  - SessionHandler      - 启动团队流程、approve/retry、会话状态与当前 Hat
  - HatHandler          - Hat CRUD、模板克隆、记忆查询、团队列表与团队提案
  - MissionHandler      - 已归档任务列表
  - EventStreamHandler  - 会话事件的 WebSocket 推送
  - HealthHandler       - /health、/ready、/version
  - Response/ErrorInfo  - 统一 JSON 响应结构

# 错误映射

types.Error 的 HTTPStatus 优先；未设置时按错误码映射，
例如 FLOW_PENDING 与 NO_PENDING_FLOW 为 409，TEAM_NOT_FOUND 为 404，
GENERATION_FAILURE 为 502。
*/
package handlers
