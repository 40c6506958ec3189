// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 hat-manager 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 hat、memory、llm、
teamflow、mission 与 api 等上层模块提供统一的类型契约。

# 核心类型

  - Error / ErrorCode - 结构化错误体系，含 HTTP 状态码与 Retryable 标记
  - FlowStep          - 团队流程中一次 Hat 调用的只追加记录
  - StepKind          - 记录产生原因（initial / retry / review）

# 主要能力

  - Context 传播：WithTraceID / WithSessionID / WithUserID / WithRunID
  - 错误工具链：AsError / IsErrorCode / IsRetryable / GetErrorCode
  - 常用错误构造：NewGenerationError / NewMalformedReferenceError / NewArchivalError
*/
package types
