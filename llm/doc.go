// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package llm 定义模型端点的统一抽象。

# 概述

Provider 接口屏蔽不同模型服务的差异：团队流程只需要
"系统提示 + 用户提示 + 模型名" 到文本的同步补全能力。

# 实现

  - providers/openaicompat - 直接基于 HTTP 的 OpenAI 兼容实现
  - providers/openai       - 基于 go-openai SDK 的实现
  - factory                - 根据配置选择具体 Provider
*/
package llm
