// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package server 管理 HatFlow 的 HTTP 服务器生命周期。

Manager 负责绑定端口、在 context 结束前提供服务并优雅关闭，
API 服务器与 Prometheus 指标服务器各使用一个 Manager，
由 errgroup 统一编排。
*/
package server
