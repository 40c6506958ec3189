// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
HTTP、模型生成、团队流程与任务归档四个维度。

# 概述

Collector 通过 promauto.With(reg) 注册到调用方给定的 Registerer，
测试中每个用例可使用独立的 Registry。所有 Record 方法对 nil
接收者安全，未启用指标时组件可直接传入 nil。

# 主要能力

  - HTTP 指标：请求总数、请求耗时，状态码归类为 2xx/3xx/4xx/5xx。
  - 生成指标：按 model/status 统计生成次数与耗时。
  - 团队流程指标：流程启动/终止、流程记录、质量门判定、
    修订重试、挂起次数以及等待审批的流程数 Gauge。
  - 归档指标：按 outcome/status 统计任务记录写入。
*/
package metrics
