// Package config 提供 HatFlow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（HATFLOW_ 前缀）的顺序叠加，
// 覆盖 HTTP 服务、模型端点、团队流程、各存储后端、NATS、日志与遥测。
package config
