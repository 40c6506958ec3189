// Package tlsutil 提供集中式 TLS 配置，
// 用于模型端点 HTTP 客户端与 Redis 连接（TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
