// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package notify 负责把团队流程事件送到会话的订阅者。

  - Hub - 进程内按会话扇出，WebSocket 端点从这里读取事件
  - NATSPublisher - 将事件发布到 hatflow.sessions.<id>.events
  - Bridge - 订阅 NATS 上其他副本发布的事件并转入本地 Hub

单副本部署只需 Hub；多副本部署时每个副本同时挂 NATSPublisher 与 Bridge，
任意副本上的 WebSocket 客户端都能收到完整的事件流。
*/
package notify
