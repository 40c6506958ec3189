// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package hat 定义 Hat（Agent 人设）模型及其持久化。

# 概述

Hat 描述一个可被团队流程调用的 Agent 人设：模型、指令、角色、工具、
协作者、记忆标签、团队归属、流程顺序、质量门标记与重试上限。
默认值在解码或构造时一次性应用（Normalize / UnmarshalJSON），
下游组件无需再做空值判断。

# 存储后端

  - MemoryStore - 进程内存储，按插入顺序
  - FileStore   - 每个 Hat 一个 JSON 文件，原子写入
  - GormStore   - 基于 GORM 的 SQL 存储（postgres / mysql / sqlite）

ListByTeam 只返回活跃成员，并按 flow_order 升序稳定排序，
未设置顺序的成员排在最后。

# 模板

RegisterTemplate / CloneTemplate / FindByBase 支持以模板方式复用 Hat；
ParseHats 从模型输出中提取 Hat JSON，用于根据目标自动组建团队。
*/
package hat
