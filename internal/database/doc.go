// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package database 负责打开 Hat 存储与任务归档共用的 SQL 数据库。

# 概述

Open 根据 config.DatabaseConfig 的驱动类型选择 GORM 方言
（postgres、mysql，或纯 Go 的 glebarez/sqlite），并用 PoolManager
统一管理连接池参数、后台健康检查与关闭流程。

# 核心类型

  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB、Ping、
    WithTransaction、GetStats、Close。
  - PoolConfig：最大连接数、空闲连接数、生命周期与健康检查间隔。
*/
package database
