// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package teamflow 实现 Hat 团队流程编排：按 flow_order 依次调用团队成员，
由质量门（qa_loop）Hat 评审输出，必要时带着评审意见重试上一位成员，
并在需要人工确认时挂起，等待 approve / retry。

# 状态机

	running ──► awaiting_retry_decision ──► running
	   │
	   ├──► awaiting_approval ──approve──► completed
	   │          └──────retry──────► running（从原始目标完整重跑）
	   │
	   └──► abandoned（生成失败）

无质量门的团队跑完最后一个成员后直接进入 completed。

# 评审协议

质量门输出中的标记决定走向，ParseVerdict 是唯一解析标记的地方：

  - #REVISION_REQUIRED - 优先级最高；重试上一条记录对应的 Hat，
    计数超过质量门的 retry_limit 后转人工确认
  - #REJECTED - 转人工确认
  - #APPROVED - 标记任务成功并转人工确认
  - 无标记 - Unclear，转人工确认

# 会话

Session 保存当前佩戴的 Hat、状态与重试计数；同一会话的 Start/Resume 串行执行，
不同会话互不共享可变状态。挂起快照由 SnapshotStore 保存，
每个会话最多一个，Create 不覆盖、Delete 只有一个调用方成功。

# 收尾

Finalizer 生成任务复盘、贡献统计（MVP / 亚军）与每位成员的反思，
尽力而为地归档 mission.Record；任何一步失败都不会阻止其余部分归档。
*/
package teamflow
