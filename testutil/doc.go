/*
Package testutil 提供 hat-manager 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext，自动注册 Cleanup
  - 断言工具: AssertStepsEqual / AssertEventuallyTrue

# 子包

  - testutil/mocks: MockProvider（脚本化 LLM Provider，支持错误注入）
  - testutil/fixtures: 预置 Hat 与团队
*/
package testutil
