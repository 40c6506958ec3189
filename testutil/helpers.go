// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试辅助函数和断言
//
// 使用方法:
//
//	ctx := testutil.TestContext(t)
//	testutil.AssertEventuallyTrue(t, func() bool { return condition }, 5*time.Second)
//
// =============================================================================
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/chin3/hat-manager/types"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// =============================================================================
// 🔍 断言辅助
// =============================================================================

// AssertStepsEqual 断言两个流程记录在 Hat、输入与输出上一致（忽略时间戳）
func AssertStepsEqual(t *testing.T, expected, actual []types.FlowStep) {
	t.Helper()

	if len(expected) != len(actual) {
		t.Errorf("step count mismatch: expected %d, got %d", len(expected), len(actual))
		return
	}
	for i := range expected {
		e, a := expected[i], actual[i]
		if e.HatID != a.HatID || e.Input != a.Input || e.Output != a.Output {
			t.Errorf("step %d mismatch:\nexpected %s: %q -> %q\ngot      %s: %q -> %q",
				i, e.HatID, e.Input, e.Output, a.HatID, a.Input, a.Output)
		}
	}
}

// AssertEventuallyTrue 在超时前轮询直到条件满足
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("condition not met within %v", timeout)
}
