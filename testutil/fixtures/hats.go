// Package fixtures 提供测试用的预置 Hat 与团队。
package fixtures

import "github.com/chin3/hat-manager/hat"

// TeamID 是预置团队的 id
const TeamID = "team_alpha"

// Researcher 返回团队中的研究员（非质量门）
func Researcher() *hat.Hat {
	return &hat.Hat{
		ID:           "hat_research",
		Name:         "Researcher",
		Model:        "gpt-4o-mini",
		Instructions: "Research the goal and write a draft.",
		Role:         hat.RoleResearcher,
		Tools:        []string{"web_search"},
		TeamID:       hat.StringPtr(TeamID),
		FlowOrder:    hat.IntPtr(1),
		Active:       true,
		MemoryTags:   []string{"research"},
		RetryLimit:   1,
	}
}

// Critic 返回质量门 Hat
func Critic(retryLimit int) *hat.Hat {
	return &hat.Hat{
		ID:           "hat_critic",
		Name:         "Critic",
		Model:        "gpt-4o-mini",
		Instructions: "Review the draft.",
		Role:         hat.RoleCritic,
		TeamID:       hat.StringPtr(TeamID),
		FlowOrder:    hat.IntPtr(2),
		QualityGate:  true,
		Active:       true,
		MemoryTags:   []string{"review"},
		RetryLimit:   retryLimit,
	}
}

// Stage 返回一个非质量门的流水线 Hat
func Stage(id, name string, order int) *hat.Hat {
	return &hat.Hat{
		ID:         id,
		Name:       name,
		Model:      "gpt-4o-mini",
		Role:       hat.RoleAgent,
		TeamID:     hat.StringPtr(TeamID),
		FlowOrder:  hat.IntPtr(order),
		Active:     true,
		RetryLimit: 1,
	}
}
