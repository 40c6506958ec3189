package hat

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalJSON_AppliesDefaults(t *testing.T) {
	var h Hat
	require.NoError(t, json.Unmarshal([]byte(`{"hat_id":"hat_1"}`), &h))

	assert.Equal(t, "hat_1", h.ID)
	assert.Equal(t, DefaultName, h.Name)
	assert.Equal(t, DefaultModel, h.Model)
	assert.Equal(t, DefaultRole, h.Role)
	assert.True(t, h.Active)
	assert.Equal(t, DefaultRetryLimit, h.RetryLimit)
	assert.NotNil(t, h.Tools)
	assert.NotNil(t, h.Relationships)
	assert.NotNil(t, h.MemoryTags)
	assert.Nil(t, h.TeamID)
	assert.Nil(t, h.FlowOrder)
}

func TestUnmarshalJSON_KeepsExplicitZeroValues(t *testing.T) {
	var h Hat
	raw := `{"hat_id":"hat_2","name":"Critic","active":false,"retry_limit":0,"qa_loop":true,"team_id":"t1","flow_order":2}`
	require.NoError(t, json.Unmarshal([]byte(raw), &h))

	assert.False(t, h.Active)
	assert.Equal(t, 0, h.RetryLimit)
	assert.True(t, h.QualityGate)
	assert.Equal(t, "t1", h.Team())
	require.NotNil(t, h.FlowOrder)
	assert.Equal(t, 2, *h.FlowOrder)
}

func TestUnmarshalJSON_EmptyTeamIsNoTeam(t *testing.T) {
	var h Hat
	require.NoError(t, json.Unmarshal([]byte(`{"hat_id":"hat_3","team_id":""}`), &h))
	assert.Nil(t, h.TeamID)
	assert.False(t, h.InTeam(""))
}

func TestNormalize_NegativeRetryLimit(t *testing.T) {
	h := &Hat{ID: "x", RetryLimit: -4}
	Normalize(h)
	assert.Equal(t, 0, h.RetryLimit)
	Normalize(nil)
}

func TestNewID_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^hat_[0-9a-f]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := NewID()
		assert.Regexp(t, pattern, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestClone_IsDeep(t *testing.T) {
	h := New("Researcher", RoleResearcher, "dig")
	h.Tools = []string{"search"}
	h.TeamID = StringPtr("team")
	h.FlowOrder = IntPtr(1)

	c := h.Clone()
	c.Tools[0] = "changed"
	*c.TeamID = "other"
	*c.FlowOrder = 9

	assert.Equal(t, "search", h.Tools[0])
	assert.Equal(t, "team", h.Team())
	assert.Equal(t, 1, *h.FlowOrder)
	assert.Nil(t, (*Hat)(nil).Clone())
}

func TestMarshalRoundTripKeepsWireNames(t *testing.T) {
	h := New("Critic", RoleCritic, "judge")
	h.QualityGate = true
	data, err := json.Marshal(h)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "hat_id")
	assert.Contains(t, raw, "qa_loop")
	assert.Contains(t, raw, "retry_limit")
	assert.Contains(t, raw, "memory_tags")
}
