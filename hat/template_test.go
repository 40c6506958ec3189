package hat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates_RegisterCloneFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	src := New("Summarizer", RoleSummarizer, "summarize")
	src.TeamID = StringPtr("team")
	tmpl, err := RegisterTemplate(ctx, s, src)
	require.NoError(t, err)
	assert.True(t, tmpl.IsTemplate())
	assert.Nil(t, tmpl.TeamID)

	templates, err := ListTemplates(ctx, s)
	require.NoError(t, err)
	require.Len(t, templates, 1)

	clone, err := CloneTemplate(ctx, s, tmpl.ID, CloneOptions{Suffix: "v2", TeamID: "alpha", FlowOrder: IntPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, tmpl.ID+"_v2", clone.ID)
	assert.Equal(t, "Summarizer Clone", clone.Name)
	assert.Equal(t, tmpl.ID, clone.BaseHatID)
	assert.Equal(t, "alpha", clone.Team())
	assert.False(t, clone.IsTemplate())

	derived, err := FindByBase(ctx, s, tmpl.ID)
	require.NoError(t, err)
	require.Len(t, derived, 1)
	assert.Equal(t, clone.ID, derived[0].ID)

	_, err = CloneTemplate(ctx, s, clone.ID, CloneOptions{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = CloneTemplate(ctx, s, "nope", CloneOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseHats_TemplateText(t *testing.T) {
	t.Run("fenced array", func(t *testing.T) {
		text := "Here is your team:\n```json\n[{\"name\":\"Planner\",\"role\":\"planner\"},{\"name\":\"Critic\",\"qa_loop\":true}]\n```\nEnjoy."
		hats, err := ParseHats(text)
		require.NoError(t, err)
		require.Len(t, hats, 2)
		assert.Equal(t, "Planner", hats[0].Name)
		assert.True(t, hats[1].QualityGate)
		assert.Equal(t, DefaultRole, hats[1].Role)
		assert.NotEmpty(t, hats[0].ID)
	})

	t.Run("bare object", func(t *testing.T) {
		hats, err := ParseHats(`sure! {"hat_id":"hat_x","name":"Solo"} done`)
		require.NoError(t, err)
		require.Len(t, hats, 1)
		assert.Equal(t, "hat_x", hats[0].ID)
	})

	t.Run("no json", func(t *testing.T) {
		_, err := ParseHats("nothing to see")
		assert.ErrorIs(t, err, ErrNoJSON)
	})

	t.Run("broken json", func(t *testing.T) {
		_, err := ParseHats("[{\"name\": }]")
		assert.Error(t, err)
	})
}
