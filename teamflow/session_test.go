package teamflow

import (
	"context"
	"testing"

	"github.com/chin3/hat-manager/testutil/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_WearReturnsCopies(t *testing.T) {
	sess := NewSession("s1")
	assert.Equal(t, StateIdle, sess.State())
	assert.Nil(t, sess.ActiveHat())

	h := fixtures.Researcher()
	sess.Wear(h)
	h.Name = "changed"
	assert.Equal(t, "Researcher", sess.ActiveHat().Name)

	got := sess.ActiveHat()
	got.Name = "changed again"
	assert.Equal(t, "Researcher", sess.ActiveHat().Name)

	sess.Wear(nil)
	assert.Nil(t, sess.ActiveHat())
}

func TestSession_RetryCounters(t *testing.T) {
	sess := NewSession("s1")
	assert.Equal(t, 1, sess.incrementRetry("a"))
	assert.Equal(t, 2, sess.incrementRetry("a"))

	counts := sess.RetryCounts()
	counts["a"] = 99
	assert.Equal(t, 2, sess.RetryCounts()["a"])

	sess.resetRetries()
	assert.Empty(t, sess.RetryCounts())
}

func TestSessionRegistry(t *testing.T) {
	snaps := NewMemorySnapshotStore()
	reg := NewSessionRegistry(snaps)
	ctx := context.Background()

	a := reg.Get("b-session")
	assert.Same(t, a, reg.Get("b-session"))
	reg.Get("a-session")
	assert.Equal(t, []string{"a-session", "b-session"}, reg.IDs())

	require.NoError(t, snaps.Create(ctx, sampleSnapshot("b-session")))
	require.NoError(t, reg.Close(ctx, "b-session"))
	_, ok := reg.Lookup("b-session")
	assert.False(t, ok)
	_, err := snaps.Get(ctx, "b-session")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	// closing again is fine
	require.NoError(t, reg.Close(ctx, "b-session"))
}

func TestState_Terminal(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateAbandoned.Terminal())
	assert.False(t, StateAwaitingApproval.Terminal())
	assert.False(t, StateRunning.Terminal())
}
