package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chin3/hat-manager/hat"
	"github.com/chin3/hat-manager/memory"
	"github.com/chin3/hat-manager/mission"
	"github.com/chin3/hat-manager/notify"
	"github.com/chin3/hat-manager/teamflow"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 API 集成测试
// =============================================================================

type apiFixture struct {
	srv      *httptest.Server
	hats     *hat.MemoryStore
	memory   *memory.InMemoryStore
	hub      *notify.Hub
	archive  *mission.FileArchive
	sessions *teamflow.SessionRegistry
}

func teamHat(id, name string, order int, gate bool) *hat.Hat {
	h := hat.New(name, hat.RoleAgent, "Do your part.")
	h.ID = id
	h.TeamID = hat.StringPtr("team_alpha")
	h.FlowOrder = hat.IntPtr(order)
	h.QualityGate = gate
	if gate {
		h.Role = hat.RoleCritic
	}
	return h
}

// replies 按 Hat ID 返回固定回复
func replies(m map[string]string) teamflow.Responder {
	return teamflow.ResponderFunc(func(ctx context.Context, prompt string, h *hat.Hat) (string, error) {
		if out, ok := m[h.ID]; ok {
			return out, nil
		}
		return "", errors.New("no reply for " + h.ID)
	})
}

func newAPIFixture(t *testing.T, responder teamflow.Responder) *apiFixture {
	t.Helper()
	logger := zap.NewNop()

	hats := hat.NewMemoryStore(
		teamHat("hat_writer", "Writer", 1, false),
		teamHat("hat_critic", "Critic", 2, true),
	)
	mem := memory.NewInMemoryStore(0)
	hub := notify.NewHub(0, logger)
	archive, err := mission.NewFileArchive(filepath.Join(t.TempDir(), "missions"), logger)
	require.NoError(t, err)

	snapshots := teamflow.NewMemorySnapshotStore()
	orch, err := teamflow.NewOrchestrator(teamflow.Options{
		Hats:      hats,
		Memory:    mem,
		Responder: responder,
		Finalizer: teamflow.NewFinalizer(responder, hats, archive, teamflow.FinalizerConfig{}, logger),
		Snapshots: snapshots,
		Notifier:  hub,
		Logger:    logger,
	})
	require.NoError(t, err)
	sessions := teamflow.NewSessionRegistry(snapshots)

	mux := http.NewServeMux()
	NewSessionHandler(orch, sessions, hats, logger).Register(mux)
	NewHatHandler(hats, mem, responder, "", logger).Register(mux)
	NewMissionHandler(archive, logger).Register(mux)
	NewEventStreamHandler(hub, nil, logger).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &apiFixture{srv: srv, hats: hats, memory: mem, hub: hub, archive: archive, sessions: sessions}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (*http.Response, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out Response
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

// decodeData 把 Response.Data 重新解码为具体类型
func decodeData[T any](t *testing.T, r Response) T {
	t.Helper()
	raw, err := json.Marshal(r.Data)
	require.NoError(t, err)
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func approvingTeam() teamflow.Responder {
	return replies(map[string]string{
		"hat_writer":          "A tidy draft.",
		"hat_critic":          "Clear and complete. #APPROVED",
		teamflow.AnalystHatID: "The team delivered.",
	})
}

func TestAPI_RunApproveLifecycle(t *testing.T) {
	f := newAPIFixture(t, approvingTeam())

	resp, body := f.do(t, http.MethodPost, "/api/v1/sessions/s1/runs", StartRequest{TeamID: "team_alpha", Goal: "write a haiku"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	started := decodeData[teamflow.Outcome](t, body)
	assert.Equal(t, teamflow.StateAwaitingApproval, started.State)
	assert.Equal(t, "Clear and complete. #APPROVED", started.Pending)
	assert.Len(t, started.Steps, 2)

	resp, body = f.do(t, http.MethodGet, "/api/v1/sessions/s1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeData[SessionView](t, body)
	require.NotNil(t, view.Pending)
	assert.Equal(t, "team_alpha", view.Pending.TeamID)

	resp, body = f.do(t, http.MethodPost, "/api/v1/sessions/s1/runs", StartRequest{TeamID: "team_alpha", Goal: "again"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "FLOW_PENDING", body.Error.Code)

	resp, body = f.do(t, http.MethodPost, "/api/v1/sessions/s1/resume", ResumeRequest{Input: "maybe"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeData[teamflow.Outcome](t, body).Reprompt)

	resp, body = f.do(t, http.MethodPost, "/api/v1/sessions/s1/resume", ResumeRequest{Input: "approve"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	done := decodeData[OutcomeResponse](t, body)
	assert.Equal(t, teamflow.StateCompleted, done.State)
	assert.Equal(t, "Clear and complete. #APPROVED", done.FinalOutput)
	require.NotNil(t, done.Mission)
	assert.Equal(t, mission.OutcomeSuccess, done.Mission.Outcome)
	assert.Empty(t, done.MissionError)

	resp, body = f.do(t, http.MethodPost, "/api/v1/sessions/s1/resume", ResumeRequest{Input: "approve"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "NO_PENDING_FLOW", body.Error.Code)

	resp, body = f.do(t, http.MethodGet, "/api/v1/missions?limit=5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeData[[]mission.Record](t, body), 1)
}

func TestAPI_StartErrors(t *testing.T) {
	f := newAPIFixture(t, approvingTeam())

	resp, body := f.do(t, http.MethodPost, "/api/v1/sessions/s1/runs", StartRequest{TeamID: "team_ghost", Goal: "anything"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "TEAM_NOT_FOUND", body.Error.Code)

	resp, body = f.do(t, http.MethodPost, "/api/v1/sessions/s1/runs", StartRequest{TeamID: "team_alpha"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", body.Error.Code)

	resp, _ = f.do(t, http.MethodPost, "/api/v1/sessions/bad.id/runs", StartRequest{TeamID: "team_alpha", Goal: "g"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, http.MethodPost, "/api/v1/sessions/s1/resume", ResumeRequest{Input: "approve"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "NO_PENDING_FLOW", body.Error.Code)
}

func TestAPI_GenerationFailureAbandons(t *testing.T) {
	f := newAPIFixture(t, replies(map[string]string{}))

	resp, body := f.do(t, http.MethodPost, "/api/v1/sessions/s1/runs", StartRequest{TeamID: "team_alpha", Goal: "g"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "GENERATION_FAILURE", body.Error.Code)

	sess, ok := f.sessions.Lookup("s1")
	require.True(t, ok)
	assert.Equal(t, teamflow.StateAbandoned, sess.State())
}

func TestAPI_WearAndClose(t *testing.T) {
	f := newAPIFixture(t, approvingTeam())

	resp, body := f.do(t, http.MethodPut, "/api/v1/sessions/s1/hat", WearRequest{HatID: "hat_writer"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Writer", decodeData[hat.Hat](t, body).Name)

	_, body = f.do(t, http.MethodGet, "/api/v1/sessions/s1", nil)
	view := decodeData[SessionView](t, body)
	require.NotNil(t, view.ActiveHat)
	assert.Equal(t, "hat_writer", view.ActiveHat.ID)

	resp, body = f.do(t, http.MethodPut, "/api/v1/sessions/s1/hat", WearRequest{HatID: "hat_ghost"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "HAT_NOT_FOUND", body.Error.Code)

	// 流程结束后恢复到运行前的 Hat
	f.do(t, http.MethodPost, "/api/v1/sessions/s1/runs", StartRequest{TeamID: "team_alpha", Goal: "g"})
	f.do(t, http.MethodPost, "/api/v1/sessions/s1/resume", ResumeRequest{Input: "approve"})
	_, body = f.do(t, http.MethodGet, "/api/v1/sessions/s1", nil)
	view = decodeData[SessionView](t, body)
	require.NotNil(t, view.ActiveHat)
	assert.Equal(t, "hat_writer", view.ActiveHat.ID)

	resp, _ = f.do(t, http.MethodDelete, "/api/v1/sessions/s1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, "/api/v1/sessions/s1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_HatsAndTemplates(t *testing.T) {
	f := newAPIFixture(t, approvingTeam())

	resp, body := f.do(t, http.MethodGet, "/api/v1/teams/team_alpha/hats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	members := decodeData[[]hat.Hat](t, body)
	require.Len(t, members, 2)
	assert.Equal(t, "hat_writer", members[0].ID)
	assert.Equal(t, "hat_critic", members[1].ID)

	resp, body = f.do(t, http.MethodGet, "/api/v1/teams/team_ghost/hats", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "TEAM_NOT_FOUND", body.Error.Code)

	resp, body = f.do(t, http.MethodPut, "/api/v1/hats/hat_editor", map[string]any{"name": "Editor", "instructions": "Tighten prose."})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	editor := decodeData[hat.Hat](t, body)
	assert.Equal(t, "hat_editor", editor.ID)
	assert.Equal(t, hat.DefaultModel, editor.Model)
	assert.True(t, editor.Active)

	resp, _ = f.do(t, http.MethodPost, "/api/v1/hats/hat_editor/template", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = f.do(t, http.MethodPost, "/api/v1/hats/hat_editor/clone", CloneRequest{Suffix: "v2", TeamID: "team_beta", FlowOrder: hat.IntPtr(1)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	clone := decodeData[hat.Hat](t, body)
	assert.Equal(t, "hat_editor_v2", clone.ID)
	assert.Equal(t, "Editor Clone", clone.Name)

	_, body = f.do(t, http.MethodGet, "/api/v1/hats/hat_editor/clones", nil)
	assert.Len(t, decodeData[[]hat.Hat](t, body), 1)

	_, body = f.do(t, http.MethodGet, "/api/v1/hats?template=true", nil)
	assert.Len(t, decodeData[[]hat.Hat](t, body), 1)

	resp, _ = f.do(t, http.MethodDelete, "/api/v1/hats/hat_editor_v2", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, "/api/v1/hats/hat_editor_v2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_Memories(t *testing.T) {
	f := newAPIFixture(t, approvingTeam())
	f.do(t, http.MethodPost, "/api/v1/sessions/s1/runs", StartRequest{TeamID: "team_alpha", Goal: "write a haiku"})

	resp, body := f.do(t, http.MethodGet, "/api/v1/hats/hat_writer/memories?k=5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeData[[]memory.Match](t, body), 2)

	resp, _ = f.do(t, http.MethodGet, "/api/v1/hats/hat_writer/memories?k=zero", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodDelete, "/api/v1/hats/hat_writer/memories", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Zero(t, f.memory.Len("hat_writer"))
}

func TestAPI_ProposeTeam(t *testing.T) {
	proposal := "```json\n" + `[{"name":"Scout","role":"researcher","instructions":"Find sources."},` +
		`{"name":"Judge","role":"critic","instructions":"Review.","qa_loop":true}]` + "\n```"
	f := newAPIFixture(t, replies(map[string]string{teamflow.ArchitectHatID: proposal}))

	resp, body := f.do(t, http.MethodPost, "/api/v1/teams/propose", ProposeRequest{Goal: "map the coastline", Save: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeData[ProposeResponse](t, body)
	assert.True(t, strings.HasPrefix(out.TeamID, "auto_team_"))
	require.Len(t, out.Hats, 2)
	assert.True(t, out.Saved)

	members, err := f.hats.ListByTeam(context.Background(), out.TeamID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	resp, body = f.do(t, http.MethodPost, "/api/v1/teams/propose", ProposeRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", body.Error.Code)
}

func TestAPI_EventStream(t *testing.T) {
	f := newAPIFixture(t, approvingTeam())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/api/v1/sessions/s1/events"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return f.hub.Subscribers("s1") == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, _ := f.do(t, http.MethodPost, "/api/v1/sessions/s1/runs", StartRequest{TeamID: "team_alpha", Goal: "g"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var seen []teamflow.EventType
	for {
		var ev teamflow.Event
		require.NoError(t, wsjson.Read(ctx, conn, &ev))
		assert.Equal(t, "s1", ev.SessionID)
		seen = append(seen, ev.Type)
		if ev.Type == teamflow.EventSuspended {
			break
		}
	}
	assert.Equal(t, []teamflow.EventType{
		teamflow.EventFlowStarted,
		teamflow.EventStep,
		teamflow.EventStep,
		teamflow.EventSuspended,
	}, seen)

	conn.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return f.hub.Subscribers("s1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
