package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/loomwork/loom/component"
	"github.com/loomwork/loom/config"
	"github.com/loomwork/loom/llm"
	"github.com/loomwork/loom/logstream"
	"github.com/loomwork/loom/server"
)

const oneTaskYAML = `
name: greeter
agents:
  greeter:
    kind: react
    llm:
      provider: fake
tasks:
  - id: t1
    agent: greeter
    description: "say hi to {name}"
`

func TestServerLifecycleOverHTTP(t *testing.T) {
	cfg, err := config.LoadConfigFromString(oneTaskYAML)
	require.NoError(t, err)
	provider := llm.NewFakeProvider()
	provider.ScriptResponse(`{"final_answer":"hi!"}`, llm.Usage{PromptTokens: 1, CompletionTokens: 1})
	mgr := component.NewManager(map[string]llm.Provider{"fake": provider}, nil, nil)
	tm, _, _, err := mgr.BuildTeam(cfg)
	require.NoError(t, err)
	defer tm.Close()

	srv := server.New(tm, server.Config{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body, _ := json.Marshal(map[string]any{"inputs": map[string]string{"name": "loom"}})
	resp, err := http.Post(ts.URL+"/v1/team/start", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	deadline := time.Now().Add(2 * time.Second)
	var state map[string]any
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.URL + "/v1/team/state")
		require.NoError(t, err)
		_ = json.NewDecoder(resp.Body).Decode(&state)
		resp.Body.Close()
		if state["team_workflow_status"] == string(logstream.WorkflowFinished) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, string(logstream.WorkflowFinished), state["team_workflow_status"])
}

func TestServerSubscribeOverWebsocket(t *testing.T) {
	cfg, err := config.LoadConfigFromString(oneTaskYAML)
	require.NoError(t, err)
	provider := llm.NewFakeProvider()
	provider.ScriptResponse(`{"final_answer":"hi!"}`, llm.Usage{PromptTokens: 1, CompletionTokens: 1})
	mgr := component.NewManager(map[string]llm.Provider{"fake": provider}, nil, nil)
	tm, _, _, err := mgr.BuildTeam(cfg)
	require.NoError(t, err)
	defer tm.Close()

	srv := server.New(tm, server.Config{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/team/subscribe"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, tm.Start(map[string]string{"name": "loom"}))

	var entries []logstream.Entry
	deadline := time.Now().Add(2 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		if err := conn.ReadJSON(&entries); err != nil {
			break
		}
		if len(entries) > 0 {
			break
		}
	}
	require.NotEmpty(t, entries)
}
