package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DiscipleTools/agent-ai-sub003/pkg/config"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/inbox"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/pipeline"
	"github.com/DiscipleTools/agent-ai-sub003/pkg/platform"
	providertypes "github.com/DiscipleTools/agent-ai-sub003/pkg/provider/types"
)

type scriptedStore struct {
	inboxes map[string]*inbox.Inbox
}

func (s scriptedStore) LoadPipelineConfig(_ context.Context, inboxID string) (*inbox.Inbox, error) {
	in, ok := s.inboxes[inboxID]
	if !ok {
		return nil, inbox.ErrNotFound
	}

	return in, nil
}

type recordingPlatform struct {
	mu   sync.Mutex
	sent []string
}

func (p *recordingPlatform) FetchHistory(context.Context, string, string, platform.Credential) ([]platform.Turn, error) {
	return nil, nil
}

func (p *recordingPlatform) Send(_ context.Context, _ string, _ string, text string, _ platform.Credential) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, text)
	return nil
}

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, _ string, conv providertypes.Conversation, _ providertypes.Options) (string, error) {
	return "re: " + conv.Message, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestService(t *testing.T, inboxes map[string]*inbox.Inbox, health Pinger) (*Service, *recordingPlatform) {
	t.Helper()

	client := &recordingPlatform{}
	orchestrator := pipeline.New(scriptedStore{inboxes: inboxes}, client, echoGenerator{}, config.PipelineConfig{}, nil)

	svc, err := NewService(&config.Config{}, orchestrator, health, nil, nil)
	require.NoError(t, err)

	return svc, client
}

func testInboxes() map[string]*inbox.Inbox {
	return map[string]*inbox.Inbox{
		"inbox-1": {
			ID:        "inbox-1",
			AccountID: "acct-1",
			Active:    true,
			ResponseAgent: &inbox.ResponseAssignment{
				Agent: &inbox.Agent{ID: "resp", Name: "Responder", Type: "response"},
			},
			Agents: []inbox.Assignment{
				{Agent: &inbox.Agent{ID: "tagger", Name: "Tagger", Type: "classification"}, Active: true, Priority: 10},
			},
		},
		"inbox-off": {ID: "inbox-off", Active: false},
	}
}

func TestWebhookProcessesMessage(t *testing.T) {
	svc, client := newTestService(t, testInboxes(), nil)
	server := httptest.NewServer(svc.router())
	defer server.Close()

	payload, err := json.Marshal(map[string]string{
		"conversation_id": "conv-1",
		"content":         "where is my refund?",
	})
	require.NoError(t, err)

	response, err := http.Post(server.URL+"/webhooks/inbox-1", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer response.Body.Close()

	require.Equal(t, http.StatusOK, response.StatusCode)

	var result pipeline.PipelineResult
	require.NoError(t, json.NewDecoder(response.Body).Decode(&result))
	require.Equal(t, "inbox-1", result.InboxID)
	require.Equal(t, 2, result.TotalAgents)
	require.Equal(t, 2, result.SuccessfulAgents)
	require.True(t, result.Summary.ResponseGenerated)
	require.True(t, result.Summary.MessageSent)

	require.Equal(t, []string{"re: where is my refund?"}, client.sent)
}

func TestWebhookUnknownInbox(t *testing.T) {
	svc, _ := newTestService(t, testInboxes(), nil)
	server := httptest.NewServer(svc.router())
	defer server.Close()

	response, err := http.Post(server.URL+"/webhooks/missing", "application/json", bytes.NewReader([]byte(`{"content":"hi"}`)))
	require.NoError(t, err)
	defer response.Body.Close()

	require.Equal(t, http.StatusNotFound, response.StatusCode)
}

func TestWebhookInactiveInbox(t *testing.T) {
	svc, _ := newTestService(t, testInboxes(), nil)
	server := httptest.NewServer(svc.router())
	defer server.Close()

	response, err := http.Post(server.URL+"/webhooks/inbox-off", "application/json", bytes.NewReader([]byte(`{"content":"hi"}`)))
	require.NoError(t, err)
	defer response.Body.Close()

	require.Equal(t, http.StatusUnprocessableEntity, response.StatusCode)
}

func TestWebhookRejectsBadPayload(t *testing.T) {
	svc, _ := newTestService(t, testInboxes(), nil)
	server := httptest.NewServer(svc.router())
	defer server.Close()

	response, err := http.Post(server.URL+"/webhooks/inbox-1", "application/json", bytes.NewReader([]byte(`not json`)))
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, http.StatusBadRequest, response.StatusCode)

	response, err = http.Post(server.URL+"/webhooks/inbox-1", "application/json", bytes.NewReader([]byte(`{"content":"  "}`)))
	require.NoError(t, err)
	defer response.Body.Close()
	require.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestPlanEndpoint(t *testing.T) {
	svc, _ := newTestService(t, testInboxes(), nil)
	server := httptest.NewServer(svc.router())
	defer server.Close()

	response, err := http.Get(server.URL + "/inboxes/inbox-1/plan")
	require.NoError(t, err)
	defer response.Body.Close()

	require.Equal(t, http.StatusOK, response.StatusCode)

	var plan pipeline.ExecutionPlan
	require.NoError(t, json.NewDecoder(response.Body).Decode(&plan))
	require.Equal(t, "inbox-1", plan.InboxID)
	require.NotNil(t, plan.Response)
	require.Equal(t, "resp", plan.Response.AgentID)
	require.Len(t, plan.PreProcess, 1)
	require.Equal(t, "tagger", plan.PreProcess[0].AgentID)
}

func TestHealthEndpoint(t *testing.T) {
	svc, _ := newTestService(t, testInboxes(), nil)
	server := httptest.NewServer(svc.router())
	defer server.Close()

	response, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer response.Body.Close()

	require.Equal(t, http.StatusOK, response.StatusCode)
}

func TestReadyEndpointReportsStoreFailure(t *testing.T) {
	svc, _ := newTestService(t, testInboxes(), stubPinger{err: errors.New("connection refused")})
	server := httptest.NewServer(svc.router())
	defer server.Close()

	response, err := http.Get(server.URL + "/readyz")
	require.NoError(t, err)
	defer response.Body.Close()

	require.Equal(t, http.StatusServiceUnavailable, response.StatusCode)
}

func TestReadyEndpointOK(t *testing.T) {
	svc, _ := newTestService(t, testInboxes(), stubPinger{})
	server := httptest.NewServer(svc.router())
	defer server.Close()

	response, err := http.Get(server.URL + "/readyz")
	require.NoError(t, err)
	defer response.Body.Close()

	require.Equal(t, http.StatusOK, response.StatusCode)
}
