package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/voxcrm/server/internal/agent/cache"
	"github.com/voxcrm/server/internal/agent/model"
	"github.com/voxcrm/server/internal/agent/prompts"
	"github.com/voxcrm/server/internal/agent/session"
	"github.com/voxcrm/server/internal/agent/tools"
	"github.com/voxcrm/server/internal/crm"
	errx "github.com/voxcrm/server/internal/core/error"
)

// scriptedModel replays a fixed sequence of assistant messages and records
// every input transcript it was called with.
type scriptedModel struct {
	mu     sync.Mutex
	script []*schema.Message
	inputs [][]*schema.Message
}

func (m *scriptedModel) Generate(_ context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, in)
	if len(m.inputs) > len(m.script) {
		return nil, fmt.Errorf("no scripted response for call %d", len(m.inputs))
	}
	return m.script[len(m.inputs)-1], nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (m *scriptedModel) WithTools([]*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return m, nil
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

func (m *scriptedModel) input(i int) []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inputs[i]
}

// nullAPI satisfies crm.DataAPI for tests that only exercise UI tools or
// never reach a data tool.
type nullAPI struct{ err error }

func (n *nullAPI) Read(context.Context, *crm.AuthContext, string, crm.Filter, int) ([]crm.Record, error) {
	if n.err != nil {
		return nil, n.err
	}
	return []crm.Record{{"id": "c1", "name": "Acme"}}, nil
}

func (n *nullAPI) Create(context.Context, *crm.AuthContext, string, crm.Payload) (crm.Record, error) {
	if n.err != nil {
		return nil, n.err
	}
	return crm.Record{"id": "new"}, nil
}

func (n *nullAPI) Update(context.Context, *crm.AuthContext, string, string, crm.Payload) (crm.Record, error) {
	if n.err != nil {
		return nil, n.err
	}
	return crm.Record{"id": "upd"}, nil
}

func (n *nullAPI) Delete(context.Context, *crm.AuthContext, string, string) error { return n.err }

func toolCall(id, name, args string) schema.ToolCall {
	return schema.ToolCall{
		ID:   id,
		Type: "function",
		Function: schema.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

type harness struct {
	agent    *Agent
	model    *scriptedModel
	sessions *session.MemoryStore
	cache    *cache.MemoryCache
}

func newHarness(t *testing.T, script []*schema.Message, opts ...func(*Config)) *harness {
	t.Helper()
	m := &scriptedModel{script: script}
	sessions := session.NewMemoryStore()
	responses := cache.NewMemoryCache(time.Hour)
	cfg := Config{
		Agent: model.AgentConfig{
			MaxRounds:      5,
			RequestTimeout: 10 * time.Second,
			MaxQuestionLen: 200,
		},
		ModelName:       "gemini-2.5-flash",
		ChatModel:       m,
		Registry:        tools.NewRegistry(&nullAPI{}),
		Sessions:        sessions,
		Cache:           responses,
		Prompts:         prompts.NewSelector(model.PromptConfig{BusinessName: "VoxCRM", DefaultLanguage: "en"}),
		DefaultLanguage: "en",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &harness{agent: a, model: m, sessions: sessions, cache: responses}
}

func auth(userID string) *crm.AuthContext {
	return &crm.AuthContext{Cookie: "ck", User: crm.Identity{UserID: userID, Name: "Dana"}}
}

func req(question string) model.ChatRequest {
	return model.ChatRequest{SessionID: "s1", Question: question, PagePath: "/contacts"}
}

func TestChatPlainAnswer(t *testing.T) {
	t.Parallel()
	h := newHarness(t, []*schema.Message{schema.AssistantMessage("You have 3 open deals.", nil)})

	res, err := h.agent.Chat(context.Background(), auth("u1"), req("how many open deals?"))
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Response != "You have 3 open deals." {
		t.Errorf("response = %q", res.Response)
	}
	if res.UsedTools || res.Cached {
		t.Errorf("UsedTools=%v Cached=%v, want false/false", res.UsedTools, res.Cached)
	}
	if len(res.ClientActions) != 0 {
		t.Errorf("unexpected client actions: %v", res.ClientActions)
	}

	// The user turn and the answer are both in the session.
	n, err := h.sessions.Count(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("session message count = %d, want 2", n)
	}
}

func TestChatToolFreeAnswerIsCached(t *testing.T) {
	t.Parallel()
	h := newHarness(t, []*schema.Message{schema.AssistantMessage("Hi, how can I help?", nil)})

	if _, err := h.agent.Chat(context.Background(), auth("u1"), req("hello")); err != nil {
		t.Fatalf("first Chat: %v", err)
	}
	res, err := h.agent.Chat(context.Background(), auth("u1"), req("hello"))
	if err != nil {
		t.Fatalf("second Chat: %v", err)
	}
	if !res.Cached {
		t.Fatal("second identical turn was not served from cache")
	}
	if res.Response != "Hi, how can I help?" {
		t.Errorf("cached response = %q", res.Response)
	}
	if got := h.model.calls(); got != 1 {
		t.Errorf("model calls = %d, want 1 (cache hit must not call the model)", got)
	}
	// Cache hits still extend the transcript.
	n, _ := h.sessions.Count(context.Background(), "s1")
	if n != 4 {
		t.Errorf("session message count = %d, want 4", n)
	}
}

func TestChatToolTurnNotCached(t *testing.T) {
	t.Parallel()
	script := []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{toolCall("c1", "navigate", `{"target":"pipeline"}`)}),
		schema.AssistantMessage("Opening the pipeline now.", nil),
		schema.AssistantMessage("", []schema.ToolCall{toolCall("c2", "navigate", `{"target":"pipeline"}`)}),
		schema.AssistantMessage("Opening the pipeline now.", nil),
	}
	h := newHarness(t, script)

	res, err := h.agent.Chat(context.Background(), auth("u1"), req("show me the pipeline"))
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !res.UsedTools {
		t.Fatal("UsedTools = false after a tool round")
	}
	if len(res.ClientActions) != 1 || !res.ClientActions[0].IsNavigate() || res.ClientActions[0].Route != "/pipeline" {
		t.Fatalf("client actions = %+v, want one navigate to /pipeline", res.ClientActions)
	}

	// The identical follow-up must hit the model again.
	res2, err := h.agent.Chat(context.Background(), auth("u1"), req("show me the pipeline"))
	if err != nil {
		t.Fatalf("second Chat: %v", err)
	}
	if res2.Cached {
		t.Error("turn that used tools was served from cache")
	}
	if got := h.model.calls(); got != 4 {
		t.Errorf("model calls = %d, want 4", got)
	}
}

func TestChatRoundBudgetForcesTextAnswer(t *testing.T) {
	t.Parallel()
	// Two rounds of budget, the model keeps asking for tools, then the
	// forced wrap-up call answers in text.
	script := []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{toolCall("", "search_contacts", `{"query":"acme"}`)}),
		schema.AssistantMessage("", []schema.ToolCall{toolCall("", "search_contacts", `{"query":"acme corp"}`)}),
		schema.AssistantMessage("I found Acme but could not finish everything you asked.", nil),
	}
	h := newHarness(t, script, func(c *Config) { c.Agent.MaxRounds = 2 })

	res, err := h.agent.Chat(context.Background(), auth("u1"), req("find acme and log a call"))
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Response == "" {
		t.Fatal("budget exhaustion produced an empty response")
	}
	if got := h.model.calls(); got != 3 {
		t.Fatalf("model calls = %d, want 3 (2 rounds + wrap-up)", got)
	}

	// The wrap-up call sees the notice as the last transcript entry.
	last := h.model.input(2)
	notice := last[len(last)-1]
	if notice.Role != schema.System || !strings.Contains(notice.Content, "Tool call limit reached") {
		t.Errorf("wrap-up transcript ends with %v %q, want the wrap-up notice", notice.Role, notice.Content)
	}
}

func TestChatToolErrorReturnedInBand(t *testing.T) {
	t.Parallel()
	script := []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{toolCall("c1", "update_deal_stage", `{"deal_id":"d1","stage":"bogus"}`)}),
		schema.AssistantMessage("That stage name is not valid.", nil),
	}
	h := newHarness(t, script)

	res, err := h.agent.Chat(context.Background(), auth("u1"), req("move deal d1 to bogus"))
	if err != nil {
		t.Fatalf("Chat: %v (tool errors must not fail the turn)", err)
	}
	if res.Response != "That stage name is not valid." {
		t.Errorf("response = %q", res.Response)
	}

	// The second model call received the error as a tool message.
	in := h.model.input(1)
	tm := in[len(in)-1]
	if tm.Role != schema.Tool || !strings.Contains(tm.Content, "error") {
		t.Errorf("last message = %v %q, want tool message carrying the error", tm.Role, tm.Content)
	}
}

func TestChatMissingToolCallIDsSynthesized(t *testing.T) {
	t.Parallel()
	script := []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{toolCall("", "navigate", `{"target":"contacts"}`)}),
		schema.AssistantMessage("Here are your contacts.", nil),
	}
	h := newHarness(t, script)

	if _, err := h.agent.Chat(context.Background(), auth("u1"), req("open contacts")); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	in := h.model.input(1)
	tm := in[len(in)-1]
	if tm.Role != schema.Tool || tm.ToolCallID == "" {
		t.Errorf("tool message ID = %q, want a synthesized non-empty ID", tm.ToolCallID)
	}
}

func TestChatValidation(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		req  model.ChatRequest
	}{
		{"empty question", model.ChatRequest{SessionID: "s1", Question: "   "}},
		{"missing session", model.ChatRequest{Question: "hi"}},
		{"oversized question", model.ChatRequest{SessionID: "s1", Question: strings.Repeat("x", 201)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, nil)
			_, err := h.agent.Chat(context.Background(), auth("u1"), tc.req)
			if errx.StatusOf(err) != 400 {
				t.Errorf("status = %d, want 400", errx.StatusOf(err))
			}
			if h.model.calls() != 0 {
				t.Error("invalid request reached the model")
			}
		})
	}
}

func TestChatForeignSessionRejected(t *testing.T) {
	t.Parallel()
	h := newHarness(t, []*schema.Message{schema.AssistantMessage("ok", nil)})

	// u1 claims the session, then u2 tries to read it.
	if err := h.sessions.Append(context.Background(), "s1", "u1", schema.UserMessage("mine")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	_, err := h.agent.Chat(context.Background(), auth("u2"), req("what did I say?"))
	if errx.StatusOf(err) != 401 {
		t.Errorf("status = %d, want 401", errx.StatusOf(err))
	}
	if h.model.calls() != 0 {
		t.Error("foreign session request reached the model")
	}
}

func TestChatScrubsActionMarkers(t *testing.T) {
	t.Parallel()
	h := newHarness(t, []*schema.Message{
		schema.AssistantMessage("Done. [ACTION:navigate:/pipeline] Anything else?", nil),
	})

	res, err := h.agent.Chat(context.Background(), auth("u1"), req("go to pipeline"))
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if strings.Contains(res.Response, "[ACTION:") {
		t.Errorf("response still contains action marker: %q", res.Response)
	}
}

func TestChatEmptyAnswerFallsBack(t *testing.T) {
	t.Parallel()
	h := newHarness(t, []*schema.Message{schema.AssistantMessage("", nil)})

	r := req("hola")
	r.Language = "es"
	res, err := h.agent.Chat(context.Background(), auth("u1"), r)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Response == "" {
		t.Fatal("empty model answer passed through")
	}
	if !strings.Contains(res.Response, "Lo siento") {
		t.Errorf("fallback not localized: %q", res.Response)
	}
}

func TestChatModelFailureIsUpstreamError(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil) // empty script, first Generate fails

	_, err := h.agent.Chat(context.Background(), auth("u1"), req("hello"))
	if err == nil {
		t.Fatal("expected error")
	}
	if errx.StatusOf(err) != 500 {
		t.Errorf("status = %d, want 500", errx.StatusOf(err))
	}
}

func TestChatToolTurnPersistsFullExchange(t *testing.T) {
	t.Parallel()
	script := []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{toolCall("c1", "navigate", `{"target":"deals"}`)}),
		schema.AssistantMessage("Taking you to deals.", nil),
	}
	h := newHarness(t, script)

	if _, err := h.agent.Chat(context.Background(), auth("u1"), req("open deals")); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	// user + assistant tool call + tool result + final answer.
	n, err := h.sessions.Count(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 4 {
		t.Errorf("session message count = %d, want 4", n)
	}
}
