package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"codeagent/internal/adapter/llm"
	"codeagent/internal/tool"
)

// scriptedModel serves canned assistant replies in order and records
// every request for inspection.
type scriptedModel struct {
	t        *testing.T
	replies  []openai.ChatCompletionMessage
	requests []openai.ChatCompletionRequest
}

func (s *scriptedModel) handler(w http.ResponseWriter, r *http.Request) {
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.t.Errorf("decode request: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.requests = append(s.requests, req)

	if len(s.requests) > len(s.replies) {
		s.t.Errorf("unexpected request %d", len(s.requests))
		http.Error(w, "out of replies", http.StatusInternalServerError)
		return
	}
	resp := openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: s.replies[len(s.requests)-1]},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func newScriptedAgent(t *testing.T, script *scriptedModel, registry *tool.Registry, maxSteps int) *Agent {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(script.handler))
	t.Cleanup(srv.Close)

	t.Setenv("AGENT_TEST_KEY", "test-key")
	chat, err := llm.NewOpenAICompatibleChat("AGENT_TEST_KEY", "test-model", srv.URL, 0)
	if err != nil {
		t.Fatal(err)
	}
	return New(chat, registry, Options{MaxSteps: maxSteps})
}

func toolCallReply(id, name, args string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{
			{
				ID:   id,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      name,
					Arguments: args,
				},
			},
		},
	}
}

func textReply(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: content,
	}
}

func lookupTool(calls *int) tool.Tool {
	return tool.Tool{
		Name:        "lookup",
		Description: "looks something up",
		Handler: func(context.Context, json.RawMessage) (tool.Result, error) {
			*calls++
			return tool.OK("found it"), nil
		},
	}
}

func TestSend_ExecutesToolCallsThenAnswers(t *testing.T) {
	script := &scriptedModel{t: t, replies: []openai.ChatCompletionMessage{
		toolCallReply("call_1", "lookup", `{"q":"handler"}`),
		textReply("The handler lives in server.go."),
	}}

	calls := 0
	registry := tool.NewRegistry()
	registry.MustRegister(lookupTool(&calls))

	a := newScriptedAgent(t, script, registry, 4)
	answer, err := a.Send(context.Background(), "where is the handler?")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "The handler lives in server.go." {
		t.Errorf("answer = %q", answer)
	}
	if calls != 1 {
		t.Errorf("tool executed %d times, want 1", calls)
	}

	if len(script.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(script.requests))
	}

	first := script.requests[0]
	if len(first.Tools) != 1 || first.Tools[0].Function.Name != "lookup" {
		t.Errorf("first request tools = %+v", first.Tools)
	}
	if first.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Error("history must start with the system prompt")
	}
	if got := first.Messages[len(first.Messages)-1]; got.Role != openai.ChatMessageRoleUser || got.Content != "where is the handler?" {
		t.Errorf("last message of first request = %+v", got)
	}

	second := script.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != openai.ChatMessageRoleTool || last.ToolCallID != "call_1" {
		t.Errorf("tool result message = %+v", last)
	}
	if !strings.Contains(last.Content, `"status":"ok"`) {
		t.Errorf("tool result content = %q", last.Content)
	}
}

func TestSend_BudgetForcesFinalAnswer(t *testing.T) {
	script := &scriptedModel{t: t, replies: []openai.ChatCompletionMessage{
		toolCallReply("call_1", "lookup", `{}`),
		toolCallReply("call_2", "lookup", `{}`),
		textReply("Best guess given what I saw."),
	}}

	calls := 0
	registry := tool.NewRegistry()
	registry.MustRegister(lookupTool(&calls))

	a := newScriptedAgent(t, script, registry, 2)
	answer, err := a.Send(context.Background(), "dig deep")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "Best guess given what I saw." {
		t.Errorf("answer = %q", answer)
	}
	if len(script.requests) != 3 {
		t.Fatalf("requests = %d, want 3", len(script.requests))
	}
	if len(script.requests[2].Tools) != 0 {
		t.Error("final forced request must not advertise tools")
	}
}

func TestSend_UnknownToolReportedToModel(t *testing.T) {
	script := &scriptedModel{t: t, replies: []openai.ChatCompletionMessage{
		toolCallReply("call_1", "no_such_tool", `{}`),
		textReply("Understood."),
	}}

	a := newScriptedAgent(t, script, tool.NewRegistry(), 4)
	if _, err := a.Send(context.Background(), "try something"); err != nil {
		t.Fatal(err)
	}

	second := script.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if !strings.Contains(last.Content, "unknown_tool") {
		t.Errorf("model was not told about the unknown tool: %q", last.Content)
	}
}

func TestReset(t *testing.T) {
	script := &scriptedModel{t: t, replies: []openai.ChatCompletionMessage{
		textReply("hi"),
	}}
	a := newScriptedAgent(t, script, tool.NewRegistry(), 4)

	if _, err := a.Send(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if len(a.History()) != 3 {
		t.Fatalf("history = %d, want 3", len(a.History()))
	}

	a.Reset()
	if len(a.History()) != 1 {
		t.Errorf("history after reset = %d, want 1", len(a.History()))
	}
	if a.History()[0].Role != openai.ChatMessageRoleSystem {
		t.Error("reset must keep the system prompt")
	}
}
