package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jaxonc/AIE7-Certification-Challenge/models"

	"github.com/anthropics/anthropic-sdk-go"
)

// scriptedReasoner plays back a fixed sequence of decisions and records the
// history it was shown at each step.
type scriptedReasoner struct {
	mu        sync.Mutex
	steps     []*Decision
	errs      []error
	step      int
	histories [][]models.AgentMessage
}

func (s *scriptedReasoner) next(history []models.AgentMessage) (*Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]models.AgentMessage, len(history))
	copy(snapshot, history)
	s.histories = append(s.histories, snapshot)

	if s.step < len(s.errs) && s.errs[s.step] != nil {
		err := s.errs[s.step]
		s.step++
		return nil, err
	}
	if s.step >= len(s.steps) {
		return nil, errors.New("scripted reasoner ran out of steps")
	}
	decision := s.steps[s.step]
	s.step++
	return decision, nil
}

func (s *scriptedReasoner) Decide(ctx context.Context, history []models.AgentMessage, tools []anthropic.ToolUnionParam) (*Decision, error) {
	return s.next(history)
}

func (s *scriptedReasoner) DecideStream(ctx context.Context, history []models.AgentMessage, tools []anthropic.ToolUnionParam, onDelta func(text string) error) (*Decision, error) {
	decision, err := s.next(history)
	if err != nil {
		return nil, err
	}
	// Stream the text a word at a time, the way a model would chunk it.
	for _, word := range strings.SplitAfter(decision.Content, " ") {
		if word == "" {
			continue
		}
		if err := onDelta(word); err != nil {
			return nil, err
		}
	}
	return decision, nil
}

func userMessage(content string) []models.AgentMessage {
	return []models.AgentMessage{{Role: "user", Content: content}}
}

func newTestService(t *testing.T, reasoner Reasoner, cfg Config, tools ...AgentTool) *Service {
	t.Helper()
	registry, err := NewRegistry(tools...)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	return NewService(reasoner, registry, cfg)
}

func TestProcessMessageDirectAnswer(t *testing.T) {
	recorder := &callRecorder{}
	reasoner := &scriptedReasoner{
		steps: []*Decision{{Content: "The capital of France is Paris."}},
	}
	service := newTestService(t, reasoner, Config{},
		&fakeTool{name: "usda_food_lookup", recorder: recorder},
	)

	response, err := service.ProcessMessage(context.Background(), userMessage("What is the capital of France?"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	if response.Partial {
		t.Error("Expected a complete answer")
	}
	if response.Response != "The capital of France is Paris." {
		t.Errorf("Unexpected response: %q", response.Response)
	}
	if len(recorder.names()) != 0 {
		t.Errorf("Expected no tool calls, got %v", recorder.names())
	}
	last := response.Messages[len(response.Messages)-1]
	if last.Role != "assistant" {
		t.Errorf("Expected history to end with an assistant message, got %s", last.Role)
	}
}

func TestProcessMessageValidatorOnly(t *testing.T) {
	recorder := &callRecorder{}
	reasoner := &scriptedReasoner{
		steps: []*Decision{
			{ToolCalls: []models.ToolCall{{
				ID:        "call-1",
				Name:      "upc_validator",
				Arguments: map[string]any{"upc": "123456789012"},
			}}},
			{Content: "Yes, 123456789012 is a valid UPC-A code."},
		},
	}
	service := newTestService(t, reasoner, Config{},
		NewUPCValidatorTool(),
		&fakeTool{name: "usda_food_lookup", recorder: recorder},
		&fakeTool{name: "tavily_web_search", recorder: recorder},
	)

	response, err := service.ProcessMessage(context.Background(), userMessage("Validate UPC code 123456789012"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	if len(recorder.names()) != 0 {
		t.Errorf("Expected no network tools to run for a validation question, got %v", recorder.names())
	}

	// History: user, assistant(tool call), tool results, assistant(answer).
	if len(response.Messages) != 4 {
		t.Fatalf("Expected 4 messages in history, got %d", len(response.Messages))
	}
	toolMsg := response.Messages[2]
	if toolMsg.Role != "tool" || len(toolMsg.ToolResults) != 1 {
		t.Fatalf("Expected one tool result message, got %+v", toolMsg)
	}
	result := toolMsg.ToolResults[0]
	if result.Status != models.ToolStatusOK {
		t.Errorf("Expected ok result, got %s (%s)", result.Status, result.ErrorDetail)
	}
	if !strings.Contains(result.Content, `"is_valid":true`) {
		t.Errorf("Expected validator to report the code valid, got %s", result.Content)
	}
	if response.Response != "Yes, 123456789012 is a valid UPC-A code." {
		t.Errorf("Unexpected response: %q", response.Response)
	}
}

func TestProcessMessageConcurrentToolCalls(t *testing.T) {
	recorder := &callRecorder{}
	reasoner := &scriptedReasoner{
		steps: []*Decision{
			{ToolCalls: []models.ToolCall{
				{ID: "call-1", Name: "slow_tool", Arguments: map[string]any{}},
				{ID: "call-2", Name: "fast_tool", Arguments: map[string]any{}},
			}},
			{Content: "Done."},
		},
	}
	service := newTestService(t, reasoner, Config{},
		&fakeTool{name: "slow_tool", delay: 80 * time.Millisecond, outcome: models.OKOutcome("slow result"), recorder: recorder},
		&fakeTool{name: "fast_tool", outcome: models.OKOutcome("fast result"), recorder: recorder},
	)

	response, err := service.ProcessMessage(context.Background(), userMessage("run both"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	// The fast tool finishes first, but results stay in invocation order.
	completed := recorder.names()
	if len(completed) != 2 || completed[0] != "fast_tool" {
		t.Errorf("Expected fast_tool to complete first, got %v", completed)
	}

	toolMsg := response.Messages[2]
	if len(toolMsg.ToolResults) != 2 {
		t.Fatalf("Expected 2 tool results, got %d", len(toolMsg.ToolResults))
	}
	if toolMsg.ToolResults[0].Name != "slow_tool" || toolMsg.ToolResults[1].Name != "fast_tool" {
		t.Errorf("Expected results in invocation order, got %s then %s",
			toolMsg.ToolResults[0].Name, toolMsg.ToolResults[1].Name)
	}

	// Both results were visible to the reasoner before the final decision.
	finalHistory := reasoner.histories[1]
	lastSeen := finalHistory[len(finalHistory)-1]
	if lastSeen.Role != "tool" || len(lastSeen.ToolResults) != 2 {
		t.Errorf("Expected the final decision to see both tool results, got %+v", lastSeen)
	}
}

func TestProcessMessageToolTimeout(t *testing.T) {
	reasoner := &scriptedReasoner{
		steps: []*Decision{
			{ToolCalls: []models.ToolCall{{ID: "call-1", Name: "stuck_tool", Arguments: map[string]any{}}}},
			{Content: "The lookup timed out, but here is what I know."},
		},
	}
	service := newTestService(t, reasoner, Config{ToolTimeout: 20 * time.Millisecond},
		&fakeTool{name: "stuck_tool", delay: time.Second},
	)

	response, err := service.ProcessMessage(context.Background(), userMessage("look it up"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	result := response.Messages[2].ToolResults[0]
	if result.Status != models.ToolStatusError {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if result.ErrorDetail != "timeout" {
		t.Errorf("Expected timeout error detail, got %q", result.ErrorDetail)
	}
	if response.Partial {
		t.Error("Expected the turn to recover and finish")
	}
	if response.Response == "" {
		t.Error("Expected a final answer despite the timeout")
	}
}

func TestProcessMessageBudgetExhausted(t *testing.T) {
	loopCall := &Decision{
		Content:   "Checking the database.",
		ToolCalls: []models.ToolCall{{ID: "call", Name: "lookup", Arguments: map[string]any{}}},
	}
	reasoner := &scriptedReasoner{
		steps: []*Decision{loopCall, loopCall, loopCall},
	}
	service := newTestService(t, reasoner, Config{MaxIterations: 2},
		&fakeTool{name: "lookup", outcome: models.OKOutcome("data")},
	)

	response, err := service.ProcessMessage(context.Background(), userMessage("keep looking"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	if !response.Partial {
		t.Error("Expected a partial answer when the budget runs out")
	}
	if response.Response == "" {
		t.Error("Expected best-effort text, got empty response")
	}
	if !strings.Contains(response.Response, "Checking the database.") {
		t.Errorf("Expected the last assistant text to be carried into the partial answer, got %q", response.Response)
	}
}

func TestProcessMessageUnknownTool(t *testing.T) {
	reasoner := &scriptedReasoner{
		steps: []*Decision{
			{ToolCalls: []models.ToolCall{{ID: "call-1", Name: "nonexistent_tool", Arguments: map[string]any{}}}},
			{Content: "I could not use that tool."},
		},
	}
	service := newTestService(t, reasoner, Config{},
		&fakeTool{name: "lookup"},
	)

	response, err := service.ProcessMessage(context.Background(), userMessage("do something"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	result := response.Messages[2].ToolResults[0]
	if result.Status != models.ToolStatusError {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.ErrorDetail, "unknown tool") {
		t.Errorf("Expected unknown tool detail, got %q", result.ErrorDetail)
	}
	if response.Partial {
		t.Error("Expected the turn to recover and finish")
	}
}

func TestProcessMessagePanickingTool(t *testing.T) {
	reasoner := &scriptedReasoner{
		steps: []*Decision{
			{ToolCalls: []models.ToolCall{{ID: "call-1", Name: "broken_tool", Arguments: map[string]any{}}}},
			{Content: "Something went wrong with the lookup."},
		},
	}
	service := newTestService(t, reasoner, Config{},
		&fakeTool{name: "broken_tool", panicMsg: "nil dereference"},
	)

	response, err := service.ProcessMessage(context.Background(), userMessage("do something"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	result := response.Messages[2].ToolResults[0]
	if result.Status != models.ToolStatusError {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.ErrorDetail, "panicked") {
		t.Errorf("Expected panic detail, got %q", result.ErrorDetail)
	}
}

func TestProcessMessageNotFoundFallback(t *testing.T) {
	recorder := &callRecorder{}
	reasoner := &scriptedReasoner{
		steps: []*Decision{
			{ToolCalls: []models.ToolCall{{ID: "call-1", Name: "usda_food_lookup", Arguments: map[string]any{"upc": "028400433303"}}}},
			{ToolCalls: []models.ToolCall{{ID: "call-2", Name: "tavily_web_search", Arguments: map[string]any{"query": "UPC 028400433303"}}}},
			{Content: "I could not find it in the USDA database, but a web search says it is a bag of chips."},
		},
	}
	service := newTestService(t, reasoner, Config{},
		&fakeTool{name: "usda_food_lookup", outcome: models.NotFoundOutcome(`{"found": false}`), recorder: recorder},
		&fakeTool{name: "tavily_web_search", outcome: models.OKOutcome(`{"results": []}`), recorder: recorder},
	)

	response, err := service.ProcessMessage(context.Background(), userMessage("What is UPC 028400433303?"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	want := []string{"usda_food_lookup", "tavily_web_search"}
	got := recorder.names()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Expected tools %v, got %v", want, got)
	}
	if response.Messages[2].ToolResults[0].Status != models.ToolStatusNotFound {
		t.Errorf("Expected the lookup to report not_found, got %s", response.Messages[2].ToolResults[0].Status)
	}
	if !strings.Contains(response.Response, "web search") {
		t.Errorf("Expected the answer to attribute the web search, got %q", response.Response)
	}
}

func TestProcessMessageReasonerFailureMidTurn(t *testing.T) {
	reasoner := &scriptedReasoner{
		steps: []*Decision{
			{Content: "The product is a snack bar.", ToolCalls: []models.ToolCall{{ID: "call-1", Name: "lookup", Arguments: map[string]any{}}}},
		},
		errs: []error{nil, errors.New("upstream overloaded")},
	}
	service := newTestService(t, reasoner, Config{},
		&fakeTool{name: "lookup", outcome: models.OKOutcome("data")},
	)

	response, err := service.ProcessMessage(context.Background(), userMessage("tell me about it"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	if !response.Partial {
		t.Error("Expected a partial answer after a mid-turn reasoner failure")
	}
	if !strings.Contains(response.Response, "The product is a snack bar.") {
		t.Errorf("Expected the earlier text to be preserved, got %q", response.Response)
	}
}

func TestProcessMessageReasonerFailureFirstStep(t *testing.T) {
	reasoner := &scriptedReasoner{
		errs: []error{errors.New("upstream overloaded")},
	}
	service := newTestService(t, reasoner, Config{}, &fakeTool{name: "lookup"})

	response, err := service.ProcessMessage(context.Background(), userMessage("hello"))
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	if !response.Partial {
		t.Error("Expected a partial answer when the first decision fails")
	}
	if response.Response == "" {
		t.Error("Expected fallback text, got an empty response")
	}
	last := response.Messages[len(response.Messages)-1]
	if last.Role != "assistant" || last.Content != response.Response {
		t.Errorf("Expected the fallback text appended to the history, got %+v", last)
	}
}

func TestProcessMessageRejectsBadHistory(t *testing.T) {
	service := newTestService(t, &scriptedReasoner{}, Config{}, &fakeTool{name: "lookup"})

	if _, err := service.ProcessMessage(context.Background(), nil); err == nil {
		t.Error("Expected error for empty history, got nil")
	}

	history := []models.AgentMessage{{Role: "assistant", Content: "hi"}}
	if _, err := service.ProcessMessage(context.Background(), history); err == nil {
		t.Error("Expected error when history does not end with a user message, got nil")
	}
}

func TestProcessMessageStreamIncludesIntermediateText(t *testing.T) {
	reasoner := &scriptedReasoner{
		steps: []*Decision{
			{
				Content:   "Let me check the database. ",
				ToolCalls: []models.ToolCall{{ID: "call-1", Name: "lookup", Arguments: map[string]any{}}},
			},
			{Content: "It is a snack bar."},
		},
	}
	service := newTestService(t, reasoner, Config{},
		&fakeTool{name: "lookup", outcome: models.OKOutcome("data")},
	)

	var streamed strings.Builder
	response, err := service.ProcessMessageStream(context.Background(), userMessage("what is it"), func(text string) error {
		streamed.WriteString(text)
		return nil
	})
	if err != nil {
		t.Fatalf("ProcessMessageStream failed: %v", err)
	}

	// Commentary emitted alongside tool calls streams too, so the chunk
	// concatenation carries more than the final Response text.
	if !strings.Contains(streamed.String(), "Let me check the database. ") {
		t.Errorf("Expected intermediate text in the stream, got %q", streamed.String())
	}
	if !strings.Contains(streamed.String(), "It is a snack bar.") {
		t.Errorf("Expected final text in the stream, got %q", streamed.String())
	}
	if response.Response != "It is a snack bar." {
		t.Errorf("Unexpected final response: %q", response.Response)
	}
}

func TestProcessMessageStreamBudgetExhausted(t *testing.T) {
	loopCall := &Decision{
		ToolCalls: []models.ToolCall{{ID: "call", Name: "lookup", Arguments: map[string]any{}}},
	}
	reasoner := &scriptedReasoner{
		steps: []*Decision{loopCall, loopCall},
	}
	service := newTestService(t, reasoner, Config{MaxIterations: 2},
		&fakeTool{name: "lookup", outcome: models.OKOutcome("data")},
	)

	var streamed strings.Builder
	response, err := service.ProcessMessageStream(context.Background(), userMessage("keep looking"), func(text string) error {
		streamed.WriteString(text)
		return nil
	})
	if err != nil {
		t.Fatalf("ProcessMessageStream failed: %v", err)
	}

	if !response.Partial {
		t.Error("Expected a partial answer when the budget runs out")
	}
	// The decisions were tool-only, so the partial text must still reach the
	// stream rather than leaving the client with nothing before the close.
	if streamed.Len() == 0 {
		t.Fatal("Expected the partial answer to be streamed, got no chunks")
	}
	if !strings.Contains(streamed.String(), response.Response) {
		t.Errorf("Expected streamed text to carry the partial answer %q, got %q", response.Response, streamed.String())
	}
}

func TestProcessMessageStreamReasonerFailure(t *testing.T) {
	reasoner := &scriptedReasoner{
		errs: []error{errors.New("upstream overloaded")},
	}
	service := newTestService(t, reasoner, Config{}, &fakeTool{name: "lookup"})

	var streamed strings.Builder
	response, err := service.ProcessMessageStream(context.Background(), userMessage("hello"), func(text string) error {
		streamed.WriteString(text)
		return nil
	})
	if err != nil {
		t.Fatalf("ProcessMessageStream failed: %v", err)
	}

	if !response.Partial {
		t.Error("Expected a partial answer")
	}
	if streamed.String() != response.Response {
		t.Errorf("Expected the fallback text %q to be streamed, got %q", response.Response, streamed.String())
	}
}

func TestProcessMessageStream(t *testing.T) {
	reasoner := &scriptedReasoner{
		steps: []*Decision{
			{ToolCalls: []models.ToolCall{{ID: "call-1", Name: "lookup", Arguments: map[string]any{}}}},
			{Content: "It is a bag of potato chips."},
		},
	}
	service := newTestService(t, reasoner, Config{},
		&fakeTool{name: "lookup", outcome: models.OKOutcome("data")},
	)

	var chunks []string
	response, err := service.ProcessMessageStream(context.Background(), userMessage("what is it"), func(text string) error {
		chunks = append(chunks, text)
		return nil
	})
	if err != nil {
		t.Fatalf("ProcessMessageStream failed: %v", err)
	}

	if strings.Join(chunks, "") != "It is a bag of potato chips." {
		t.Errorf("Expected streamed chunks to reassemble the answer, got %q", strings.Join(chunks, ""))
	}
	if response.Response != "It is a bag of potato chips." {
		t.Errorf("Unexpected final response: %q", response.Response)
	}
	if response.Partial {
		t.Error("Expected a complete answer")
	}
}
