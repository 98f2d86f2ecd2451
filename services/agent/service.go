package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jaxonc/AIE7-Certification-Challenge/models"
)

const (
	defaultMaxIterations = 8
	defaultToolTimeout   = 20 * time.Second
	defaultTurnTimeout   = 2 * time.Minute
)

// Config bounds a single conversational turn. Zero values fall back to
// the package defaults.
type Config struct {
	MaxIterations int
	ToolTimeout   time.Duration
	TurnTimeout   time.Duration
}

// Service runs the decide/execute loop: the reasoner picks tools, the
// service runs them concurrently, and the results feed the next decision
// until the reasoner answers in plain text or the budget runs out.
type Service struct {
	reasoner      Reasoner
	registry      *Registry
	maxIterations int
	toolTimeout   time.Duration
	turnTimeout   time.Duration
}

func NewService(reasoner Reasoner, registry *Registry, cfg Config) *Service {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = defaultToolTimeout
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = defaultTurnTimeout
	}

	return &Service{
		reasoner:      reasoner,
		registry:      registry,
		maxIterations: cfg.MaxIterations,
		toolTimeout:   cfg.ToolTimeout,
		turnTimeout:   cfg.TurnTimeout,
	}
}

// Capabilities reports the tools the service can execute this turn.
func (s *Service) Capabilities() []models.Capability {
	return s.registry.Capabilities()
}

// ProcessMessage runs one full turn over the given history and returns the
// final answer. The history must end with a user message. An exhausted
// iteration budget or a reasoner failure at any step yields a best-effort
// partial answer rather than an error; only a malformed history is an error.
func (s *Service) ProcessMessage(ctx context.Context, messages []models.AgentMessage) (*models.AgentResponse, error) {
	return s.run(ctx, messages, func(ctx context.Context, history []models.AgentMessage) (*Decision, error) {
		return s.reasoner.Decide(ctx, history, s.registry.ToolSpecs())
	}, nil)
}

// ProcessMessageStream is ProcessMessage with text forwarded to onDelta as
// it is generated. Every decision step streams its text, so commentary the
// model emits alongside tool calls reaches the caller too, and an aborted
// turn streams its best-effort partial answer before returning.
func (s *Service) ProcessMessageStream(ctx context.Context, messages []models.AgentMessage, onDelta func(text string) error) (*models.AgentResponse, error) {
	return s.run(ctx, messages, func(ctx context.Context, history []models.AgentMessage) (*Decision, error) {
		return s.reasoner.DecideStream(ctx, history, s.registry.ToolSpecs(), onDelta)
	}, onDelta)
}

func (s *Service) run(ctx context.Context, messages []models.AgentMessage, decide func(ctx context.Context, history []models.AgentMessage) (*Decision, error), onDelta func(text string) error) (*models.AgentResponse, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("conversation history is empty")
	}
	if messages[len(messages)-1].Role != "user" {
		return nil, fmt.Errorf("conversation history must end with a user message")
	}

	ctx, cancel := context.WithTimeout(ctx, s.turnTimeout)
	defer cancel()

	history := make([]models.AgentMessage, len(messages))
	copy(history, messages)

	lastContent := ""
	for iteration := 0; iteration < s.maxIterations; iteration++ {
		decision, err := decide(ctx, history)
		if err != nil {
			// A failed decision step never reaches the caller as an error;
			// the turn degrades to whatever text exists so far.
			log.Printf("[WARN] Reasoning step failed, returning partial answer: %v", err)
			return s.emitPartial(s.partialResponse(history, lastContent), onDelta), nil
		}

		if decision.Content != "" {
			lastContent = decision.Content
		}

		assistantMsg := models.AgentMessage{
			Role:      "assistant",
			Content:   decision.Content,
			ToolCalls: decision.ToolCalls,
		}
		history = append(history, assistantMsg)

		if len(decision.ToolCalls) == 0 {
			return &models.AgentResponse{
				Messages: history,
				Response: decision.Content,
				Partial:  false,
			}, nil
		}

		results := s.executeToolCalls(ctx, decision.ToolCalls)
		history = append(history, models.AgentMessage{
			Role:        "tool",
			ToolResults: results,
		})
	}

	log.Printf("[WARN] %v after %d iterations", ErrBudgetExhausted, s.maxIterations)
	return s.emitPartial(s.partialResponse(history, lastContent), onDelta), nil
}

// emitPartial pushes an aborted turn's text through the stream callback so
// streaming clients are never left with an empty answer.
func (s *Service) emitPartial(response *models.AgentResponse, onDelta func(text string) error) *models.AgentResponse {
	if onDelta != nil {
		if err := onDelta(response.Response); err != nil {
			log.Printf("[WARN] Failed to stream partial answer: %v", err)
		}
	}
	return response
}

func (s *Service) partialResponse(history []models.AgentMessage, lastContent string) *models.AgentResponse {
	response := "I wasn't able to fully complete the request."
	if lastContent != "" {
		response = fmt.Sprintf("%s Here is what I found so far: %s", response, lastContent)
	}

	history = append(history, models.AgentMessage{
		Role:    "assistant",
		Content: response,
	})

	return &models.AgentResponse{
		Messages: history,
		Response: response,
		Partial:  true,
	}
}

// executeToolCalls fans the calls out concurrently and returns one result
// per call, ordered by the reasoner's invocation order regardless of which
// tool finishes first.
func (s *Service) executeToolCalls(ctx context.Context, calls []models.ToolCall) []models.ToolResult {
	results := make([]models.ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call models.ToolCall) {
			defer wg.Done()
			results[i] = s.executeTool(ctx, call)
		}(i, call)
	}
	wg.Wait()

	return results
}

func (s *Service) executeTool(ctx context.Context, call models.ToolCall) (result models.ToolResult) {
	result = models.ToolResult{
		ToolCallID: call.ID,
		Name:       call.Name,
		Status:     models.ToolStatusError,
	}

	// A panicking tool must not take the turn down with it.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] Tool %s panicked: %v", call.Name, r)
			result.Status = models.ToolStatusError
			result.Content = ""
			result.ErrorDetail = fmt.Sprintf("tool panicked: %v", r)
		}
	}()

	tool, ok := s.registry.Get(call.Name)
	if !ok {
		result.ErrorDetail = fmt.Sprintf("%v: %s", ErrUnknownTool, call.Name)
		return result
	}

	input, err := json.Marshal(call.Arguments)
	if err != nil {
		result.ErrorDetail = fmt.Sprintf("encoding tool arguments: %v", err)
		return result
	}

	toolCtx, cancel := context.WithTimeout(ctx, s.toolTimeout)
	defer cancel()

	outcome, err := tool.Call(toolCtx, string(input))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(toolCtx.Err(), context.DeadlineExceeded) {
			result.ErrorDetail = "timeout"
		} else {
			result.ErrorDetail = err.Error()
		}
		return result
	}

	result.Status = outcome.Status
	result.Content = outcome.Content
	return result
}
