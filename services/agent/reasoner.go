package agent

import (
	"context"
	"encoding/json"
	"log"

	"github.com/jaxonc/AIE7-Certification-Challenge/models"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Decision is one step of the reasoning model's output: either tool calls
// to execute, or (when ToolCalls is empty) the final answer text.
type Decision struct {
	Content   string
	ToolCalls []models.ToolCall
}

// Reasoner is the reasoning collaborator contract. Decide makes a
// single-shot decision over the full ordered history; DecideStream does the
// same while forwarding text deltas to onDelta in generation order.
// Implementations must turn unparseable tool selections into a plain-text
// decision rather than an error, so the loop always makes progress.
type Reasoner interface {
	Decide(ctx context.Context, history []models.AgentMessage, tools []anthropic.ToolUnionParam) (*Decision, error)
	DecideStream(ctx context.Context, history []models.AgentMessage, tools []anthropic.ToolUnionParam, onDelta func(text string) error) (*Decision, error)
}

type AnthropicReasoner struct {
	client       *anthropic.Client
	model        anthropic.Model
	maxTokens    int64
	systemPrompt string
}

func NewAnthropicReasoner(apiKey, model, systemPrompt string) *AnthropicReasoner {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &AnthropicReasoner{
		client:       &client,
		model:        anthropic.Model(model),
		maxTokens:    4096,
		systemPrompt: systemPrompt,
	}
}

func (r *AnthropicReasoner) Decide(ctx context.Context, history []models.AgentMessage, tools []anthropic.ToolUnionParam) (*Decision, error) {
	response, err := r.client.Messages.New(ctx, r.buildParams(history, tools))
	if err != nil {
		return nil, err
	}

	return r.parseMessage(response), nil
}

func (r *AnthropicReasoner) DecideStream(ctx context.Context, history []models.AgentMessage, tools []anthropic.ToolUnionParam, onDelta func(text string) error) (*Decision, error) {
	stream := r.client.Messages.NewStreaming(ctx, r.buildParams(history, tools))

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, err
		}

		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if err := onDelta(deltaVariant.Text); err != nil {
					// The consumer is gone; stop requesting further chunks.
					return nil, err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}

	return r.parseMessage(&message), nil
}

func (r *AnthropicReasoner) buildParams(history []models.AgentMessage, tools []anthropic.ToolUnionParam) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: r.maxTokens,
		Messages:  convertToAnthropicMessages(history),
		Tools:     tools,
	}
	if r.systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: r.systemPrompt}}
	}
	return params
}

// parseMessage turns a model response into a Decision. A tool-use block
// whose input does not decode as a JSON object poisons the whole selection:
// the decision degrades to text-only so the loop answers directly instead
// of executing arguments we do not understand.
func (r *AnthropicReasoner) parseMessage(message *anthropic.Message) *Decision {
	decision := &Decision{}

	for _, block := range message.Content {
		switch block := block.AsAny().(type) {
		case anthropic.TextBlock:
			decision.Content += block.Text
		case anthropic.ToolUseBlock:
			var arguments map[string]any
			if err := json.Unmarshal([]byte(block.Input), &arguments); err != nil {
				log.Printf("[WARN] Discarding unparseable tool selection for %s: %v", block.Name, err)
				decision.ToolCalls = nil
				return decision
			}
			decision.ToolCalls = append(decision.ToolCalls, models.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: arguments,
			})
		}
	}

	return decision
}

func convertToAnthropicMessages(messages []models.AgentMessage) []anthropic.MessageParam {
	var anthropicMessages []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case "user":
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case "assistant":
			contentBlocks := []anthropic.ContentBlockParamUnion{}

			if msg.Content != "" {
				contentBlocks = append(contentBlocks, anthropic.ContentBlockParamUnion{
					OfText: &anthropic.TextBlockParam{Text: msg.Content},
				})
			}

			for _, toolCall := range msg.ToolCalls {
				contentBlocks = append(contentBlocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    toolCall.ID,
						Name:  toolCall.Name,
						Input: toolCall.Arguments,
					},
				})
			}

			anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(contentBlocks...))
		case "tool":
			// Tool results travel back as user-role tool_result blocks.
			toolResultBlocks := []anthropic.ContentBlockParamUnion{}
			for _, result := range msg.ToolResults {
				toolResultBlocks = append(toolResultBlocks, anthropic.ContentBlockParamUnion{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: result.ToolCallID,
						IsError:   anthropic.Bool(result.Status == models.ToolStatusError),
						Content: []anthropic.ToolResultBlockParamContentUnion{
							{OfText: &anthropic.TextBlockParam{Text: toolResultText(result)}},
						},
					},
				})
			}
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(toolResultBlocks...))
		}
	}

	return anthropicMessages
}

// toolResultText renders a ToolResult for the model. Status and error
// detail are folded in so the next decision step can react to failures.
func toolResultText(result models.ToolResult) string {
	rendered, err := json.Marshal(map[string]string{
		"status":       result.Status,
		"content":      result.Content,
		"error_detail": result.ErrorDetail,
	})
	if err != nil {
		return result.Content
	}
	return string(rendered)
}
