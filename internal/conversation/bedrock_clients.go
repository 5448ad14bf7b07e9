package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type BedrockLLMClient struct {
	api bedrockConverseAPI
}

func NewBedrockLLMClient(api bedrockConverseAPI) *BedrockLLMClient {
	if api == nil {
		panic("conversation: bedrock converse client cannot be nil")
	}
	return &BedrockLLMClient{api: api}
}

func (c *BedrockLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return LLMResponse{}, errors.New("conversation: bedrock model id is required")
	}

	systemBlocks := make([]brtypes.SystemContentBlock, 0, len(req.System))
	for _, block := range req.System {
		if strings.TrimSpace(block) == "" {
			continue
		}
		systemBlocks = append(systemBlocks, &brtypes.SystemContentBlockMemberText{Value: block})
	}

	messages := make([]brtypes.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Role == ChatRoleSystem {
			if content := strings.TrimSpace(msg.Content); content != "" {
				systemBlocks = append(systemBlocks, &brtypes.SystemContentBlockMemberText{Value: content})
			}
			continue
		}
		converted, ok, err := bedrockMessage(msg)
		if err != nil {
			return LLMResponse{}, err
		}
		if ok {
			messages = append(messages, converted)
		}
	}

	inference := &brtypes.InferenceConfiguration{}
	if req.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(req.MaxTokens)
	}
	// Allow callers to omit temperature by passing a negative value.
	if req.Temperature >= 0 {
		inference.Temperature = aws.Float32(req.Temperature)
	}
	if req.TopP != 0 {
		inference.TopP = aws.Float32(req.TopP)
	}
	if inference.MaxTokens == nil && inference.Temperature == nil && inference.TopP == nil {
		inference = nil
	}

	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(req.Model),
		System:          systemBlocks,
		Messages:        messages,
		InferenceConfig: inference,
		ToolConfig:      bedrockToolConfig(req.Tools),
	})
	if err != nil {
		return LLMResponse{}, err
	}

	text, calls, err := bedrockExtractOutput(out)
	if err != nil {
		return LLMResponse{}, err
	}

	resp := LLMResponse{
		Text:      strings.TrimSpace(text),
		ToolCalls: calls,
	}
	if out.StopReason != "" {
		resp.StopReason = string(out.StopReason)
	}
	if out.Usage != nil {
		resp.Usage = TokenUsage{
			InputTokens:  int32OrZero(out.Usage.InputTokens),
			OutputTokens: int32OrZero(out.Usage.OutputTokens),
			TotalTokens:  int32OrZero(out.Usage.TotalTokens),
		}
	}
	return resp, nil
}

// bedrockMessage converts one chat turn. Turns with nothing to say are skipped.
func bedrockMessage(msg ChatMessage) (brtypes.Message, bool, error) {
	var role brtypes.ConversationRole
	switch msg.Role {
	case ChatRoleUser:
		role = brtypes.ConversationRoleUser
	case ChatRoleAssistant:
		role = brtypes.ConversationRoleAssistant
	default:
		return brtypes.Message{}, false, fmt.Errorf("conversation: unsupported role %q", msg.Role)
	}

	var blocks []brtypes.ContentBlock
	for _, result := range msg.ToolResults {
		status := brtypes.ToolResultStatusSuccess
		if result.IsError {
			status = brtypes.ToolResultStatusError
		}
		content := result.Content
		if strings.TrimSpace(content) == "" {
			content = "{}"
		}
		blocks = append(blocks, &brtypes.ContentBlockMemberToolResult{
			Value: brtypes.ToolResultBlock{
				ToolUseId: aws.String(result.CallID),
				Content: []brtypes.ToolResultContentBlock{
					&brtypes.ToolResultContentBlockMemberText{Value: content},
				},
				Status: status,
			},
		})
	}
	if content := strings.TrimSpace(msg.Content); content != "" {
		blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: content})
	}
	for _, call := range msg.ToolCalls {
		args := call.Args
		if args == nil {
			args = map[string]any{}
		}
		blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{
			Value: brtypes.ToolUseBlock{
				ToolUseId: aws.String(call.ID),
				Name:      aws.String(call.Name),
				Input:     document.NewLazyDocument(args),
			},
		})
	}
	if len(blocks) == 0 {
		return brtypes.Message{}, false, nil
	}
	return brtypes.Message{Role: role, Content: blocks}, true, nil
}

func bedrockToolConfig(specs []ToolSpec) *brtypes.ToolConfiguration {
	if len(specs) == 0 {
		return nil
	}
	tools := make([]brtypes.Tool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, &brtypes.ToolMemberToolSpec{
			Value: brtypes.ToolSpecification{
				Name:        aws.String(spec.Name),
				Description: aws.String(spec.Description),
				InputSchema: &brtypes.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(spec.JSONSchema()),
				},
			},
		})
	}
	return &brtypes.ToolConfiguration{Tools: tools}
}

func bedrockExtractOutput(out *bedrockruntime.ConverseOutput) (string, []ToolCall, error) {
	if out == nil {
		return "", nil, errors.New("conversation: bedrock response is nil")
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", nil, errors.New("conversation: bedrock response did not include a message output")
	}
	if len(msgOut.Value.Content) == 0 {
		return "", nil, errors.New("conversation: bedrock response message was empty")
	}

	var builder strings.Builder
	var calls []ToolCall
	for _, block := range msgOut.Value.Content {
		switch b := block.(type) {
		case *brtypes.ContentBlockMemberText:
			builder.WriteString(b.Value)
		case *brtypes.ContentBlockMemberToolUse:
			args, err := decodeToolInput(b.Value.Input)
			if err != nil {
				return "", nil, err
			}
			calls = append(calls, ToolCall{
				ID:   aws.ToString(b.Value.ToolUseId),
				Name: aws.ToString(b.Value.Name),
				Args: args,
			})
		}
	}
	outText := builder.String()
	if strings.TrimSpace(outText) == "" && len(calls) == 0 {
		return "", nil, errors.New("conversation: bedrock response contained no text content blocks")
	}
	return outText, calls, nil
}

// decodeToolInput round-trips the document through JSON so numbers arrive as
// float64 like every other provider.
func decodeToolInput(input document.Interface) (map[string]any, error) {
	args := map[string]any{}
	if input == nil {
		return args, nil
	}
	raw, err := input.MarshalSmithyDocument()
	if err != nil {
		return nil, fmt.Errorf("conversation: bedrock tool input: %w", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("conversation: bedrock tool input: %w", err)
	}
	return args, nil
}

func int32OrZero(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}
