package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverseAPI struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (f *fakeConverseAPI) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = params
	return f.out, f.err
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
			},
		},
		StopReason: brtypes.StopReasonEndTurn,
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(12),
			OutputTokens: aws.Int32(4),
			TotalTokens:  aws.Int32(16),
		},
	}
}

func TestBedrockCompleteText(t *testing.T) {
	api := &fakeConverseAPI{out: textOutput("  Hello there  ")}
	client := NewBedrockLLMClient(api)

	resp, err := client.Complete(context.Background(), LLMRequest{
		Model:       "anthropic.claude-3-haiku",
		System:      []string{"be nice", "  "},
		Messages:    []ChatMessage{{Role: ChatRoleSystem, Content: "extra"}, {Role: ChatRoleUser, Content: "hi"}},
		MaxTokens:   256,
		Temperature: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", resp.Text)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, int32(16), resp.Usage.TotalTokens)

	in := api.input
	assert.Equal(t, "anthropic.claude-3-haiku", aws.ToString(in.ModelId))
	assert.Len(t, in.System, 2)
	require.Len(t, in.Messages, 1)
	assert.Equal(t, brtypes.ConversationRoleUser, in.Messages[0].Role)
	assert.Equal(t, int32(256), aws.ToInt32(in.InferenceConfig.MaxTokens))
	assert.Nil(t, in.ToolConfig)
}

func TestBedrockCompleteToolUse(t *testing.T) {
	api := &fakeConverseAPI{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: "Let me check."},
					&brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
						ToolUseId: aws.String("tu-1"),
						Name:      aws.String("check_slots"),
						Input:     document.NewLazyDocument(map[string]any{"date": "2026-10-21"}),
					}},
				},
			},
		},
		StopReason: brtypes.StopReasonToolUse,
	}}
	client := NewBedrockLLMClient(api)

	spec := ToolSpec{
		Name:        "check_slots",
		Description: "List open times",
		Params:      []ToolParam{{Name: "date", Type: ParamString, Required: true}},
	}
	resp, err := client.Complete(context.Background(), LLMRequest{
		Model: "m",
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: "book"},
			{Role: ChatRoleAssistant, ToolCalls: []ToolCall{{ID: "prev", Name: "get_faq", Args: map[string]any{"topic": "hours"}}}},
			{Role: ChatRoleUser, ToolResults: []ToolResult{{CallID: "prev", Name: "get_faq", Content: `{"found":true}`}}},
		},
		Tools:       []ToolSpec{spec},
		Temperature: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Let me check.", resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, ToolCall{ID: "tu-1", Name: "check_slots", Args: map[string]any{"date": "2026-10-21"}}, resp.ToolCalls[0])
	assert.Equal(t, "tool_use", resp.StopReason)

	in := api.input
	assert.Nil(t, in.InferenceConfig, "negative temperature and no limits omit inference config")
	require.NotNil(t, in.ToolConfig)
	require.Len(t, in.ToolConfig.Tools, 1)
	toolSpec, ok := in.ToolConfig.Tools[0].(*brtypes.ToolMemberToolSpec)
	require.True(t, ok)
	assert.Equal(t, "check_slots", aws.ToString(toolSpec.Value.Name))

	require.Len(t, in.Messages, 3)
	use, ok := in.Messages[1].Content[0].(*brtypes.ContentBlockMemberToolUse)
	require.True(t, ok)
	assert.Equal(t, "prev", aws.ToString(use.Value.ToolUseId))
	result, ok := in.Messages[2].Content[0].(*brtypes.ContentBlockMemberToolResult)
	require.True(t, ok)
	assert.Equal(t, "prev", aws.ToString(result.Value.ToolUseId))
	assert.Equal(t, brtypes.ToolResultStatusSuccess, result.Value.Status)
}

func TestBedrockCompleteErrors(t *testing.T) {
	client := NewBedrockLLMClient(&fakeConverseAPI{out: textOutput("x")})
	_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
	assert.ErrorContains(t, err, "model id is required")

	_, err = client.Complete(context.Background(), LLMRequest{Model: "m", Messages: []ChatMessage{{Role: "tool", Content: "hi"}}})
	assert.ErrorContains(t, err, "unsupported role")

	boom := errors.New("throttled")
	client = NewBedrockLLMClient(&fakeConverseAPI{err: boom})
	_, err = client.Complete(context.Background(), LLMRequest{Model: "m", Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
	assert.ErrorIs(t, err, boom)

	client = NewBedrockLLMClient(&fakeConverseAPI{out: textOutput("   ")})
	_, err = client.Complete(context.Background(), LLMRequest{Model: "m", Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
	assert.ErrorContains(t, err, "no text content")

	assert.Panics(t, func() { NewBedrockLLMClient(nil) })
}

func TestBedrockMessageSkipsEmptyTurns(t *testing.T) {
	_, ok, err := bedrockMessage(ChatMessage{Role: ChatRoleAssistant, Content: "  "})
	require.NoError(t, err)
	assert.False(t, ok)

	msg, ok, err := bedrockMessage(ChatMessage{Role: ChatRoleUser, ToolResults: []ToolResult{{CallID: "a", IsError: true}}})
	require.NoError(t, err)
	require.True(t, ok)
	result := msg.Content[0].(*brtypes.ContentBlockMemberToolResult)
	assert.Equal(t, brtypes.ToolResultStatusError, result.Value.Status)
	text := result.Value.Content[0].(*brtypes.ToolResultContentBlockMemberText)
	assert.Equal(t, "{}", text.Value)
}
