package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGeminiChat struct {
	parts []genai.Part
	resp  *genai.GenerateContentResponse
	err   error
}

func (f *fakeGeminiChat) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func TestGeminiContentsSplitsLastTurn(t *testing.T) {
	history, last, err := geminiContents([]ChatMessage{
		{Role: ChatRoleSystem, Content: "ignored"},
		{Role: ChatRoleUser, Content: "book a cleaning"},
		{Role: ChatRoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: "check_slots", Args: map[string]any{"date": "2026-10-21"}}}},
		{Role: ChatRoleUser, ToolResults: []ToolResult{{CallID: "1", Name: "check_slots", Content: `{"available_slots":["09:00"]}`}}},
	})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, genai.FunctionCall{Name: "check_slots", Args: map[string]any{"date": "2026-10-21"}}, history[1].Parts[0])

	require.Len(t, last, 1)
	resp, ok := last[0].(genai.FunctionResponse)
	require.True(t, ok)
	assert.Equal(t, "check_slots", resp.Name)
	assert.Equal(t, `{"available_slots":["09:00"]}`, resp.Response["content"])
}

func TestGeminiContentsErrors(t *testing.T) {
	_, _, err := geminiContents(nil)
	assert.ErrorContains(t, err, "at least one message")

	_, _, err = geminiContents([]ChatMessage{{Role: ChatRoleUser, Content: "hi"}, {Role: ChatRoleAssistant, Content: "hello"}})
	assert.ErrorContains(t, err, "end with a user turn")
}

func TestGeminiSendParsesFunctionCalls(t *testing.T) {
	chat := &fakeGeminiChat{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []genai.Part{
				genai.Text("Checking. "),
				genai.FunctionCall{Name: "get_faq", Args: map[string]any{"topic": "parking"}},
				genai.FunctionCall{Name: "check_slots"},
			}},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 3, TotalTokenCount: 13},
	}}

	resp, err := geminiSend(context.Background(), chat, []genai.Part{genai.Text("hi")})
	require.NoError(t, err)
	assert.Equal(t, []genai.Part{genai.Text("hi")}, chat.parts)
	assert.Equal(t, "Checking.", resp.Text)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "gemini-get_faq-0", resp.ToolCalls[0].ID)
	assert.Equal(t, "parking", resp.ToolCalls[0].Args["topic"])
	assert.Equal(t, "gemini-check_slots-1", resp.ToolCalls[1].ID)
	assert.NotNil(t, resp.ToolCalls[1].Args)
	assert.Equal(t, int32(13), resp.Usage.TotalTokens)
}

func TestGeminiSendErrors(t *testing.T) {
	boom := errors.New("quota")
	_, err := geminiSend(context.Background(), &fakeGeminiChat{err: boom}, nil)
	assert.ErrorIs(t, err, boom)

	_, err = geminiSend(context.Background(), &fakeGeminiChat{resp: &genai.GenerateContentResponse{}}, nil)
	assert.ErrorContains(t, err, "no candidates")

	_, err = geminiSend(context.Background(), &fakeGeminiChat{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{}}},
	}}, nil)
	assert.ErrorContains(t, err, "empty content")
}

func TestGeminiToolSchema(t *testing.T) {
	tool := geminiTool([]ToolSpec{{
		Name:        "book_appointment",
		Description: "Book",
		Params: []ToolParam{
			{Name: "service", Type: ParamString, Enum: []string{"Cleaning"}, Required: true},
			{Name: "count", Type: ParamInteger},
			{Name: "urgent", Type: ParamBoolean},
		},
	}})
	require.Len(t, tool.FunctionDeclarations, 1)
	decl := tool.FunctionDeclarations[0]
	assert.Equal(t, "book_appointment", decl.Name)
	assert.Equal(t, genai.TypeObject, decl.Parameters.Type)
	assert.Equal(t, []string{"service"}, decl.Parameters.Required)
	assert.Equal(t, genai.TypeString, decl.Parameters.Properties["service"].Type)
	assert.Equal(t, []string{"Cleaning"}, decl.Parameters.Properties["service"].Enum)
	assert.Equal(t, genai.TypeInteger, decl.Parameters.Properties["count"].Type)
	assert.Equal(t, genai.TypeBoolean, decl.Parameters.Properties["urgent"].Type)
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiLLMClient(context.Background(), " ", "")
	assert.ErrorContains(t, err, "api key is required")
}
