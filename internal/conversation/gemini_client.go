package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiChat is the slice of *genai.ChatSession the client needs.
type geminiChat interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiLLMClient implements LLMClient using Google's Gemini API.
type GeminiLLMClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiLLMClient creates a new Gemini LLM client.
func NewGeminiLLMClient(ctx context.Context, apiKey, modelID string) (*GeminiLLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create gemini client: %w", err)
	}

	return &GeminiLLMClient{
		client:  client,
		modelID: modelID,
	}, nil
}

// Complete sends a completion request to Gemini and returns the response.
func (c *GeminiLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	model := c.client.GenerativeModel(c.modelID)

	// Configure model parameters
	if req.Temperature >= 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.TopP > 0 {
		model.SetTopP(req.TopP)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}

	// Set system instruction from system prompts
	if len(req.System) > 0 {
		systemText := strings.Join(req.System, "\n\n")
		if strings.TrimSpace(systemText) != "" {
			model.SystemInstruction = genai.NewUserContent(genai.Text(systemText))
		}
	}
	if len(req.Tools) > 0 {
		model.Tools = []*genai.Tool{geminiTool(req.Tools)}
	}

	history, last, err := geminiContents(req.Messages)
	if err != nil {
		return LLMResponse{}, err
	}
	cs := model.StartChat()
	cs.History = history
	return geminiSend(ctx, cs, last)
}

func geminiSend(ctx context.Context, chat geminiChat, last []genai.Part) (LLMResponse, error) {
	resp, err := chat.SendMessage(ctx, last...)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: gemini completion failed: %w", err)
	}
	return geminiResponse(resp)
}

// geminiContents splits the transcript into chat history and the parts of
// the final turn.
func geminiContents(messages []ChatMessage) ([]*genai.Content, []genai.Part, error) {
	var contents []*genai.Content
	for _, msg := range messages {
		// Skip system messages (already handled above)
		if msg.Role == ChatRoleSystem {
			continue
		}
		parts := geminiParts(msg)
		if len(parts) == 0 {
			continue
		}
		role := "user"
		if msg.Role == ChatRoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	if len(contents) == 0 {
		return nil, nil, errors.New("conversation: gemini requires at least one message")
	}
	last := contents[len(contents)-1]
	if last.Role != "user" {
		return nil, nil, errors.New("conversation: gemini transcript must end with a user turn")
	}
	return contents[:len(contents)-1], last.Parts, nil
}

func geminiParts(msg ChatMessage) []genai.Part {
	var parts []genai.Part
	for _, result := range msg.ToolResults {
		parts = append(parts, genai.FunctionResponse{
			Name:     result.Name,
			Response: map[string]any{"content": result.Content, "is_error": result.IsError},
		})
	}
	if content := strings.TrimSpace(msg.Content); content != "" {
		parts = append(parts, genai.Text(content))
	}
	for _, call := range msg.ToolCalls {
		parts = append(parts, genai.FunctionCall{Name: call.Name, Args: call.Args})
	}
	return parts
}

func geminiResponse(resp *genai.GenerateContentResponse) (LLMResponse, error) {
	// Extract response text
	if resp == nil || len(resp.Candidates) == 0 {
		return LLMResponse{}, errors.New("conversation: gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return LLMResponse{}, errors.New("conversation: gemini returned empty content")
	}

	var responseText strings.Builder
	var calls []ToolCall
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			responseText.WriteString(string(p))
		case genai.FunctionCall:
			calls = append(calls, geminiCall(p, len(calls)))
		case *genai.FunctionCall:
			calls = append(calls, geminiCall(*p, len(calls)))
		}
	}

	result := LLMResponse{
		Text:       strings.TrimSpace(responseText.String()),
		ToolCalls:  calls,
		StopReason: candidate.FinishReason.String(),
	}

	// Extract token usage if available
	if resp.UsageMetadata != nil {
		result.Usage = TokenUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}

	return result, nil
}

// Gemini does not number its function calls; results are matched by name.
func geminiCall(fc genai.FunctionCall, index int) ToolCall {
	args := fc.Args
	if args == nil {
		args = map[string]any{}
	}
	return ToolCall{
		ID:   fmt.Sprintf("gemini-%s-%d", fc.Name, index),
		Name: fc.Name,
		Args: args,
	}
}

func geminiTool(specs []ToolSpec) *genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  geminiSchema(spec),
		})
	}
	return &genai.Tool{FunctionDeclarations: decls}
}

func geminiSchema(spec ToolSpec) *genai.Schema {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(spec.Params)),
	}
	for _, p := range spec.Params {
		prop := &genai.Schema{Description: p.Description, Enum: p.Enum}
		switch paramType(p.Type) {
		case ParamInteger:
			prop.Type = genai.TypeInteger
		case ParamBoolean:
			prop.Type = genai.TypeBoolean
		default:
			prop.Type = genai.TypeString
		}
		schema.Properties[p.Name] = prop
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema
}

// Close releases resources held by the Gemini client.
func (c *GeminiLLMClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
