package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"google.golang.org/genai"
)

// GeminiModels is the part of the GenAI client the caller uses.
type GeminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiCaller struct {
	models GeminiModels
	model  string
}

func NewGeminiCaller(ctx context.Context, apiKey, model string) (*GeminiCaller, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiCaller(client.Models, model), nil
}

func newGeminiCaller(models GeminiModels, model string) *GeminiCaller {
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiCaller{models: models, model: model}
}

func (g *GeminiCaller) GenerateJSON(ctx context.Context, prompt string, extra []string) (string, error) {
	parts := []*genai.Part{{Text: prompt}}
	for _, s := range extra {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, &genai.Part{Text: s})
		}
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(0.2)),
		ResponseMIMEType:  "application/json",
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
	}
	resp, err := g.models.GenerateContent(ctx, g.model, []*genai.Content{{Role: "user", Parts: parts}}, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return resp.Text(), nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatCompletionsCaller talks to any OpenAI-compatible chat completions
// endpoint. The API key is optional; self-hosted proxies usually hold their
// own credentials.
type ChatCompletionsCaller struct {
	httpc    *resty.Client
	endpoint string
	model    string
}

func NewChatCompletionsCaller(endpoint, apiKey, model string) *ChatCompletionsCaller {
	httpc := resty.New()
	httpc.SetHeader("Content-Type", "application/json")
	if k := strings.TrimSpace(apiKey); k != "" {
		httpc.SetAuthToken(k)
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	return &ChatCompletionsCaller{httpc: httpc, endpoint: endpoint, model: model}
}

func (c *ChatCompletionsCaller) GenerateJSON(ctx context.Context, prompt string, extra []string) (string, error) {
	msgs := []chatMessage{{Role: "system", Content: systemPrompt}}
	if p := strings.TrimSpace(prompt); p != "" {
		msgs = append(msgs, chatMessage{Role: "user", Content: p})
	}
	for _, s := range extra {
		if s = strings.TrimSpace(s); s != "" {
			msgs = append(msgs, chatMessage{Role: "user", Content: s})
		}
	}
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetBody(chatRequest{Model: c.model, Messages: msgs, Temperature: 0.2}).
		Post(c.endpoint)
	if err != nil {
		return "", err
	}
	var out chatResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("chat completions returned non-JSON body (status code: %d)", resp.StatusCode())
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return "", fmt.Errorf("chat completions request failed: status code: %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errors.New("chat completions returned no message content")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

type aplRequest struct {
	Prompt   string   `json:"prompt"`
	Context  []string `json:"context,omitempty"`
	System   string   `json:"system"`
	Language string   `json:"language,omitempty"`
}

// APLClient posts prompts to the report backend, which holds the model
// credentials and answers with either {"report": {...}} or the report itself.
type APLClient struct {
	httpc    *resty.Client
	endpoint string
	language string
}

func NewAPLClient(endpoint, language string) *APLClient {
	httpc := resty.New()
	httpc.SetHeader("Content-Type", "application/json")
	return &APLClient{httpc: httpc, endpoint: endpoint, language: language}
}

func (c *APLClient) GenerateJSON(ctx context.Context, prompt string, extra []string) (string, error) {
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetBody(aplRequest{Prompt: prompt, Context: extra, System: systemPrompt, Language: c.language}).
		Post(c.endpoint)
	if err != nil {
		return "", err
	}
	body := resp.Body()
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("report backend returned non-JSON body (status code: %d)", resp.StatusCode())
	}
	if resp.IsError() {
		return "", fmt.Errorf("report backend request failed: status code: %d", resp.StatusCode())
	}
	if r, ok := envelope["report"]; ok && len(r) > 0 && string(r) != "null" {
		return string(r), nil
	}
	return string(body), nil
}
