package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/planmate/backend/internal/domain"
)

const (
	defaultEndpoint = "https://api.openai.com/v1/responses"
	defaultModel    = "gpt-5-mini"

	requestTimeout = 45 * time.Second

	// systemPrompt fixes the plan structure: itinerary, lodging, transport,
	// dining, budget allocation. Concrete place names come back wrapped in
	// 【】 so they can be picked out of the text and put on a map.
	systemPrompt = "你是一名专业的旅行规划助手。请根据用户提供的结构化旅行需求生成一份详细的旅行计划，" +
		"包括行程安排、住宿建议、交通方案、餐饮推荐和预算分配。" +
		"计划中提到的具体地点（景点、餐厅、酒店等）请用【】标注，例如【故宫】。"
)

// OpenAIGenerator implements Generator against the OpenAI Responses API.
type OpenAIGenerator struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// Option configures an OpenAIGenerator.
type Option func(*OpenAIGenerator)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(g *OpenAIGenerator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithEndpoint overrides the API endpoint. Used by tests to point the
// generator at a local httptest server.
func WithEndpoint(endpoint string) Option {
	return func(g *OpenAIGenerator) {
		if endpoint != "" {
			g.endpoint = endpoint
		}
	}
}

// NewOpenAIGenerator constructs a Generator backed by the OpenAI Responses
// API. The API key is required; model and endpoint have defaults.
func NewOpenAIGenerator(apiKey string, opts ...Option) (*OpenAIGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("planner: api key must not be empty")
	}
	g := &OpenAIGenerator{
		apiKey:   apiKey,
		model:    defaultModel,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// request/response shapes for the Responses API.

type responsesRequest struct {
	Model string           `json:"model"`
	Input []responsesInput `json:"input"`
}

type responsesInput struct {
	Role    string           `json:"role"`
	Content []responsesBlock `json:"content"`
}

type responsesBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responsesResponse struct {
	OutputText []string           `json:"output_text"`
	Output     []responsesMessage `json:"output"`
}

type responsesMessage struct {
	Role    string              `json:"role"`
	Content []responsesOutBlock `json:"content"`
}

type responsesOutBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Generate renders the demand record as a JSON context block and asks the
// model for a plan. Transient upstream failures (429 and 5xx) are retried
// twice with exponential backoff; anything still failing is returned as an
// *UpstreamError.
func (g *OpenAIGenerator) Generate(ctx context.Context, record domain.DemandRecord) (string, error) {
	body, err := g.buildRequest(record)
	if err != nil {
		return "", &UpstreamError{Message: "encode request", Err: err}
	}

	var plan string
	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		text, status, err := g.invoke(ctx, body)
		if err != nil {
			if status == http.StatusTooManyRequests || status >= 500 {
				return retry.RetryableError(err)
			}
			return err
		}
		plan = text
		return nil
	})
	if err != nil {
		var upstream *UpstreamError
		if errors.As(err, &upstream) {
			return "", upstream
		}
		return "", &UpstreamError{Message: "generation request failed", Err: err}
	}
	return plan, nil
}

// buildRequest assembles the Responses API payload: system prompt, demand
// context as pretty-printed JSON, and a fixed user instruction.
func (g *OpenAIGenerator) buildRequest(record domain.DemandRecord) ([]byte, error) {
	contextJSON, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, err
	}

	req := responsesRequest{
		Model: g.model,
		Input: []responsesInput{
			textBlock("system", systemPrompt),
			textBlock("system", "用户的旅行需求：\n"+string(contextJSON)),
			textBlock("user", "请生成旅行计划。"),
		},
	}
	return json.Marshal(req)
}

func textBlock(role, text string) responsesInput {
	return responsesInput{
		Role:    role,
		Content: []responsesBlock{{Type: "input_text", Text: text}},
	}
}

// invoke performs one HTTP round trip. It returns the extracted plan text, or
// the HTTP status (0 for transport errors) and an error.
func (g *OpenAIGenerator) invoke(ctx context.Context, body []byte) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", 0, &UpstreamError{Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", 0, &UpstreamError{Message: "call generation service", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", resp.StatusCode, parseAPIError(resp)
	}

	var parsed responsesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", resp.StatusCode, &UpstreamError{Message: "decode response", Err: err}
	}

	text := strings.TrimSpace(strings.Join(parsed.OutputText, "\n"))
	if text == "" {
		text = fallbackOutput(parsed)
	}
	if text == "" {
		return "", resp.StatusCode, &UpstreamError{Message: "generation service returned an empty plan"}
	}
	return text, resp.StatusCode, nil
}

// parseAPIError extracts the error message from an OpenAI error payload,
// falling back to the HTTP status line.
func parseAPIError(resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 {
		return &UpstreamError{Message: fmt.Sprintf("generation api error: %s", resp.Status)}
	}

	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error.Message != "" {
		return &UpstreamError{Message: payload.Error.Message}
	}
	return &UpstreamError{Message: fmt.Sprintf("generation api error: %s", resp.Status)}
}

// fallbackOutput walks the structured output blocks when the top-level
// output_text convenience field is absent.
func fallbackOutput(parsed responsesResponse) string {
	for _, message := range parsed.Output {
		for _, block := range message.Content {
			if block.Type == "output_text" && strings.TrimSpace(block.Text) != "" {
				return strings.TrimSpace(block.Text)
			}
		}
	}
	return ""
}
