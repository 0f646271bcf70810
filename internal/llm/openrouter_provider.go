package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// OpenRouterProvider implements the Provider interface for OpenRouter,
// an OpenAI-compatible aggregator fronting many open models.
type OpenRouterProvider struct {
	config     ProviderConfigEntry
	endpoint   string
	apiKey     string
	httpClient *http.Client
	models     []ModelInfo
	lastHealth *ProviderHealth
}

// openRouterRequest is the OpenAI-compatible chat completion request body.
type openRouterRequest struct {
	Model       string              `json:"model"`
	Messages    []openRouterMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
	TopP        float64             `json:"top_p,omitempty"`
	Stream      bool                `json:"stream,omitempty"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

type openRouterResponse struct {
	Choices []openRouterChoice `json:"choices"`
	Usage   Usage              `json:"usage"`
}

type openRouterChoice struct {
	Message      openRouterMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type openRouterStreamResponse struct {
	Choices []openRouterStreamChoice `json:"choices"`
}

type openRouterStreamChoice struct {
	Delta        openRouterMessage `json:"delta"`
	FinishReason string            `json:"finish_reason"`
}

// NewOpenRouterProvider creates a new OpenRouter provider
func NewOpenRouterProvider(config ProviderConfigEntry) (*OpenRouterProvider, error) {
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = "https://openrouter.ai/api/v1"
	}

	apiKey := config.APIKey
	if apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required")
	}

	provider := &OpenRouterProvider{
		config:   config,
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		lastHealth: &ProviderHealth{
			Status:    "unknown",
			LastCheck: time.Now(),
		},
	}

	provider.initializeModels()

	return provider, nil
}

// GetType returns the provider type
func (orp *OpenRouterProvider) GetType() ProviderType {
	return ProviderTypeOpenRouter
}

// GetName returns the provider name
func (orp *OpenRouterProvider) GetName() string {
	return "OpenRouter"
}

// GetModels returns available models
func (orp *OpenRouterProvider) GetModels() []ModelInfo {
	return orp.models
}

// GetCapabilities returns provider capabilities
func (orp *OpenRouterProvider) GetCapabilities() []ModelCapability {
	return []ModelCapability{
		CapabilityTextGeneration,
		CapabilityCodeGeneration,
		CapabilityCodeAnalysis,
		CapabilityPlanning,
		CapabilityDebugging,
		CapabilityRefactoring,
		CapabilityTesting,
		CapabilityVision,
	}
}

// Generate generates a response using OpenRouter models
func (orp *OpenRouterProvider) Generate(ctx context.Context, request *LLMRequest) (*LLMResponse, error) {
	startTime := time.Now()

	orReq := orp.convertRequest(request)

	resp, err := orp.makeRequest(ctx, orReq)
	if err != nil {
		return nil, fmt.Errorf("OpenRouter request failed: %v", err)
	}

	return orp.convertResponse(resp, request.ID, time.Since(startTime)), nil
}

// GenerateStream generates a streaming response
func (orp *OpenRouterProvider) GenerateStream(ctx context.Context, request *LLMRequest, ch chan<- LLMResponse) error {
	defer close(ch)

	orReq := orp.convertRequest(request)
	orReq.Stream = true

	return orp.makeStreamRequest(ctx, orReq, ch, request.ID)
}

// IsAvailable checks if the provider is available
func (orp *OpenRouterProvider) IsAvailable(ctx context.Context) bool {
	health, err := orp.GetHealth(ctx)
	return err == nil && health.Status == "healthy"
}

// GetHealth returns provider health status
func (orp *OpenRouterProvider) GetHealth(ctx context.Context) (*ProviderHealth, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/models", orp.endpoint), nil)
	if err != nil {
		orp.updateHealth("unhealthy", 0, orp.lastHealth.ErrorCount+1)
		return orp.lastHealth, fmt.Errorf("failed to create health check request: %v", err)
	}

	orp.setAuthHeaders(req)

	start := time.Now()
	resp, err := orp.httpClient.Do(req)
	latency := time.Since(start)

	if err != nil {
		orp.updateHealth("unhealthy", latency, orp.lastHealth.ErrorCount+1)
		return orp.lastHealth, fmt.Errorf("health check failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		orp.updateHealth("unhealthy", latency, orp.lastHealth.ErrorCount+1)
		return orp.lastHealth, fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	var modelsResponse struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&modelsResponse); err != nil {
		orp.updateHealth("degraded", latency, orp.lastHealth.ErrorCount)
		return orp.lastHealth, nil
	}

	orp.updateHealth("healthy", latency, 0)
	orp.lastHealth.ModelCount = len(modelsResponse.Data)

	return orp.lastHealth, nil
}

// Close closes the provider
func (orp *OpenRouterProvider) Close() error {
	orp.httpClient.CloseIdleConnections()
	return nil
}

func (orp *OpenRouterProvider) initializeModels() {
	orp.models = []ModelInfo{
		{
			Name:           "deepseek/deepseek-r1:free",
			Provider:       ProviderTypeOpenRouter,
			ContextSize:    163840,
			Capabilities:   orp.GetCapabilities(),
			MaxTokens:      10000,
			SupportsTools:  true,
			SupportsVision: false,
			Description:    "DeepSeek R1 (free) - reasoning model via OpenRouter",
		},
		{
			Name:        "meta-llama/llama-3.2-3b-instruct:free",
			Provider:    ProviderTypeOpenRouter,
			ContextSize: 131072,
			Capabilities: []ModelCapability{
				CapabilityTextGeneration,
				CapabilityCodeGeneration,
				CapabilityCodeAnalysis,
			},
			MaxTokens:      4096,
			SupportsTools:  false,
			SupportsVision: false,
			Description:    "Llama 3.2 3B Instruct (free)",
		},
		{
			Name:           "microsoft/wizardlm-2-8x22b:free",
			Provider:       ProviderTypeOpenRouter,
			ContextSize:    65536,
			Capabilities:   orp.GetCapabilities(),
			MaxTokens:      4096,
			SupportsTools:  true,
			SupportsVision: false,
			Description:    "WizardLM-2 8x22B (free)",
		},
		{
			Name:        "mistralai/mistral-7b-instruct:free",
			Provider:    ProviderTypeOpenRouter,
			ContextSize: 32768,
			Capabilities: []ModelCapability{
				CapabilityTextGeneration,
				CapabilityCodeGeneration,
				CapabilityCodeAnalysis,
			},
			MaxTokens:      4096,
			SupportsTools:  false,
			SupportsVision: false,
			Description:    "Mistral 7B Instruct (free)",
		},
	}

	log.Printf("OpenRouter provider initialized with %d models", len(orp.models))
}

func (orp *OpenRouterProvider) convertRequest(request *LLMRequest) *openRouterRequest {
	messages := make([]openRouterMessage, 0, len(request.Messages))
	for _, msg := range request.Messages {
		messages = append(messages, openRouterMessage{
			Role:    msg.Role,
			Content: msg.Content,
			Name:    msg.Name,
		})
	}

	return &openRouterRequest{
		Model:       request.Model,
		Messages:    messages,
		MaxTokens:   request.MaxTokens,
		Temperature: request.Temperature,
		TopP:        request.TopP,
		Stream:      request.Stream,
	}
}

func (orp *OpenRouterProvider) convertResponse(resp *openRouterResponse, requestID uuid.UUID, processingTime time.Duration) *LLMResponse {
	var content, finishReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		finishReason = resp.Choices[0].FinishReason
	}

	return &LLMResponse{
		ID:             uuid.New(),
		RequestID:      requestID,
		Content:        content,
		Usage:          resp.Usage,
		FinishReason:   finishReason,
		ProcessingTime: processingTime,
		CreatedAt:      time.Now(),
	}
}

func (orp *OpenRouterProvider) makeRequest(ctx context.Context, request *openRouterRequest) (*openRouterResponse, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/chat/completions", orp.endpoint), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	orp.setAuthHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", "https://github.com/HelixDevelopment/nldbexplorer")
	req.Header.Set("X-Title", "nldbexplorer")

	resp, err := orp.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("OpenRouter API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response openRouterResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	return &response, nil
}

func (orp *OpenRouterProvider) makeStreamRequest(ctx context.Context, request *openRouterRequest, ch chan<- LLMResponse, requestID uuid.UUID) error {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/chat/completions", orp.endpoint), bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}

	orp.setAuthHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", "https://github.com/HelixDevelopment/nldbexplorer")
	req.Header.Set("X-Title", "nldbexplorer")

	resp, err := orp.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("OpenRouter API returned status %d: %s", resp.StatusCode, string(body))
	}

	decoder := json.NewDecoder(resp.Body)
	for decoder.More() {
		var streamResp openRouterStreamResponse
		if err := decoder.Decode(&streamResp); err != nil {
			return err
		}

		if len(streamResp.Choices) == 0 {
			continue
		}

		choice := streamResp.Choices[0]
		if choice.Delta.Content != "" {
			response := LLMResponse{
				ID:        uuid.New(),
				RequestID: requestID,
				Content:   choice.Delta.Content,
				CreatedAt: time.Now(),
			}

			select {
			case ch <- response:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if choice.FinishReason != "" {
			break
		}
	}

	return nil
}

func (orp *OpenRouterProvider) setAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+orp.apiKey)
}

func (orp *OpenRouterProvider) updateHealth(status string, latency time.Duration, errorCount int) {
	orp.lastHealth.Status = status
	orp.lastHealth.Latency = latency
	orp.lastHealth.ErrorCount = errorCount
	orp.lastHealth.LastCheck = time.Now()
}
