package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/chin3/hat-manager/llm"
	"github.com/chin3/hat-manager/llm/providers"
	"github.com/chin3/hat-manager/types"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const providerName = "openai"

// Config 配置 OpenAI SDK Provider
type Config struct {
	APIKey       string
	BaseURL      string
	Organization string
	DefaultModel string
	Timeout      time.Duration
}

// Provider wraps the go-openai client.
type Provider struct {
	client       *goopenai.Client
	defaultModel string
	logger       *zap.Logger
}

// New creates a provider. BaseURL overrides the public endpoint and must
// include the API version segment (e.g. http://localhost:8080/v1).
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Organization != "" {
		clientCfg.OrgID = cfg.Organization
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Provider{
		client:       goopenai.NewClientWithConfig(clientCfg),
		defaultModel: cfg.DefaultModel,
		logger:       logger.With(zap.String("component", "llm_provider"), zap.String("provider", providerName)),
	}
}

func (p *Provider) Name() string { return providerName }

// Completion 发起同步聊天请求
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, types.NewInvalidRequestError("chat request has no messages").WithProvider(providerName)
	}

	msgs := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
			Name:    m.Name,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       providers.ChooseModel(req, p.defaultModel, goopenai.GPT3Dot5Turbo),
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	})
	if err != nil {
		return nil, p.mapError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.ErrEmptyResponse(providerName)
	}

	out := &llm.ChatResponse{
		ID:       resp.ID,
		Provider: providerName,
		Model:    resp.Model,
		Choices:  make([]llm.ChatChoice, 0, len(resp.Choices)),
		Usage: llm.ChatUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if resp.Created != 0 {
		out.CreatedAt = time.Unix(resp.Created, 0)
	}
	for _, c := range resp.Choices {
		out.Choices = append(out.Choices, llm.ChatChoice{
			Index:        c.Index,
			FinishReason: string(c.FinishReason),
			Message: llm.Message{
				Role:    llm.Role(c.Message.Role),
				Content: c.Message.Content,
			},
		})
	}
	return out, nil
}

// HealthCheck lists models as a cheap reachability probe.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	_, err := p.client.ListModels(ctx)
	status := &llm.HealthStatus{Healthy: err == nil, Latency: time.Since(start)}
	if err != nil {
		return status, p.mapError(ctx, err)
	}
	return status, nil
}

func (p *Provider) mapError(ctx context.Context, err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return providers.MapHTTPError(apiErr.HTTPStatusCode, apiErr.Message, providerName).WithCause(err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return providers.MapHTTPError(reqErr.HTTPStatusCode, reqErr.Error(), providerName).WithCause(err)
	}
	code := types.ErrUpstreamError
	if ctx.Err() != nil {
		code = types.ErrUpstreamTimeout
	}
	p.logger.Warn("openai request failed", zap.Error(err))
	return types.NewError(code, err.Error()).
		WithCause(err).
		WithRetryable(true).
		WithProvider(providerName)
}
