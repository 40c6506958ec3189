package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/chin3/hat-manager/llm"
	"github.com/chin3/hat-manager/types"
)

// MapHTTPError 将 HTTP 状态码映射为带有合适重试标记的 types.Error
func MapHTTPError(status int, msg string, provider string) *types.Error {
	var code types.ErrorCode
	retryable := false
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = types.ErrAuthentication
	case http.StatusTooManyRequests:
		code = types.ErrRateLimit
		retryable = true
	case http.StatusBadRequest:
		code = types.ErrInvalidRequest
	case http.StatusNotFound:
		code = types.ErrModelNotFound
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		code = types.ErrUpstreamTimeout
		retryable = true
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		code = types.ErrUpstreamError
		retryable = true
	default:
		code = types.ErrUpstreamError
		retryable = status >= 500
	}
	return types.NewError(code, msg).
		WithHTTPStatus(status).
		WithRetryable(retryable).
		WithProvider(provider)
}

// ReadErrorMessage 读取响应体中的错误消息
// 尝试解析 JSON 错误响应，失败则回退到原始文本
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		if errResp.Error.Type != "" {
			return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return errResp.Error.Message
	}
	return strings.TrimSpace(string(data))
}

// ChooseModel picks the request model, then the provider default, then the fallback.
func ChooseModel(req *llm.ChatRequest, defaultModel, fallback string) string {
	if req != nil && req.Model != "" {
		return req.Model
	}
	if defaultModel != "" {
		return defaultModel
	}
	return fallback
}

// OpenAICompatMessage 表示 OpenAI 兼容的消息格式.
type OpenAICompatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// OpenAICompatRequest 表示 OpenAI 兼容的聊天完成请求.
type OpenAICompatRequest struct {
	Model       string                `json:"model"`
	Messages    []OpenAICompatMessage `json:"messages"`
	MaxTokens   int                   `json:"max_tokens,omitempty"`
	Temperature float32               `json:"temperature,omitempty"`
	TopP        float32               `json:"top_p,omitempty"`
	Stop        []string              `json:"stop,omitempty"`
}

// OpenAICompatChoice 表示 OpenAI 兼容响应中的一个选项.
type OpenAICompatChoice struct {
	Index        int                 `json:"index"`
	FinishReason string              `json:"finish_reason"`
	Message      OpenAICompatMessage `json:"message"`
}

// OpenAICompatUsage 表示 token 用量.
type OpenAICompatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAICompatResponse 表示 OpenAI 兼容的聊天完成响应.
type OpenAICompatResponse struct {
	ID      string               `json:"id"`
	Model   string               `json:"model"`
	Created int64                `json:"created"`
	Choices []OpenAICompatChoice `json:"choices"`
	Usage   *OpenAICompatUsage   `json:"usage,omitempty"`
}

// ConvertMessagesToOpenAI 转换为 OpenAI 兼容消息.
func ConvertMessagesToOpenAI(msgs []llm.Message) []OpenAICompatMessage {
	out := make([]OpenAICompatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, OpenAICompatMessage{Role: string(m.Role), Content: m.Content, Name: m.Name})
	}
	return out
}

// ToLLMChatResponse 将 OpenAI 兼容响应转换为 llm.ChatResponse.
func ToLLMChatResponse(resp OpenAICompatResponse, provider string) *llm.ChatResponse {
	out := &llm.ChatResponse{
		ID:       resp.ID,
		Provider: provider,
		Model:    resp.Model,
		Choices:  make([]llm.ChatChoice, 0, len(resp.Choices)),
	}
	for _, c := range resp.Choices {
		out.Choices = append(out.Choices, llm.ChatChoice{
			Index:        c.Index,
			FinishReason: c.FinishReason,
			Message: llm.Message{
				Role:    llm.Role(c.Message.Role),
				Content: c.Message.Content,
				Name:    c.Message.Name,
			},
		})
	}
	if resp.Usage != nil {
		out.Usage = llm.ChatUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out
}
