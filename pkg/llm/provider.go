// Package llm provides pluggable strategies for calling large language models.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"suvidha-go/internal/config"
	"suvidha-go/pkg/apperr"
)

// Role 表示对话中一条消息的角色。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 表示一条角色消息
type Message struct {
	Role    Role
	Content string
}

// ToolSpec 描述一个可供模型调用的函数。Parameters 是 JSON Schema。
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall 是模型请求的一次函数调用。
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolExchange 携带一次已执行的调用及其 JSON 结果，用于第二轮生成。
type ToolExchange struct {
	Call   ToolCall
	Result string
}

// Request 是一次补全请求。
type Request struct {
	System   string
	Messages []Message
	Tools    []ToolSpec
	Exchange *ToolExchange
}

// Completion 是模型的回复：文本或一次函数调用。
type Completion struct {
	Content  string
	ToolCall *ToolCall
}

// Provider 是一种 LLM 调用策略。
type Provider interface {
	Name() string
	// SupportsTools 报告该策略能否进行函数调用。
	SupportsTools() bool
	Complete(ctx context.Context, req Request) (*Completion, error)
}

const (
	ProviderOpenAI       = "openai"
	ProviderBedrockTitan = "bedrock-titan"
)

// NewProvider 根据配置选择调用策略。缺少凭据时返回的策略在每次调用时报告 ProviderUnavailable。
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch name {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return &unconfiguredProvider{name: name, tools: true}, nil
		}
		return newOpenAIProvider(cfg)
	case ProviderBedrockTitan:
		if cfg.APIKey == "" || cfg.BaseURL == "" {
			return &unconfiguredProvider{name: name}, nil
		}
		return newTitanProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

type unconfiguredProvider struct {
	name  string
	tools bool
}

func (p *unconfiguredProvider) Name() string        { return p.name }
func (p *unconfiguredProvider) SupportsTools() bool { return p.tools }

func (p *unconfiguredProvider) Complete(context.Context, Request) (*Completion, error) {
	return nil, apperr.New(apperr.CodeProviderUnavailable, p.name+" provider is not configured")
}
