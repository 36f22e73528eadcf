package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"suvidha-go/internal/config"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/log"
)

// openAIProvider 通过 langchaingo 调用 OpenAI 兼容的 chat completions 接口，支持函数调用。
type openAIProvider struct {
	model *openai.LLM
	gen   config.LLMGenerationConfig
}

func newOpenAIProvider(cfg config.LLMConfig) (Provider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return &openAIProvider{model: model, gen: cfg.Generation}, nil
}

func (p *openAIProvider) Name() string        { return ProviderOpenAI }
func (p *openAIProvider) SupportsTools() bool { return true }

func (p *openAIProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	msgs := make([]llms.MessageContent, 0, len(req.Messages)+3)
	if req.System != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	for _, m := range req.Messages {
		role := llms.ChatMessageTypeHuman
		if m.Role == RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(role, m.Content))
	}
	if ex := req.Exchange; ex != nil {
		msgs = append(msgs,
			llms.MessageContent{
				Role: llms.ChatMessageTypeAI,
				Parts: []llms.ContentPart{llms.ToolCall{
					ID:   ex.Call.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      ex.Call.Name,
						Arguments: string(ex.Call.Arguments),
					},
				}},
			},
			llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: ex.Call.ID,
					Name:       ex.Call.Name,
					Content:    ex.Result,
				}},
			},
		)
	}

	opts := p.callOptions()
	if len(req.Tools) > 0 {
		tools := make([]llms.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, llms.Tool{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		opts = append(opts, llms.WithTools(tools))
	}

	resp, err := p.model.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		log.Errorf("[LLM:openai] 调用模型失败: %v", err)
		return nil, apperr.Wrap(apperr.CodeProviderUnavailable, "language model call failed", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, apperr.New(apperr.CodeProviderUnavailable, "language model returned no choices")
	}

	choice := resp.Choices[0]
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil || tc.FunctionCall.Name == "" {
			continue
		}
		args := strings.TrimSpace(tc.FunctionCall.Arguments)
		if args == "" {
			args = "{}"
		}
		if !json.Valid([]byte(args)) {
			return nil, apperr.New(apperr.CodeProviderUnavailable, "language model returned malformed tool arguments")
		}
		return &Completion{ToolCall: &ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: json.RawMessage(args),
		}}, nil
	}

	return &Completion{Content: strings.TrimSpace(choice.Content)}, nil
}

func (p *openAIProvider) callOptions() []llms.CallOption {
	var opts []llms.CallOption
	if p.gen.Temperature != 0 {
		opts = append(opts, llms.WithTemperature(p.gen.Temperature))
	}
	if p.gen.TopP != 0 {
		opts = append(opts, llms.WithTopP(p.gen.TopP))
	}
	if p.gen.MaxTokens != 0 {
		opts = append(opts, llms.WithMaxTokens(p.gen.MaxTokens))
	}
	return opts
}
