package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"suvidha-go/internal/config"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/log"
)

// titanProvider 调用 Titan 文本模型的 invoke 接口。该模型不支持函数调用，
// 对话历史被拼接进单个 inputText 提示中。
type titanProvider struct {
	cfg    config.LLMConfig
	client *http.Client
}

func newTitanProvider(cfg config.LLMConfig) Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &titanProvider{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

func (p *titanProvider) Name() string        { return ProviderBedrockTitan }
func (p *titanProvider) SupportsTools() bool { return false }

type titanRequest struct {
	InputText            string               `json:"inputText"`
	TextGenerationConfig titanGenerationConfig `json:"textGenerationConfig"`
}

type titanGenerationConfig struct {
	MaxTokenCount int     `json:"maxTokenCount,omitempty"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"topP"`
}

type titanResponse struct {
	Results []struct {
		OutputText string `json:"outputText"`
	} `json:"results"`
}

func (p *titanProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	body := titanRequest{
		InputText: buildTitanPrompt(req),
		TextGenerationConfig: titanGenerationConfig{
			MaxTokenCount: p.cfg.Generation.MaxTokens,
			Temperature:   p.cfg.Generation.Temperature,
			TopP:          p.cfg.Generation.TopP,
		},
	}
	reqBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal titan request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.invokeURL(), bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create titan request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("x-amz-bedrock-model-id", p.cfg.Model)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		log.Errorf("[LLM:titan] 调用模型失败: %v", err)
		return nil, apperr.Wrap(apperr.CodeProviderUnavailable, "language model call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Errorf("[LLM:titan] 模型返回非 200 状态码: %s, body: %s", resp.Status, string(b))
		return nil, apperr.New(apperr.CodeProviderUnavailable, "language model returned status "+resp.Status)
	}

	var out titanResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperr.Wrap(apperr.CodeProviderUnavailable, "language model returned malformed response", err)
	}
	if len(out.Results) == 0 || strings.TrimSpace(out.Results[0].OutputText) == "" {
		return nil, apperr.New(apperr.CodeProviderUnavailable, "language model returned an empty response")
	}
	return &Completion{Content: strings.TrimSpace(out.Results[0].OutputText)}, nil
}

func (p *titanProvider) invokeURL() string {
	base := strings.TrimRight(p.cfg.BaseURL, "/")
	if strings.Contains(base, "/model/") {
		return base
	}
	return base + "/model/" + p.cfg.Model + "/invoke"
}

func buildTitanPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString(req.System)
	sb.WriteString("\n\nConversation History:\n")
	for _, m := range req.Messages {
		if m.Role == RoleAssistant {
			sb.WriteString("Assistant: ")
		} else {
			sb.WriteString("User: ")
		}
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	if req.Exchange != nil {
		fmt.Fprintf(&sb, "Function %s returned: %s\n", req.Exchange.Call.Name, req.Exchange.Result)
	}
	sb.WriteString("Assistant:")
	return sb.String()
}
