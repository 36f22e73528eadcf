package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"suvidha-go/internal/config"
	"suvidha-go/internal/model"
	"suvidha-go/internal/repository"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/llm"
	"suvidha-go/pkg/log"
)

// DefaultSystemPrompt 是助手的内置系统提示，可由 llm.prompt.system 覆盖。
const DefaultSystemPrompt = `You are Suvidha AI Assistant, a helpful and knowledgeable assistant for the Suvidha Citizen Services Portal. You help citizens with:
- Information about government schemes, policies, and tariffs
- Checking bill payments and application status
- Filing grievances and tracking them
- Navigating the portal and completing tasks
- Answering questions about various municipal services

You have access to the user's data and can help them with personalized information. When needed, use the available functions to access user data or perform actions.

Before executing any action that changes data (payments, filing grievances), confirm the user's intent explicitly.

Always be polite, professional, and helpful. Provide accurate information and guide users step by step when needed. If you're unsure about something, admit it and suggest alternatives.`

// 面向公民的回复模板
const (
	replyFallbackPrefix   = "Here's relevant information from the knowledge base:\n\n"
	replyProviderDown     = "I'm having trouble reaching the AI model right now. Please try again in a moment."
	replyFunctionFinished = "I've retrieved the information."
	replyNavigateFormat   = "I'll help you navigate to %s."
)

// ChatReply 是一轮对话的结果。
type ChatReply struct {
	MessageID      string                    `json:"messageId"`
	Content        string                    `json:"response"`
	RequiresAction bool                      `json:"requiresAction"`
	FunctionCall   *model.FunctionCallRecord `json:"functionCall,omitempty"`
}

// ChatOptions 控制编排行为。
type ChatOptions struct {
	HistoryWindow    int
	GroundingTopK    int
	FallbackTopK     int
	UseKnowledgeBase bool
	SystemPrompt     string
}

// ChatOptionsFromConfig 从配置构造 ChatOptions。
func ChatOptionsFromConfig(cfg *config.Config) ChatOptions {
	return ChatOptions{
		HistoryWindow:    cfg.Chat.HistoryWindow,
		GroundingTopK:    cfg.Chat.GroundingTopK,
		FallbackTopK:     cfg.Chat.FallbackTopK,
		UseKnowledgeBase: cfg.Chat.UseKnowledgeBase,
		SystemPrompt:     cfg.LLM.Prompt.System,
	}
}

// ChatService 编排一轮对话：记录消息、检索知识、调用模型并执行函数调用。
type ChatService interface {
	HandleMessage(ctx context.Context, conversationID, text, citizenID string) (*ChatReply, error)
}

type chatService struct {
	conversations repository.ConversationRepository
	knowledge     KnowledgeService
	provider      llm.Provider
	functions     FunctionRegistry
	opts          ChatOptions
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(conversations repository.ConversationRepository, knowledge KnowledgeService, provider llm.Provider, functions FunctionRegistry, opts ChatOptions) ChatService {
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 20
	}
	if opts.GroundingTopK <= 0 {
		opts.GroundingTopK = 5
	}
	if opts.FallbackTopK <= 0 {
		opts.FallbackTopK = 3
	}
	if strings.TrimSpace(opts.SystemPrompt) == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	return &chatService{
		conversations: conversations,
		knowledge:     knowledge,
		provider:      provider,
		functions:     functions,
		opts:          opts,
	}
}

// HandleMessage 处理一条用户消息。模型不可用时降级为知识库摘要，不向用户暴露原始错误。
func (s *chatService) HandleMessage(ctx context.Context, conversationID, text, citizenID string) (*ChatReply, error) {
	text = strings.TrimSpace(text)
	if strings.TrimSpace(conversationID) == "" || text == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "conversationId and message are required")
	}

	if _, err := s.loadOrCreate(ctx, conversationID, citizenID); err != nil {
		return nil, err
	}

	// 1. 先记录用户消息，再取上下文窗口
	userMsg := &model.ChatMessage{ConversationID: conversationID, Role: model.RoleUser, Content: text}
	if err := s.conversations.AppendMessage(ctx, userMsg); err != nil {
		return nil, err
	}
	history, err := s.conversations.RecentMessages(ctx, conversationID, s.opts.HistoryWindow)
	if err != nil {
		return nil, err
	}

	// 2. 检索知识库作为参考资料，失败不影响对话
	var grounding []model.KnowledgeResult
	groundingOK := false
	if s.opts.UseKnowledgeBase {
		grounding, err = s.knowledge.Search(ctx, text, SearchOptions{TopK: s.opts.GroundingTopK})
		if err != nil {
			log.Warnf("[ChatService] 知识库检索失败, 继续生成: conversation=%s, err=%v", conversationID, err)
		} else {
			groundingOK = true
		}
	}

	req := llm.Request{
		System:   s.buildSystemPrompt(grounding),
		Messages: toLLMMessages(history),
	}
	if s.provider.SupportsTools() && s.functions != nil {
		req.Tools = s.functions.Specs()
	}

	// 3. 调用模型
	reply := &ChatReply{}
	completion, err := s.provider.Complete(ctx, req)
	switch {
	case err != nil:
		log.Errorf("[ChatService] 模型调用失败, 使用降级回复: provider=%s, err=%v", s.provider.Name(), err)
		reply.Content = s.fallback(ctx, text, grounding, groundingOK)
	case completion.ToolCall != nil:
		s.runFunction(ctx, req, completion.ToolCall, citizenID, reply)
	case strings.TrimSpace(completion.Content) == "":
		log.Warnf("[ChatService] 模型返回空内容, 使用降级回复: provider=%s", s.provider.Name())
		reply.Content = s.fallback(ctx, text, grounding, groundingOK)
	default:
		reply.Content = completion.Content
	}

	// 4. 记录助手消息
	assistantMsg := &model.ChatMessage{ConversationID: conversationID, Role: model.RoleAssistant, Content: reply.Content}
	if reply.FunctionCall != nil {
		meta, err := json.Marshal(model.MessageMetadata{FunctionCall: reply.FunctionCall})
		if err != nil {
			return nil, fmt.Errorf("marshal message metadata: %w", err)
		}
		assistantMsg.Metadata = datatypes.JSON(meta)
	}
	if err := s.conversations.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}
	reply.MessageID = assistantMsg.ID
	return reply, nil
}

// loadOrCreate 加载对话；不存在时以给定 ID 创建。属于其他公民的对话不可写入。
func (s *chatService) loadOrCreate(ctx context.Context, conversationID, citizenID string) (*model.Conversation, error) {
	conv, err := s.conversations.FindByID(ctx, conversationID)
	if err == nil {
		if !conv.OwnedBy(citizenID) {
			return nil, ownershipError(citizenID)
		}
		return conv, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	conv = &model.Conversation{ID: conversationID, IsAnonymous: citizenID == ""}
	if citizenID != "" {
		conv.CitizenID = &citizenID
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	log.Infof("[ChatService] 新建对话: conversation=%s, anonymous=%t", conversationID, conv.IsAnonymous)
	return conv, nil
}

func ownershipError(citizenID string) error {
	if citizenID == "" {
		return apperr.New(apperr.CodeUnauthorized, "this conversation requires login")
	}
	return apperr.New(apperr.CodeForbidden, "this conversation belongs to another citizen")
}

// runFunction 执行模型请求的函数调用。跳转类结果直接返回模板回复，其余结果回填给模型做第二轮生成。
func (s *chatService) runFunction(ctx context.Context, req llm.Request, call *llm.ToolCall, citizenID string, reply *ChatReply) {
	record := &model.FunctionCallRecord{Name: call.Name, Arguments: call.Arguments}
	reply.FunctionCall = record

	outcome, err := s.functions.Dispatch(ctx, call.Name, call.Arguments, citizenID)
	if err != nil {
		log.Warnf("[ChatService] 函数执行失败: fn=%s, err=%v", call.Name, err)
		record.Result = map[string]string{"error": apperr.MessageOf(err)}
	} else if outcome.Navigation != nil {
		record.Result = outcome.Navigation
		reply.Content = fmt.Sprintf(replyNavigateFormat, outcome.Navigation.Page)
		reply.RequiresAction = true
		return
	} else {
		record.Result = outcome.Payload()
	}

	result, err := json.Marshal(record.Result)
	if err != nil {
		log.Errorf("[ChatService] 函数结果序列化失败: fn=%s, err=%v", call.Name, err)
		reply.Content = replyFunctionFinished
		return
	}
	req.Exchange = &llm.ToolExchange{Call: *call, Result: string(result)}
	final, err := s.provider.Complete(ctx, req)
	if err != nil || final.ToolCall != nil || strings.TrimSpace(final.Content) == "" {
		if err != nil {
			log.Errorf("[ChatService] 第二轮生成失败: fn=%s, err=%v", call.Name, err)
		}
		reply.Content = replyFunctionFinished
		return
	}
	reply.Content = final.Content
}

// fallback 返回知识库摘要；没有可用结果时返回通用提示。
func (s *chatService) fallback(ctx context.Context, text string, grounding []model.KnowledgeResult, groundingOK bool) string {
	results := grounding
	if !groundingOK {
		var err error
		results, err = s.knowledge.Search(ctx, text, SearchOptions{TopK: s.opts.FallbackTopK})
		if err != nil {
			log.Warnf("[ChatService] 降级检索失败: err=%v", err)
			return replyProviderDown
		}
	}
	if len(results) == 0 {
		return replyProviderDown
	}
	if len(results) > s.opts.FallbackTopK {
		results = results[:s.opts.FallbackTopK]
	}
	parts := make([]string, 0, len(results))
	for i, r := range results {
		parts = append(parts, fmt.Sprintf("%d. %s\n%s", i+1, r.Title, r.Content))
	}
	return replyFallbackPrefix + strings.Join(parts, "\n\n")
}

func (s *chatService) buildSystemPrompt(grounding []model.KnowledgeResult) string {
	if len(grounding) == 0 {
		return s.opts.SystemPrompt
	}
	var sb strings.Builder
	sb.WriteString(s.opts.SystemPrompt)
	sb.WriteString("\n\nRelevant Information from Knowledge Base:\n")
	for i, r := range grounding {
		fmt.Fprintf(&sb, "\n%d. %s\n%s\n(Relevance: %.1f%%)\n", i+1, r.Title, r.Content, r.RelevanceScore*100)
	}
	return sb.String()
}

func toLLMMessages(history []model.ChatMessage) []llm.Message {
	msgs := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == model.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	return msgs
}
