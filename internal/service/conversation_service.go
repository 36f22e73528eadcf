package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"suvidha-go/internal/model"
	"suvidha-go/internal/repository"
	"suvidha-go/pkg/log"
)

// ConversationHistory 是对话及其完整消息日志。
type ConversationHistory struct {
	Conversation *model.Conversation `json:"conversation"`
	Messages     []model.ChatMessage `json:"messages"`
}

// ConversationService 定义了对话的创建与历史查询接口。
type ConversationService interface {
	CreateConversation(ctx context.Context, citizenID string) (*model.Conversation, error)
	GetHistory(ctx context.Context, conversationID, citizenID string) (*ConversationHistory, error)
}

type conversationService struct {
	repo repository.ConversationRepository
}

// NewConversationService 创建一个新的 ConversationService。
func NewConversationService(repo repository.ConversationRepository) ConversationService {
	return &conversationService{repo: repo}
}

// NewConversationID 生成 conv-<毫秒时间戳>-<随机串> 形式的对话 ID。
func NewConversationID() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("conv-%d-%s", time.Now().UnixMilli(), random)
}

// CreateConversation 创建一个新对话，citizenID 为空时为匿名对话。
func (s *conversationService) CreateConversation(ctx context.Context, citizenID string) (*model.Conversation, error) {
	conv := &model.Conversation{ID: NewConversationID(), IsAnonymous: citizenID == ""}
	if citizenID != "" {
		conv.CitizenID = &citizenID
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, err
	}
	log.Infof("[ConversationService] 创建对话: %s", conv.ID)
	return conv, nil
}

// GetHistory 返回对话的完整消息日志。属于公民的对话只对本人可见。
func (s *conversationService) GetHistory(ctx context.Context, conversationID, citizenID string) (*ConversationHistory, error) {
	conv, err := s.repo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.OwnedBy(citizenID) {
		return nil, ownershipError(citizenID)
	}
	msgs, err := s.repo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return &ConversationHistory{Conversation: conv, Messages: msgs}, nil
}
