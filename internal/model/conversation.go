package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation 是一次对话。CitizenID 为空表示匿名对话。
type Conversation struct {
	ID            string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	CitizenID     *string   `gorm:"type:varchar(36);index" json:"citizenId"`
	IsAnonymous   bool      `gorm:"not null" json:"isAnonymous"`
	LastMessageAt time.Time `gorm:"index" json:"lastMessageAt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Conversation) TableName() string { return "chat_conversations" }

// OwnedBy 报告对话是否属于给定公民。匿名对话对任何人可见。
func (c *Conversation) OwnedBy(citizenID string) bool {
	return c.CitizenID == nil || *c.CitizenID == citizenID
}

// ChatMessage 是对话中的一条消息，Seq 在对话内单调递增。
type ChatMessage struct {
	ID             string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	ConversationID string         `gorm:"type:varchar(64);index:idx_conversation_seq,priority:1;not null" json:"conversationId"`
	Seq            int64          `gorm:"index:idx_conversation_seq,priority:2;not null" json:"seq"`
	Role           string         `gorm:"type:varchar(16);not null" json:"role"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	Metadata       datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"timestamp"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

func (m *ChatMessage) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// FunctionCallRecord 记录助手执行过的函数调用。
type FunctionCallRecord struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Result    any             `json:"result"`
}

// MessageMetadata 是助手消息的附加信息。
type MessageMetadata struct {
	FunctionCall *FunctionCallRecord `json:"functionCall,omitempty"`
}
