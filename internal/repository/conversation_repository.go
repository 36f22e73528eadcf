package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"suvidha-go/internal/model"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/log"
)

// ConversationRepository 定义了对话与消息日志的操作接口。
// 消息日志保存在数据库中，Redis 仅缓存每个对话最近的窗口。
type ConversationRepository interface {
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	Create(ctx context.Context, conv *model.Conversation) error
	AppendMessage(ctx context.Context, msg *model.ChatMessage) error
	ListMessages(ctx context.Context, conversationID string) ([]model.ChatMessage, error)
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.ChatMessage, error)
}

type conversationRepository struct {
	db     *gorm.DB
	rdb    *redis.Client
	window int
	ttl    time.Duration
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。rdb 可以为 nil。
func NewConversationRepository(db *gorm.DB, rdb *redis.Client, window int, ttl time.Duration) ConversationRepository {
	if window <= 0 {
		window = 20
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &conversationRepository{db: db, rdb: rdb, window: window, ttl: ttl}
}

func recentKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:recent", conversationID)
}

func (r *conversationRepository) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.CodeNotFound, "conversation not found")
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) error {
	if conv.LastMessageAt.IsZero() {
		conv.LastMessageAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(conv).Error
}

// AppendMessage 分配对话内序号并写入消息，同时更新对话的最后活动时间。
func (r *conversationRepository) AppendMessage(ctx context.Context, msg *model.ChatMessage) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&model.ChatMessage{}).
			Where("conversation_id = ?", msg.ConversationID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}
		msg.Seq = maxSeq + 1
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&model.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("last_message_at", msg.CreatedAt).Error
	})
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	r.refreshCache(ctx, msg.ConversationID)
	return nil
}

// ListMessages 按序号返回完整的消息日志。
func (r *conversationRepository) ListMessages(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq ASC").
		Find(&msgs).Error
	return msgs, err
}

// RecentMessages 返回最近 limit 条消息（按时间正序），优先读取缓存。
func (r *conversationRepository) RecentMessages(ctx context.Context, conversationID string, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = r.window
	}
	if r.rdb != nil && limit <= r.window {
		if cached, ok := r.readCache(ctx, conversationID); ok {
			return tail(cached, limit), nil
		}
	}

	size := limit
	if size < r.window {
		size = r.window
	}
	msgs, err := r.loadRecent(ctx, conversationID, size)
	if err != nil {
		return nil, err
	}
	r.writeCache(ctx, conversationID, tail(msgs, r.window))
	return tail(msgs, limit), nil
}

func (r *conversationRepository) loadRecent(ctx context.Context, conversationID string, n int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq DESC").
		Limit(n).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *conversationRepository) refreshCache(ctx context.Context, conversationID string) {
	if r.rdb == nil {
		return
	}
	msgs, err := r.loadRecent(ctx, conversationID, r.window)
	if err != nil {
		log.Warnf("[ConversationRepository] 刷新缓存失败, conversation=%s, err=%v", conversationID, err)
		_ = r.rdb.Del(ctx, recentKey(conversationID)).Err()
		return
	}
	r.writeCache(ctx, conversationID, msgs)
}

func (r *conversationRepository) readCache(ctx context.Context, conversationID string) ([]model.ChatMessage, bool) {
	data, err := r.rdb.Get(ctx, recentKey(conversationID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Warnf("[ConversationRepository] 读取缓存失败, conversation=%s, err=%v", conversationID, err)
		return nil, false
	}
	var msgs []model.ChatMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, false
	}
	return msgs, true
}

func (r *conversationRepository) writeCache(ctx context.Context, conversationID string, msgs []model.ChatMessage) {
	if r.rdb == nil {
		return
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, recentKey(conversationID), data, r.ttl).Err(); err != nil {
		log.Warnf("[ConversationRepository] 写入缓存失败, conversation=%s, err=%v", conversationID, err)
	}
}

func tail(msgs []model.ChatMessage, n int) []model.ChatMessage {
	if len(msgs) > n {
		return msgs[len(msgs)-n:]
	}
	return msgs
}
