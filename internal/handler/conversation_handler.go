package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"suvidha-go/internal/middleware"
	"suvidha-go/internal/service"
	"suvidha-go/pkg/apperr"
)

// ConversationHandler 处理对话创建与历史查询。
type ConversationHandler struct {
	service service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(service service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// CreateConversation 创建一个新对话，匿名调用者得到匿名对话。
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	citizenID := middleware.CitizenID(c)
	conv, err := h.service.CreateConversation(c.Request.Context(), citizenID)
	if err != nil {
		chatError(c, err)
		return
	}
	var owner any
	if citizenID != "" {
		owner = citizenID
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "conversationId": conv.ID, "citizenId": owner})
}

// GetHistory 返回对话的完整消息日志。
func (h *ConversationHandler) GetHistory(c *gin.Context) {
	history, err := h.service.GetHistory(c.Request.Context(), c.Param("conversationId"), middleware.CitizenID(c))
	if err != nil {
		chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "conversation": history.Conversation, "messages": history.Messages})
}

// chatError 以聊天接口的 {success, error} 形式返回错误。
func chatError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	c.JSON(status, gin.H{"success": false, "error": apperr.MessageOf(err)})
}
