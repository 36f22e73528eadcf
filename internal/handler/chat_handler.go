package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"suvidha-go/internal/middleware"
	"suvidha-go/internal/service"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/log"
	"suvidha-go/pkg/token"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatMessageRequest 是 POST /chat/message 与 WebSocket 帧的请求体。
type ChatMessageRequest struct {
	ConversationID string `json:"conversationId" binding:"required"`
	Message        string `json:"message" binding:"required"`
}

// chatResponse 是聊天回复的对外形式。
type chatResponse struct {
	Success bool `json:"success"`
	*service.ChatReply
}

// ChatHandler 负责处理聊天消息，包括 HTTP 和 WebSocket 两种方式。
type ChatHandler struct {
	chatService service.ChatService
	jwtManager  *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{chatService: chatService, jwtManager: jwtManager}
}

// SendMessage 处理一条聊天消息。
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[ChatHandler] 无效的请求负载: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "conversationId and message are required"})
		return
	}
	reply, err := h.chatService.HandleMessage(c.Request.Context(), req.ConversationID, req.Message, middleware.CitizenID(c))
	if err != nil {
		chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, chatResponse{Success: true, ChatReply: reply})
}

// Socket 处理 WebSocket 连接。每个 {conversationId, message} 帧得到一个与 SendMessage 相同形式的回复帧。
// 可通过 ?token= 携带公民 token，缺失时按匿名处理。
func (h *ChatHandler) Socket(c *gin.Context) {
	citizenID := middleware.CitizenID(c)
	if tok := c.Query("token"); tok != "" && citizenID == "" {
		claims, err := h.jwtManager.VerifyToken(tok)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid or expired token"})
			return
		}
		if claims.Role == token.RoleCitizen {
			citizenID = claims.CitizenID
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("[ChatHandler] WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infof("[ChatHandler] WebSocket 连接已建立, citizen=%q", citizenID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("[ChatHandler] 从 WebSocket 读取消息失败: %v", err)
			}
			return
		}
		if err := conn.WriteJSON(h.answerFrame(c, message, citizenID)); err != nil {
			log.Warnf("[ChatHandler] 写入 WebSocket 消息失败: %v", err)
			return
		}
	}
}

func (h *ChatHandler) answerFrame(c *gin.Context, message []byte, citizenID string) any {
	var req ChatMessageRequest
	if err := json.Unmarshal(message, &req); err != nil || req.ConversationID == "" || req.Message == "" {
		return gin.H{"success": false, "error": "conversationId and message are required"}
	}
	reply, err := h.chatService.HandleMessage(c.Request.Context(), req.ConversationID, req.Message, citizenID)
	if err != nil {
		return gin.H{"success": false, "error": apperr.MessageOf(err)}
	}
	return chatResponse{Success: true, ChatReply: reply}
}
