package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"suvidha-go/internal/middleware"
	"suvidha-go/internal/model"
	"suvidha-go/internal/pipeline"
	"suvidha-go/internal/service"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/log"
	"suvidha-go/pkg/tasks"
)

// AdminHandler 负责处理知识库维护与 API Key 管理等管理员请求。
type AdminHandler struct {
	dispatcher pipeline.Dispatcher
	snapshots  service.SnapshotService
	apiKeys    service.APIKeyService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。snapshots 为 nil 表示未配置对象存储。
func NewAdminHandler(dispatcher pipeline.Dispatcher, snapshots service.SnapshotService, apiKeys service.APIKeyService) *AdminHandler {
	return &AdminHandler{dispatcher: dispatcher, snapshots: snapshots, apiKeys: apiKeys}
}

// RebuildRequest 是重建知识库的请求体，category 为空表示全部分类。
type RebuildRequest struct {
	Category string `json:"category"`
}

// RebuildKnowledge 提交知识库重建任务。
func (h *AdminHandler) RebuildKnowledge(c *gin.Context) {
	var req RebuildRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "无效的请求负载")
			return
		}
	}
	if req.Category != "" && !model.KnowledgeCategory(req.Category).Valid() {
		badRequest(c, "unknown knowledge category: "+req.Category)
		return
	}
	task := tasks.KnowledgeIngestTask{
		TaskID:      uuid.NewString(),
		Category:    req.Category,
		RequestedBy: middleware.CitizenID(c),
		RequestedAt: time.Now(),
	}
	if err := h.dispatcher.Dispatch(c.Request.Context(), task); err != nil {
		log.Errorf("[AdminHandler] 提交重建任务失败: %v", err)
		respondError(c, err)
		return
	}
	log.Infof("[AdminHandler] 管理员 '%s' 提交了重建任务 %s, category=%q", task.RequestedBy, task.TaskID, task.Category)
	respondOK(c, gin.H{"taskId": task.TaskID, "category": task.Category})
}

func (h *AdminHandler) snapshotsEnabled(c *gin.Context) bool {
	if h.snapshots == nil {
		respondError(c, apperr.New(apperr.CodeInvalidInput, "object storage is not configured"))
		return false
	}
	return true
}

// ExportSnapshot 将知识库导出到对象存储。
func (h *AdminHandler) ExportSnapshot(c *gin.Context) {
	if !h.snapshotsEnabled(c) {
		return
	}
	result, err := h.snapshots.Export(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// ListSnapshots 列出已有快照。
func (h *AdminHandler) ListSnapshots(c *gin.Context) {
	if !h.snapshotsEnabled(c) {
		return
	}
	names, err := h.snapshots.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, names)
}

// RestoreSnapshotRequest 指定要恢复的快照对象。
type RestoreSnapshotRequest struct {
	Object string `json:"object" binding:"required"`
}

// RestoreSnapshot 从对象存储恢复知识库，不重新向量化。
func (h *AdminHandler) RestoreSnapshot(c *gin.Context) {
	if !h.snapshotsEnabled(c) {
		return
	}
	var req RestoreSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "object is required")
		return
	}
	result, err := h.snapshots.Restore(c.Request.Context(), req.Object)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// CreateAPIKeyRequest 是创建部门 API Key 的请求体。
type CreateAPIKeyRequest struct {
	Name       string `json:"name" binding:"required"`
	Department string `json:"department" binding:"required"`
}

// CreateAPIKey 为部门系统签发 API Key，密钥只返回这一次。
func (h *AdminHandler) CreateAPIKey(c *gin.Context) {
	var req CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name and department are required")
		return
	}
	issued, err := h.apiKeys.Create(c.Request.Context(), req.Name, req.Department)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, issued)
}

// RevokeAPIKey 吊销一个 API Key。
func (h *AdminHandler) RevokeAPIKey(c *gin.Context) {
	if err := h.apiKeys.Revoke(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}
