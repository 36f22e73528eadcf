package handler

import (
	"github.com/gin-gonic/gin"

	"suvidha-go/internal/eligibility"
	"suvidha-go/internal/middleware"
	"suvidha-go/internal/service"
	"suvidha-go/pkg/log"
)

// SchemeHandler 处理福利计划详情与资格检查请求。
type SchemeHandler struct {
	schemeService service.SchemeService
}

// NewSchemeHandler 创建一个新的 SchemeHandler 实例。
func NewSchemeHandler(schemeService service.SchemeService) *SchemeHandler {
	return &SchemeHandler{schemeService: schemeService}
}

// CheckEligibilityRequest 是资格检查的请求体，answers 以标准 ID 为键。
type CheckEligibilityRequest struct {
	Answers       eligibility.Answers `json:"answers" binding:"required"`
	SaveToProfile bool                `json:"saveToProfile"`
}

// GetScheme 返回计划详情，登录公民会得到预填答案。
func (h *SchemeHandler) GetScheme(c *gin.Context) {
	detail, err := h.schemeService.GetScheme(c.Request.Context(), c.Param("schemeId"), middleware.CitizenID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, detail)
}

// CheckEligibility 评估公民对资格问题的回答。
func (h *SchemeHandler) CheckEligibility(c *gin.Context) {
	var req CheckEligibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[SchemeHandler] 无效的请求负载: %v", err)
		badRequest(c, "answers are required")
		return
	}
	schemeID := c.Param("schemeId")
	report, err := h.schemeService.CheckEligibility(c.Request.Context(), schemeID, middleware.CitizenID(c), req.Answers, req.SaveToProfile)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Infof("[SchemeHandler] 资格检查完成: scheme=%s, status=%s, score=%d/%d", schemeID, report.EligibilityStatus, report.Score, report.MaxScore)
	respondOK(c, report)
}
