package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"suvidha-go/internal/middleware"
	"suvidha-go/internal/model"
	"suvidha-go/internal/service"
	"suvidha-go/pkg/log"
)

// maxSearchTopK 限制单次检索返回的条目数。
const maxSearchTopK = 20

// KnowledgeHandler 提供知识库语义检索接口。
type KnowledgeHandler struct {
	knowledgeService service.KnowledgeService
}

// NewKnowledgeHandler 创建一个新的 KnowledgeHandler 实例。
func NewKnowledgeHandler(knowledgeService service.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledgeService: knowledgeService}
}

func searchOptions(c *gin.Context) service.SearchOptions {
	topK, err := strconv.Atoi(c.DefaultQuery("topK", "5"))
	if err != nil || topK <= 0 {
		topK = 5
	}
	if topK > maxSearchTopK {
		topK = maxSearchTopK
	}
	return service.SearchOptions{
		Category:   model.KnowledgeCategory(c.Query("category")),
		Department: c.Query("department"),
		TopK:       topK,
	}
}

// Search 处理 GET /knowledge/search。
func (h *KnowledgeHandler) Search(c *gin.Context) {
	query := c.Query("query")
	opts := searchOptions(c)
	log.Infof("[KnowledgeHandler] 收到检索请求, query: %s, category: %q, topK: %d", query, opts.Category, opts.TopK)

	results, err := h.knowledgeService.Search(c.Request.Context(), query, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"results": results, "total": len(results)})
}

// DepartmentSearch 处理集成接口的检索，结果限定在 API Key 所属部门。
func (h *KnowledgeHandler) DepartmentSearch(c *gin.Context) {
	opts := searchOptions(c)
	opts.Department = middleware.APIKeyDepartment(c)

	results, err := h.knowledgeService.Search(c.Request.Context(), c.Query("query"), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Infof("[KnowledgeHandler] 部门检索完成, department: %s, 返回 %d 条结果", opts.Department, len(results))
	respondOK(c, gin.H{"department": opts.Department, "results": results, "total": len(results)})
}
