package middleware

import (
	"github.com/gin-gonic/gin"

	"suvidha-go/internal/model"
	"suvidha-go/internal/service"
	"suvidha-go/pkg/apperr"
	"suvidha-go/pkg/log"
)

// ContextAPIKey 是上下文中保存已认证 API Key 的键。
const ContextAPIKey = "apiKey"

// APIKeyHeader 是部门系统携带密钥的请求头。
const APIKeyHeader = "X-API-Key"

// APIKeyAuth 校验 X-API-Key 请求头。已吊销的密钥返回 403。
func APIKeyAuth(keys service.APIKeyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader(APIKeyHeader)
		if presented == "" {
			err := apperr.New(apperr.CodeUnauthorized, "API key required")
			abort(c, apperr.HTTPStatus(err), apperr.MessageOf(err))
			return
		}
		key, err := keys.Authenticate(c.Request.Context(), presented)
		if err != nil {
			log.Warnf("[APIKeyAuth] API Key 校验失败: path=%s, err=%v", c.Request.URL.Path, err)
			abort(c, apperr.HTTPStatus(err), apperr.MessageOf(err))
			return
		}
		c.Set(ContextAPIKey, key)
		c.Next()
	}
}

// APIKeyDepartment 返回当前 API Key 所属部门。
func APIKeyDepartment(c *gin.Context) string {
	if v, ok := c.Get(ContextAPIKey); ok {
		if key, ok := v.(*model.APIKey); ok {
			return key.Department
		}
	}
	return ""
}
