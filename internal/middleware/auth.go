// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"suvidha-go/pkg/log"
	"suvidha-go/pkg/token"
)

// 上下文中保存身份信息的键。
const (
	ContextClaims    = "claims"
	ContextCitizenID = "citizenId"
)

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	return tok, tok != ""
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": status, "message": message, "data": nil})
}

func setClaims(c *gin.Context, claims *token.CustomClaims) {
	c.Set(ContextClaims, claims)
	c.Set(ContextCitizenID, claims.CitizenID)
}

func verify(c *gin.Context, jwtManager *token.JWTManager) (*token.CustomClaims, bool) {
	tokenString, ok := bearerToken(c)
	if !ok {
		abort(c, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	claims, err := jwtManager.VerifyToken(tokenString)
	if err != nil {
		log.Warnf("[Auth] token 校验失败: path=%s, err=%v", c.Request.URL.Path, err)
		abort(c, http.StatusUnauthorized, "Invalid or expired token")
		return nil, false
	}
	return claims, true
}

// Authenticate 要求请求携带有效的 Bearer token，不限制角色。
func Authenticate(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := verify(c, jwtManager)
		if !ok {
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// RequireCitizen 要求请求携带有效的公民 token，并把公民 ID 写入上下文。
func RequireCitizen(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := verify(c, jwtManager)
		if !ok {
			return
		}
		if claims.Role != token.RoleCitizen {
			log.Warnf("[Auth] 非公民角色访问公民接口: path=%s, role=%s", c.Request.URL.Path, claims.Role)
			abort(c, http.StatusForbidden, "Citizen access required")
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalCitizen 在公民 token 有效时写入公民 ID，其余情况按匿名请求继续处理。
func OptionalCitizen(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearerToken(c); ok {
			claims, err := jwtManager.VerifyToken(tokenString)
			switch {
			case err != nil:
				log.Warnf("[Auth] 忽略无效 token, 按匿名处理: path=%s, err=%v", c.Request.URL.Path, err)
			case claims.Role != token.RoleCitizen:
				log.Warnf("[Auth] 非公民角色 token, 按匿名处理: path=%s, role=%s", c.Request.URL.Path, claims.Role)
			default:
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// RequireAdmin 检查调用者是否为管理员，必须在 Authenticate 之后使用。
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextClaims)
		if !exists {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		claims, ok := value.(*token.CustomClaims)
		if !ok || claims.Role != token.RoleAdmin {
			abort(c, http.StatusForbidden, "Administrator access required")
			return
		}
		c.Next()
	}
}

// CitizenID 返回当前请求的公民 ID，匿名请求返回空字符串。
func CitizenID(c *gin.Context) string {
	return c.GetString(ContextCitizenID)
}
