package middleware

import (
	"net/http"
	"strings"

	"github.com/damoang/angple-bugreport/internal/common"
	"github.com/damoang/angple-bugreport/internal/identity"
	"github.com/gin-gonic/gin"
)

// AdminLevel 관리자 최소 회원 레벨
const AdminLevel = 10

const (
	ctxUserID    = "damoang_user_id"
	ctxUserEmail = "damoang_user_email"
	ctxLevel     = "level"
)

// TokenVerifier verifies a damoang_jwt token
type TokenVerifier interface {
	VerifyToken(token string) (*identity.DamoangClaims, error)
}

// DamoangCookieAuth - damoang_jwt 쿠키 또는 Bearer 토큰에서 인증 정보 추출
// 인증 실패해도 요청을 계속 진행 (optional auth)
func DamoangCookieAuth(verifier TokenVerifier, cookieName string) gin.HandlerFunc {
	if cookieName == "" {
		cookieName = "damoang_jwt"
	}
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			// 쿠키가 없으면 Bearer 토큰 확인 (ops 도구 호환)
			if parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}
		if token != "" {
			if claims, verifyErr := verifier.VerifyToken(token); verifyErr == nil {
				c.Set(ctxUserID, claims.GetUserID())
				c.Set(ctxUserEmail, claims.GetEmail())
				c.Set(ctxLevel, claims.GetUserLevel())
			}
		}
		c.Next()
	}
}

// RequireAdmin checks that the authenticated user has admin level (>= 10)
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetDamoangUserID(c) == "" {
			common.V2ErrorResponse(c, http.StatusUnauthorized, "로그인이 필요합니다", nil)
			c.Abort()
			return
		}
		if GetUserLevel(c) < AdminLevel {
			common.V2ErrorResponse(c, http.StatusForbidden, "관리자 권한이 필요합니다", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetDamoangUserID extracts damoang user ID from context
func GetDamoangUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// GetUserLevel extracts the member level from context
func GetUserLevel(c *gin.Context) int {
	return c.GetInt(ctxLevel)
}
