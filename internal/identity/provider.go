package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/damoang/angple-bugreport/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Provider returns the identity of the current user. Anonymous users have
// nil fields.
type Provider interface {
	Current(ctx context.Context) domain.Identity
}

// Anonymous 비로그인 사용자
var Anonymous = domain.Identity{}

// Static is a fixed identity, updated by the host on login/logout
type Static struct {
	mu sync.RWMutex
	id domain.Identity
}

// NewStatic 생성자
func NewStatic(id, email string) *Static {
	return &Static{id: domain.Identity{ID: domain.StringPtr(id), Email: domain.StringPtr(email)}}
}

// Set replaces the identity
func (s *Static) Set(id, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = domain.Identity{ID: domain.StringPtr(id), Email: domain.StringPtr(email)}
}

// Current implements Provider
func (s *Static) Current(context.Context) domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// DamoangClaims - damoang.net JWT 페이로드
// damoang.net 형식(mb_id, mb_email)과 angple 형식(user_id, email)을 모두 지원
type DamoangClaims struct {
	jwt.RegisteredClaims
	MbID    string `json:"mb_id"`
	MbName  string `json:"mb_name"`
	MbEmail string `json:"mb_email"`
	MbLevel int    `json:"mb_level"`
	// angple 형식 (개발/테스트용)
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Level  int    `json:"level,omitempty"`
}

// GetUserID returns the user ID, checking both formats
func (c *DamoangClaims) GetUserID() string {
	if c.MbID != "" {
		return c.MbID
	}
	return c.UserID
}

// GetEmail returns the e-mail, checking both formats
func (c *DamoangClaims) GetEmail() string {
	if c.MbEmail != "" {
		return c.MbEmail
	}
	return c.Email
}

// GetUserLevel returns the member level, checking both formats
func (c *DamoangClaims) GetUserLevel() int {
	if c.MbLevel != 0 {
		return c.MbLevel
	}
	return c.Level
}

// TokenSource returns the raw damoang_jwt value, or "" when logged out
type TokenSource func(ctx context.Context) string

// JWTProvider derives the identity from the damoang_jwt token.
// Missing or invalid tokens yield Anonymous.
type JWTProvider struct {
	secretKey []byte
	source    TokenSource
}

// NewJWTProvider 생성자
func NewJWTProvider(secret string, source TokenSource) *JWTProvider {
	return &JWTProvider{secretKey: []byte(secret), source: source}
}

// Current implements Provider
func (p *JWTProvider) Current(ctx context.Context) domain.Identity {
	if p.source == nil {
		return Anonymous
	}
	raw := p.source(ctx)
	if raw == "" {
		return Anonymous
	}
	claims, err := p.VerifyToken(raw)
	if err != nil {
		return Anonymous
	}
	return domain.Identity{
		ID:    domain.StringPtr(claims.GetUserID()),
		Email: domain.StringPtr(claims.GetEmail()),
	}
}

// VerifyToken - damoang.net JWT 토큰 검증
func (p *JWTProvider) VerifyToken(tokenString string) (*DamoangClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &DamoangClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*DamoangClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// StaticToken returns a TokenSource for a fixed token string
func StaticToken(token string) TokenSource {
	return func(context.Context) string { return token }
}
