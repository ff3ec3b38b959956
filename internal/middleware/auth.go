package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userIdKey = "user_id"

// Claims 会话令牌载荷，Subject 为用户 id
type Claims struct {
	Wallet string `json:"wallet,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager HS256 令牌签发与校验
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue 签发令牌
func (m *TokenManager) Issue(userId, wallet string) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Wallet: wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userId,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    "titaflow",
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Parse 校验签名与有效期
func (m *TokenManager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer("titaflow"))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	// 浏览器的 websocket 无法设置请求头
	return c.Query("token")
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": message})
}

// JWT 要求有效的会话令牌
func JWT(m *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			abortUnauthorized(c, "缺少令牌")
			return
		}
		claims, err := m.Parse(tokenStr)
		if err != nil {
			abortUnauthorized(c, "令牌无效或已过期")
			return
		}
		c.Set(userIdKey, claims.Subject)
		c.Next()
	}
}

// UserID 当前登录用户
func UserID(c *gin.Context) string {
	return c.GetString(userIdKey)
}

// SharedSecret 校验治理回调的共享密钥
func SharedSecret(header, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(header)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			abortUnauthorized(c, "密钥无效")
			return
		}
		c.Next()
	}
}
