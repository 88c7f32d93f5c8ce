package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"linkchat/internal/config"
	"linkchat/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/pbkdf2"
	"gorm.io/gorm"
)

// HashIterations 是 PBKDF2 迭代次数，低于此值的哈希视为不安全。
const HashIterations = 100000

const hashKeyLen = 32

// Claims 即会话本身：用户身份加上已加入的房间链接集合，
// 全部随签名 token 下发，服务端不保存任何会话状态。
type Claims struct {
	UserID   uint     `json:"uid"`
	Username string   `json:"uname"`
	Rooms    []string `json:"rooms,omitempty"`
	jwt.RegisteredClaims
}

// Joined 判断会话是否已加入指定房间。
func (c *Claims) Joined(link string) bool {
	for _, r := range c.Rooms {
		if r == link {
			return true
		}
	}
	return false
}

// GenerateSalt 生成 16 字节随机盐的 hex 表示。
func GenerateSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashPassword 以存储盐做 PBKDF2-HMAC-SHA256 迭代哈希。
func HashPassword(pw, salt string) string {
	key := pbkdf2.Key([]byte(pw), []byte(salt), HashIterations, hashKeyLen, sha256.New)
	return hex.EncodeToString(key)
}

// VerifyPassword 用存储盐重算哈希并做恒定时间比较。
func VerifyPassword(storedHash, pw, salt string) bool {
	computed := HashPassword(pw, salt)
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(computed)) == 1
}

func GenerateSessionToken(userID uint, username string, rooms []string, secret string, ttlHours int) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Rooms:    rooms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseSessionToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// Middleware 校验 Bearer token 并确认用户仍然存在，claims 放入上下文供 handler 使用。
func Middleware(cfg config.Config, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "not authenticated"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := ParseSessionToken(tokenStr, cfg.SessionSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}
		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "user not found"})
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}

// GetClaims 取出中间件放入的会话 claims，未认证时返回 nil。
func GetClaims(c *gin.Context) *Claims {
	if v, ok := c.Get("claims"); ok {
		if cl, ok2 := v.(*Claims); ok2 {
			return cl
		}
	}
	return nil
}

func GetUserID(c *gin.Context) uint {
	if cl := GetClaims(c); cl != nil {
		return cl.UserID
	}
	return 0
}
