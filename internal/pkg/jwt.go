package pkg

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"VISO_Collective/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenInvalid      = errors.New("token invalid")
	ErrTokenParseFailure = errors.New("token parse failure")
	ErrMissingSubject    = errors.New("token missing subject")
	ErrEmptySecret       = errors.New("token secret is empty")
)

const DevTokenTTL = time.Hour * 24

// Claims 身份提供方签发的令牌：sub 为用户标识，name 为显示名
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Caller 转成请求调用者
func (c *Claims) Caller() model.Caller {
	return model.Caller{ID: c.Subject, Name: c.Name}
}

// IdentityTokens 使用共享密钥校验 HS256 令牌
type IdentityTokens struct {
	secret []byte
}

func NewIdentityTokens(secret string) (*IdentityTokens, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &IdentityTokens{secret: []byte(secret)}, nil
}

// Parse 解析并校验令牌
func (t *IdentityTokens) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenInvalid
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, errors.Join(ErrTokenInvalid, err)
		}
	}
	if !token.Valid {
		return nil, ErrTokenParseFailure
	}
	claims := token.Claims.(*Claims)
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

// Mint 签发开发用令牌，生产环境由身份提供方签发
func (t *IdentityTokens) Mint(subject, name string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", ErrMissingSubject
	}
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return tok.SignedString(t.secret)
}

// RevocationKey 吊销键：有 jti 用 jti，否则用令牌摘要
func RevocationKey(claims *Claims, raw string) string {
	if claims.ID != "" {
		return claims.ID
	}
	sum := sha256.Sum256([]byte(raw))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// RemainingTTL 距离过期的时长，没有 exp 时按开发令牌时长处理
func RemainingTTL(claims *Claims, now time.Time) time.Duration {
	if claims.ExpiresAt == nil {
		return DevTokenTTL
	}
	return claims.ExpiresAt.Sub(now)
}
