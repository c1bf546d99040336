package session

import (
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Claims содержит сведения из полезной нагрузки JWT, выданного сервером.
// Токен для клиента непрозрачен и подписи не проверяет (секрет остаётся
// на сервере); значения носят справочный характер.
type Claims struct {
	UUID      string
	Username  string
	Role      string
	ExpiresAt *time.Time
}

type tokenClaims struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ParseClaims извлекает данные из JWT без проверки подписи.
// Любая ошибка разбора даёт пустые Claims: токен остаётся пригодным
// как bearer-учётные данные, даже если его формат неизвестен.
func ParseClaims(token string) Claims {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}
	}
	parsed := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, parsed); err != nil {
		return Claims{}
	}
	claims := Claims{
		UUID:     parsed.UUID,
		Username: parsed.Username,
		Role:     parsed.Role,
	}
	if parsed.ExpiresAt != nil {
		expiry := parsed.ExpiresAt.Time
		claims.ExpiresAt = &expiry
	}
	return claims
}
