package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry читает claim exp без проверки подписи.
// Клиент не знает секрет сервера, поэтому значение используется только как
// подсказка: просроченный токен не восстанавливается из хранилища.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}
