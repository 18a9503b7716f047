package auth

import (
	"fmt"

	"github.com/iudanet/gophnotes/internal/client/api"
	"github.com/iudanet/gophnotes/internal/models"
)

// expiredError возвращается, когда сервер отклонил токен (401/403).
// Соответствует models.ErrSessionExpired и *api.Error; хранит отклоненный
// токен, чтобы завершение сессии не затронуло токен, полученный позже.
type expiredError struct {
	apiErr *api.Error
	token  string
}

func (e *expiredError) Error() string {
	return fmt.Sprintf("%v: %v", models.ErrSessionExpired, e.apiErr)
}

func (e *expiredError) Unwrap() []error {
	return []error{models.ErrSessionExpired, e.apiErr}
}
