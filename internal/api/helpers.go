package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/internal/middleware"
	"github.com/praxis/backend/pkg/response"
	"github.com/praxis/backend/pkg/validator"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a size-limited JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "invalid request body")
		return false
	}
	return true
}

// currentUser returns the authenticated uid or writes a 401
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
	}
	return userID, ok
}

// serviceError maps domain failures to responses. Anything unrecognised is
// logged and reported with the operation's failure message.
func serviceError(w http.ResponseWriter, logger *zap.Logger, err error, failure string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		response.ValidationFailed(w, verrs)
	case errors.Is(err, domain.ErrProfileNotFound), errors.Is(err, domain.ErrUserNotFound):
		response.NotFound(w, "user not found")
	case errors.Is(err, domain.ErrNotificationNotFound):
		response.NotFound(w, "notification not found")
	case errors.Is(err, domain.ErrRequestNotFound):
		response.NotFound(w, "connection request not found")
	case errors.Is(err, domain.ErrSelfAction):
		response.BadRequest(w, "you cannot do that to yourself")
	case errors.Is(err, domain.ErrEmptyMessage):
		response.BadRequest(w, "message text is required")
	case errors.Is(err, domain.ErrInvalidSettings):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrNotConnected):
		response.Forbidden(w, "you can only message your connections")
	case errors.Is(err, domain.ErrUserAlreadyExists):
		response.Conflict(w, "an account with this email already exists")
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.Unauthorized(w, "invalid credentials")
	default:
		logger.Error(failure, zap.Error(err))
		response.InternalError(w, failure)
	}
}
