package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/pkg/response"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	service *domain.NotificationService
	logger  *zap.Logger
}

func NewNotificationHandler(service *domain.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger,
	}
}

// GetNotifications handles GET /api/v1/notifications?limit=
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	notifs, err := h.service.GetNotifications(r.Context(), userID, limit)
	if err != nil {
		serviceError(w, h.logger, err, "failed to fetch notifications")
		return
	}
	response.OK(w, notifs)
}

// MarkRead handles POST /api/v1/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.service.MarkRead(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		serviceError(w, h.logger, err, "failed to mark notification as read")
		return
	}
	response.NoContent(w)
}
