package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Dosada05/bounty-system/middleware"
	"github.com/Dosada05/bounty-system/models"
	"github.com/go-chi/chi/v5"
)

type NotificationService interface {
	List(ctx context.Context, userID int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id int64, userID int) error
}

type CompletionHistory interface {
	History(ctx context.Context, userID int) ([]*models.CompletedBounty, error)
}

// InboxHandler отдаёт уведомления и историю завершённых баунти текущего пользователя.
type InboxHandler struct {
	notifications NotificationService
	history       CompletionHistory
}

func NewInboxHandler(ns NotificationService, history CompletionHistory) *InboxHandler {
	return &InboxHandler{notifications: ns, history: history}
}

func (h *InboxHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	list, err := h.notifications.List(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"notifications": list}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *InboxHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	idStr := chi.URLParam(r, "notificationID")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		errorResponse(w, r, http.StatusBadRequest, "invalid notificationID: "+strconv.Quote(idStr))
		return
	}

	if err := h.notifications.MarkRead(r.Context(), id, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *InboxHandler) Completions(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	completed, err := h.history.History(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"completed_bounties": completed}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
