package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dosada05/bounty-system/middleware"
	"github.com/Dosada05/bounty-system/models"
	"github.com/Dosada05/bounty-system/services"
)

// BountyService — то, что обработчику нужно от services.BountyService.
type BountyService interface {
	CreateBounty(ctx context.Context, issuerID int, input services.CreateBountyInput) (*models.Bounty, error)
	GetBounty(ctx context.Context, id int) (*models.Bounty, error)
	ListForUser(ctx context.Context, userID int) ([]*models.BountySummary, error)
	DeleteBounty(ctx context.Context, id, actorID int) error
	MarkCompleted(ctx context.Context, bountyID, userID, actorID int) error
}

type BountyHandler struct {
	bountyService BountyService
}

func NewBountyHandler(bs BountyService) *BountyHandler {
	return &BountyHandler{bountyService: bs}
}

// Create godoc
// @Summary Создать баунти
// @Tags bounties
// @Accept json
// @Produce json
// @Param input body services.CreateBountyInput true "Данные баунти"
// @Success 201 {object} map[string]interface{} "Баунти создано"
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Security BearerAuth
// @Router /bounties [post]
func (h *BountyHandler) Create(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to create bounty")
		return
	}

	var input services.CreateBountyInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bounty, err := h.bountyService.CreateBounty(r.Context(), currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"message": "Bounty created successfully", "bounty": bounty}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List godoc
// @Summary Активные баунти колледжа текущего пользователя
// @Tags bounties
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /bounties [get]
func (h *BountyHandler) List(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	bounties, err := h.bountyService.ListForUser(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bounties": bounties}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BountyHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "bountyID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bounty, err := h.bountyService.GetBounty(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bounty": bounty}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Delete godoc
// @Summary Удалить баунти (только автор, пока нет команд)
// @Tags bounties
// @Param bountyID path int true "Bounty ID"
// @Success 204
// @Failure 403 {object} map[string]string "Не автор"
// @Failure 409 {object} map[string]string "Уже есть команды"
// @Security BearerAuth
// @Router /bounties/{bountyID} [delete]
func (h *BountyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "bountyID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.bountyService.DeleteBounty(r.Context(), id, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type markCompletedInput struct {
	UserID int `json:"user_id"`
}

// MarkCompleted фиксирует завершение баунти участником; с этого момента идёт его кулдаун.
func (h *BountyHandler) MarkCompleted(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "bountyID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input markCompletedInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.UserID <= 0 {
		badRequestResponse(w, r, errors.New("user_id must be a positive integer"))
		return
	}

	if err := h.bountyService.MarkCompleted(r.Context(), id, input.UserID, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
