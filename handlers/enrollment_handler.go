package handlers

import (
	"fmt"
	"net/http"

	"github.com/Dosada05/bounty-system/middleware"
	"github.com/Dosada05/bounty-system/services"
)

type EnrollmentHandler struct {
	enrollmentService services.EnrollmentService
}

func NewEnrollmentHandler(es services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentService: es}
}

// Enroll godoc
// @Summary Записаться на баунти
// @Tags enrollment
// @Description Пользователь встаёт в очередь; как только набирается команда, она формируется сразу.
// @Produce json
// @Param bountyID path int true "Bounty ID"
// @Success 200 {object} map[string]interface{} "В очереди или команда сформирована"
// @Failure 403 {object} map[string]interface{} "Кулдаун (remaining_hours) или чужой колледж"
// @Failure 404 {object} map[string]string "Баунти не найдено"
// @Failure 409 {object} map[string]string "Уже записан или баунти неактивно"
// @Security BearerAuth
// @Router /bounties/{bountyID}/enroll [post]
func (h *EnrollmentHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	bountyID, err := getIDFromURL(r, "bountyID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	result, err := h.enrollmentService.Enroll(r.Context(), bountyID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	message := "Enrolled and currently in queue."
	if result.Status == services.EnrollStatusTeamFormed {
		message = fmt.Sprintf("Team formed and you are enrolled! %d team(s) created.", result.TeamsFormed)
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": message, "result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EnrollmentHandler) ParticipantCount(w http.ResponseWriter, r *http.Request) {
	bountyID, err := getIDFromURL(r, "bountyID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	count, err := h.enrollmentService.GetParticipantCount(r.Context(), bountyID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bounty_id": bountyID, "participants": count}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EnrollmentHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	bountyID, err := getIDFromURL(r, "bountyID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	status, err := h.enrollmentService.QueueStatus(r.Context(), bountyID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": status}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// FormTeams godoc
// @Summary Принудительно сформировать команды (только автор баунти)
// @Tags enrollment
// @Param bountyID path int true "Bounty ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Мало людей в очереди (needed)"
// @Failure 403 {object} map[string]string "Не автор"
// @Security BearerAuth
// @Router /bounties/{bountyID}/form-teams [post]
func (h *EnrollmentHandler) FormTeams(w http.ResponseWriter, r *http.Request) {
	bountyID, err := getIDFromURL(r, "bountyID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	result, err := h.enrollmentService.TriggerFormation(r.Context(), bountyID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	message := fmt.Sprintf("Team formation triggered. Created %d teams.", result.TeamsFormed)
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": message, "result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EnrollmentHandler) MyTeams(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	teams, err := h.enrollmentService.ListUserTeams(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
