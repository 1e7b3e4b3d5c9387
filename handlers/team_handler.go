package handlers

import (
	"net/http"

	"github.com/adilbekov/raid-tracker/middleware"
	"github.com/adilbekov/raid-tracker/models"
	"github.com/adilbekov/raid-tracker/services"
)

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(ts services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: ts}
}

func gameModeFromQuery(r *http.Request) models.GameMode {
	return models.GameMode(r.URL.Query().Get("game_mode"))
}

// GetTeam is the polling read: the caller's team in the requested mode, or
// an explicit null. Null is a successful answer, not an error; the client
// reconciler depends on the distinction.
func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	team, err := h.teamService.RefreshTeam(r.Context(), currentUserID, gameModeFromQuery(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	var payload interface{}
	if team != nil {
		payload = team.ViewFor(currentUserID)
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": payload}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	input.UserID = currentUserID
	if input.LeaderName == "" {
		input.LeaderName = middleware.GetUserNameFromContext(r.Context())
	}

	team, err := h.teamService.CreateTeam(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team.ViewFor(currentUserID)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) DisbandTeam(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.teamService.DisbandTeam(r.Context(), currentUserID, gameModeFromQuery(r)); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "team disbanded"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) JoinTeam(w http.ResponseWriter, r *http.Request) {
	var input services.JoinTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}
	input.UserID = currentUserID
	if input.UserName == "" {
		input.UserName = middleware.GetUserNameFromContext(r.Context())
	}

	team, err := h.teamService.JoinTeam(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team.ViewFor(currentUserID)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type inviteMemberInput struct {
	MemberName string          `json:"member_name"`
	GameMode   models.GameMode `json:"game_mode"`
}

func (h *TeamHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	var input inviteMemberInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	team, err := h.teamService.InviteMember(r.Context(), currentUserID, input.MemberName, input.GameMode)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team.ViewFor(currentUserID)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type removeMemberInput struct {
	MemberID string          `json:"member_id"`
	GameMode models.GameMode `json:"game_mode"`
}

func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	var input removeMemberInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	team, err := h.teamService.RemoveMember(r.Context(), currentUserID, input.MemberID, input.GameMode)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team.ViewFor(currentUserID)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type rotateCodeInput struct {
	GameMode models.GameMode `json:"game_mode"`
}

func (h *TeamHandler) RotateInviteCode(w http.ResponseWriter, r *http.Request) {
	var input rotateCodeInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	code, err := h.teamService.RotateInviteCode(r.Context(), currentUserID, input.GameMode)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"invite_code": code}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type syncCodeInput struct {
	InviteCode string          `json:"invite_code"`
	GameMode   models.GameMode `json:"game_mode"`
}

func (h *TeamHandler) SyncCode(w http.ResponseWriter, r *http.Request) {
	var input syncCodeInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	code, err := h.teamService.SyncCode(r.Context(), currentUserID, input.InviteCode, input.GameMode)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"invite_code": code}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
