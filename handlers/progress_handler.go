package handlers

import (
	"net/http"

	"github.com/adilbekov/raid-tracker/middleware"
	"github.com/adilbekov/raid-tracker/models"
	"github.com/adilbekov/raid-tracker/services"
)

type ProgressHandler struct {
	progressService services.ProgressService
}

func NewProgressHandler(ps services.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: ps}
}

func (h *ProgressHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	tasks, err := h.progressService.ListTasks(r.Context(), currentUserID, gameModeFromQuery(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tasks": tasks}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type setTaskStatusInput struct {
	TaskID   string            `json:"task_id"`
	GameMode models.GameMode   `json:"game_mode"`
	Status   models.TaskStatus `json:"status"`
}

func (h *ProgressHandler) SetTaskStatus(w http.ResponseWriter, r *http.Request) {
	var input setTaskStatusInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	progress, err := h.progressService.SetTaskStatus(r.Context(), currentUserID, input.GameMode, input.TaskID, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"task": progress}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type toggleObjectiveInput struct {
	TaskID      string          `json:"task_id"`
	ObjectiveID string          `json:"objective_id"`
	GameMode    models.GameMode `json:"game_mode"`
	Completed   bool            `json:"completed"`
}

func (h *ProgressHandler) ToggleObjective(w http.ResponseWriter, r *http.Request) {
	var input toggleObjectiveInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.progressService.ToggleObjective(r.Context(), currentUserID, input.GameMode, input.TaskID, input.ObjectiveID, input.Completed); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "objective updated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ProgressHandler) ListHideout(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	modules, err := h.progressService.ListHideout(r.Context(), currentUserID, gameModeFromQuery(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"modules": modules}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type setHideoutLevelInput struct {
	ModuleID string          `json:"module_id"`
	GameMode models.GameMode `json:"game_mode"`
	Level    int             `json:"level"`
	MaxLevel int             `json:"max_level"`
}

func (h *ProgressHandler) SetHideoutLevel(w http.ResponseWriter, r *http.Request) {
	var input setHideoutLevelInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	progress, err := h.progressService.SetHideoutLevel(r.Context(), currentUserID, input.GameMode, input.ModuleID, input.Level, input.MaxLevel)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"module": progress}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type updateItemInput struct {
	GameMode models.GameMode     `json:"game_mode"`
	Item     models.RequiredItem `json:"item"`
}

func (h *ProgressHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var input updateItemInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	item, err := h.progressService.UpdateItemFound(r.Context(), currentUserID, input.GameMode, &input.Item)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"item": item}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ProgressHandler) ListRequiredItems(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	items, err := h.progressService.AggregateRequiredItems(r.Context(), currentUserID, gameModeFromQuery(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"items": items}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ProgressHandler) Summary(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	summary, err := h.progressService.Summary(r.Context(), currentUserID, gameModeFromQuery(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
