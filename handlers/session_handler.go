package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/adilbekov/raid-tracker/middleware"
	"github.com/adilbekov/raid-tracker/models"
)

// SessionHandler issues session tokens. There is no password flow: a
// session is created for a display name and its id becomes the stable
// member identity used by the team subsystem.
type SessionHandler struct {
	secret []byte
}

func NewSessionHandler(secret []byte) *SessionHandler {
	return &SessionHandler{secret: secret}
}

type createSessionInput struct {
	DisplayName string `json:"display_name"`
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var input createSessionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.DisplayName == "" {
		badRequestResponse(w, r, errors.New("display_name is required"))
		return
	}

	user := models.User{
		ID:          uuid.NewString(),
		DisplayName: input.DisplayName,
		CreatedAt:   time.Now(),
	}

	token, err := middleware.GenerateSessionToken(h.secret, user.ID, user.DisplayName)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	response := jsonResponse{
		"token": token,
		"user":  user,
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
