package services

import (
	"errors"
	"fmt"

	"github.com/adilbekov/raid-tracker/models"
)

// Business errors shared between services and the HTTP mapping layer.
var (
	// Validation
	ErrValidationFailed  = errors.New("validation failed")
	ErrInvalidGameMode   = errors.New("invalid game mode")
	ErrInvalidCodeFormat = errors.New("invite code must be exactly 6 digits")
	ErrNameRequired      = errors.New("display name is required")
	ErrTeamNameRequired  = errors.New("team name is required")

	// Team business rules
	ErrAlreadyInTeam  = errors.New("user already belongs to a team in this game mode")
	ErrAlreadyMember  = errors.New("user is already a member of this team")
	ErrTeamFull       = errors.New("team is full")
	ErrInvalidCode    = errors.New("invalid invite code")
	ErrCodeInUse      = errors.New("invite code already in use for this game mode")
	ErrCodeGeneration = errors.New("failed to generate a unique invite code")

	// Authorization (advisory, not an access-control boundary)
	ErrNotLeader          = errors.New("only the team leader can perform this action")
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
	ErrLeaderCannotLeave  = errors.New("the leader cannot leave the team, disband it instead")

	// Not found
	ErrTeamNotFound   = errors.New("team not found")
	ErrMemberNotFound = errors.New("team member not found")
	ErrUserNotFound   = errors.New("user not found")

	// Progress rules
	ErrInvalidTaskStatus = errors.New("invalid task status")
	ErrLevelOutOfRange   = errors.New("hideout level out of range")
	ErrQuantityNegative  = errors.New("item quantity cannot be negative")
)

// GameModeMismatchError reports a join attempted against a team from the
// other game mode. RequiredMode is carried end-to-end as a structured field
// so clients can prompt a mode switch without parsing the message.
type GameModeMismatchError struct {
	RequiredMode models.GameMode
	CallerMode   models.GameMode
}

func (e *GameModeMismatchError) Error() string {
	return fmt.Sprintf("invite code belongs to a %s team, caller is in %s mode", e.RequiredMode, e.CallerMode)
}

// Is lets errors.Is(err, &GameModeMismatchError{}) match regardless of modes.
func (e *GameModeMismatchError) Is(target error) bool {
	_, ok := target.(*GameModeMismatchError)
	return ok
}
