package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/adilbekov/raid-tracker/models"
	"github.com/adilbekov/raid-tracker/realtime"
	"github.com/adilbekov/raid-tracker/store"
)

var inviteCodePattern = regexp.MustCompile(`^\d{6}$`)

const codeGenerationAttempts = 5

type CreateTeamInput struct {
	UserID     string          `json:"-"`
	TeamName   string          `json:"team_name"`
	LeaderName string          `json:"leader_name"`
	GameMode   models.GameMode `json:"game_mode"`
	// InitialInviteCode is only supplied by the client-side restoration path,
	// which re-creates a team under its previously known code.
	InitialInviteCode string `json:"initial_invite_code,omitempty"`
}

type JoinTeamInput struct {
	UserID     string          `json:"-"`
	InviteCode string          `json:"invite_code"`
	UserName   string          `json:"user_name"`
	GameMode   models.GameMode `json:"game_mode"`
}

type TeamService interface {
	CreateTeam(ctx context.Context, input CreateTeamInput) (*models.Team, error)
	JoinTeam(ctx context.Context, input JoinTeamInput) (*models.Team, error)
	InviteMember(ctx context.Context, leaderUserID, memberName string, mode models.GameMode) (*models.Team, error)
	RemoveMember(ctx context.Context, callerUserID, memberID string, mode models.GameMode) (*models.Team, error)
	DisbandTeam(ctx context.Context, userID string, mode models.GameMode) error
	RotateInviteCode(ctx context.Context, userID string, mode models.GameMode) (string, error)
	SyncCode(ctx context.Context, userID, code string, mode models.GameMode) (string, error)
	RefreshTeam(ctx context.Context, userID string, mode models.GameMode) (*models.Team, error)
}

type teamService struct {
	teams *store.TeamStore
	hub   *realtime.Hub
}

func NewTeamService(teams *store.TeamStore, hub *realtime.Hub) TeamService {
	return &teamService{
		teams: teams,
		hub:   hub,
	}
}

// generateInviteCode produces a 6-digit numeric code, leading zeros allowed.
func generateInviteCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *teamService) CreateTeam(_ context.Context, input CreateTeamInput) (*models.Team, error) {
	if input.TeamName == "" {
		return nil, ErrTeamNameRequired
	}
	if input.LeaderName == "" {
		return nil, ErrNameRequired
	}
	if !input.GameMode.Valid() {
		return nil, ErrInvalidGameMode
	}

	if s.teams.UserInMode(input.UserID, input.GameMode) {
		return nil, ErrAlreadyInTeam
	}

	now := time.Now()
	team := &models.Team{
		ID:       uuid.NewString(),
		Name:     input.TeamName,
		LeaderID: input.UserID,
		GameMode: input.GameMode,
		Members: []models.TeamMember{{
			ID:       input.UserID,
			Name:     input.LeaderName,
			JoinedAt: now,
		}},
		CreatedAt:   now,
		LastUpdated: now,
	}

	if input.InitialInviteCode != "" {
		if !inviteCodePattern.MatchString(input.InitialInviteCode) {
			return nil, ErrInvalidCodeFormat
		}
		team.InviteCode = input.InitialInviteCode
		if err := s.teams.Insert(team); err != nil {
			switch {
			case errors.Is(err, store.ErrCodeConflict):
				return nil, ErrCodeInUse
			case errors.Is(err, store.ErrUserBusy):
				return nil, ErrAlreadyInTeam
			default:
				return nil, fmt.Errorf("failed to insert team: %w", err)
			}
		}
		return team, nil
	}

	// Generated codes can collide with an existing team's code in the same
	// mode; retry a few times like the teacher does for invite tokens.
	for attempt := 0; attempt < codeGenerationAttempts; attempt++ {
		code, err := generateInviteCode()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCodeGeneration, err)
		}
		team.InviteCode = code

		err = s.teams.Insert(team)
		if err == nil {
			return team, nil
		}
		// Insert re-checks the one-team-per-mode rule under its write lock;
		// a concurrent create for the same user surfaces here.
		if errors.Is(err, store.ErrUserBusy) {
			return nil, ErrAlreadyInTeam
		}
		if !errors.Is(err, store.ErrCodeConflict) {
			return nil, fmt.Errorf("failed to insert team: %w", err)
		}
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrCodeGeneration, codeGenerationAttempts)
}

func (s *teamService) JoinTeam(_ context.Context, input JoinTeamInput) (*models.Team, error) {
	if input.UserName == "" {
		return nil, ErrNameRequired
	}
	if !input.GameMode.Valid() {
		return nil, ErrInvalidGameMode
	}
	if !inviteCodePattern.MatchString(input.InviteCode) {
		return nil, ErrInvalidCodeFormat
	}

	team := s.teams.FindByCode(input.GameMode, input.InviteCode)
	if team == nil {
		// A hit in the other mode is a mode mismatch, not an unknown code.
		if other := s.teams.FindByCodeAnyMode(input.InviteCode); other != nil {
			return nil, &GameModeMismatchError{
				RequiredMode: other.GameMode,
				CallerMode:   input.GameMode,
			}
		}
		return nil, ErrInvalidCode
	}

	member := models.TeamMember{
		ID:       input.UserID,
		Name:     input.UserName,
		JoinedAt: time.Now(),
	}

	updated, err := s.teams.AddMember(team.ID, member)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateMember):
			return nil, ErrAlreadyMember
		case errors.Is(err, store.ErrUserBusy):
			return nil, ErrAlreadyInTeam
		case errors.Is(err, store.ErrTeamFull):
			return nil, ErrTeamFull
		case errors.Is(err, store.ErrTeamNotFound):
			return nil, ErrTeamNotFound
		default:
			return nil, fmt.Errorf("failed to add member: %w", err)
		}
	}

	s.publish(updated.ID, realtime.EventMemberJoined, updated)
	return updated, nil
}

// InviteMember lets the leader add a named placeholder slot. The member id
// is generated server-side and never corresponds to a real account; the
// code-based JoinTeam flow is the canonical way for real users to join.
func (s *teamService) InviteMember(_ context.Context, leaderUserID, memberName string, mode models.GameMode) (*models.Team, error) {
	if memberName == "" {
		return nil, ErrNameRequired
	}
	if !mode.Valid() {
		return nil, ErrInvalidGameMode
	}

	team := s.teams.FindByUser(leaderUserID, mode)
	if team == nil || team.LeaderID != leaderUserID {
		return nil, ErrNotLeader
	}

	member := models.TeamMember{
		ID:          uuid.NewString(),
		Name:        memberName,
		Placeholder: true,
		JoinedAt:    time.Now(),
	}

	updated, err := s.teams.AddMember(team.ID, member)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTeamFull):
			return nil, ErrTeamFull
		case errors.Is(err, store.ErrTeamNotFound):
			return nil, ErrTeamNotFound
		default:
			return nil, fmt.Errorf("failed to add placeholder member: %w", err)
		}
	}

	s.publish(updated.ID, realtime.EventMemberJoined, updated)
	return updated, nil
}

// RemoveMember covers both flows folded into one endpoint: the leader kicks
// any non-leader member, or a member removes themselves (leave). The leader
// can do neither to themselves; leader departure is DisbandTeam. The mode
// names which of the caller's teams is meant, since one user may belong to
// a team in each mode.
func (s *teamService) RemoveMember(_ context.Context, callerUserID, memberID string, mode models.GameMode) (*models.Team, error) {
	if !mode.Valid() {
		return nil, ErrInvalidGameMode
	}

	team := s.teams.FindByUser(callerUserID, mode)
	if team == nil {
		return nil, ErrTeamNotFound
	}

	isLeader := team.LeaderID == callerUserID
	isSelfLeave := callerUserID == memberID
	if !isLeader && !isSelfLeave {
		return nil, ErrForbiddenOperation
	}
	if memberID == team.LeaderID {
		return nil, ErrLeaderCannotLeave
	}

	updated, err := s.teams.RemoveMember(team.ID, memberID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrLeaderImmovable):
			return nil, ErrLeaderCannotLeave
		case errors.Is(err, store.ErrMemberNotFound):
			return nil, ErrMemberNotFound
		case errors.Is(err, store.ErrTeamNotFound):
			return nil, ErrTeamNotFound
		default:
			return nil, fmt.Errorf("failed to remove member: %w", err)
		}
	}

	s.publish(updated.ID, realtime.EventMemberLeft, updated)
	return updated, nil
}

func (s *teamService) DisbandTeam(_ context.Context, userID string, mode models.GameMode) error {
	if !mode.Valid() {
		return ErrInvalidGameMode
	}

	team := s.teams.FindByUser(userID, mode)
	if team == nil {
		return ErrTeamNotFound
	}
	if team.LeaderID != userID {
		return ErrForbiddenOperation
	}

	if err := s.teams.Remove(team.ID); err != nil {
		if errors.Is(err, store.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to remove team: %w", err)
	}

	s.publish(team.ID, realtime.EventTeamDisbanded, team)
	return nil
}

func (s *teamService) RotateInviteCode(_ context.Context, userID string, mode models.GameMode) (string, error) {
	if !mode.Valid() {
		return "", ErrInvalidGameMode
	}

	team := s.teams.FindByUser(userID, mode)
	if team == nil {
		return "", ErrTeamNotFound
	}
	if team.LeaderID != userID {
		return "", ErrNotLeader
	}

	for attempt := 0; attempt < codeGenerationAttempts; attempt++ {
		code, err := generateInviteCode()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrCodeGeneration, err)
		}

		updated, err := s.teams.ReplaceCode(team.ID, code)
		if err == nil {
			s.publish(updated.ID, realtime.EventCodeRotated, updated)
			return code, nil
		}
		if !errors.Is(err, store.ErrCodeConflict) {
			if errors.Is(err, store.ErrTeamNotFound) {
				return "", ErrTeamNotFound
			}
			return "", fmt.Errorf("failed to replace invite code: %w", err)
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrCodeGeneration, codeGenerationAttempts)
}

// SyncCode reconciles a client-generated invite code with the registry:
// adopt it for the caller's team if it is free, succeed silently if it
// already maps to that very team.
func (s *teamService) SyncCode(_ context.Context, userID, code string, mode models.GameMode) (string, error) {
	if !mode.Valid() {
		return "", ErrInvalidGameMode
	}
	if !inviteCodePattern.MatchString(code) {
		return "", ErrInvalidCodeFormat
	}

	team := s.teams.FindByUser(userID, mode)

	// The code may already be registered; owned-by-self is a success.
	if owner := s.teams.FindByCode(mode, code); owner != nil {
		if team != nil && owner.ID == team.ID {
			return code, nil
		}
		return "", ErrCodeInUse
	}

	if team == nil {
		return "", ErrTeamNotFound
	}
	if team.LeaderID != userID {
		return "", ErrNotLeader
	}

	updated, err := s.teams.ReplaceCode(team.ID, code)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrCodeConflict):
			return "", ErrCodeInUse
		case errors.Is(err, store.ErrTeamNotFound):
			return "", ErrTeamNotFound
		default:
			return "", fmt.Errorf("failed to adopt invite code: %w", err)
		}
	}

	s.publish(updated.ID, realtime.EventCodeRotated, updated)
	return code, nil
}

// RefreshTeam is the pure read behind the polling loop. A nil team with a
// nil error means "authoritatively no team" and is load-bearing for the
// client-side reconciler; it must never be turned into an error.
func (s *teamService) RefreshTeam(_ context.Context, userID string, mode models.GameMode) (*models.Team, error) {
	if !mode.Valid() {
		return nil, ErrInvalidGameMode
	}
	return s.teams.FindByUser(userID, mode), nil
}

func (s *teamService) publish(teamID string, eventType string, team *models.Team) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToTeam(teamID, realtime.Event{
		Type:   eventType,
		TeamID: teamID,
		Team:   team,
	})
}
