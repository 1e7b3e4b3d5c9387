package store

import (
	"errors"
	"sync"
	"time"

	"github.com/adilbekov/raid-tracker/models"
)

var (
	ErrTeamNotFound    = errors.New("team not found in store")
	ErrCodeConflict    = errors.New("invite code already registered for this game mode")
	ErrTeamConflict    = errors.New("team id already present in store")
	ErrTeamFull        = errors.New("team is at capacity")
	ErrDuplicateMember = errors.New("member id already present in team")
	ErrUserBusy        = errors.New("user already belongs to a team in this game mode")
	ErrMemberNotFound  = errors.New("member not found in team")
	ErrLeaderImmovable = errors.New("leader cannot be removed from the member list")
)

// TeamStore is the authoritative in-memory team registry. Lifetime equals
// process lifetime; there is deliberately no persistence behind it, recovery
// after a restart goes through the client-side fallback snapshot.
//
// The invite-code index is keyed by (game mode, code): uniqueness is a
// per-mode rule and the same code may legally exist in both modes at once.
type TeamStore struct {
	mu    sync.RWMutex
	teams map[string]*models.Team
	codes map[models.GameMode]map[string]string // mode -> code -> team id
}

func NewTeamStore() *TeamStore {
	return &TeamStore{
		teams: make(map[string]*models.Team),
		codes: make(map[models.GameMode]map[string]string),
	}
}

// FindByUser returns the team containing userID in the given mode, or nil.
func (s *TeamStore) FindByUser(userID string, mode models.GameMode) *models.Team {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.teams {
		if t.GameMode == mode && t.HasMember(userID) {
			return t.Clone()
		}
	}
	return nil
}

func (s *TeamStore) FindByID(teamID string) *models.Team {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.teams[teamID]; ok {
		return t.Clone()
	}
	return nil
}

// FindByCode resolves an invite code within a single game mode.
func (s *TeamStore) FindByCode(mode models.GameMode, code string) *models.Team {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.codes[mode][code]; ok {
		if t, ok := s.teams[id]; ok {
			return t.Clone()
		}
	}
	return nil
}

// FindByCodeAnyMode resolves an invite code across both modes. Join needs
// this so a cross-mode hit can be reported as a mode mismatch rather than
// an unknown code.
func (s *TeamStore) FindByCodeAnyMode(code string) *models.Team {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, index := range s.codes {
		if id, ok := index[code]; ok {
			if t, ok := s.teams[id]; ok {
				return t.Clone()
			}
		}
	}
	return nil
}

// CodeInUse reports whether code is registered in the given mode.
func (s *TeamStore) CodeInUse(mode models.GameMode, code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.codes[mode][code]
	return ok
}

// Insert stores a new team and registers its invite code atomically. The
// leader's one-team-per-mode rule is checked here, under the same write
// lock, so a create racing another create or a join cannot leave the leader
// in two teams within one mode.
func (s *TeamStore) Insert(team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[team.ID]; ok {
		return ErrTeamConflict
	}
	if _, ok := s.codes[team.GameMode][team.InviteCode]; ok {
		return ErrCodeConflict
	}
	for _, other := range s.teams {
		if other.GameMode == team.GameMode && other.HasMember(team.LeaderID) {
			return ErrUserBusy
		}
	}
	s.teams[team.ID] = team.Clone()
	s.registerCodeLocked(team.GameMode, team.InviteCode, team.ID)
	return nil
}

// Remove deletes a team and releases its invite code.
func (s *TeamStore) Remove(teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teams[teamID]
	if !ok {
		return ErrTeamNotFound
	}
	s.releaseCodeLocked(t.GameMode, t.InviteCode)
	delete(s.teams, teamID)
	return nil
}

// Mutate runs fn against the live team under the store's write lock, so a
// check-then-update sequence (size check then append, leadership check then
// code swap) is atomic with respect to every other store operation. fn
// returning an error aborts the mutation; on success a clone of the updated
// team is returned.
func (s *TeamStore) Mutate(teamID string, fn func(t *models.Team) error) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teams[teamID]
	if !ok {
		return nil, ErrTeamNotFound
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

// AddMember appends a member under a single write lock: the capacity check,
// the duplicate check and the one-team-per-mode check all happen against the
// same consistent view, so two near-simultaneous joins cannot both slip past
// the cap. Placeholder members skip the one-team-per-mode check because
// their ids never belong to a real user.
func (s *TeamStore) AddMember(teamID string, member models.TeamMember) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teams[teamID]
	if !ok {
		return nil, ErrTeamNotFound
	}
	if t.HasMember(member.ID) {
		return nil, ErrDuplicateMember
	}
	if !member.Placeholder {
		for _, other := range s.teams {
			if other.GameMode == t.GameMode && other.HasMember(member.ID) {
				return nil, ErrUserBusy
			}
		}
	}
	if len(t.Members) >= models.MaxTeamSize {
		return nil, ErrTeamFull
	}
	t.Members = append(t.Members, member)
	t.LastUpdated = time.Now()
	return t.Clone(), nil
}

// RemoveMember drops a member by id. Removing the leader is rejected here;
// leader departure goes through Remove (disband).
func (s *TeamStore) RemoveMember(teamID, memberID string) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teams[teamID]
	if !ok {
		return nil, ErrTeamNotFound
	}
	if memberID == t.LeaderID {
		return nil, ErrLeaderImmovable
	}
	for i, m := range t.Members {
		if m.ID == memberID {
			t.Members = append(t.Members[:i], t.Members[i+1:]...)
			t.LastUpdated = time.Now()
			return t.Clone(), nil
		}
	}
	return nil, ErrMemberNotFound
}

// ReplaceCode swaps a team's invite code and reindexes it, atomically. The
// new code must be free within the team's mode.
func (s *TeamStore) ReplaceCode(teamID, newCode string) (*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teams[teamID]
	if !ok {
		return nil, ErrTeamNotFound
	}
	if owner, ok := s.codes[t.GameMode][newCode]; ok && owner != teamID {
		return nil, ErrCodeConflict
	}
	s.releaseCodeLocked(t.GameMode, t.InviteCode)
	t.InviteCode = newCode
	t.LastUpdated = time.Now()
	s.registerCodeLocked(t.GameMode, newCode, teamID)
	return t.Clone(), nil
}

// UserInMode reports whether userID belongs to any team in the given mode.
func (s *TeamStore) UserInMode(userID string, mode models.GameMode) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.teams {
		if t.GameMode == mode && t.HasMember(userID) {
			return true
		}
	}
	return false
}

// Len returns the number of stored teams.
func (s *TeamStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.teams)
}

func (s *TeamStore) registerCodeLocked(mode models.GameMode, code, teamID string) {
	index, ok := s.codes[mode]
	if !ok {
		index = make(map[string]string)
		s.codes[mode] = index
	}
	index[code] = teamID
}

func (s *TeamStore) releaseCodeLocked(mode models.GameMode, code string) {
	if index, ok := s.codes[mode]; ok {
		delete(index, code)
	}
}
