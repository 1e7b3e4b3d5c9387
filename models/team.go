package models

import "time"

// GameMode separates the two parallel progression universes. A user's team
// membership, task progress and hideout progress are all tracked per mode.
type GameMode string

const (
	GameModePVE GameMode = "pve"
	GameModePVP GameMode = "pvp"
)

func (m GameMode) Valid() bool {
	return m == GameModePVE || m == GameModePVP
}

// MaxTeamSize is the hard member cap per team.
const MaxTeamSize = 5

type Team struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Members     []TeamMember `json:"members"`
	LeaderID    string       `json:"leader_id"`
	InviteCode  string       `json:"invite_code"`
	GameMode    GameMode     `json:"game_mode"`
	CreatedAt   time.Time    `json:"created_at"`
	LastUpdated time.Time    `json:"last_updated"`
}

// TeamMember identity equals the owning user's account id for members who
// joined via invite code. Placeholder members created through the leader
// invite flow carry a generated id that never matches a real account.
type TeamMember struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	IsSelf      bool      `json:"is_self"` // view-relative, filled by ViewFor
	Placeholder bool      `json:"placeholder,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
}

// HasMember reports whether userID appears in the member list.
func (t *Team) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// ViewFor returns a copy of the team with IsSelf set relative to the
// requesting user. IsSelf is never stored server-side.
func (t *Team) ViewFor(userID string) *Team {
	view := t.Clone()
	for i := range view.Members {
		view.Members[i].IsSelf = view.Members[i].ID == userID
	}
	return view
}

// Clone returns a deep copy, so callers never hold references into the
// store's live member slice.
func (t *Team) Clone() *Team {
	cp := *t
	cp.Members = make([]TeamMember, len(t.Members))
	copy(cp.Members, t.Members)
	return &cp
}
