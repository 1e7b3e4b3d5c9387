package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adilbekov/raid-tracker/models"
)

func testTeam(id, leaderID, code string, mode models.GameMode) *models.Team {
	now := time.Now()
	return &models.Team{
		ID:       id,
		Name:     "Team " + id,
		LeaderID: leaderID,
		Members: []models.TeamMember{{
			ID:       leaderID,
			Name:     "Leader",
			JoinedAt: now,
		}},
		InviteCode:  code,
		GameMode:    mode,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

func TestInsertAndLookups(t *testing.T) {
	s := NewTeamStore()
	team := testTeam("t1", "u1", "123456", models.GameModePVP)

	require.NoError(t, s.Insert(team))

	assert.NotNil(t, s.FindByID("t1"))
	assert.NotNil(t, s.FindByUser("u1", models.GameModePVP))
	assert.Nil(t, s.FindByUser("u1", models.GameModePVE))
	assert.NotNil(t, s.FindByCode(models.GameModePVP, "123456"))
	assert.Nil(t, s.FindByCode(models.GameModePVE, "123456"))
	assert.NotNil(t, s.FindByCodeAnyMode("123456"))
	assert.True(t, s.CodeInUse(models.GameModePVP, "123456"))

	// Same id twice is a conflict.
	assert.ErrorIs(t, s.Insert(testTeam("t1", "u9", "999999", models.GameModePVP)), ErrTeamConflict)
	// Same code in the same mode is a conflict, in the other mode it is not.
	assert.ErrorIs(t, s.Insert(testTeam("t2", "u2", "123456", models.GameModePVP)), ErrCodeConflict)
	assert.NoError(t, s.Insert(testTeam("t3", "u3", "123456", models.GameModePVE)))
}

func TestInsertRejectsBusyLeader(t *testing.T) {
	s := NewTeamStore()
	require.NoError(t, s.Insert(testTeam("t1", "u1", "123456", models.GameModePVP)))

	// u1 already leads a pvp team; a second pvp team is rejected, a pve
	// team is fine.
	assert.ErrorIs(t, s.Insert(testTeam("t2", "u1", "654321", models.GameModePVP)), ErrUserBusy)
	assert.NoError(t, s.Insert(testTeam("t3", "u1", "654321", models.GameModePVE)))

	// Plain membership counts too: u2 joined t1, so u2 cannot lead a new
	// pvp team either.
	_, err := s.AddMember("t1", models.TeamMember{ID: "u2", Name: "M", JoinedAt: time.Now()})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Insert(testTeam("t4", "u2", "999999", models.GameModePVP)), ErrUserBusy)
}

func TestLookupsReturnClones(t *testing.T) {
	s := NewTeamStore()
	require.NoError(t, s.Insert(testTeam("t1", "u1", "123456", models.GameModePVP)))

	found := s.FindByID("t1")
	found.Members[0].Name = "mutated"
	found.Name = "mutated"

	again := s.FindByID("t1")
	assert.Equal(t, "Leader", again.Members[0].Name)
	assert.Equal(t, "Team t1", again.Name)
}

func TestRemoveReleasesCode(t *testing.T) {
	s := NewTeamStore()
	require.NoError(t, s.Insert(testTeam("t1", "u1", "123456", models.GameModePVP)))

	require.NoError(t, s.Remove("t1"))
	assert.Nil(t, s.FindByID("t1"))
	assert.False(t, s.CodeInUse(models.GameModePVP, "123456"))
	assert.ErrorIs(t, s.Remove("t1"), ErrTeamNotFound)

	// The code is reusable after removal.
	assert.NoError(t, s.Insert(testTeam("t2", "u2", "123456", models.GameModePVP)))
}

func TestAddMemberRules(t *testing.T) {
	s := NewTeamStore()
	require.NoError(t, s.Insert(testTeam("t1", "u1", "123456", models.GameModePVP)))

	member := func(id string) models.TeamMember {
		return models.TeamMember{ID: id, Name: "M " + id, JoinedAt: time.Now()}
	}

	updated, err := s.AddMember("t1", member("u2"))
	require.NoError(t, err)
	assert.Len(t, updated.Members, 2)

	_, err = s.AddMember("t1", member("u2"))
	assert.ErrorIs(t, err, ErrDuplicateMember)

	// u2 is busy in pvp, so another pvp team cannot take them.
	require.NoError(t, s.Insert(testTeam("t2", "u9", "654321", models.GameModePVP)))
	_, err = s.AddMember("t2", member("u2"))
	assert.ErrorIs(t, err, ErrUserBusy)

	// A pve team can.
	require.NoError(t, s.Insert(testTeam("t3", "u8", "654321", models.GameModePVE)))
	_, err = s.AddMember("t3", member("u2"))
	assert.NoError(t, err)

	for _, id := range []string{"u3", "u4", "u5"} {
		_, err = s.AddMember("t1", member(id))
		require.NoError(t, err)
	}
	_, err = s.AddMember("t1", member("u6"))
	assert.ErrorIs(t, err, ErrTeamFull)

	_, err = s.AddMember("missing", member("u7"))
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestAddMemberPlaceholderSkipsBusyCheck(t *testing.T) {
	s := NewTeamStore()
	require.NoError(t, s.Insert(testTeam("t1", "u1", "123456", models.GameModePVP)))
	require.NoError(t, s.Insert(testTeam("t2", "u2", "654321", models.GameModePVP)))

	// A placeholder id cannot collide with real membership semantics.
	_, err := s.AddMember("t1", models.TeamMember{ID: "ph-1", Name: "Slot", Placeholder: true, JoinedAt: time.Now()})
	assert.NoError(t, err)
}

func TestRemoveMemberRules(t *testing.T) {
	s := NewTeamStore()
	require.NoError(t, s.Insert(testTeam("t1", "u1", "123456", models.GameModePVP)))
	_, err := s.AddMember("t1", models.TeamMember{ID: "u2", Name: "M", JoinedAt: time.Now()})
	require.NoError(t, err)

	_, err = s.RemoveMember("t1", "u1")
	assert.ErrorIs(t, err, ErrLeaderImmovable)

	updated, err := s.RemoveMember("t1", "u2")
	require.NoError(t, err)
	assert.Len(t, updated.Members, 1)

	_, err = s.RemoveMember("t1", "u2")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestReplaceCode(t *testing.T) {
	s := NewTeamStore()
	require.NoError(t, s.Insert(testTeam("t1", "u1", "123456", models.GameModePVP)))
	require.NoError(t, s.Insert(testTeam("t2", "u2", "222222", models.GameModePVP)))

	updated, err := s.ReplaceCode("t1", "777777")
	require.NoError(t, err)
	assert.Equal(t, "777777", updated.InviteCode)
	assert.False(t, s.CodeInUse(models.GameModePVP, "123456"))
	assert.True(t, s.CodeInUse(models.GameModePVP, "777777"))

	// Taking another team's live code is a conflict.
	_, err = s.ReplaceCode("t1", "222222")
	assert.ErrorIs(t, err, ErrCodeConflict)

	// Re-registering a team's own code is a no-op, not a conflict.
	_, err = s.ReplaceCode("t1", "777777")
	assert.NoError(t, err)
}

func TestMutateIsAtomic(t *testing.T) {
	s := NewTeamStore()
	require.NoError(t, s.Insert(testTeam("t1", "u1", "123456", models.GameModePVP)))

	_, err := s.Mutate("t1", func(team *models.Team) error {
		team.Name = "Renamed"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", s.FindByID("t1").Name)

	_, err = s.Mutate("missing", func(team *models.Team) error { return nil })
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestConcurrentJoinsNeverExceedCap(t *testing.T) {
	s := NewTeamStore()
	require.NoError(t, s.Insert(testTeam("t1", "u1", "123456", models.GameModePVP)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := "user-" + string(rune('a'+n))
			_, _ = s.AddMember("t1", models.TeamMember{ID: id, Name: id, JoinedAt: time.Now()})
		}(i)
	}
	wg.Wait()

	team := s.FindByID("t1")
	assert.LessOrEqual(t, len(team.Members), models.MaxTeamSize)
}
