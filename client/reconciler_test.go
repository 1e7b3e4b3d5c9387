package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adilbekov/raid-tracker/client"
	"github.com/adilbekov/raid-tracker/handlers"
	"github.com/adilbekov/raid-tracker/models"
	"github.com/adilbekov/raid-tracker/routes"
	"github.com/adilbekov/raid-tracker/services"
	"github.com/adilbekov/raid-tracker/store"
)

// backend runs the real API over an in-memory team registry. Reaching into
// teamStore lets tests wipe the registry, which is what a server restart
// looks like to a client.
type backend struct {
	server    *httptest.Server
	teamStore *store.TeamStore
	failing   atomic.Bool

	// With gateCreates set, POST /teams announces itself on createEntered
	// and parks until createGate closes, so a test can hold a restorative
	// create in flight.
	gateCreates   atomic.Bool
	createEntered chan struct{}
	createGate    chan struct{}
}

func newBackend(t *testing.T) *backend {
	t.Helper()

	secret := []byte("client-test-secret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	teamStore := store.NewTeamStore()

	router := chi.NewRouter()
	routes.SetupRoutes(router, secret, []string{"*"},
		handlers.NewSessionHandler(secret),
		handlers.NewTeamHandler(services.NewTeamService(teamStore, nil)),
		handlers.NewProgressHandler(services.NewProgressService(nil)),
		handlers.NewWebSocketHandler(nil, logger),
	)

	b := &backend{
		teamStore:     teamStore,
		createEntered: make(chan struct{}, 16),
		createGate:    make(chan struct{}),
	}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.failing.Load() {
			http.Error(w, "simulated outage", http.StatusBadGateway)
			return
		}
		if b.gateCreates.Load() && r.Method == http.MethodPost && r.URL.Path == "/teams" {
			b.createEntered <- struct{}{}
			<-b.createGate
		}
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(b.server.Close)
	return b
}

// wipe drops the named teams, as a process restart would.
func (b *backend) wipe(t *testing.T, teamIDs ...string) {
	t.Helper()
	for _, id := range teamIDs {
		require.NoError(t, b.teamStore.Remove(id))
	}
	require.Equal(t, 0, b.teamStore.Len())
}

func newTestClient(t *testing.T, b *backend, displayName string) *client.Client {
	t.Helper()
	session, err := client.NewSession(context.Background(), b.server.URL, displayName)
	require.NoError(t, err)
	return client.New(b.server.URL, session)
}

func newTestReconciler(t *testing.T, c *client.Client) (*client.Reconciler, client.FallbackStore) {
	t.Helper()

	fallback, err := client.NewSQLiteFallbackStore(filepath.Join(t.TempDir(), "fallback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = fallback.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return client.NewReconciler(c, fallback, models.GameModePVE, time.Hour, logger), fallback
}

func TestReconcilerSyncsFromServer(t *testing.T) {
	b := newBackend(t)
	c := newTestClient(t, b, "Leader")
	r, _ := newTestReconciler(t, c)

	state, team := r.Snapshot()
	assert.Equal(t, client.StateUnknown, state)
	assert.Nil(t, team)

	created, err := c.CreateTeam(context.Background(), client.CreateTeamParams{
		TeamName: "Raiders",
		GameMode: models.GameModePVE,
	})
	require.NoError(t, err)

	r.Trigger(context.Background())

	state, team = r.Snapshot()
	assert.Equal(t, client.StateSynced, state)
	require.NotNil(t, team)
	assert.Equal(t, created.ID, team.ID)
}

func TestReconcilerSettlesAtNoTeam(t *testing.T) {
	b := newBackend(t)
	c := newTestClient(t, b, "Loner")
	r, fallback := newTestReconciler(t, c)

	r.Trigger(context.Background())

	state, team := r.Snapshot()
	assert.Equal(t, client.StateNoTeam, state)
	assert.Nil(t, team)

	snapshot, err := fallback.Load(c.UserID(), models.GameModePVE)
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestReconcilerAdoptMirrorsToFallback(t *testing.T) {
	b := newBackend(t)
	c := newTestClient(t, b, "Leader")
	r, fallback := newTestReconciler(t, c)

	created, err := c.CreateTeam(context.Background(), client.CreateTeamParams{
		TeamName: "Raiders",
		GameMode: models.GameModePVE,
	})
	require.NoError(t, err)

	r.Adopt(created)

	state, team := r.Snapshot()
	assert.Equal(t, client.StateSynced, state)
	require.NotNil(t, team)

	snapshot, err := fallback.Load(c.UserID(), models.GameModePVE)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, created.ID, snapshot.ID)
	assert.Equal(t, created.InviteCode, snapshot.InviteCode)
}

func TestReconcilerRestoresAfterRegistryLoss(t *testing.T) {
	b := newBackend(t)
	c := newTestClient(t, b, "Leader")
	r, _ := newTestReconciler(t, c)

	created, err := c.CreateTeam(context.Background(), client.CreateTeamParams{
		TeamName: "Raiders",
		GameMode: models.GameModePVE,
	})
	require.NoError(t, err)
	r.Adopt(created)

	b.wipe(t, created.ID)

	// The server now answers "no team"; the reconciler re-creates the team
	// from the fallback snapshot under its old invite code.
	r.Trigger(context.Background())

	state, team := r.Snapshot()
	assert.Equal(t, client.StateSynced, state)
	require.NotNil(t, team)
	assert.Equal(t, "Raiders", team.Name)
	assert.Equal(t, created.InviteCode, team.InviteCode)

	// The restored team is live server-side and joinable under the old code.
	friend := newTestClient(t, b, "Friend")
	joined, err := friend.JoinTeam(context.Background(), client.JoinTeamParams{
		InviteCode: created.InviteCode,
		GameMode:   models.GameModePVE,
	})
	require.NoError(t, err)
	assert.Len(t, joined.Members, 2)
}

func TestReconcilerClearsWhenRestorationFails(t *testing.T) {
	b := newBackend(t)
	c := newTestClient(t, b, "Leader")
	r, fallback := newTestReconciler(t, c)

	created, err := c.CreateTeam(context.Background(), client.CreateTeamParams{
		TeamName: "Raiders",
		GameMode: models.GameModePVE,
	})
	require.NoError(t, err)
	r.Adopt(created)

	b.wipe(t, created.ID)

	// Someone else claims the old invite code before the restore runs.
	rival := newTestClient(t, b, "Rival")
	_, err = rival.CreateTeam(context.Background(), client.CreateTeamParams{
		TeamName:          "Squatters",
		GameMode:          models.GameModePVE,
		InitialInviteCode: created.InviteCode,
	})
	require.NoError(t, err)

	r.Trigger(context.Background())

	state, team := r.Snapshot()
	assert.Equal(t, client.StateNoTeam, state)
	assert.Nil(t, team)

	snapshot, err := fallback.Load(c.UserID(), models.GameModePVE)
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestSnapshotResponsiveDuringRestore(t *testing.T) {
	b := newBackend(t)
	c := newTestClient(t, b, "Leader")
	r, _ := newTestReconciler(t, c)

	created, err := c.CreateTeam(context.Background(), client.CreateTeamParams{
		TeamName: "Raiders",
		GameMode: models.GameModePVE,
	})
	require.NoError(t, err)
	r.Adopt(created)

	b.wipe(t, created.ID)
	b.gateCreates.Store(true)

	triggerDone := make(chan struct{})
	go func() {
		r.Trigger(context.Background())
		close(triggerDone)
	}()
	<-b.createEntered // the restorative create is parked server-side

	snapshotDone := make(chan struct{})
	go func() {
		r.Snapshot()
		close(snapshotDone)
	}()
	select {
	case <-snapshotDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Snapshot blocked while a restore was in flight")
	}

	close(b.createGate)
	<-triggerDone

	state, team := r.Snapshot()
	assert.Equal(t, client.StateSynced, state)
	require.NotNil(t, team)
	assert.Equal(t, created.InviteCode, team.InviteCode)
}

func TestReconcilerKeepsStateOnTransportError(t *testing.T) {
	b := newBackend(t)
	c := newTestClient(t, b, "Leader")
	r, _ := newTestReconciler(t, c)

	created, err := c.CreateTeam(context.Background(), client.CreateTeamParams{
		TeamName: "Raiders",
		GameMode: models.GameModePVE,
	})
	require.NoError(t, err)
	r.Trigger(context.Background())

	b.failing.Store(true)
	r.Trigger(context.Background())

	// The outage is not an authoritative answer: last-known-good wins.
	state, team := r.Snapshot()
	assert.Equal(t, client.StateSynced, state)
	require.NotNil(t, team)
	assert.Equal(t, created.ID, team.ID)

	b.failing.Store(false)
	r.Trigger(context.Background())
	state, _ = r.Snapshot()
	assert.Equal(t, client.StateSynced, state)
}

func TestReconcilerStartStop(t *testing.T) {
	b := newBackend(t)
	c := newTestClient(t, b, "Leader")

	fallback, err := client.NewSQLiteFallbackStore(filepath.Join(t.TempDir(), "fallback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = fallback.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := client.NewReconciler(c, fallback, models.GameModePVE, 20*time.Millisecond, logger)

	r.Start(context.Background())
	r.Start(context.Background()) // second Start is a no-op

	// The initial reconcile settles the state without waiting for a tick.
	require.Eventually(t, func() bool {
		state, _ := r.Snapshot()
		return state == client.StateNoTeam
	}, 2*time.Second, 10*time.Millisecond)

	r.Stop()
	r.Stop() // safe to call twice
}

func TestAPIErrorGameModeMismatch(t *testing.T) {
	b := newBackend(t)
	leader := newTestClient(t, b, "Leader")
	joiner := newTestClient(t, b, "Joiner")

	created, err := leader.CreateTeam(context.Background(), client.CreateTeamParams{
		TeamName: "Raiders",
		GameMode: models.GameModePVE,
	})
	require.NoError(t, err)

	_, err = joiner.JoinTeam(context.Background(), client.JoinTeamParams{
		InviteCode: created.InviteCode,
		GameMode:   models.GameModePVP,
	})
	require.Error(t, err)

	apiErr, ok := err.(*client.APIError)
	require.True(t, ok)
	assert.True(t, apiErr.IsGameModeMismatch())
	assert.Equal(t, models.GameModePVE, apiErr.RequiredMode)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}
