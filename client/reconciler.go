package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/adilbekov/raid-tracker/models"
)

// State is the reconciler's view of the user's team.
type State int

const (
	// StateUnknown means no authoritative answer has been received yet.
	StateUnknown State = iota
	// StateSynced means the server confirmed a team and we hold its snapshot.
	StateSynced
	// StateNoTeam means the server authoritatively answered "no team".
	StateNoTeam
)

func (s State) String() string {
	switch s {
	case StateSynced:
		return "synced"
	case StateNoTeam:
		return "no_team"
	default:
		return "unknown"
	}
}

// Reconciler keeps one user's optimistic team view in step with the server.
// On every tick (and on manual trigger) it polls RefreshTeam:
//
//   - a team answer is adopted as authoritative and mirrored to the
//     fallback store;
//   - an authoritative nil consults the fallback snapshot and attempts a
//     restorative re-create under the snapshot's invite code (the server's
//     registry is volatile, this is the recovery path after a restart);
//   - a transport error changes nothing: last-known-good wins until the
//     server actually answers.
type Reconciler struct {
	client   *Client
	fallback FallbackStore
	mode     models.GameMode
	interval time.Duration
	logger   *slog.Logger

	group  singleflight.Group
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.RWMutex
	state State
	team  *models.Team
}

func NewReconciler(c *Client, fallback FallbackStore, mode models.GameMode, interval time.Duration, logger *slog.Logger) *Reconciler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reconciler{
		client:   c,
		fallback: fallback,
		mode:     mode,
		interval: interval,
		logger:   logger,
		state:    StateUnknown,
	}
}

// Start launches the polling loop. It reconciles once immediately, then on
// every tick until Stop is called or ctx is canceled. Exactly one loop runs
// per reconciler; a second Start is a no-op.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.mu.Unlock()

	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.reconcile(ctx)
		for {
			select {
			case <-ticker.C:
				r.reconcile(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop tears the polling loop down and waits for it to exit. Safe to call
// more than once.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Trigger forces a reconciliation outside the timer, e.g. behind a manual
// refresh button. Concurrent triggers collapse into one server call.
func (r *Reconciler) Trigger(ctx context.Context) {
	r.reconcile(ctx)
}

// Snapshot returns the current state and team view.
func (r *Reconciler) Snapshot() (State, *models.Team) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.team == nil {
		return r.state, nil
	}
	return r.state, r.team.Clone()
}

// Adopt installs a team returned by a direct mutation (create, join, kick)
// as the optimistic view and mirrors it to the fallback store.
func (r *Reconciler) Adopt(team *models.Team) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setTeamLocked(team)
}

func (r *Reconciler) reconcile(ctx context.Context) {
	// Ticker and manual triggers share one in-flight refresh.
	_, _, _ = r.group.Do("refresh", func() (interface{}, error) {
		r.refreshOnce(ctx)
		return nil, nil
	})
}

// refreshOnce does all network and fallback I/O outside r.mu, then takes the
// lock only to install the outcome: Snapshot and Adopt stay responsive even
// while a restorative create is in flight. The singleflight group already
// guarantees a single refresh runs at a time.
func (r *Reconciler) refreshOnce(ctx context.Context) {
	team, err := r.client.RefreshTeam(ctx, r.mode)
	if err != nil {
		// Transient failure: keep the last-known-good view.
		r.logger.Warn("team refresh failed, keeping local state",
			slog.String("game_mode", string(r.mode)), slog.Any("error", err))
		return
	}

	if team != nil {
		r.install(team)
		return
	}

	// Authoritative "no team". If a fallback snapshot exists, the server
	// likely restarted; try to re-create the team under its old code.
	snapshot, loadErr := r.fallback.Load(r.client.UserID(), r.mode)
	if loadErr != nil {
		r.logger.Warn("failed to load fallback snapshot", slog.Any("error", loadErr))
		snapshot = nil
	}
	if snapshot == nil {
		r.install(nil)
		return
	}

	restored, restoreErr := r.client.CreateTeam(ctx, CreateTeamParams{
		TeamName:          snapshot.Name,
		LeaderName:        r.leaderNameFrom(snapshot),
		GameMode:          r.mode,
		InitialInviteCode: snapshot.InviteCode,
	})
	if restoreErr != nil {
		// Code taken or otherwise unrecoverable: settle at no-team.
		r.logger.Info("team restoration failed, clearing local state",
			slog.String("team_name", snapshot.Name), slog.Any("error", restoreErr))
		r.install(nil)
		return
	}

	r.logger.Info("team restored from fallback snapshot",
		slog.String("team_id", restored.ID), slog.String("team_name", restored.Name))
	r.install(restored)
}

func (r *Reconciler) install(team *models.Team) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setTeamLocked(team)
}

// setTeamLocked updates state and mirrors the change to the fallback store.
// Callers hold r.mu.
func (r *Reconciler) setTeamLocked(team *models.Team) {
	r.team = team
	if team == nil {
		r.state = StateNoTeam
		if err := r.fallback.Clear(r.client.UserID(), r.mode); err != nil {
			r.logger.Warn("failed to clear fallback snapshot", slog.Any("error", err))
		}
		return
	}
	r.state = StateSynced
	if err := r.fallback.Save(r.client.UserID(), r.mode, team); err != nil {
		r.logger.Warn("failed to save fallback snapshot", slog.Any("error", err))
	}
}

func (r *Reconciler) leaderNameFrom(snapshot *models.Team) string {
	for _, m := range snapshot.Members {
		if m.ID == r.client.UserID() {
			return m.Name
		}
	}
	return "Player"
}
