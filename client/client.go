// Package client embeds the tracker's team coordination into a consuming
// application: a typed HTTP client, a local fallback snapshot store and a
// polling reconciler that keeps an optimistic team view in sync with the
// server's volatile registry.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adilbekov/raid-tracker/models"
)

// APIError is a structured business failure returned by the server. The
// required game mode travels as an explicit field; no message parsing.
type APIError struct {
	StatusCode   int             `json:"-"`
	Message      string          `json:"error"`
	Kind         string          `json:"error_kind,omitempty"`
	RequiredMode models.GameMode `json:"required_mode,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server responded %d: %s", e.StatusCode, e.Message)
}

// IsGameModeMismatch reports whether the failure was a cross-mode join, in
// which case RequiredMode carries the mode to switch to.
func (e *APIError) IsGameModeMismatch() bool {
	return e.Kind == "game_mode_mismatch"
}

// Session is the identity issued by POST /session.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// NewSession requests a fresh session for a display name.
func NewSession(ctx context.Context, baseURL, displayName string) (*Session, error) {
	body, err := json.Marshal(map[string]string{"display_name": displayName})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/session", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, decodeAPIError(resp)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}
	return &session, nil
}

// Client is a typed wrapper over the team API for one session.
type Client struct {
	baseURL string
	token   string
	userID  string
	http    *http.Client
}

func New(baseURL string, session *Session) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   session.Token,
		userID:  session.User.ID,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) UserID() string { return c.userID }

type CreateTeamParams struct {
	TeamName          string          `json:"team_name"`
	LeaderName        string          `json:"leader_name"`
	GameMode          models.GameMode `json:"game_mode"`
	InitialInviteCode string          `json:"initial_invite_code,omitempty"`
}

func (c *Client) CreateTeam(ctx context.Context, params CreateTeamParams) (*models.Team, error) {
	return c.teamRequest(ctx, http.MethodPost, "/teams", params, http.StatusCreated)
}

type JoinTeamParams struct {
	InviteCode string          `json:"invite_code"`
	UserName   string          `json:"user_name"`
	GameMode   models.GameMode `json:"game_mode"`
}

func (c *Client) JoinTeam(ctx context.Context, params JoinTeamParams) (*models.Team, error) {
	return c.teamRequest(ctx, http.MethodPost, "/teams/join", params, http.StatusOK)
}

func (c *Client) InviteMember(ctx context.Context, memberName string, mode models.GameMode) (*models.Team, error) {
	return c.teamRequest(ctx, http.MethodPost, "/teams/members",
		map[string]string{"member_name": memberName, "game_mode": string(mode)}, http.StatusOK)
}

func (c *Client) RemoveMember(ctx context.Context, memberID string, mode models.GameMode) (*models.Team, error) {
	return c.teamRequest(ctx, http.MethodDelete, "/teams/members",
		map[string]string{"member_id": memberID, "game_mode": string(mode)}, http.StatusOK)
}

func (c *Client) DisbandTeam(ctx context.Context, mode models.GameMode) error {
	path := "/teams?game_mode=" + url.QueryEscape(string(mode))
	resp, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return nil
}

func (c *Client) RotateInviteCode(ctx context.Context, mode models.GameMode) (string, error) {
	return c.codeRequest(ctx, "/teams/invite-code", map[string]interface{}{
		"game_mode": mode,
	})
}

func (c *Client) SyncCode(ctx context.Context, code string, mode models.GameMode) (string, error) {
	return c.codeRequest(ctx, "/teams/sync-code", map[string]interface{}{
		"invite_code": code,
		"game_mode":   mode,
	})
}

// RefreshTeam returns the authoritative team, or (nil, nil) when the server
// positively answers "no team". Transport failures come back as errors and
// must be treated as unknown, not as absence.
func (c *Client) RefreshTeam(ctx context.Context, mode models.GameMode) (*models.Team, error) {
	path := "/teams?game_mode=" + url.QueryEscape(string(mode))
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var envelope struct {
		Team *models.Team `json:"team"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode team response: %w", err)
	}
	return envelope.Team, nil
}

func (c *Client) teamRequest(ctx context.Context, method, path string, body interface{}, wantStatus int) (*models.Team, error) {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return nil, decodeAPIError(resp)
	}

	var envelope struct {
		Team *models.Team `json:"team"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode team response: %w", err)
	}
	return envelope.Team, nil
}

func (c *Client) codeRequest(ctx context.Context, path string, body interface{}) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp)
	}

	var envelope struct {
		InviteCode string `json:"invite_code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("failed to decode invite code response: %w", err)
	}
	return envelope.InviteCode, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	return resp, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
		apiErr.Message = resp.Status
	}
	return apiErr
}
