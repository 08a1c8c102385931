package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sulamboard/internal/backend"
	"sulamboard/internal/model"
	"sulamboard/internal/roster"
)

var (
	// ErrValidation marks a rejected draft or request; the message is safe
	// to show the user.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden marks an operation the user's role does not allow.
	ErrForbidden = errors.New("operation not allowed")
)

// LeaderboardService drives the leaderboard screens: list, editor, and
// submission against the remote backend.
type LeaderboardService struct {
	client *backend.Client
}

// NewLeaderboardService creates a new leaderboard service.
func NewLeaderboardService(client *backend.Client) *LeaderboardService {
	return &LeaderboardService{client: client}
}

// Roster loads the caller's organization roster. A malformed payload
// degrades to an empty roster so the screens still render.
func (s *LeaderboardService) Roster(ctx context.Context, token string) (model.Roster, error) {
	r, err := s.client.ListOrgUsers(ctx, token)
	if errors.Is(err, backend.ErrDecode) {
		log.Printf("roster payload malformed, rendering empty: %v", err)
		return model.Roster{}, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Overview is the leaderboard list screen's data: visible boards plus the
// organization tabs, restricted to organizations the user belongs to.
type Overview struct {
	Organizations []string            `json:"organizations"`
	Current       []model.Leaderboard `json:"current"`
	Archived      []model.Leaderboard `json:"archived"`
}

// Overview fetches visible leaderboards and splits them into current and
// archived by end time. When org is non-empty only boards targeting it are
// returned.
func (s *LeaderboardService) Overview(ctx context.Context, token string, user *model.User, org string) (*Overview, error) {
	boards, err := s.client.ListVisibleLeaderboards(ctx, token)
	if err != nil {
		return nil, err
	}

	out := &Overview{Organizations: []string{}, Current: []model.Leaderboard{}, Archived: []model.Leaderboard{}}

	seen := map[string]bool{}
	for _, lb := range boards {
		for _, o := range lb.Organizations() {
			if seen[o] {
				continue
			}
			if user != nil {
				if _, member := user.Organizations[o]; !member {
					continue
				}
			}
			seen[o] = true
			out.Organizations = append(out.Organizations, o)
		}
	}

	now := time.Now()
	for _, lb := range boards {
		if org != "" && !targetsOrg(&lb, org) {
			continue
		}
		switch {
		case lb.Current(now):
			out.Current = append(out.Current, lb)
		case lb.Ended(now):
			out.Archived = append(out.Archived, lb)
		}
	}
	return out, nil
}

func targetsOrg(lb *model.Leaderboard, org string) bool {
	for _, o := range lb.Organizations() {
		if o == org {
			return true
		}
	}
	return false
}

// Get fetches one leaderboard record.
func (s *LeaderboardService) Get(ctx context.Context, token, id string) (*model.Leaderboard, error) {
	return s.client.GetLeaderboard(ctx, token, id)
}

// EditorState is the editor screen's form state: basic fields as local-time
// editable strings plus the reconstructed selection.
type EditorState struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	StartTime   string          `json:"start_time"`
	EndTime     string          `json:"end_time"`
	SelectedIDs []string        `json:"selected_ids"`
	Presence    map[string]bool `json:"presence"`
	ViewableIDs []string        `json:"viewable_ids"`
	Linkable    bool            `json:"linkable"`
}

// EditorDefaults returns create-mode defaults: a month-day name, a window
// from now to one hour out.
func (s *LeaderboardService) EditorDefaults(now time.Time, loc *time.Location) *EditorState {
	local := now.In(loc)
	return &EditorState{
		Name:        local.Format("January 2"),
		StartTime:   model.Time{Time: now}.Editable(loc),
		EndTime:     model.Time{Time: now.Add(time.Hour)}.Editable(loc),
		SelectedIDs: []string{},
		Presence:    map[string]bool{},
		ViewableIDs: []string{},
	}
}

// EditorStateFor hydrates edit-mode form state from a stored record: the
// selection is the union of explicit ids and flattened stored org and group
// targets, with presence keys normalized.
func (s *LeaderboardService) EditorStateFor(r model.Roster, lb *model.Leaderboard, loc *time.Location) *EditorState {
	sel := roster.NewSelection(r)
	sel.Hydrate(lb)
	return &EditorState{
		Name:        lb.Name,
		Description: lb.Description,
		StartTime:   lb.StartTime.Editable(loc),
		EndTime:     lb.EndTime.Editable(loc),
		SelectedIDs: sel.IDs(),
		Presence:    sel.Presence(),
		ViewableIDs: sel.ViewableIDs(),
		Linkable:    lb.Linkable,
	}
}

// LeaderboardDraft is a submitted editor form. Times are local-time
// editable strings interpreted in Timezone (RFC 3339 is accepted too).
type LeaderboardDraft struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	StartTime   string          `json:"start_time"`
	EndTime     string          `json:"end_time"`
	Timezone    string          `json:"timezone"`
	SelectedIDs []string        `json:"selected_ids"`
	Presence    map[string]bool `json:"presence"`
	ViewableIDs []string        `json:"viewable_ids"`
	Linkable    bool            `json:"linkable"`
}

// Create validates a draft, derives its org/group targets from the roster,
// and submits it.
func (s *LeaderboardService) Create(ctx context.Context, token string, user *model.User, draft *LeaderboardDraft) error {
	if user != nil && !user.HasEditorRole() {
		return fmt.Errorf("%w: creating leaderboards requires an editor role", ErrForbidden)
	}
	body, err := s.buildSubmission(ctx, token, draft)
	if err != nil {
		return err
	}
	return s.client.CreateLeaderboard(ctx, token, body)
}

// Update validates a draft against an existing record and submits the edit.
func (s *LeaderboardService) Update(ctx context.Context, token, id string, user *model.User, draft *LeaderboardDraft) error {
	if err := s.requireEditorFor(ctx, token, id, user); err != nil {
		return err
	}
	body, err := s.buildSubmission(ctx, token, draft)
	if err != nil {
		return err
	}
	return s.client.UpdateLeaderboard(ctx, token, id, body)
}

// Delete removes a leaderboard after the same role gate as Update.
func (s *LeaderboardService) Delete(ctx context.Context, token, id string, user *model.User) error {
	if err := s.requireEditorFor(ctx, token, id, user); err != nil {
		return err
	}
	return s.client.DeleteLeaderboard(ctx, token, id)
}

func (s *LeaderboardService) requireEditorFor(ctx context.Context, token, id string, user *model.User) error {
	if user == nil {
		return nil
	}
	lb, err := s.client.GetLeaderboard(ctx, token, id)
	if err != nil {
		return err
	}
	for _, org := range lb.Organizations() {
		if user.CanEditIn(org) {
			return nil
		}
	}
	return fmt.Errorf("%w: editing requires an editor role in a targeted organization", ErrForbidden)
}

func (s *LeaderboardService) buildSubmission(ctx context.Context, token string, draft *LeaderboardDraft) (*model.LeaderboardSubmission, error) {
	if draft.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	start, err := parseDraftTime(draft.StartTime, draft.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid start time", ErrValidation)
	}
	end, err := parseDraftTime(draft.EndTime, draft.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid end time", ErrValidation)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end time must be after start time", ErrValidation)
	}

	r, err := s.Roster(ctx, token)
	if err != nil {
		return nil, err
	}

	sel := roster.NewSelectionFromState(r, draft.SelectedIDs, draft.Presence, draft.ViewableIDs)
	targets := roster.DeriveTargets(r, sel)

	return &model.LeaderboardSubmission{
		Name:                draft.Name,
		Description:         draft.Description,
		StartTime:           start.UTC().Format(time.RFC3339),
		EndTime:             end.UTC().Format(time.RFC3339),
		TargetOrganizations: targets.Organizations,
		TargetGroups:        targets.Groups,
		TargetUserIDs:       targets.UserIDs,
		ViewableUserIDs:     sel.ViewableIDs(),
		Linkable:            draft.Linkable,
		UserPresence:        sel.Presence(),
	}, nil
}

func parseDraftTime(value, tz string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	return model.ParseEditable(value, loc)
}
