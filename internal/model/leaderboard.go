package model

import "time"

// Leaderboard is a stored leaderboard record as the backend returns it. The
// create/edit endpoints accept target_organizations but reads come back with
// the server-side name student_organizations; both are kept and Organizations
// resolves whichever is populated.
type Leaderboard struct {
	ID                   ID              `json:"_id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	StartTime            Time            `json:"start_time"`
	EndTime              Time            `json:"end_time"`
	TargetUserIDs        []ID            `json:"target_user_ids"`
	TargetOrganizations  []string        `json:"target_organizations"`
	StudentOrganizations []string        `json:"student_organizations"`
	TargetGroups         []string        `json:"target_groups"`
	ViewableUserIDs      []ID            `json:"viewable_user_ids"`
	Linkable             bool            `json:"linkable"`
	UserPresence         map[string]bool `json:"user_presence"`
}

// Organizations returns the record's target organizations under either wire
// name.
func (lb *Leaderboard) Organizations() []string {
	if len(lb.TargetOrganizations) > 0 {
		return lb.TargetOrganizations
	}
	return lb.StudentOrganizations
}

// Ended reports whether the leaderboard's end time has passed. Records with
// an unparseable end time count as neither current nor ended.
func (lb *Leaderboard) Ended(now time.Time) bool {
	return !lb.EndTime.IsZero() && !lb.EndTime.After(now)
}

// Current reports whether the leaderboard is still running.
func (lb *Leaderboard) Current(now time.Time) bool {
	return !lb.EndTime.IsZero() && lb.EndTime.After(now)
}

// LeaderboardSubmission is the body sent to the create and edit endpoints.
// Timestamps are plain ISO strings; the explicit id list is always included
// alongside derived org/group targets so the stored membership stays exact
// even if org composition drifts later.
type LeaderboardSubmission struct {
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	StartTime           string          `json:"start_time"`
	EndTime             string          `json:"end_time"`
	TargetOrganizations []string        `json:"target_organizations"`
	TargetGroups        []string        `json:"target_groups"`
	TargetUserIDs       []string        `json:"target_user_ids"`
	ViewableUserIDs     []string        `json:"viewable_user_ids"`
	Linkable            bool            `json:"linkable"`
	UserPresence        map[string]bool `json:"user_presence"`
}

// ScoreRow is one ranked entry from the scores endpoint. QadeemStatus is a
// tri-state: completed, not completed, or not applicable (null).
type ScoreRow struct {
	UserID       ID      `json:"user_id"`
	FullName     string  `json:"full_name"`
	OldPoints    float64 `json:"OldPoints"`
	NewPoints    float64 `json:"NewPoints"`
	TotalPoints  float64 `json:"TotalPoints"`
	QadeemRange  float64 `json:"QadeemRange"`
	JadeedRange  float64 `json:"JadeedRange"`
	QadeemStatus *bool   `json:"QadeemStatus"`
}
