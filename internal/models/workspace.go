package models

// WorkspaceContext identifies the team and member a request acts for.
// It is derived per request by the auth resolver and never persisted.
type WorkspaceContext struct {
	TeamID     string `json:"team_id"`
	MemberName string `json:"member_name"`
}
