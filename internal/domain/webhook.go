package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// GitHub event names carried in X-GitHub-Event
const (
	EventPullRequest = "pull_request"
	EventPing        = "ping"
	EventPush        = "push"
	EventMeta        = "meta"
)

// WebhookEvent is a verified inbound delivery as seen by the dispatcher
type WebhookEvent struct {
	Event      string             `json:"event"`
	DeliveryID string             `json:"deliveryId,omitempty"`
	Action     string             `json:"action,omitempty"`
	Repository string             `json:"repository,omitempty"`
	IssueKey   string             `json:"issueKey,omitempty"`
	Outcome    string             `json:"outcome,omitempty"`
	Failures   []string           `json:"failures,omitempty"`
	Payload    json.RawMessage    `json:"-"`
	Config     *IntegrationConfig `json:"-"`
	ReceivedAt time.Time          `json:"receivedAt"`
}

// WebhookEnvelope holds the fields shared by every event body. Unknown fields are ignored.
type WebhookEnvelope struct {
	Action     string      `json:"action"`
	Repository *Repository `json:"repository,omitempty"`
	Sender     *User       `json:"sender,omitempty"`
}

// PullRequestPayload is the body of a pull_request event
type PullRequestPayload struct {
	Action      string      `json:"action"`
	Number      int         `json:"number"`
	PullRequest PullRequest `json:"pull_request"`
	Repository  *Repository `json:"repository,omitempty"`
	Sender      *User       `json:"sender,omitempty"`
}

// PullRequest as delivered in webhook payloads.
// Merged is a pointer so a payload that omits it can be told apart from merged=false.
type PullRequest struct {
	Number   int        `json:"number"`
	Title    string     `json:"title"`
	HTMLURL  string     `json:"html_url"`
	State    string     `json:"state"`
	Merged   *bool      `json:"merged,omitempty"`
	Head     BranchRef  `json:"head"`
	Base     BranchRef  `json:"base"`
	User     *User      `json:"user,omitempty"`
	MergedBy *User      `json:"merged_by,omitempty"`
	MergedAt *time.Time `json:"merged_at,omitempty"`
	ClosedBy *User      `json:"closed_by,omitempty"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}

// BranchRef is the head or base side of a pull request
type BranchRef struct {
	Ref  string      `json:"ref"`
	SHA  string      `json:"sha"`
	Repo *Repository `json:"repo,omitempty"`
}

// Repository is the subset of repository fields the integration reads
type Repository struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Owner    *User  `json:"owner,omitempty"`
}

// User is a GitHub account reference
type User struct {
	Login string `json:"login"`
}

// MetaPayload is the body of a meta event (hook deleted)
type MetaPayload struct {
	Action     string      `json:"action"`
	HookID     int64       `json:"hook_id"`
	Repository *Repository `json:"repository,omitempty"`
}

// IsMerged treats a missing merged flag as false
func (pr *PullRequest) IsMerged() bool {
	return pr.Merged != nil && *pr.Merged
}

// LoginOrEmpty returns the login or an empty string for a nil user
func (u *User) LoginOrEmpty() string {
	if u == nil {
		return ""
	}
	return u.Login
}

// OwnerAndName splits the repository into owner and name
func (r *Repository) OwnerAndName() (string, string) {
	if r == nil {
		return "", ""
	}
	owner := ""
	if r.Owner != nil {
		owner = r.Owner.Login
	}
	if owner == "" {
		if o, name, ok := strings.Cut(r.FullName, "/"); ok {
			return o, name
		}
	}
	return owner, r.Name
}

// SyncAction is the routed pull request lifecycle action
type SyncAction string

const (
	ActionPROpened   SyncAction = "opened"
	ActionPRMerged   SyncAction = "merged"
	ActionPRClosed   SyncAction = "closed"
	ActionPRReopened SyncAction = "reopened"
)

// TransitionKey maps an action to its transition mapping key
func (a SyncAction) TransitionKey() string {
	switch a {
	case ActionPROpened:
		return TransitionPROpened
	case ActionPRMerged:
		return TransitionPRMerged
	case ActionPRClosed:
		return TransitionPRClosed
	case ActionPRReopened:
		return TransitionPRReopened
	}
	return ""
}

// RouteAction decides the sync action for a pull_request action string.
// ok is false for actions the integration ignores (synchronize, edited, ...).
func RouteAction(action string, merged bool) (SyncAction, bool) {
	switch action {
	case "opened":
		return ActionPROpened, true
	case "closed":
		if merged {
			return ActionPRMerged, true
		}
		return ActionPRClosed, true
	case "reopened":
		return ActionPRReopened, true
	}
	return "", false
}
