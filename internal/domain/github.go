package domain

// CreatedBranch is the result of creating a branch on GitHub
type CreatedBranch struct {
	Ref  string `json:"ref"`
	SHA  string `json:"sha"`
	URL  string `json:"url"`
	Name string `json:"branchName,omitempty"`
	// HTMLURL is the browsable tree URL, filled by the branch flow
	HTMLURL string `json:"branchUrl,omitempty"`
}

// PullRequestInfo is the result of creating or fetching a pull request
type PullRequestInfo struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	State  string `json:"state"`
	Merged bool   `json:"merged"`
}

// WebhookRegistration is the per-repository outcome of registering hooks
type WebhookRegistration struct {
	Repository        string `json:"repository"`
	WebhookID         int64  `json:"webhookId,omitempty"`
	Success           bool   `json:"success"`
	AlreadyRegistered bool   `json:"alreadyRegistered,omitempty"`
	Error             string `json:"error,omitempty"`
}

// IssueGitHubInfo lists the branches of the mapped repository that mention an issue
type IssueGitHubInfo struct {
	IssueKey   string   `json:"issueKey"`
	Repository string   `json:"repository"`
	Branches   []string `json:"branches"`
}
