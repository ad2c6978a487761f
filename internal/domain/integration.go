package domain

import (
	"strings"
	"time"
)

const (
	// ConfigStorageKey is the key the integration config blob is stored under
	ConfigStorageKey = "jira-github-integration.config"

	// DefaultBranchNaming is used when neither the request nor the mapping carries a template
	DefaultBranchNaming = "feature/{issueKey}-{summary}"

	// DefaultBaseBranch is the mapping default branch when none is configured
	DefaultBaseBranch = "main"

	// MaskedValue replaces secrets in admin responses. Receiving it back on update keeps the stored value.
	MaskedValue = "********"
)

// Transition mapping keys
const (
	TransitionPROpened   = "pr_opened"
	TransitionPRMerged   = "pr_merged"
	TransitionPRClosed   = "pr_closed"
	TransitionPRReopened = "pr_reopened"
)

// IntegrationConfig is the single configuration document of the integration.
// Token and WebhookSecret hold plaintext in memory and ciphertext at rest.
type IntegrationConfig struct {
	GitHubEnterpriseURL     string              `json:"githubEnterpriseUrl"`
	GitHubAPIURL            string              `json:"githubApiUrl"`
	GitHubToken             string              `json:"githubToken"`
	TrustCustomCertificates bool                `json:"trustCustomCertificates"`
	Repositories            []RepositoryMapping `json:"repositories"`
	BranchNaming            string              `json:"branchNaming"`
	TransitionMappings      map[string]string   `json:"transitionMappings"`
	WebhookSecret           string              `json:"webhookSecret"`
	WebhookURL              string              `json:"webhookUrl"`
	WebhookIDs              map[string]int64    `json:"webhookIds"`
	UpdatedAt               time.Time           `json:"updatedAt,omitempty"`
}

// RepositoryMapping binds one Jira project to one GitHub repository
type RepositoryMapping struct {
	JiraProject          string `json:"jiraProject"`
	GitHubOwner          string `json:"githubOwner"`
	GitHubRepo           string `json:"githubRepo"`
	DefaultBranch        string `json:"defaultBranch"`
	BranchNamingTemplate string `json:"branchNamingTemplate,omitempty"`
}

// NewIntegrationConfig returns an empty config with defaults applied
func NewIntegrationConfig() *IntegrationConfig {
	return &IntegrationConfig{
		BranchNaming:       DefaultBranchNaming,
		Repositories:       []RepositoryMapping{},
		TransitionMappings: map[string]string{},
		WebhookIDs:         map[string]int64{},
	}
}

// IsValid reports whether the config has everything needed for outbound calls
func (c *IntegrationConfig) IsValid() bool {
	return c != nil &&
		strings.TrimSpace(c.GitHubEnterpriseURL) != "" &&
		strings.TrimSpace(c.GitHubToken) != "" &&
		len(c.Repositories) > 0
}

// Validate is IsValid with a reason
func (c *IntegrationConfig) Validate() error {
	if c == nil {
		return &ConfigInvalidError{Reason: "GitHub integration is not configured"}
	}
	var missing []string
	if strings.TrimSpace(c.GitHubEnterpriseURL) == "" {
		missing = append(missing, "GitHub Enterprise URL")
	}
	if strings.TrimSpace(c.GitHubToken) == "" {
		missing = append(missing, "GitHub token")
	}
	if len(c.Repositories) == 0 {
		missing = append(missing, "repository mapping")
	}
	if len(missing) > 0 {
		return &ConfigInvalidError{Reason: "GitHub integration is not configured", Missing: missing}
	}
	return nil
}

// ApplyDefaults fills derived and defaulted fields in place
func (c *IntegrationConfig) ApplyDefaults() {
	c.GitHubEnterpriseURL = strings.TrimRight(strings.TrimSpace(c.GitHubEnterpriseURL), "/")
	if c.GitHubEnterpriseURL != "" {
		c.GitHubAPIURL = c.GitHubEnterpriseURL + "/api/v3"
	}
	if c.BranchNaming == "" {
		c.BranchNaming = DefaultBranchNaming
	}
	if c.TransitionMappings == nil {
		c.TransitionMappings = map[string]string{}
	}
	if c.WebhookIDs == nil {
		c.WebhookIDs = map[string]int64{}
	}
	for i := range c.Repositories {
		if c.Repositories[i].DefaultBranch == "" {
			c.Repositories[i].DefaultBranch = DefaultBaseBranch
		}
	}
}

// RepositoryMapping returns the first mapping for the project, or nil
func (c *IntegrationConfig) RepositoryMapping(projectKey string) *RepositoryMapping {
	if c == nil {
		return nil
	}
	for i := range c.Repositories {
		if c.Repositories[i].JiraProject == projectKey {
			return &c.Repositories[i]
		}
	}
	return nil
}

// TransitionTarget returns the configured target status for a transition key, or ""
func (c *IntegrationConfig) TransitionTarget(key string) string {
	if c == nil || c.TransitionMappings == nil {
		return ""
	}
	return strings.TrimSpace(c.TransitionMappings[key])
}

// Masked returns a copy safe to hand to an admin client
func (c *IntegrationConfig) Masked() *IntegrationConfig {
	out := *c
	if out.GitHubToken != "" {
		out.GitHubToken = MaskedValue
	}
	if out.WebhookSecret != "" {
		out.WebhookSecret = MaskedValue
	}
	out.Repositories = append([]RepositoryMapping(nil), c.Repositories...)
	return &out
}

// FullName is the owner/repo form used as webhook id key
func (m RepositoryMapping) FullName() string {
	return m.GitHubOwner + "/" + m.GitHubRepo
}

// BranchTemplate picks the mapping template over the config-wide one
func (m RepositoryMapping) BranchTemplate(fallback string) string {
	if m.BranchNamingTemplate != "" {
		return m.BranchNamingTemplate
	}
	if fallback != "" {
		return fallback
	}
	return DefaultBranchNaming
}
