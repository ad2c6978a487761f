package domain

import (
	"regexp"
	"strings"
)

// Issue is the subset of a Jira issue the integration needs
type Issue struct {
	Key        string `json:"key"`
	ProjectKey string `json:"projectKey"`
	Summary    string `json:"summary"`
	IssueType  string `json:"issueType"`
	Status     string `json:"status"`
	Assignee   string `json:"assignee,omitempty"`
}

// RemoteLink is a cross reference from an issue to a GitHub resource
type RemoteLink struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

var (
	issueKeyPattern    = regexp.MustCompile(`[A-Z][A-Z0-9]+-[0-9]+`)
	nonSlugChars       = regexp.MustCompile(`[^a-z0-9-]`)
	repeatedHyphens    = regexp.MustCompile(`-+`)
	maxSummarySlugSize = 50
)

// ExtractIssueKey returns the first issue key found in the candidates, scanned in order
func ExtractIssueKey(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if key := issueKeyPattern.FindString(c); key != "" {
			return key, true
		}
	}
	return "", false
}

// SlugifySummary lower-cases the summary, maps anything outside [a-z0-9-] to '-',
// collapses runs of '-', trims them from both ends and truncates to 50 characters.
func SlugifySummary(summary string) string {
	s := strings.ToLower(summary)
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = repeatedHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSummarySlugSize {
		s = s[:maxSummarySlugSize]
	}
	return s
}

// RenderBranchName substitutes {issueKey}, {project}, {issueType} and {summary} in the template
func RenderBranchName(template string, issue *Issue) string {
	r := strings.NewReplacer(
		"{issueKey}", issue.Key,
		"{project}", issue.ProjectKey,
		"{issueType}", issue.IssueType,
	)
	name := r.Replace(template)
	if strings.Contains(name, "{summary}") {
		name = strings.ReplaceAll(name, "{summary}", SlugifySummary(issue.Summary))
	}
	return name
}
