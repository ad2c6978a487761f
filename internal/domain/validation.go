package domain

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

const (
	maxBranchNameLength  = 255
	maxTitleLength       = 255
	maxDescriptionLength = 10000
	maxURLLength         = 2048
	minTokenLength       = 20
	maxTokenLength       = 255
)

var (
	branchNamePattern = regexp.MustCompile(`^[a-zA-Z0-9/_-]+$`)
	issueKeyFull      = regexp.MustCompile(`^[A-Z][A-Z0-9]+-[0-9]+$`)
	repoNamePattern   = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

	githubTokenPrefixes = []string{"ghp_", "gho_", "ghu_", "ghs_", "ghr_", "github_pat_"}
)

// ValidateBranchName checks a branch name and returns it trimmed
func ValidateBranchName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", NewValidationError("branchName", "Branch name is required")
	}
	if len(name) > maxBranchNameLength {
		return "", NewValidationError("branchName", "Branch name must not exceed %d characters", maxBranchNameLength)
	}
	if strings.Contains(name, "..") {
		return "", NewValidationError("branchName", "Branch name must not contain '..'")
	}
	if !branchNamePattern.MatchString(name) {
		return "", NewValidationError("branchName", "Branch name may only contain letters, digits, '/', '_' and '-'")
	}
	return name, nil
}

// ValidateIssueKey upper-cases the key and checks its shape
func ValidateIssueKey(key string) (string, error) {
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "" {
		return "", NewValidationError("issueKey", "Issue key is required")
	}
	if !issueKeyFull.MatchString(key) {
		return "", NewValidationError("issueKey", "Invalid issue key format: %s", key)
	}
	return key, nil
}

// ValidateRepositoryName checks an owner or repository name
func ValidateRepositoryName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", NewValidationError(field, "%s is required", field)
	}
	if !repoNamePattern.MatchString(name) {
		return "", NewValidationError(field, "%s contains invalid characters", field)
	}
	return name, nil
}

// ValidateURL accepts absolute http and https URLs with a host
func ValidateURL(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", NewValidationError(field, "%s is required", field)
	}
	if len(raw) > maxURLLength {
		return "", NewValidationError(field, "%s must not exceed %d characters", field, maxURLLength)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", NewValidationError(field, "%s must be a valid URL", field)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", NewValidationError(field, "%s must use http or https", field)
	}
	return raw, nil
}

// ValidateTitle strips control characters and enforces the length limit
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(stripControl(title))
	if title == "" {
		return "", NewValidationError("title", "Title is required")
	}
	if len(title) > maxTitleLength {
		return "", NewValidationError("title", "Title must not exceed %d characters", maxTitleLength)
	}
	return title, nil
}

// ValidateDescription allows empty descriptions
func ValidateDescription(desc string) (string, error) {
	if len(desc) > maxDescriptionLength {
		return "", NewValidationError("description", "Description must not exceed %d characters", maxDescriptionLength)
	}
	return desc, nil
}

// ValidateGitHubToken checks the token prefix and length. It does not call GitHub.
func ValidateGitHubToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return NewValidationError("githubToken", "GitHub token is required")
	}
	if len(token) < minTokenLength || len(token) > maxTokenLength {
		return NewValidationError("githubToken", "GitHub token has an invalid length")
	}
	for _, p := range githubTokenPrefixes {
		if strings.HasPrefix(token, p) {
			return nil
		}
	}
	return NewValidationError("githubToken", "GitHub token has an unrecognized format")
}

// stripControl keeps newlines and tabs out of single-line fields
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
