package domain

import "context"

type contextKey string

const userKey contextKey = "jiraUser"

// WithUser stores the authenticated Jira username in the context
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUserFromContext returns the authenticated Jira username, or ""
func GetUserFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userKey).(string); ok {
		return v
	}
	return ""
}
