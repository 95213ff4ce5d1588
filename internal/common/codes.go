package common

// Code is the machine-stable error identifier returned to clients.
type Code string

const (
	CodeMissingFields      Code = "MISSING_FIELDS"
	CodeMissingEmail       Code = "MISSING_EMAIL"
	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeInvalidPassword    Code = "INVALID_PASSWORD"
	CodeAccountDisabled    Code = "ACCOUNT_DISABLED"
	CodeMigrationDisabled  Code = "MIGRATION_DISABLED"
	CodeModernAuthDisabled Code = "MODERN_AUTH_DISABLED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeInternalError      Code = "INTERNAL_ERROR"
)
