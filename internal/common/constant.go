package common

// SessionCookieName is the default cookie carrying the modern session token.
const SessionCookieName = "chapterhub.session_token"

// ModernSignInPath is where already-migrated users are sent to log in.
const ModernSignInPath = "/auth/sign-in/email"

// PasswordProvider is the provider id of password credentials in the modern store.
const PasswordProvider = "password"
