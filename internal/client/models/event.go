package models

// AuthEvent is the kind of change reported by the backend's auth listener.
type AuthEvent string

const (
	EventInitialSession   AuthEvent = "INITIAL_SESSION"
	EventSignedIn         AuthEvent = "SIGNED_IN"
	EventSignedOut        AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed   AuthEvent = "TOKEN_REFRESHED"
	EventUserUpdated      AuthEvent = "USER_UPDATED"
	EventPasswordRecovery AuthEvent = "PASSWORD_RECOVERY"
)

// SignOutScope selects which sessions a sign-out invalidates.
type SignOutScope string

const (
	ScopeLocal  SignOutScope = "local"
	ScopeGlobal SignOutScope = "global"
)
