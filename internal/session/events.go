package session

import "github.com/dropDatabas3/creatorverse/internal/domain/types"

// EventType names a session transition.
type EventType string

const (
	InitialSession EventType = "INITIAL_SESSION"
	SignedIn       EventType = "SIGNED_IN"
	SignedOut      EventType = "SIGNED_OUT"
	TokenRefreshed EventType = "TOKEN_REFRESHED"
	UserUpdated    EventType = "USER_UPDATED"
)

// Event is delivered to listeners. Session is a copy; nil means signed out.
type Event struct {
	Type    EventType
	Session *types.Session
	// Seq increases by one per transition.
	Seq uint64
}

type listener struct {
	id uint64
	fn func(Event)
}
