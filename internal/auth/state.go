package auth

import "github.com/dropDatabas3/creatorverse/internal/domain/types"

type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is what subscribers see. User is a copy.
type Snapshot struct {
	State   State
	User    *types.UserView
	Loading bool
}

func (s Snapshot) equal(o Snapshot) bool {
	return s.State == o.State && s.Loading == o.Loading && s.User.Equal(o.User)
}

func copyUser(u *types.UserView) *types.UserView {
	if u == nil {
		return nil
	}
	c := *u
	if u.Picture != nil {
		p := *u.Picture
		c.Picture = &p
	}
	if u.LastPostDate != nil {
		d := *u.LastPostDate
		c.LastPostDate = &d
	}
	return &c
}
