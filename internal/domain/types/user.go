package types

// UserView es la proyección visible para la app: identidad + gamificación.
// ID siempre es Identity.Subject.
type UserView struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	Picture       *string `json:"picture,omitempty"`
	Streak        int     `json:"streak"`
	Coins         int     `json:"coins"`
	CurrentPlanet int     `json:"currentPlanet"`
	LastPostDate  *string `json:"lastPostDate,omitempty"`
}

// Equal compara por valor, incluyendo los punteros opcionales.
func (u *UserView) Equal(o *UserView) bool {
	if u == nil || o == nil {
		return u == o
	}
	return u.ID == o.ID && u.Email == o.Email && u.Name == o.Name &&
		u.Streak == o.Streak && u.Coins == o.Coins && u.CurrentPlanet == o.CurrentPlanet &&
		strPtrEq(u.Picture, o.Picture) && strPtrEq(u.LastPostDate, o.LastPostDate)
}

func strPtrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
