package domain

// Actor is the resolved identity handed in by the authentication layer.
type Actor struct {
	UserID  string
	IsAdmin bool
}

// CanAccessOrder reports whether the actor may read the given order.
func (a Actor) CanAccessOrder(o *Order) bool {
	return a.IsAdmin || a.UserID == o.UserID
}
