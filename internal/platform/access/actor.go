package access

// Actor is the authenticated user performing a request.
type Actor struct {
	UserID   string
	Username string
}

func (a Actor) Authenticated() bool {
	return a.UserID != ""
}
