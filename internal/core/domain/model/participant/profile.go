package participant

// Profile is the identity record returned by the identity store.
type Profile struct {
	ID   string
	Name string
	Role Role
}

// Session opens a session for the profile.
func (p Profile) Session() (Session, error) {
	return NewSession(p.ID, p.Role)
}
