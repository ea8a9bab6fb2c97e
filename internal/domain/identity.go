package domain

// Identity names the owner of scoped storefront data. A zero value is the
// shared guest identity; any non-empty UserID is a signed-in member.
type Identity struct {
	UserID string `json:"user_id,omitempty"`
}

// Guest returns the anonymous identity shared by all signed-out sessions.
func Guest() Identity {
	return Identity{}
}

// User returns the identity for a signed-in member.
func User(id string) Identity {
	return Identity{UserID: id}
}

// IsGuest reports whether the identity is the anonymous one.
func (i Identity) IsGuest() bool {
	return i.UserID == ""
}

// StorageKey builds the persistence key for a collection owned by this
// identity. Guest data and per-user data live under distinct keys so a
// sign-in or sign-out never reads another owner's rows.
func (i Identity) StorageKey(collection string) string {
	if i.IsGuest() {
		return collection + "_guest"
	}
	return collection + "_user_" + i.UserID
}

// String renders the identity for logs.
func (i Identity) String() string {
	if i.IsGuest() {
		return "guest"
	}
	return "user:" + i.UserID
}
