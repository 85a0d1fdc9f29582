package model

// User is the actor reported by an identity provider
type User struct {
	Username string
	Email    string
}

// Tag returns the value stamped on entries created by the user
func (u *User) Tag() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Username
}
