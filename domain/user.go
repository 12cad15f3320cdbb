package domain

// User is a display-capable user record from the identity directory.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Unassigned is the placeholder for a user id the directory cannot resolve.
func Unassigned(id string) User {
	return User{ID: id, Name: "unassigned"}
}
