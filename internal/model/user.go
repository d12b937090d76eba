package model

// User is the public shape of an account as returned by the backend.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Credentials are submitted to the login endpoint. The backend reads the email
// from the form field named "username".
type Credentials struct {
	Email    string
	Password string
}

// Profile represents a signup request.
type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Credentials returns the login credentials carried by the profile.
func (p Profile) Credentials() Credentials {
	return Credentials{Email: p.Email, Password: p.Password}
}

// TokenResponse is the login endpoint payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
