package auth

// Credentials is the body sent to the backend login endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Identity is the login payload returned by the backend.
type Identity struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
