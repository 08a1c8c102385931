package model

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are JWT claims for dashboard session tokens. The session id
// keys the Redis record holding the backend credential.
type SessionClaims struct {
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for dashboard login, forwarded to the
// backend's user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// BackendLoginResponse is the backend's login payload.
type BackendLoginResponse struct {
	Token string `json:"token"`
}
