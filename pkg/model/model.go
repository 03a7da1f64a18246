// Package model contains the request and response bodies of the public REST
// API. It is shared between the service handlers and the example client in
// cmd/client.
package model

// ContactRequest is the body accepted by the create and update contact
// endpoints. The birthday travels as a DD-MM-YYYY string and is converted to
// a calendar date at the service boundary; responses carry the stored date
// in RFC 3339 form.
type ContactRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Birthday  string `json:"birthday"`
}

// SignupRequest is the body accepted by the signup endpoint.
type SignupRequest struct {
	Username string `json:"username" binding:"required,max=16"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is the body accepted by the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

// EmailRequest is the body accepted by the confirmation re-request endpoint.
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// TokenResponse carries a freshly issued access/refresh token pair.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
