package models

import (
	"time"
)

// User represents an account in tabela usuarios. The service only consumes it
// as an audit stamp (created_by/updated_by) and a role gate; authentication
// itself happens in Cognito.
type User struct {
	ID        int64     `json:"id"`
	CognitoID string    `json:"cognito_id"`
	Email     string    `json:"email"`
	Nome      string    `json:"nome"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateUserRequest represents the request payload for provisioning a user
type CreateUserRequest struct {
	Email string `json:"email"`
	Nome  string `json:"nome"`
	Role  string `json:"role"`
}

// UserListResponse represents the response for listing users
type UserListResponse struct {
	Usuarios []User `json:"usuarios"`
	Total    int    `json:"total"`
}
