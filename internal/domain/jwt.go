package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// CarmarketClaims represents custom JWT claims issued by the identity service
type CarmarketClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// Role constants
const (
	RoleDealer = "dealer"
	RoleAdmin  = "admin"
	RoleBuyer  = "buyer"
)
