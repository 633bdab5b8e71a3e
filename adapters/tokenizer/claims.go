package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with the owning user
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}
