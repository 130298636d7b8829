package auth

import (
	"github.com/ecoforge/ecoforge-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID string
	Role   enums.MemberRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID string           `json:"user_id"`
	Role   enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
