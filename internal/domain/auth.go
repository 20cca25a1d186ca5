package domain

import (
	"github.com/dgrijalva/jwt-go"
)

// Claim is the JWT payload for administrative endpoints. Operator tokens are
// minted out-of-band; the engine only ever verifies them.
type Claim struct {
	Operator string `json:"operator"`
	Role     string `json:"role"`
	jwt.StandardClaims
}
