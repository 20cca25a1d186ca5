package authservice

import (
	"context"
	"time"

	"github.com/tuncanbit/paygate/internal/domain"
)

type IAuthService interface {
	// VerifyToken validates an administrative JWT and returns its claims.
	VerifyToken(ctx context.Context, tokenString string) (*domain.Claim, error)

	// GenerateToken mints an administrative JWT for an operator. Intended
	// for provisioning tooling, not exposed over HTTP.
	GenerateToken(ctx context.Context, operator, role string, ttl time.Duration) (string, error)
}
