package auth

import (
	"context"
	"errors"

	"github.com/veristat/apiserver/internal/store"
	"github.com/veristat/apiserver/types"
)

// UserFinder looks up accounts by username.
type UserFinder interface {
	GetByUsername(ctx context.Context, username string) (types.User, error)
}

// RevocationChecker consults the session ledger for a token.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Guard derives an authenticated identity from a bearer token and enforces
// role checks. The stages compose as
// RequireAdmin(RequireActive(CurrentUser(token))).
type Guard struct {
	tokens   *TokenService
	users    UserFinder
	sessions RevocationChecker
}

func NewGuard(tokens *TokenService, users UserFinder, sessions RevocationChecker) *Guard {
	return &Guard{
		tokens:   tokens,
		users:    users,
		sessions: sessions,
	}
}

// VerifyToken runs the full token pipeline: revocation check first, then
// signature and expiry, returning the subject.
func (g *Guard) VerifyToken(ctx context.Context, token string) (string, error) {
	revoked, err := g.sessions.IsRevoked(ctx, token)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", ErrRevokedToken
	}

	claims, err := g.tokens.Decode(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// CurrentUser resolves the token to an account. Every token-level failure
// and an unknown subject are collapsed into ErrUnauthenticated; only store
// outages surface as themselves.
func (g *Guard) CurrentUser(ctx context.Context, token string) (types.User, error) {
	subject, err := g.VerifyToken(ctx, token)
	if err != nil {
		if store.IsUnavailable(err) {
			return types.User{}, err
		}
		return types.User{}, ErrUnauthenticated
	}

	user, err := g.users.GetByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUnauthenticated
		}
		return types.User{}, err
	}
	return user, nil
}

// RequireActive rejects deactivated accounts.
func (g *Guard) RequireActive(user types.User) (types.User, error) {
	if !user.IsActive {
		return types.User{}, ErrInactiveAccount
	}
	return user, nil
}

// RequireAdmin rejects non-admin accounts.
func (g *Guard) RequireAdmin(user types.User) (types.User, error) {
	if !user.IsAdmin {
		return types.User{}, ErrForbidden
	}
	return user, nil
}
