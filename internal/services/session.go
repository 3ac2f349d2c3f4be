package services

import (
	"context"

	"github.com/veristat/apiserver/types"
)

// SessionRepository defines persistence operations for the token ledger.
type SessionRepository interface {
	Record(ctx context.Context, username, token string) (types.Session, error)
	Revoke(ctx context.Context, token string) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	ListByUsername(ctx context.Context, username string) ([]types.Session, error)
}

// SessionService encapsulates ledger use-cases.
type SessionService struct {
	repo SessionRepository
}

func NewSessionService(repo SessionRepository) *SessionService {
	return &SessionService{repo: repo}
}

func (s *SessionService) Record(ctx context.Context, username, token string) (types.Session, error) {
	return s.repo.Record(ctx, username, token)
}

func (s *SessionService) Revoke(ctx context.Context, token string) error {
	return s.repo.Revoke(ctx, token)
}

func (s *SessionService) IsRevoked(ctx context.Context, token string) (bool, error) {
	return s.repo.IsRevoked(ctx, token)
}

func (s *SessionService) ListByUsername(ctx context.Context, username string) ([]types.Session, error) {
	return s.repo.ListByUsername(ctx, username)
}
