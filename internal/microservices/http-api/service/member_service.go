package service

import (
	"context"

	"go.uber.org/zap"

	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/repository"
)

type MemberService interface {
	Get(ctx context.Context, memberID string) (*models.Member, error)
	List(ctx context.Context) ([]models.Member, error)
	SetActive(ctx context.Context, memberID string, active bool) (*models.Member, error)
	Transactions(ctx context.Context, memberID string) ([]models.Transaction, error)
}

type memberService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewMemberService(store repository.Store, logger *zap.Logger) MemberService {
	return &memberService{store: store, logger: logger}
}

func (s *memberService) Get(ctx context.Context, memberID string) (*models.Member, error) {
	m, err := s.store.Members().GetByID(ctx, memberID)
	if err != nil {
		return nil, lookupError("get member", err, ErrMemberNotFound)
	}
	return m, nil
}

func (s *memberService) List(ctx context.Context) ([]models.Member, error) {
	list, err := s.store.Members().List(ctx)
	return list, systemError("list members", err)
}

func (s *memberService) SetActive(ctx context.Context, memberID string, active bool) (*models.Member, error) {
	if err := s.store.Members().SetActive(ctx, memberID, active); err != nil {
		return nil, lookupError("set member active", err, ErrMemberNotFound)
	}
	s.logger.Info("member_active_changed", zap.String("member_id", memberID), zap.Bool("active", active))
	return s.Get(ctx, memberID)
}

func (s *memberService) Transactions(ctx context.Context, memberID string) ([]models.Transaction, error) {
	list, err := s.store.Transactions().ListByMember(ctx, memberID)
	return list, systemError("list transactions", err)
}
