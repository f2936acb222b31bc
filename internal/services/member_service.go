package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kalebWondimu/library-backend/internal/models"
	"github.com/kalebWondimu/library-backend/internal/repositories"
)

// MemberWithActivity is a member annotated with their open-loan count.
type MemberWithActivity struct {
	models.Member
	ActiveBorrows int64 `json:"active_borrows"`
}

// MemberService manages members. Deletion goes through the policy guard: a
// member holding open loans cannot be removed.
type MemberService interface {
	CreateMember(name, email, phone string, joinDate time.Time) (*models.Member, error)
	ListMembers() ([]MemberWithActivity, error)
	GetMember(id uuid.UUID) (*models.Member, error)
	UpdateMember(id uuid.UUID, name, email, phone string, joinDate time.Time) (*models.Member, error)
	DeleteMember(id uuid.UUID) error
	CanDeleteMember(id uuid.UUID) (bool, error)
}

type memberService struct {
	tx         repositories.TxRunner
	memberRepo repositories.MemberRepository
	recordRepo repositories.BorrowRecordRepository
	policy     *PolicyGuard
	logger     *zap.Logger
}

func NewMemberService(
	tx repositories.TxRunner,
	memberRepo repositories.MemberRepository,
	recordRepo repositories.BorrowRecordRepository,
	policy *PolicyGuard,
	logger *zap.Logger,
) MemberService {
	return &memberService{
		tx:         tx,
		memberRepo: memberRepo,
		recordRepo: recordRepo,
		policy:     policy,
		logger:     logger,
	}
}

func (s *memberService) CreateMember(name, email, phone string, joinDate time.Time) (*models.Member, error) {
	member := &models.Member{
		Name:     name,
		Email:    email,
		Phone:    phone,
		JoinDate: joinDate,
	}
	if err := s.memberRepo.Create(nil, member); err != nil {
		return nil, err
	}
	s.logger.Info("member created",
		zap.String("member_id", member.ID.String()),
		zap.String("email", member.Email))
	return member, nil
}

// ListMembers returns every member together with their active-borrow count.
func (s *memberService) ListMembers() ([]MemberWithActivity, error) {
	members, err := s.memberRepo.List(nil)
	if err != nil {
		return nil, err
	}
	out := make([]MemberWithActivity, 0, len(members))
	for _, m := range members {
		count, err := s.recordRepo.CountOpenByMember(nil, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, MemberWithActivity{Member: m, ActiveBorrows: count})
	}
	return out, nil
}

func (s *memberService) GetMember(id uuid.UUID) (*models.Member, error) {
	member, err := s.memberRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

func (s *memberService) UpdateMember(id uuid.UUID, name, email, phone string, joinDate time.Time) (*models.Member, error) {
	if _, err := s.GetMember(id); err != nil {
		return nil, err
	}
	member := &models.Member{
		ID:       id,
		Name:     name,
		Email:    email,
		Phone:    phone,
		JoinDate: joinDate,
	}
	if err := s.memberRepo.Update(nil, member); err != nil {
		return nil, err
	}
	return member, nil
}

// DeleteMember removes a member unless they hold open loans. The guard and
// the delete run in one unit so a concurrent checkout cannot slip between
// them.
func (s *memberService) DeleteMember(id uuid.UUID) error {
	return s.tx.RunInTx(func(tx *gorm.DB) error {
		if _, err := s.memberRepo.GetByID(tx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			return err
		}
		ok, err := s.policy.CanDelete(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			s.logger.Warn("member deletion blocked by open loans",
				zap.String("member_id", id.String()))
			return ErrMemberHasActiveLoans
		}
		return s.memberRepo.Delete(tx, id)
	})
}

func (s *memberService) CanDeleteMember(id uuid.UUID) (bool, error) {
	if _, err := s.GetMember(id); err != nil {
		return false, err
	}
	return s.policy.CanDelete(nil, id)
}
