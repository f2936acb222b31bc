package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kalebWondimu/library-backend/internal/models"
	"github.com/kalebWondimu/library-backend/internal/repositories"
)

// QueryService derives read-only views from the ledger. It observes the
// invariants but never enforces them and never mutates state.
type QueryService interface {
	ActiveBorrowCount(memberID uuid.UUID) (int64, error)
	History(memberID uuid.UUID) ([]models.BorrowRecord, error)
	ListOverdue(asOf time.Time) ([]models.BorrowRecord, error)
}

type queryService struct {
	memberRepo repositories.MemberRepository
	recordRepo repositories.BorrowRecordRepository
}

func NewQueryService(memberRepo repositories.MemberRepository, recordRepo repositories.BorrowRecordRepository) QueryService {
	return &queryService{memberRepo: memberRepo, recordRepo: recordRepo}
}

// ActiveBorrowCount returns the number of open loans the member holds.
func (s *queryService) ActiveBorrowCount(memberID uuid.UUID) (int64, error) {
	if _, err := s.memberRepo.GetByID(nil, memberID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrMemberNotFound
		}
		return 0, err
	}
	return s.recordRepo.CountOpenByMember(nil, memberID)
}

// History returns the member's full borrowing history, most recent borrow
// first, with book and genre data attached.
func (s *queryService) History(memberID uuid.UUID) ([]models.BorrowRecord, error) {
	if _, err := s.memberRepo.GetByID(nil, memberID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return s.recordRepo.ListByMember(nil, memberID)
}

// ListOverdue returns open loans whose due date has passed as of the given
// time.
func (s *queryService) ListOverdue(asOf time.Time) ([]models.BorrowRecord, error) {
	return s.recordRepo.ListOverdue(nil, asOf)
}

// DaysOverdue reports how many calendar days past due an open loan is at the
// given time. Closed or on-time loans yield 0; any overdue time counts as at
// least one day.
//
// Both timestamps are truncated to midnight UTC so a loan returned later the
// same calendar day as its due date is not counted as a full day late.
func DaysOverdue(record *models.BorrowRecord, asOf time.Time) int {
	if !record.OverdueAt(asOf) {
		return 0
	}

	dueMidnight := record.DueDate.UTC().Truncate(24 * time.Hour)
	asOfMidnight := asOf.UTC().Truncate(24 * time.Hour)

	days := int(asOfMidnight.Sub(dueMidnight).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return days
}
