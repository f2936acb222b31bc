package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kalebWondimu/library-backend/internal/repositories"
)

// PolicyGuard evaluates member-level borrowing constraints. It only reads the
// ledger; callers decide what to do with a rejection before any mutation.
type PolicyGuard struct {
	recordRepo repositories.BorrowRecordRepository

	// maxOpenLoans caps concurrent open loans per member; 0 disables the cap.
	maxOpenLoans int
}

func NewPolicyGuard(recordRepo repositories.BorrowRecordRepository, maxOpenLoans int) *PolicyGuard {
	return &PolicyGuard{recordRepo: recordRepo, maxOpenLoans: maxOpenLoans}
}

// CanDelete reports whether the member holds no open loans.
func (g *PolicyGuard) CanDelete(db *gorm.DB, memberID uuid.UUID) (bool, error) {
	open, err := g.recordRepo.CountOpenByMember(db, memberID)
	if err != nil {
		return false, err
	}
	return open == 0, nil
}

// CheckBorrow rejects a checkout before any mutation happens: a member may not
// hold two open loans for the same title, nor exceed the open-loan cap.
func (g *PolicyGuard) CheckBorrow(db *gorm.DB, memberID, bookID uuid.UUID) error {
	if _, err := g.recordRepo.FindOpenByMemberAndBook(db, memberID, bookID); err == nil {
		return ErrDuplicateActiveLoan
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if g.maxOpenLoans > 0 {
		open, err := g.recordRepo.CountOpenByMember(db, memberID)
		if err != nil {
			return err
		}
		if open >= int64(g.maxOpenLoans) {
			return ErrBorrowLimitExceeded
		}
	}
	return nil
}
