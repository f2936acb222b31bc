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

const (
	// DefaultLoanPeriodDays is the loan period applied when no override is
	// configured.
	DefaultLoanPeriodDays = 14

	// releaseRetries bounds the compensating-release attempts before the
	// operation is escalated as an inventory inconsistency.
	releaseRetries = 3

	// releaseBackoff is the base delay between compensating-release attempts.
	releaseBackoff = 10 * time.Millisecond
)

// BorrowingService is the engine that moves a book between available and
// borrowed. It is the only writer of available_copies and of borrow record
// creation/closure; every mutation pairs a counter change with a ledger change
// inside one atomic unit.
type BorrowingService interface {
	Checkout(memberID, bookID uuid.UUID) (*models.BorrowRecord, error)
	Return(memberID, bookID uuid.UUID) (*models.BorrowRecord, error)
}

type borrowingService struct {
	tx         repositories.TxRunner
	bookRepo   repositories.BookRepository
	memberRepo repositories.MemberRepository
	recordRepo repositories.BorrowRecordRepository
	policy     *PolicyGuard
	logger     *zap.Logger

	loanPeriodDays int
}

func NewBorrowingService(
	tx repositories.TxRunner,
	bookRepo repositories.BookRepository,
	memberRepo repositories.MemberRepository,
	recordRepo repositories.BorrowRecordRepository,
	policy *PolicyGuard,
	logger *zap.Logger,
	loanPeriodDays int,
) BorrowingService {
	if loanPeriodDays <= 0 {
		loanPeriodDays = DefaultLoanPeriodDays
	}
	return &borrowingService{
		tx:             tx,
		bookRepo:       bookRepo,
		memberRepo:     memberRepo,
		recordRepo:     recordRepo,
		policy:         policy,
		logger:         logger,
		loanPeriodDays: loanPeriodDays,
	}
}

// Checkout validates the member, the book and the borrowing policy, then
// reserves a copy and opens a ledger entry as one atomic unit. Either both the
// counter decrement and the record exist afterwards, or neither does.
func (s *borrowingService) Checkout(memberID, bookID uuid.UUID) (*models.BorrowRecord, error) {
	var record *models.BorrowRecord

	err := s.tx.RunInTx(func(tx *gorm.DB) error {
		if _, err := s.memberRepo.GetByID(tx, memberID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			return err
		}
		if _, err := s.bookRepo.GetByID(tx, bookID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		// Policy rejections fail fast, before any mutation.
		if err := s.policy.CheckBorrow(tx, memberID, bookID); err != nil {
			s.logger.Info("checkout rejected by policy",
				zap.String("member_id", memberID.String()),
				zap.String("book_id", bookID.String()),
				zap.Error(err))
			return err
		}

		if err := s.bookRepo.ReserveCopy(tx, bookID); err != nil {
			if errors.Is(err, repositories.ErrNoAvailableCopies) {
				s.logger.Info("checkout rejected, book unavailable",
					zap.String("member_id", memberID.String()),
					zap.String("book_id", bookID.String()))
				return ErrBookUnavailable
			}
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		now := time.Now().UTC()
		rec := &models.BorrowRecord{
			MemberID:   memberID,
			BookID:     bookID,
			BorrowDate: now,
			DueDate:    now.AddDate(0, 0, s.loanPeriodDays),
		}
		if err := s.recordRepo.Create(tx, rec); err != nil {
			// With a real transaction the rollback undoes the reservation.
			// Without one the counter already moved and must be put back or
			// it diverges from the ledger.
			if tx == nil {
				s.logger.Error("ledger write failed after reservation, compensating",
					zap.String("book_id", bookID.String()),
					zap.Error(err))
				if relErr := s.releaseWithRetry(tx, bookID); relErr != nil {
					return relErr
				}
			}
			// A unique violation on the open-loan index means a concurrent
			// checkout by the same member won the race; the policy check saw
			// no open loan because that loan did not exist yet.
			if isUniqueViolation(err) {
				s.logger.Info("checkout lost race, duplicate active loan",
					zap.String("member_id", memberID.String()),
					zap.String("book_id", bookID.String()))
				return ErrDuplicateActiveLoan
			}
			return err
		}
		record = rec
		return nil
	})

	if err != nil {
		return nil, err
	}
	s.logger.Info("checkout created",
		zap.String("record_id", record.ID.String()),
		zap.String("member_id", memberID.String()),
		zap.String("book_id", bookID.String()),
		zap.Time("due_date", record.DueDate))
	return record, nil
}

// Return resolves the member's open loan for the book, closes it and releases
// the copy, mirroring Checkout's atomicity.
func (s *borrowingService) Return(memberID, bookID uuid.UUID) (*models.BorrowRecord, error) {
	var record *models.BorrowRecord

	err := s.tx.RunInTx(func(tx *gorm.DB) error {
		rec, err := s.recordRepo.FindOpenByMemberAndBook(tx, memberID, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveLoan
			}
			return err
		}

		now := time.Now().UTC()
		if err := s.recordRepo.MarkReturned(tx, rec.ID, now); err != nil {
			if errors.Is(err, repositories.ErrAlreadyReturned) {
				s.logger.Warn("return lost race, loan already closed",
					zap.String("record_id", rec.ID.String()))
				return ErrAlreadyReturned
			}
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveLoan
			}
			return err
		}

		if err := s.bookRepo.ReleaseCopy(tx, bookID); err != nil {
			s.logger.Error("release failed after closing loan, retrying",
				zap.String("record_id", rec.ID.String()),
				zap.String("book_id", bookID.String()),
				zap.Error(err))
			if relErr := s.releaseWithRetry(tx, bookID); relErr != nil {
				return relErr
			}
		}

		rec.ReturnDate = &now
		record = rec
		return nil
	})

	if err != nil {
		return nil, err
	}
	s.logger.Info("loan returned",
		zap.String("record_id", record.ID.String()),
		zap.String("member_id", memberID.String()),
		zap.String("book_id", bookID.String()))
	return record, nil
}

// releaseWithRetry performs the compensating increment with bounded backoff.
// ErrOverRelease means the counter already disagrees with the ledger, so it is
// escalated immediately rather than retried. Persistent failure surfaces as
// ErrInventoryInconsistency for operator attention; it is never swallowed.
func (s *borrowingService) releaseWithRetry(tx *gorm.DB, bookID uuid.UUID) error {
	var lastErr error
	for attempt := 1; attempt <= releaseRetries; attempt++ {
		err := s.bookRepo.ReleaseCopy(tx, bookID)
		if err == nil {
			return nil
		}
		if errors.Is(err, repositories.ErrOverRelease) {
			s.logger.Error("over-release detected during compensation",
				zap.String("book_id", bookID.String()))
			return ErrInventoryInconsistency
		}
		lastErr = err
		time.Sleep(time.Duration(attempt) * releaseBackoff)
	}
	s.logger.Error("compensating release failed, manual reconciliation required",
		zap.String("book_id", bookID.String()),
		zap.Int("attempts", releaseRetries),
		zap.Error(lastErr))
	return ErrInventoryInconsistency
}
