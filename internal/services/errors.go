package services

import (
	"errors"
	"strings"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrBookNotFound is returned when the requested book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrMemberNotFound is returned when the referenced member does not exist.
	ErrMemberNotFound = errors.New("member not found")

	// ErrGenreNotFound is returned when the referenced genre does not exist.
	ErrGenreNotFound = errors.New("genre not found")

	// ErrBorrowRecordNotFound is returned when the referenced borrow record
	// does not exist.
	ErrBorrowRecordNotFound = errors.New("borrow record not found")

	// ErrBookUnavailable is returned by checkout when every copy of the book
	// is on an open loan. No ledger entry is created.
	ErrBookUnavailable = errors.New("no available copies of this book")

	// ErrDuplicateActiveLoan is returned by checkout when the member already
	// holds an open loan for the same book.
	ErrDuplicateActiveLoan = errors.New("member already has an active loan for this book")

	// ErrBorrowLimitExceeded is returned by checkout when the member is at the
	// configured cap of concurrent open loans.
	ErrBorrowLimitExceeded = errors.New("member has reached the open loan limit")

	// ErrNoActiveLoan is returned by return when no open loan exists for the
	// member/book pair. Returning an already-returned loan lands here.
	ErrNoActiveLoan = errors.New("no active loan for this member and book")

	// ErrAlreadyReturned is returned when a return loses a race and the record
	// was closed by a concurrent request. No counter change happens.
	ErrAlreadyReturned = errors.New("loan already returned")

	// ErrInvalidCopyCount is returned when a total-copies change would drop
	// the total below the number of copies currently on loan.
	ErrInvalidCopyCount = errors.New("total copies cannot be less than copies on loan")

	// ErrMemberHasActiveLoans is returned when deleting a member who still
	// holds open loans.
	ErrMemberHasActiveLoans = errors.New("cannot delete member with active borrowed books")

	// ErrBookHasActiveLoans is returned when deleting a book with open loans.
	ErrBookHasActiveLoans = errors.New("cannot delete book with copies on loan")

	// ErrInventoryInconsistency is returned when a compensating inventory
	// mutation could not be completed and the counters may disagree with the
	// ledger. It signals an operational problem, never a client mistake.
	ErrInventoryInconsistency = errors.New("inventory and ledger are inconsistent")
)

// isUniqueViolation checks whether a PostgreSQL unique-constraint error occurred.
// PostgreSQL error code 23505 = unique_violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
