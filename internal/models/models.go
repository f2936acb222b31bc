package models

import (
	"time"

	"github.com/google/uuid"
)

type StaffRole string

const (
	StaffRoleAdmin     StaffRole = "admin"
	StaffRoleLibrarian StaffRole = "librarian"
)

type Genre struct {
	ID   uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
}

// Book tracks availability as an aggregate counter rather than per-copy rows:
// AvailableCopies is the number of copies not currently on an open loan.
// Only the borrowing engine and the copy-count reconcile write to it.
type Book struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title           string     `gorm:"size:255;not null" json:"title"`
	Author          string     `gorm:"size:255;not null" json:"author"`
	PublishedYear   int        `gorm:"not null" json:"published_year"`
	GenreID         *uuid.UUID `gorm:"type:uuid;index" json:"genre_id"`
	Genre           *Genre     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"genre,omitempty"`
	TotalCopies     int        `gorm:"not null" json:"total_copies"`
	AvailableCopies int        `gorm:"not null" json:"available_copies"`
}

type Member struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name     string    `gorm:"size:255;not null" json:"name"`
	Email    string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Phone    string    `gorm:"size:32" json:"phone"`
	JoinDate time.Time `gorm:"not null" json:"join_date"`
}

type Staff struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Username     string    `gorm:"size:255;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         StaffRole `gorm:"size:32;not null" json:"role"`
}

// BorrowRecord is one entry in the append-mostly borrowing ledger.
// ReturnDate == nil means the loan is open; a record is closed exactly once
// and never deleted or re-opened.
type BorrowRecord struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	MemberID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"member_id"`
	Member     *Member    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	BookID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"book_id"`
	Book       *Book      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"book,omitempty"`
	BorrowDate time.Time  `gorm:"not null" json:"borrow_date"`
	DueDate    time.Time  `gorm:"not null" json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
}

// Open reports whether the loan has not been returned yet.
func (r *BorrowRecord) Open() bool {
	return r.ReturnDate == nil
}

// OverdueAt reports whether the loan is open and past due at the given time.
func (r *BorrowRecord) OverdueAt(now time.Time) bool {
	return r.ReturnDate == nil && r.DueDate.Before(now)
}
