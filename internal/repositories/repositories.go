package repositories

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kalebWondimu/library-backend/internal/models"
)

// Storage-level outcome signals. Not-found is reported as
// gorm.ErrRecordNotFound across all implementations.
var (
	// ErrNoAvailableCopies is returned by ReserveCopy when the book exists but
	// every copy is on an open loan.
	ErrNoAvailableCopies = errors.New("no available copies")

	// ErrOverRelease is returned by ReleaseCopy when incrementing would push
	// available_copies above total_copies. It indicates a ledger/inventory
	// desync, not a routine business failure.
	ErrOverRelease = errors.New("release would exceed total copies")

	// ErrAlreadyReturned is returned by MarkReturned when the record is
	// already closed.
	ErrAlreadyReturned = errors.New("borrow record already returned")
)

// TxRunner executes a function as one atomic unit. Repositories accept the
// handle it passes in; the gorm runner hands out a transaction, the memory
// runner hands out nil and relies on the engine's compensation path.
type TxRunner interface {
	RunInTx(fn func(tx *gorm.DB) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) RunInTx(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	List(db *gorm.DB) ([]models.Book, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	Update(db *gorm.DB, book *models.Book) error
	Delete(db *gorm.DB, id uuid.UUID) error

	// ReserveCopy atomically decrements available_copies when it is positive.
	ReserveCopy(db *gorm.DB, bookID uuid.UUID) error
	// ReleaseCopy atomically increments available_copies when it is below
	// total_copies.
	ReleaseCopy(db *gorm.DB, bookID uuid.UUID) error
	// SetCopyCounts overwrites both counters; callers hold the row lock and
	// have already recomputed available from the open-loan count.
	SetCopyCounts(db *gorm.DB, bookID uuid.UUID, total, available int) error
}

type BorrowRecordRepository interface {
	Create(db *gorm.DB, record *models.BorrowRecord) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.BorrowRecord, error)
	// MarkReturned closes an open record exactly once.
	MarkReturned(db *gorm.DB, recordID uuid.UUID, returnedAt time.Time) error
	FindOpenByMemberAndBook(db *gorm.DB, memberID, bookID uuid.UUID) (*models.BorrowRecord, error)
	CountOpenByMember(db *gorm.DB, memberID uuid.UUID) (int64, error)
	CountOpenByBook(db *gorm.DB, bookID uuid.UUID) (int64, error)
	ListByMember(db *gorm.DB, memberID uuid.UUID) ([]models.BorrowRecord, error)
	ListOverdue(db *gorm.DB, asOf time.Time) ([]models.BorrowRecord, error)
}

// concrete implementations

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

func (r *bookRepository) List(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Preload("Genre").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.Preload("Genre").First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) Update(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Book{}).
		Where("id = ?", book.ID).
		Updates(map[string]interface{}{
			"title":          book.Title,
			"author":         book.Author,
			"published_year": book.PublishedYear,
			"genre_id":       book.GenreID,
		}).Error
}

func (r *bookRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Book{}, "id = ?", id).Error
}

func (r *bookRepository) ReserveCopy(db *gorm.DB, bookID uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	// Compare-and-decrement: the WHERE clause makes two concurrent
	// reservations of the last copy mutually exclusive.
	res := db.Model(&models.Book{}).
		Where("id = ? AND available_copies > 0", bookID).
		UpdateColumn("available_copies", gorm.Expr("available_copies - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.classifyNoRows(db, bookID, ErrNoAvailableCopies)
	}
	return nil
}

func (r *bookRepository) ReleaseCopy(db *gorm.DB, bookID uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Book{}).
		Where("id = ? AND available_copies < total_copies", bookID).
		UpdateColumn("available_copies", gorm.Expr("available_copies + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.classifyNoRows(db, bookID, ErrOverRelease)
	}
	return nil
}

// classifyNoRows tells a missing book apart from a failed counter guard.
func (r *bookRepository) classifyNoRows(db *gorm.DB, bookID uuid.UUID, guardErr error) error {
	var count int64
	if err := db.Model(&models.Book{}).Where("id = ?", bookID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return guardErr
}

func (r *bookRepository) SetCopyCounts(db *gorm.DB, bookID uuid.UUID, total, available int) error {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Book{}).
		Where("id = ?", bookID).
		Updates(map[string]interface{}{
			"total_copies":     total,
			"available_copies": available,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type borrowRecordRepository struct {
	db *gorm.DB
}

func NewBorrowRecordRepository(db *gorm.DB) BorrowRecordRepository {
	return &borrowRecordRepository{db: db}
}

func (r *borrowRecordRepository) Create(db *gorm.DB, record *models.BorrowRecord) error {
	if db == nil {
		db = r.db
	}
	return db.Create(record).Error
}

func (r *borrowRecordRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.BorrowRecord, error) {
	if db == nil {
		db = r.db
	}
	var record models.BorrowRecord
	if err := db.First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *borrowRecordRepository) MarkReturned(db *gorm.DB, recordID uuid.UUID, returnedAt time.Time) error {
	if db == nil {
		db = r.db
	}
	// The return_date IS NULL guard is the double-return defence: a lost race
	// hits zero rows, never a second close.
	res := db.Model(&models.BorrowRecord{}).
		Where("id = ? AND return_date IS NULL", recordID).
		Update("return_date", returnedAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.BorrowRecord{}).Where("id = ?", recordID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrAlreadyReturned
	}
	return nil
}

func (r *borrowRecordRepository) FindOpenByMemberAndBook(db *gorm.DB, memberID, bookID uuid.UUID) (*models.BorrowRecord, error) {
	if db == nil {
		db = r.db
	}
	var record models.BorrowRecord
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("member_id = ? AND book_id = ? AND return_date IS NULL", memberID, bookID).
		Order("borrow_date ASC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *borrowRecordRepository) CountOpenByMember(db *gorm.DB, memberID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.BorrowRecord{}).
		Where("member_id = ? AND return_date IS NULL", memberID).
		Count(&count).Error
	return count, err
}

func (r *borrowRecordRepository) CountOpenByBook(db *gorm.DB, bookID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.BorrowRecord{}).
		Where("book_id = ? AND return_date IS NULL", bookID).
		Count(&count).Error
	return count, err
}

func (r *borrowRecordRepository) ListByMember(db *gorm.DB, memberID uuid.UUID) ([]models.BorrowRecord, error) {
	if db == nil {
		db = r.db
	}
	var records []models.BorrowRecord
	err := db.
		Preload("Book").
		Preload("Book.Genre").
		Where("member_id = ?", memberID).
		Order("borrow_date DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *borrowRecordRepository) ListOverdue(db *gorm.DB, asOf time.Time) ([]models.BorrowRecord, error) {
	if db == nil {
		db = r.db
	}
	var records []models.BorrowRecord
	err := db.
		Preload("Book").
		Where("return_date IS NULL AND due_date < ?", asOf).
		Order("due_date ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
