package services

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kalebWondimu/library-backend/internal/models"
	"github.com/kalebWondimu/library-backend/internal/repositories"
)

// CatalogService manages books and genres. Copy-count changes go through
// SetTotalCopies so available_copies is always reconciled against the ledger;
// plain metadata updates never touch the counters.
type CatalogService interface {
	CreateBook(title, author string, publishedYear int, genreID *uuid.UUID, totalCopies int) (*models.Book, error)
	ListBooks() ([]models.Book, error)
	GetBook(id uuid.UUID) (*models.Book, error)
	UpdateBook(id uuid.UUID, title, author string, publishedYear int, genreID *uuid.UUID) (*models.Book, error)
	DeleteBook(id uuid.UUID) error
	SetTotalCopies(bookID uuid.UUID, newTotal int) (*models.Book, error)

	CreateGenre(name string) (*models.Genre, error)
	ListGenres() ([]models.Genre, error)
	DeleteGenre(id uuid.UUID) error
}

type catalogService struct {
	tx         repositories.TxRunner
	bookRepo   repositories.BookRepository
	genreRepo  repositories.GenreRepository
	recordRepo repositories.BorrowRecordRepository
	logger     *zap.Logger
}

func NewCatalogService(
	tx repositories.TxRunner,
	bookRepo repositories.BookRepository,
	genreRepo repositories.GenreRepository,
	recordRepo repositories.BorrowRecordRepository,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		tx:         tx,
		bookRepo:   bookRepo,
		genreRepo:  genreRepo,
		recordRepo: recordRepo,
		logger:     logger,
	}
}

// CreateBook creates a book with every copy available.
func (s *catalogService) CreateBook(title, author string, publishedYear int, genreID *uuid.UUID, totalCopies int) (*models.Book, error) {
	if totalCopies < 0 {
		return nil, ErrInvalidCopyCount
	}
	if genreID != nil {
		if _, err := s.genreRepo.GetByID(nil, *genreID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrGenreNotFound
			}
			return nil, err
		}
	}

	book := &models.Book{
		Title:           title,
		Author:          author,
		PublishedYear:   publishedYear,
		GenreID:         genreID,
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
	}
	if err := s.bookRepo.Create(nil, book); err != nil {
		return nil, err
	}
	s.logger.Info("book created",
		zap.String("book_id", book.ID.String()),
		zap.String("title", book.Title),
		zap.Int("total_copies", totalCopies))
	return book, nil
}

func (s *catalogService) ListBooks() ([]models.Book, error) {
	return s.bookRepo.List(nil)
}

func (s *catalogService) GetBook(id uuid.UUID) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

// UpdateBook changes metadata only; copy counts are owned by SetTotalCopies
// and the borrowing engine.
func (s *catalogService) UpdateBook(id uuid.UUID, title, author string, publishedYear int, genreID *uuid.UUID) (*models.Book, error) {
	if _, err := s.GetBook(id); err != nil {
		return nil, err
	}
	if genreID != nil {
		if _, err := s.genreRepo.GetByID(nil, *genreID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrGenreNotFound
			}
			return nil, err
		}
	}
	book := &models.Book{
		ID:            id,
		Title:         title,
		Author:        author,
		PublishedYear: publishedYear,
		GenreID:       genreID,
	}
	if err := s.bookRepo.Update(nil, book); err != nil {
		return nil, err
	}
	return s.GetBook(id)
}

func (s *catalogService) DeleteBook(id uuid.UUID) error {
	return s.tx.RunInTx(func(tx *gorm.DB) error {
		if _, err := s.bookRepo.GetByIDForUpdate(tx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		open, err := s.recordRepo.CountOpenByBook(tx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			return ErrBookHasActiveLoans
		}
		return s.bookRepo.Delete(tx, id)
	})
}

// SetTotalCopies adjusts a book's total copy count and recomputes the
// available counter from the open-loan count, all under the book's row lock.
// Reducing the total below the number currently on loan is rejected, never
// force-adjusted.
func (s *catalogService) SetTotalCopies(bookID uuid.UUID, newTotal int) (*models.Book, error) {
	if newTotal < 0 {
		return nil, ErrInvalidCopyCount
	}

	var updated *models.Book
	err := s.tx.RunInTx(func(tx *gorm.DB) error {
		if _, err := s.bookRepo.GetByIDForUpdate(tx, bookID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		open, err := s.recordRepo.CountOpenByBook(tx, bookID)
		if err != nil {
			return err
		}
		available := newTotal - int(open)
		if available < 0 {
			s.logger.Warn("copy count change rejected",
				zap.String("book_id", bookID.String()),
				zap.Int("new_total", newTotal),
				zap.Int64("on_loan", open))
			return ErrInvalidCopyCount
		}

		if err := s.bookRepo.SetCopyCounts(tx, bookID, newTotal, available); err != nil {
			return err
		}
		book, err := s.bookRepo.GetByID(tx, bookID)
		if err != nil {
			return err
		}
		updated = book
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("copy counts reconciled",
		zap.String("book_id", bookID.String()),
		zap.Int("total_copies", updated.TotalCopies),
		zap.Int("available_copies", updated.AvailableCopies))
	return updated, nil
}

func (s *catalogService) CreateGenre(name string) (*models.Genre, error) {
	genre := &models.Genre{Name: name}
	if err := s.genreRepo.Create(nil, genre); err != nil {
		return nil, err
	}
	return genre, nil
}

func (s *catalogService) ListGenres() ([]models.Genre, error) {
	return s.genreRepo.List(nil)
}

func (s *catalogService) DeleteGenre(id uuid.UUID) error {
	if _, err := s.genreRepo.GetByID(nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGenreNotFound
		}
		return err
	}
	return s.genreRepo.Delete(nil, id)
}
