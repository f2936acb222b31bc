package main

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kalebWondimu/library-backend/internal/models"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := seed(db); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Database seeded successfully!")
}

// seed is idempotent: every record is looked up before insertion so the
// command can run repeatedly against the same database.
func seed(db *gorm.DB) error {
	genreNames := []string{
		"Fiction", "Non-Fiction", "Science Fiction", "Mystery",
		"Romance", "Biography", "History", "Science", "Technology", "Philosophy",
	}

	genresByName := make(map[string]uuid.UUID, len(genreNames))
	for _, name := range genreNames {
		var genre models.Genre
		err := db.First(&genre, "name = ?", name).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			genre = models.Genre{Name: name}
			if err := db.Create(&genre).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		genresByName[name] = genre.ID
	}

	sampleBooks := []struct {
		title  string
		author string
		year   int
		copies int
		genre  string
	}{
		{"The Great Gatsby", "F. Scott Fitzgerald", 1925, 3, "Fiction"},
		{"1984", "George Orwell", 1949, 2, "Science Fiction"},
		{"Pride and Prejudice", "Jane Austen", 1813, 4, "Romance"},
		{"The Hobbit", "J.R.R. Tolkien", 1937, 2, "Fiction"},
		{"A Brief History of Time", "Stephen Hawking", 1988, 1, "Science"},
	}

	for _, b := range sampleBooks {
		var book models.Book
		err := db.First(&book, "title = ? AND author = ?", b.title, b.author).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			genreID := genresByName[b.genre]
			book = models.Book{
				Title:           b.title,
				Author:          b.author,
				PublishedYear:   b.year,
				GenreID:         &genreID,
				TotalCopies:     b.copies,
				AvailableCopies: b.copies,
			}
			if err := db.Create(&book).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}

	sampleMembers := []models.Member{
		{Name: "John Doe", Email: "john.doe@example.com", Phone: "555-0101", JoinDate: mustDate("2023-01-15")},
		{Name: "Jane Smith", Email: "jane.smith@example.com", Phone: "555-0102", JoinDate: mustDate("2023-02-20")},
		{Name: "Bob Johnson", Email: "bob.johnson@example.com", Phone: "555-0103", JoinDate: mustDate("2023-03-10")},
	}

	for _, m := range sampleMembers {
		var member models.Member
		err := db.First(&member, "email = ?", m.Email).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&m).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}

	staffAccounts := []struct {
		username string
		email    string
		role     models.StaffRole
	}{
		{"admin", "admin@library.com", models.StaffRoleAdmin},
		{"librarian", "librarian@library.com", models.StaffRoleLibrarian},
	}

	for _, s := range staffAccounts {
		var staff models.Staff
		err := db.First(&staff, "username = ?", s.username).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			staff = models.Staff{
				Username:     s.username,
				Email:        s.email,
				PasswordHash: string(hash),
				Role:         s.role,
			}
			if err := db.Create(&staff).Error; err != nil {
				return err
			}
			log.Printf("Default %s user created: %s / password123", s.role, s.email)
		} else if err != nil {
			return err
		}
	}

	return nil
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
