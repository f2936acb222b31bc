package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kalebWondimu/library-backend/internal/models"
)

type MemberRepository interface {
	Create(db *gorm.DB, member *models.Member) error
	List(db *gorm.DB) ([]models.Member, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Member, error)
	Update(db *gorm.DB, member *models.Member) error
	Delete(db *gorm.DB, id uuid.UUID) error
}

type GenreRepository interface {
	Create(db *gorm.DB, genre *models.Genre) error
	List(db *gorm.DB) ([]models.Genre, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Genre, error)
	GetByName(db *gorm.DB, name string) (*models.Genre, error)
	Delete(db *gorm.DB, id uuid.UUID) error
}

type StaffRepository interface {
	Create(db *gorm.DB, staff *models.Staff) error
	GetByUsername(db *gorm.DB, username string) (*models.Staff, error)
	List(db *gorm.DB) ([]models.Staff, error)
}

type memberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(db *gorm.DB, member *models.Member) error {
	if db == nil {
		db = r.db
	}
	return db.Create(member).Error
}

func (r *memberRepository) List(db *gorm.DB) ([]models.Member, error) {
	if db == nil {
		db = r.db
	}
	var members []models.Member
	if err := db.Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Member, error) {
	if db == nil {
		db = r.db
	}
	var member models.Member
	if err := db.First(&member, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) Update(db *gorm.DB, member *models.Member) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Member{}).
		Where("id = ?", member.ID).
		Updates(map[string]interface{}{
			"name":      member.Name,
			"email":     member.Email,
			"phone":     member.Phone,
			"join_date": member.JoinDate,
		}).Error
}

func (r *memberRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Member{}, "id = ?", id).Error
}

type genreRepository struct {
	db *gorm.DB
}

func NewGenreRepository(db *gorm.DB) GenreRepository {
	return &genreRepository{db: db}
}

func (r *genreRepository) Create(db *gorm.DB, genre *models.Genre) error {
	if db == nil {
		db = r.db
	}
	return db.Create(genre).Error
}

func (r *genreRepository) List(db *gorm.DB) ([]models.Genre, error) {
	if db == nil {
		db = r.db
	}
	var genres []models.Genre
	if err := db.Order("name ASC").Find(&genres).Error; err != nil {
		return nil, err
	}
	return genres, nil
}

func (r *genreRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Genre, error) {
	if db == nil {
		db = r.db
	}
	var genre models.Genre
	if err := db.First(&genre, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &genre, nil
}

func (r *genreRepository) GetByName(db *gorm.DB, name string) (*models.Genre, error) {
	if db == nil {
		db = r.db
	}
	var genre models.Genre
	if err := db.First(&genre, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &genre, nil
}

func (r *genreRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Genre{}, "id = ?", id).Error
}

type staffRepository struct {
	db *gorm.DB
}

func NewStaffRepository(db *gorm.DB) StaffRepository {
	return &staffRepository{db: db}
}

func (r *staffRepository) Create(db *gorm.DB, staff *models.Staff) error {
	if db == nil {
		db = r.db
	}
	return db.Create(staff).Error
}

func (r *staffRepository) GetByUsername(db *gorm.DB, username string) (*models.Staff, error) {
	if db == nil {
		db = r.db
	}
	var staff models.Staff
	if err := db.First(&staff, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) List(db *gorm.DB) ([]models.Staff, error) {
	if db == nil {
		db = r.db
	}
	var staff []models.Staff
	if err := db.Find(&staff).Error; err != nil {
		return nil, err
	}
	return staff, nil
}
