package store

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"reviewlens/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&ReviewModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateReview inserts a draft; the insert assigns id and created_at in one
// write, so the record is never observable half-formed.
func (s *GormStore) CreateReview(draft domain.Review) (domain.Review, error) {
	model, err := reviewToModel(draft)
	if err != nil {
		return domain.Review{}, fmt.Errorf("encode review: %w", err)
	}
	model.ID = 0
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Review{}, fmt.Errorf("insert review: %w", err)
	}
	return reviewFromModel(model)
}

// GetReview retrieves a review by id.
func (s *GormStore) GetReview(id int64) (domain.Review, bool, error) {
	var model ReviewModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Review{}, false, nil
		}
		return domain.Review{}, false, err
	}
	review, err := reviewFromModel(model)
	if err != nil {
		return domain.Review{}, false, fmt.Errorf("decode review: %w", err)
	}
	return review, true, nil
}

// ListReviews returns one page ordered newest-first and the total matching count.
func (s *GormStore) ListReviews(filter ReviewFilter) ([]domain.Review, int64, error) {
	query := s.db.Model(&ReviewModel{})
	if filter.Sentiment != "" {
		query = query.Where("sentiment = ?", string(filter.Sentiment))
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []ReviewModel
	if err := query.
		Order("created_at DESC, id DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}
	reviews := make([]domain.Review, 0, len(models))
	for _, m := range models {
		review, err := reviewFromModel(m)
		if err != nil {
			return nil, 0, fmt.Errorf("decode review %d: %w", m.ID, err)
		}
		reviews = append(reviews, review)
	}
	return reviews, total, nil
}

// DeleteReview removes the record; ok reports whether a row was deleted.
func (s *GormStore) DeleteReview(id int64) (bool, error) {
	res := s.db.Delete(&ReviewModel{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
