package repository

import (
	"context"
	"tp_portal_backend/internal/model"

	"gorm.io/gorm"
)

type ReviewRepository struct {
	DB *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{DB: db}
}

func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	return r.DB.WithContext(ctx).Create(review).Error
}

func (r *ReviewRepository) ExistsForStudent(ctx context.Context, studentID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Review{}).
		Where("student_id = ?", studentID).
		Count(&count).Error
	return count > 0, err
}

func (r *ReviewRepository) ListBySupervisor(ctx context.Context, supervisorID string) ([]model.Review, error) {
	var list []model.Review
	err := r.DB.WithContext(ctx).
		Where("supervisor_id = ?", supervisorID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

type SupervisorRating struct {
	SupervisorID string
	Average      float64
	Count        int64
}

// AverageBySupervisor aggregates the ratings each supervisor received.
func (r *ReviewRepository) AverageBySupervisor(ctx context.Context) (map[string]SupervisorRating, error) {
	var rows []SupervisorRating
	err := r.DB.WithContext(ctx).Model(&model.Review{}).
		Select("supervisor_id, AVG(rating) AS average, COUNT(*) AS count").
		Group("supervisor_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]SupervisorRating, len(rows))
	for _, row := range rows {
		result[row.SupervisorID] = row
	}
	return result, nil
}
