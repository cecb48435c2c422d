package repository

import (
	"context"
	"tp_portal_backend/internal/model"

	"gorm.io/gorm"
)

type RegistrationRepository struct {
	DB *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) *RegistrationRepository {
	return &RegistrationRepository{DB: db}
}

func (r *RegistrationRepository) Create(ctx context.Context, rn *model.RegistrationNumber) error {
	return r.DB.WithContext(ctx).Create(rn).Error
}

func (r *RegistrationRepository) Exists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.RegistrationNumber{}).
		Where("number = ?", number).
		Count(&count).Error
	return count > 0, err
}

func (r *RegistrationRepository) List(ctx context.Context) ([]model.RegistrationNumber, error) {
	var numbers []model.RegistrationNumber
	err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&numbers).Error
	return numbers, err
}

func (r *RegistrationRepository) Delete(ctx context.Context, number string) error {
	res := r.DB.WithContext(ctx).Where("number = ?", number).Delete(&model.RegistrationNumber{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
